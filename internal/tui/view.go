package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"learning-diary/internal/features"
	"learning-diary/internal/models"
)

const waitingText = "앱을 안전하게 준비하고 있습니다..."

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).MarginTop(1)
	focusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
	resultStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	errorStyle   = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("196")).Padding(1, 2)
	modalStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("214")).Padding(1, 2)
)

// loadingText is shown in place of a feature's result while it is generated.
var loadingText = map[features.ID]string{
	features.LifeFeedback:  "AI 선생님이 답장을 쓰고 있어요...",
	features.Coaching:      "우리 친구의 글을 꼼꼼히 읽어보고 있어요...",
	features.Problems:      "문제를 만들고 있어요...",
	features.DeepDive:      "더 알아볼 만한 주제를 찾고 있어요...",
	features.Goal:          "내일의 목표를 고민하고 있어요...",
	features.Story:         "재미있는 동화를 만들고 있어요...",
	features.PraiseSticker: "칭찬 스티커를 그리고 있어요...",
}

func (m *Model) View() string {
	switch m.state {
	case stateWaiting:
		return fmt.Sprintf("\n  %s %s\n", m.spinner.View(), waitingText)
	case stateFatal:
		body := titleStyle.Render("🚨 앱에 문제가 발생했습니다") + "\n\n" + m.fatal
		return "\n" + errorStyle.Render(body) + "\n\n" + faintStyle.Render("q 종료") + "\n"
	}

	if modal := m.session.Modal(); modal != "" {
		return "\n" + modalStyle.Render(modal+"\n\n"+faintStyle.Render("enter 확인")) + "\n"
	}

	var b strings.Builder
	rec := m.session.Record()
	cur := m.current()

	name := m.session.StudentName()
	if name == "" {
		name = "학생"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("👋 안녕하세요! %s님", name)))
	b.WriteString(faintStyle.Render("  " + m.session.Date()))
	b.WriteString("\n")
	b.WriteString(m.line(cur, target{kind: targetName}, "이름 설정 "+m.nameInput.View()))

	b.WriteString(sectionStyle.Render("✅ 오늘의 학습 루틴") + "\n")
	for _, item := range models.ChecklistItems() {
		box := "[ ]"
		if rec.Checked(item.ID) {
			box = "[x]"
		}
		b.WriteString(m.line(cur, target{kind: targetChecklist, id: item.ID}, box+" "+item.Label))
	}

	b.WriteString(sectionStyle.Render("😊 오늘의 감정") + "\n")
	for _, e := range models.Emotions() {
		mark := "( )"
		if rec.SelectedEmotion == e.ID {
			mark = "(•)"
		}
		b.WriteString(m.line(cur, target{kind: targetEmotion, id: e.ID}, fmt.Sprintf("%s %s %s", mark, e.Emoji, e.Label)))
	}
	b.WriteString(m.line(cur, target{kind: targetText, id: models.FieldEmotionReason}, m.textInputs[models.FieldEmotionReason].View()))

	b.WriteString(sectionStyle.Render("💭 오늘의 생각") + "\n")
	b.WriteString(m.line(cur, target{kind: targetText, id: models.FieldDailyThought}, m.textInputs[models.FieldDailyThought].View()))
	b.WriteString(m.featureButton(cur, features.LifeFeedback))
	b.WriteString(m.result(features.LifeFeedback, renderText(rec.LifeFeedback())))

	b.WriteString(sectionStyle.Render("📚 오늘 배운 내용") + "\n")
	b.WriteString(m.line(cur, target{kind: targetText, id: models.FieldStudyContent}, m.textInputs[models.FieldStudyContent].View()))
	for _, f := range features.All() {
		if f.ID == features.LifeFeedback {
			continue
		}
		b.WriteString(m.featureButton(cur, f.ID))
	}

	b.WriteString(m.result(features.Coaching, renderCoaching(rec.AICoachingReport)))
	b.WriteString(m.result(features.DeepDive, renderDeepDive(rec.AIDeepDive)))
	b.WriteString(m.result(features.Goal, renderText(rec.AIGoalSuggestion)))
	b.WriteString(m.result(features.Story, renderStory(rec)))
	b.WriteString(m.result(features.PraiseSticker, renderSticker(rec.PraiseSticker)))
	b.WriteString(m.problems(cur, rec))

	b.WriteString("\n")
	send := "💌 오늘 일기 저장하기"
	if m.session.SendingDiary() {
		send = "💌 보내는 중..."
	}
	b.WriteString(m.line(cur, target{kind: targetSend}, send))
	b.WriteString(faintStyle.Render("이 버튼을 누르면 오늘 작성한 모든 내용이 선생님께 전달됩니다.") + "\n\n")
	b.WriteString(faintStyle.Render(keys.helpLine()) + "\n")
	return b.String()
}

func (m *Model) line(cur, t target, text string) string {
	if cur == t {
		return focusStyle.Render("▸ "+text) + "\n"
	}
	return "  " + text + "\n"
}

func (m *Model) featureButton(cur target, id features.ID) string {
	f := features.MustLookup(id)
	label := f.Label
	if m.session.Loading(id) {
		label += " ⏳"
	}
	return m.line(cur, target{kind: targetFeature, id: string(id)}, label)
}

// result renders a feature's output box, or its loading text while running.
func (m *Model) result(id features.ID, body string) string {
	if m.session.Loading(id) {
		return resultStyle.Render(faintStyle.Render(loadingText[id])) + "\n"
	}
	if body == "" {
		return ""
	}
	return resultStyle.Render(body) + "\n"
}

func (m *Model) problems(cur target, rec *models.DailyRecord) string {
	if m.session.Loading(features.Problems) {
		return m.result(features.Problems, "")
	}
	if len(rec.AIProblems) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(sectionStyle.Render("🧠 AI 추천 문제 풀어보기") + "\n")
	for i, p := range rec.AIProblems {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, p.Question))
		if i < len(m.answerInputs) {
			b.WriteString(m.line(cur, target{kind: targetAnswer, index: i}, m.answerInputs[i].View()))
		}
		if rec.RevealedAnswers[i] {
			b.WriteString(fmt.Sprintf("     정답: %s\n     해설: %s\n", p.SimpleAnswer, p.Explanation))
		} else {
			b.WriteString(m.line(cur, target{kind: targetReveal, index: i}, "정답 확인"))
		}
	}
	return b.String()
}

func renderText(s string) string {
	return strings.TrimSpace(s)
}

func renderCoaching(r *models.CoachingReport) string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("✍️ AI 맞춤형 학습 코칭\n요약: %s\n잘한 점: %s\n팁: %s\n%s", r.Summary, r.Strength, r.Tip, r.Comment)
}

func renderDeepDive(d *models.DeepDive) string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("🔍 더 알아보기: %s\n검색어: %s", d.Concept, d.Keyword)
}

// renderStory prefers the structured story and falls back to the older
// plain-text field.
func renderStory(rec *models.DailyRecord) string {
	if s := rec.AIStoryData; s != nil {
		var b strings.Builder
		b.WriteString("📖 " + s.Title + "\n\n" + s.Story + "\n\n" + s.Summary)
		for i, q := range s.Questions {
			b.WriteString(fmt.Sprintf("\n%d) %s", i+1, q))
		}
		return b.String()
	}
	if rec.AIStory != "" {
		return "📖 " + rec.AIStory
	}
	return ""
}

func renderSticker(s *models.PraiseSticker) string {
	if s == nil {
		return ""
	}
	out := "🏅 " + s.Message
	if s.ImageDataURL != "" {
		out += "\n" + faintStyle.Render("(스티커 이미지가 저장되었어요)")
	}
	return out
}
