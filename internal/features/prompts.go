package features

import (
	"fmt"
	"strings"

	"learning-diary/internal/models"
)

func orNone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "기록 없음"
	}
	return s
}

func emotionLabel(rec *models.DailyRecord) string {
	if e, found := models.EmotionByID(rec.SelectedEmotion); found {
		return e.Label
	}
	return "표시 안 함"
}

func checkedLabels(rec *models.DailyRecord) string {
	var labels []string
	for _, item := range models.ChecklistItems() {
		if rec.Checked(item.ID) {
			labels = append(labels, item.Label)
		}
	}
	if len(labels) == 0 {
		return "없음"
	}
	return strings.Join(labels, ", ")
}

func lifeFeedbackPrompt(rec *models.DailyRecord) string {
	return fmt.Sprintf(`당신은 초등학생의 마음을 잘 알아주는 다정한 담임 선생님입니다.
학생이 오늘 남긴 감정과 생각을 읽고, 공감과 격려가 담긴 짧은 답장을 써 주세요.

[오늘의 감정] %s
[감정의 이유] %s
[오늘의 생각] %s

규칙:
- 3~4문장, 친근한 존댓말로 작성하세요.
- 학생의 감정을 먼저 알아주고, 내일을 위한 따뜻한 한마디로 마무리하세요.
- 제목이나 머리말 없이 답장 본문만 출력하세요.`,
		emotionLabel(rec), orNone(rec.EmotionReason), orNone(rec.DailyThought))
}

func coachingPrompt(rec *models.DailyRecord) string {
	return fmt.Sprintf(`당신은 초등학생의 학습을 돕는 친절한 학습 코치입니다.
학생이 오늘 배운 내용을 읽고 맞춤형 학습 코칭 리포트를 작성해 주세요.

[오늘 배운 내용]
%s

[오늘 실천한 학습 루틴]
%s

다음 JSON 객체 형식으로만 응답하세요:
{"summary": "배운 내용 핵심 요약", "strength": "잘한 점", "tip": "더 잘하기 위한 학습 팁", "comment": "응원의 한마디"}`,
		strings.TrimSpace(rec.StudyContent), checkedLabels(rec))
}

func problemsPrompt(rec *models.DailyRecord) string {
	return fmt.Sprintf(`당신은 초등학생 눈높이에 맞춰 문제를 내는 선생님입니다.
학생이 오늘 배운 내용을 바탕으로 복습 문제 3개를 만들어 주세요.

[오늘 배운 내용]
%s

다음 JSON 배열 형식으로만 응답하세요:
[{"question": "문제", "simple_answer": "짧은 정답", "explanation": "쉬운 해설"}]`,
		strings.TrimSpace(rec.StudyContent))
}

func deepDivePrompt(rec *models.DailyRecord) string {
	return fmt.Sprintf(`당신은 호기심을 키워 주는 과학관 해설사입니다.
학생이 오늘 배운 내용과 이어지는, 더 알아보면 좋을 개념 하나를 추천해 주세요.

[오늘 배운 내용]
%s

다음 JSON 객체 형식으로만 응답하세요:
{"concept": "추천 개념에 대한 2~3문장 설명", "keyword": "검색용 핵심 키워드"}
배운 내용이 너무 짧거나 무엇을 배웠는지 알 수 없다면 keyword를 "정보 부족"으로 적고 concept에는 어떤 내용을 더 적으면 좋을지 안내해 주세요.`,
		strings.TrimSpace(rec.StudyContent))
}

func goalPrompt(rec *models.DailyRecord) string {
	return fmt.Sprintf(`당신은 초등학생의 성장을 돕는 담임 선생님입니다.
오늘의 기록을 보고 내일 실천할 수 있는 구체적인 목표 하나를 추천해 주세요.

[오늘 배운 내용]
%s

[오늘의 생각]
%s

규칙:
- 1~2문장으로, 학생이 바로 실천할 수 있게 작성하세요.
- 목표 문장만 출력하세요.`,
		orNone(rec.StudyContent), orNone(rec.DailyThought))
}

func storyPrompt(rec *models.DailyRecord) string {
	return fmt.Sprintf(`당신은 어린이 동화 작가입니다.
학생이 오늘 배운 내용을 주제로, 배운 개념이 자연스럽게 녹아 있는 짧은 동화를 지어 주세요.

[오늘 배운 내용]
%s

다음 JSON 객체 형식으로만 응답하세요:
{"title": "동화 제목", "story": "5~8문단의 동화 본문", "summary": "동화 속 학습 내용 정리", "questions": ["생각해 볼 질문1", "질문2"]}`,
		strings.TrimSpace(rec.StudyContent))
}

func stickerMessagePrompt(rec *models.DailyRecord) string {
	return fmt.Sprintf(`당신은 학생을 칭찬하는 담임 선생님입니다.
학생의 오늘 기록을 보고 칭찬 스티커에 들어갈 짧은 칭찬 문구를 한 문장으로 써 주세요.

[오늘 실천한 학습 루틴] %s
[오늘 배운 내용] %s

칭찬 문구만 출력하세요.`,
		checkedLabels(rec), orNone(rec.StudyContent))
}

// StickerImagePrompt builds the image prompt for a praise sticker from the
// generated message.
func StickerImagePrompt(message string) string {
	return fmt.Sprintf("A cute, colorful round praise sticker for an elementary school student, "+
		"cartoon style with a cheerful character and stars, flat vector illustration, white background. "+
		"Theme inspired by this praise message: %q. No text in the image.", strings.TrimSpace(message))
}
