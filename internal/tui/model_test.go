package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"learning-diary/internal/diary"
	"learning-diary/internal/features"
	"learning-diary/internal/identity"
	"learning-diary/internal/models"
)

type stubBackend struct {
	writes []models.Fields
	runs   []features.ID
	sent   []string
}

func (b *stubBackend) MergeWrite(_ context.Context, date string, fields models.Fields) (*models.DailyRecord, error) {
	b.writes = append(b.writes, fields)
	return &models.DailyRecord{}, nil
}

func (b *stubBackend) RunFeature(_ context.Context, date string, id features.ID, inputs *models.DailyRecord) (*models.FeatureResult, error) {
	b.runs = append(b.runs, id)
	return &models.FeatureResult{Status: "ok", Persisted: true}, nil
}

func (b *stubBackend) Dispatch(_ context.Context, studentID, content, date string) (string, error) {
	b.sent = append(b.sent, studentID)
	return models.MsgDispatchOK, nil
}

func (b *stubBackend) Subscribe(_ context.Context, date string) (<-chan *models.DailyRecord, func(), error) {
	return make(chan *models.DailyRecord), func() {}, nil
}

type stubProvider struct{ err error }

func (p stubProvider) CurrentUser() (*identity.User, bool) { return nil, false }

func (p stubProvider) SignInWithCustomToken(ctx context.Context, token string) (*identity.User, error) {
	return nil, p.err
}

func (p stubProvider) SignInAnonymously(ctx context.Context) (*identity.User, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &identity.User{ID: "u-1"}, nil
}

// drain runs a command and every command it batches, feeding session
// completions back into the model. Blink and spinner messages are dropped.
func drain(m *Model, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			drain(m, c)
		}
	case diary.SavedMsg, diary.FeatureDoneMsg, diary.DispatchDoneMsg:
		_, next := m.Update(msg)
		drain(m, next)
	}
}

func readyModel(t *testing.T, b *stubBackend) *Model {
	t.Helper()
	m := New(context.Background(), Options{Backend: b, Date: "2026-03-02"})
	m.Update(resolvedMsg{user: &identity.User{ID: "u-1"}})
	if m.state != stateReady {
		t.Fatalf("expected ready state, got %v", m.state)
	}
	return m
}

func focusOn(t *testing.T, m *Model, want target) {
	t.Helper()
	for i := 0; i < len(m.targets()); i++ {
		if m.current() == want {
			return
		}
		drain(m, m.move(1))
	}
	t.Fatalf("target %+v not reachable", want)
}

func press(m *Model, msg tea.KeyMsg) {
	_, cmd := m.Update(msg)
	drain(m, cmd)
}

func TestView_WaitingScreen(t *testing.T) {
	m := New(context.Background(), Options{})
	if !strings.Contains(m.View(), "앱을 안전하게 준비하고 있습니다...") {
		t.Fatalf("expected waiting screen, got %q", m.View())
	}
}

func TestView_InitErrorIsFatal(t *testing.T) {
	m := New(context.Background(), Options{InitErr: errors.New("server url is not set")})
	if m.Init() != nil {
		t.Fatalf("expected no start-up work after a configuration error")
	}
	view := m.View()
	if !strings.Contains(view, "초기화 오류가 발생했습니다: server url is not set") {
		t.Fatalf("unexpected view: %q", view)
	}
}

func TestResolve_AuthFailureIsFatal(t *testing.T) {
	m := New(context.Background(), Options{
		Resolver: identity.NewResolver(),
		Provider: stubProvider{err: errors.New("network down")},
		Backend:  &stubBackend{},
	})
	msg := m.resolve()()
	m.Update(msg)

	if m.state != stateFatal || !strings.Contains(m.View(), "사용자 인증에 실패했습니다:") {
		t.Fatalf("expected auth failure screen, got %q", m.View())
	}
}

func TestSnapshotHydratesInputs(t *testing.T) {
	m := readyModel(t, &stubBackend{})
	m.Update(subscribedMsg{updates: make(chan *models.DailyRecord), cancel: func() {}})

	m.Update(diary.SnapshotMsg{Record: &models.DailyRecord{
		StudyContent: "광합성",
		AIProblems:   []models.Problem{{Question: "잎의 색소는?", SimpleAnswer: "엽록소"}},
		AIStory:      "옛날 옛적에",
	}})

	if m.textInputs[models.FieldStudyContent].Value() != "광합성" {
		t.Fatalf("expected study content to be hydrated")
	}
	if len(m.answerInputs) != 1 {
		t.Fatalf("expected one answer input, got %d", len(m.answerInputs))
	}
	view := m.View()
	if !strings.Contains(view, "잎의 색소는?") || !strings.Contains(view, "옛날 옛적에") {
		t.Fatalf("expected problems and legacy story in view")
	}
}

func TestTypingWritesOnlyOnLeave(t *testing.T) {
	b := &stubBackend{}
	m := readyModel(t, b)
	focusOn(t, m, target{kind: targetText, id: models.FieldStudyContent})
	before := len(b.writes)

	press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("광합성")})
	if len(b.writes) != before {
		t.Fatalf("typing must not write")
	}

	press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if len(b.writes) != before+1 {
		t.Fatalf("expected exactly one write on leave, got %d", len(b.writes)-before)
	}
	if got := b.writes[len(b.writes)-1][models.FieldStudyContent]; got != "광합성" {
		t.Fatalf("unexpected write: %v", got)
	}

	press(m, tea.KeyMsg{Type: tea.KeyTab})
	if len(b.writes) != before+1 {
		t.Fatalf("leaving a field that is not being edited must not write")
	}
}

func TestChecklistAndSend(t *testing.T) {
	b := &stubBackend{}
	m := readyModel(t, b)

	press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("민준")})
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.session.StudentName() != "민준" {
		t.Fatalf("expected name to be set, got %q", m.session.StudentName())
	}

	focusOn(t, m, target{kind: targetChecklist, id: "concentration"})
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.session.Record().Checked("concentration") {
		t.Fatalf("expected checklist item to toggle")
	}

	focusOn(t, m, target{kind: targetSend})
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(b.sent) != 1 || b.sent[0] != "민준" {
		t.Fatalf("unexpected dispatches: %v", b.sent)
	}
	if !strings.Contains(m.View(), models.MsgDispatchOK) {
		t.Fatalf("expected confirmation modal")
	}

	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.session.Modal() != "" {
		t.Fatalf("expected modal to be dismissed")
	}
}

func TestFeaturePreconditionShowsModal(t *testing.T) {
	b := &stubBackend{}
	m := readyModel(t, b)

	focusOn(t, m, target{kind: targetFeature, id: string(features.Story)})
	press(m, tea.KeyMsg{Type: tea.KeyEnter})

	if len(b.runs) != 0 {
		t.Fatalf("expected no feature call, got %v", b.runs)
	}
	if !strings.Contains(m.View(), "먼저 '오늘 배운 내용'을 작성해주세요.") {
		t.Fatalf("expected precondition modal, got %q", m.View())
	}
}
