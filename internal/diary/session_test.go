package diary

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"learning-diary/internal/features"
	"learning-diary/internal/models"
)

type stubBackend struct {
	writes     []models.Fields
	writeErr   error
	runs       []features.ID
	inputs     *models.DailyRecord
	result     *models.FeatureResult
	runErr     error
	dispatched []string
	content    string
	sendErr    error
}

func (b *stubBackend) MergeWrite(_ context.Context, date string, fields models.Fields) (*models.DailyRecord, error) {
	b.writes = append(b.writes, fields)
	return &models.DailyRecord{}, b.writeErr
}

func (b *stubBackend) RunFeature(_ context.Context, date string, id features.ID, inputs *models.DailyRecord) (*models.FeatureResult, error) {
	b.runs = append(b.runs, id)
	b.inputs = inputs
	return b.result, b.runErr
}

func (b *stubBackend) Dispatch(_ context.Context, studentID, content, date string) (string, error) {
	b.dispatched = append(b.dispatched, studentID)
	b.content = content
	return models.MsgDispatchOK, b.sendErr
}

type userErr struct{ msg string }

func (e *userErr) Error() string       { return "backend error: " + e.msg }
func (e *userErr) UserMessage() string { return e.msg }

// run executes a command synchronously and feeds its message back.
func run(s *Session, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	s.Apply(cmd())
}

func newSession(b *stubBackend) *Session {
	return NewSession(context.Background(), b, "2026-03-02", "")
}

func TestToggleChecklistTwice(t *testing.T) {
	b := &stubBackend{}
	s := newSession(b)
	s.Apply(SnapshotMsg{Record: &models.DailyRecord{LearningChecklist: map[string]bool{"homework": true}, DailyThought: "유지"}})

	run(s, s.ToggleChecklist("concentration"))
	run(s, s.ToggleChecklist("concentration"))

	if len(b.writes) != 2 {
		t.Fatalf("expected one write per toggle, got %d", len(b.writes))
	}
	want := []models.Fields{
		{models.FieldLearningChecklist: map[string]interface{}{"concentration": true}},
		{models.FieldLearningChecklist: map[string]interface{}{"concentration": false}},
	}
	if !reflect.DeepEqual(b.writes, want) {
		t.Fatalf("unexpected writes: %+v", b.writes)
	}
	rec := s.Record()
	if rec.Checked("concentration") || !rec.Checked("homework") || rec.DailyThought != "유지" {
		t.Fatalf("unexpected local state: %+v", rec)
	}
}

func TestToggleChecklistUnknownID(t *testing.T) {
	b := &stubBackend{}
	s := newSession(b)
	if cmd := s.ToggleChecklist("nap"); cmd != nil {
		t.Fatalf("expected no command for unknown id")
	}
}

func TestEditWritesOnlyOnBlur(t *testing.T) {
	for _, field := range TextFields {
		t.Run(field, func(t *testing.T) {
			b := &stubBackend{}
			s := newSession(b)

			s.Edit(field, "첫")
			s.Edit(field, "첫 번째 글")
			if len(b.writes) != 0 {
				t.Fatalf("editing must not write, got %+v", b.writes)
			}

			run(s, s.Blur(field))
			if len(b.writes) != 1 {
				t.Fatalf("expected exactly one write on blur, got %d", len(b.writes))
			}
			if b.writes[0][field] != "첫 번째 글" {
				t.Fatalf("expected latest value, got %+v", b.writes[0])
			}
		})
	}
}

func TestBlurEmotionReasonCarriesEmotion(t *testing.T) {
	b := &stubBackend{}
	s := newSession(b)

	run(s, s.SelectEmotion("tired"))
	s.Edit(models.FieldEmotionReason, "늦게 잤다")
	run(s, s.Blur(models.FieldEmotionReason))

	last := b.writes[len(b.writes)-1]
	if last[models.FieldEmotionReason] != "늦게 잤다" || last[models.FieldSelectedEmotion] != "tired" {
		t.Fatalf("unexpected write: %+v", last)
	}
}

func TestSnapshotKeepsUnsavedEdits(t *testing.T) {
	s := newSession(&stubBackend{})
	s.Edit(models.FieldStudyContent, "쓰는 중")

	s.Apply(SnapshotMsg{Record: &models.DailyRecord{StudyContent: "서버 값", DailyThought: "다른 기기"}})

	rec := s.Record()
	if rec.StudyContent != "쓰는 중" || rec.DailyThought != "다른 기기" {
		t.Fatalf("unexpected merge of snapshot: %+v", rec)
	}

	run(s, s.Blur(models.FieldStudyContent))
	s.Apply(SnapshotMsg{Record: &models.DailyRecord{StudyContent: "서버 값"}})
	if s.Record().StudyContent != "서버 값" {
		t.Fatalf("expected snapshot to win after blur")
	}
}

func TestSnapshotAbsentKeepsLocalState(t *testing.T) {
	s := newSession(&stubBackend{})
	run(s, s.SelectEmotion("good"))
	s.Apply(SnapshotMsg{})
	if s.Record().SelectedEmotion != "good" {
		t.Fatalf("absent document must not clear local state")
	}
}

func TestRequestFeatureWithoutStudyContentMakesNoCalls(t *testing.T) {
	for _, id := range []features.ID{features.Problems, features.Coaching, features.DeepDive, features.Story} {
		t.Run(string(id), func(t *testing.T) {
			b := &stubBackend{}
			s := newSession(b)
			s.Edit(models.FieldStudyContent, "   ")

			if cmd := s.RequestFeature(id); cmd != nil {
				t.Fatalf("expected no command")
			}
			if len(b.runs) != 0 || len(b.writes) != 0 {
				t.Fatalf("expected zero backend calls, got runs=%v writes=%v", b.runs, b.writes)
			}
			if s.Modal() != "먼저 '오늘 배운 내용'을 작성해주세요." {
				t.Fatalf("unexpected modal: %q", s.Modal())
			}
			if s.Loading(id) {
				t.Fatalf("loading flag must stay false")
			}
		})
	}
}

func TestRequestFeatureIgnoredWhileLoading(t *testing.T) {
	b := &stubBackend{result: &models.FeatureResult{Status: "ok", Persisted: true}}
	s := newSession(b)
	s.Edit(models.FieldStudyContent, "광합성")

	first := s.RequestFeature(features.Coaching)
	if first == nil || !s.Loading(features.Coaching) {
		t.Fatalf("expected request to start")
	}
	if again := s.RequestFeature(features.Coaching); again != nil {
		t.Fatalf("expected second request to be ignored")
	}
	if other := s.RequestFeature(features.Story); other == nil {
		t.Fatalf("other features must not be blocked")
	}

	run(s, first)
	if s.Loading(features.Coaching) {
		t.Fatalf("expected loading flag to reset")
	}
	if len(b.runs) != 1 || b.inputs.StudyContent != "광합성" {
		t.Fatalf("unexpected runs %v inputs %+v", b.runs, b.inputs)
	}
}

func TestRequestFeatureUpstreamFailure(t *testing.T) {
	b := &stubBackend{runErr: &userErr{msg: models.MsgAIFailed}}
	s := newSession(b)
	s.Edit(models.FieldStudyContent, "광합성")

	run(s, s.RequestFeature(features.Problems))

	if s.Loading(features.Problems) {
		t.Fatalf("expected loading flag to reset")
	}
	if s.Modal() != models.MsgAIFailed {
		t.Fatalf("unexpected modal: %q", s.Modal())
	}
	if len(b.writes) != 0 {
		t.Fatalf("expected no write, got %+v", b.writes)
	}
	if len(s.Record().AIProblems) != 0 {
		t.Fatalf("expected no local result")
	}
}

func TestRequestFeatureTransportFailureUsesGenericMessage(t *testing.T) {
	b := &stubBackend{runErr: errors.New("connection refused")}
	s := newSession(b)
	s.Edit(models.FieldStudyContent, "광합성")

	run(s, s.RequestFeature(features.Coaching))
	if s.Modal() != models.MsgAIFailed {
		t.Fatalf("unexpected modal: %q", s.Modal())
	}
}

func TestRequestFeaturePersistenceFailure(t *testing.T) {
	b := &stubBackend{runErr: &userErr{msg: models.MsgSaveFailed}}
	s := newSession(b)
	s.Edit(models.FieldStudyContent, "광합성")

	run(s, s.RequestFeature(features.Goal))
	if s.Modal() != "데이터 저장에 실패했습니다." {
		t.Fatalf("unexpected modal: %q", s.Modal())
	}
}

func TestRequestFeatureAppliesResult(t *testing.T) {
	b := &stubBackend{result: &models.FeatureResult{
		Status:    "ok",
		Persisted: true,
		Fields: models.Fields{
			models.FieldAIProblems:      []interface{}{map[string]interface{}{"question": "Q", "simple_answer": "A", "explanation": "E"}},
			models.FieldUserAnswers:     nil,
			models.FieldRevealedAnswers: nil,
		},
	}}
	s := newSession(b)
	s.Apply(SnapshotMsg{Record: &models.DailyRecord{
		StudyContent:    "광합성",
		UserAnswers:     map[int]string{0: "old"},
		RevealedAnswers: map[int]bool{0: true},
	}})

	run(s, s.RequestFeature(features.Problems))

	rec := s.Record()
	if len(rec.AIProblems) != 1 || rec.AIProblems[0].SimpleAnswer != "A" {
		t.Fatalf("unexpected problems: %+v", rec.AIProblems)
	}
	if len(rec.UserAnswers) != 0 || len(rec.RevealedAnswers) != 0 {
		t.Fatalf("expected answers to reset, got %+v %+v", rec.UserAnswers, rec.RevealedAnswers)
	}
	if s.Modal() != "" {
		t.Fatalf("unexpected modal: %q", s.Modal())
	}
}

func TestSaveFailureShowsModalWithoutRollback(t *testing.T) {
	b := &stubBackend{writeErr: errors.New("permission denied")}
	s := newSession(b)

	run(s, s.ToggleChecklist("homework"))

	if s.Modal() != "데이터 저장에 실패했습니다." {
		t.Fatalf("unexpected modal: %q", s.Modal())
	}
	if !s.Record().Checked("homework") {
		t.Fatalf("local state must not be rolled back")
	}
	s.DismissModal()
	if s.Modal() != "" {
		t.Fatalf("expected modal to be dismissed")
	}
}

func TestQuizAnswers(t *testing.T) {
	b := &stubBackend{}
	s := newSession(b)
	s.Apply(SnapshotMsg{Record: &models.DailyRecord{AIProblems: []models.Problem{{Question: "Q"}}}})

	s.EditAnswer(0, "엽록체")
	if len(b.writes) != 0 {
		t.Fatalf("editing an answer must not write")
	}
	run(s, s.BlurAnswer(0))
	run(s, s.RevealAnswer(0))
	if cmd := s.RevealAnswer(3); cmd != nil {
		t.Fatalf("expected out-of-range reveal to be ignored")
	}

	want := []models.Fields{
		{models.FieldUserAnswers: map[string]interface{}{"0": "엽록체"}},
		{models.FieldRevealedAnswers: map[string]interface{}{"0": true}},
	}
	if !reflect.DeepEqual(b.writes, want) {
		t.Fatalf("unexpected writes: %+v", b.writes)
	}
	if s.Answer(0) != "엽록체" || !s.Record().RevealedAnswers[0] {
		t.Fatalf("unexpected local state: %+v", s.Record())
	}
}

func TestSendDiary(t *testing.T) {
	b := &stubBackend{}
	s := newSession(b)

	run(s, s.ToggleChecklist("concentration"))
	run(s, s.SelectEmotion("good"))
	s.Edit(models.FieldDailyThought, "오늘은 즐거웠다")
	run(s, s.Blur(models.FieldDailyThought))

	if cmd := s.SendDiary(); cmd != nil {
		t.Fatalf("expected dispatch to require a name")
	}
	if s.Modal() != models.MsgNoStudentName || len(b.dispatched) != 0 {
		t.Fatalf("unexpected state: modal=%q dispatched=%v", s.Modal(), b.dispatched)
	}

	s.SetStudentName("  민준 ")
	cmd := s.SendDiary()
	if !s.SendingDiary() {
		t.Fatalf("expected sending flag")
	}
	if again := s.SendDiary(); again != nil {
		t.Fatalf("expected second send to be ignored")
	}
	run(s, cmd)

	if len(b.dispatched) != 1 || b.dispatched[0] != "민준" {
		t.Fatalf("unexpected dispatches: %v", b.dispatched)
	}
	for _, want := range []string{"수업 집중", "좋음", "오늘은 즐거웠다"} {
		if !strings.Contains(b.content, want) {
			t.Errorf("expected %q in %q", want, b.content)
		}
	}
	if s.SendingDiary() || s.Modal() != models.MsgDispatchOK {
		t.Fatalf("unexpected state after send: sending=%v modal=%q", s.SendingDiary(), s.Modal())
	}
}

func TestSendDiaryFailure(t *testing.T) {
	b := &stubBackend{sendErr: &userErr{msg: "Dispatch endpoint returned 500"}}
	s := newSession(b)
	s.SetStudentName("민준")

	run(s, s.SendDiary())
	if s.SendingDiary() || s.Modal() != models.MsgDispatchFailed {
		t.Fatalf("unexpected state: sending=%v modal=%q", s.SendingDiary(), s.Modal())
	}
}
