// Package diary holds the client-side state of one day's diary and turns
// student actions into backend calls.
//
// Every method mutates local state synchronously and returns a tea.Cmd for
// the remote side effect, if there is one. Completions come back as messages
// through Apply. The Session is not safe for concurrent use; it is owned by
// the Bubble Tea update loop.
package diary

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"learning-diary/internal/features"
	"learning-diary/internal/logger"
	"learning-diary/internal/models"
)

// Backend is the remote side of a session.
type Backend interface {
	MergeWrite(ctx context.Context, date string, fields models.Fields) (*models.DailyRecord, error)
	RunFeature(ctx context.Context, date string, id features.ID, inputs *models.DailyRecord) (*models.FeatureResult, error)
	Dispatch(ctx context.Context, studentID, content, date string) (string, error)
}

// TextFields are the free-text fields written on blur.
var TextFields = []string{
	models.FieldEmotionReason,
	models.FieldDailyThought,
	models.FieldStudyContent,
}

// SavedMsg reports a finished merge write.
type SavedMsg struct {
	Fields models.Fields
	Err    error
}

// FeatureDoneMsg reports a finished AI feature request.
type FeatureDoneMsg struct {
	Feature features.ID
	Result  *models.FeatureResult
	Err     error
}

// DispatchDoneMsg reports a finished diary dispatch.
type DispatchDoneMsg struct {
	Message string
	Err     error
}

// SnapshotMsg carries a document delivered by the live subscription. A nil
// Record means the document does not exist yet.
type SnapshotMsg struct {
	Record *models.DailyRecord
}

type Session struct {
	backend Backend
	ctx     context.Context
	date    string

	record      *models.DailyRecord
	studentName string

	// pending holds text typed since the field was last blurred. Snapshots
	// never overwrite it.
	pending        map[string]string
	pendingAnswers map[int]string

	loading      map[features.ID]bool
	sendingDiary bool
	modal        string
}

func NewSession(ctx context.Context, backend Backend, date, studentName string) *Session {
	return &Session{
		backend:        backend,
		ctx:            ctx,
		date:           date,
		record:         &models.DailyRecord{},
		studentName:    studentName,
		pending:        make(map[string]string),
		pendingAnswers: make(map[int]string),
		loading:        make(map[features.ID]bool),
	}
}

func (s *Session) Date() string { return s.date }

// Record returns a copy of the local state, including unsaved edits.
func (s *Session) Record() *models.DailyRecord {
	return s.record.Clone()
}

func (s *Session) StudentName() string { return s.studentName }

func (s *Session) SetStudentName(name string) {
	s.studentName = strings.TrimSpace(name)
}

func (s *Session) Loading(id features.ID) bool { return s.loading[id] }

func (s *Session) SendingDiary() bool { return s.sendingDiary }

// Modal is the message currently shown to the student, if any.
func (s *Session) Modal() string { return s.modal }

func (s *Session) DismissModal() { s.modal = "" }

// Text returns the local value of a free-text field.
func (s *Session) Text(field string) string {
	switch field {
	case models.FieldEmotionReason:
		return s.record.EmotionReason
	case models.FieldDailyThought:
		return s.record.DailyThought
	case models.FieldStudyContent:
		return s.record.StudyContent
	}
	return ""
}

// Edit changes a free-text field locally. Nothing is written until Blur.
func (s *Session) Edit(field, value string) {
	if !isTextField(field) {
		return
	}
	s.pending[field] = value
	setText(s.record, field, value)
}

// Blur writes the field's latest value. The emotion reason is written together
// with the selected emotion.
func (s *Session) Blur(field string) tea.Cmd {
	if !isTextField(field) {
		return nil
	}
	delete(s.pending, field)

	fields := models.Fields{field: s.Text(field)}
	if field == models.FieldEmotionReason {
		fields[models.FieldSelectedEmotion] = s.record.SelectedEmotion
	}
	return s.write(fields)
}

// ToggleChecklist flips one checklist item and writes only that item.
func (s *Session) ToggleChecklist(id string) tea.Cmd {
	if !models.IsChecklistItem(id) {
		return nil
	}
	if s.record.LearningChecklist == nil {
		s.record.LearningChecklist = make(map[string]bool)
	}
	next := !s.record.LearningChecklist[id]
	s.record.LearningChecklist[id] = next

	return s.write(models.Fields{
		models.FieldLearningChecklist: map[string]interface{}{id: next},
	})
}

func (s *Session) SelectEmotion(id string) tea.Cmd {
	if _, ok := models.EmotionByID(id); !ok {
		return nil
	}
	s.record.SelectedEmotion = id
	return s.write(models.Fields{models.FieldSelectedEmotion: id})
}

// Answer returns the student's typed answer for one quiz item.
func (s *Session) Answer(index int) string {
	return s.record.UserAnswers[index]
}

// EditAnswer changes a quiz answer locally. Nothing is written until BlurAnswer.
func (s *Session) EditAnswer(index int, value string) {
	if s.record.UserAnswers == nil {
		s.record.UserAnswers = make(map[int]string)
	}
	s.record.UserAnswers[index] = value
	s.pendingAnswers[index] = value
}

func (s *Session) BlurAnswer(index int) tea.Cmd {
	delete(s.pendingAnswers, index)
	return s.write(models.Fields{
		models.FieldUserAnswers: map[string]interface{}{strconv.Itoa(index): s.record.UserAnswers[index]},
	})
}

// RevealAnswer shows the answer key for one quiz item.
func (s *Session) RevealAnswer(index int) tea.Cmd {
	if index < 0 || index >= len(s.record.AIProblems) {
		return nil
	}
	if s.record.RevealedAnswers == nil {
		s.record.RevealedAnswers = make(map[int]bool)
	}
	s.record.RevealedAnswers[index] = true
	return s.write(models.Fields{
		models.FieldRevealedAnswers: map[string]interface{}{strconv.Itoa(index): true},
	})
}

// RequestFeature starts an AI feature. It is ignored while the same feature
// is loading, and fails locally without a backend call when the feature's
// inputs are missing.
func (s *Session) RequestFeature(id features.ID) tea.Cmd {
	f, ok := features.Lookup(id)
	if !ok || s.loading[id] {
		return nil
	}
	if err := f.Check(s.record); err != nil {
		s.modal = err.Error()
		return nil
	}

	s.loading[id] = true
	inputs := s.record.Clone()
	ctx, backend, date := s.ctx, s.backend, s.date
	return func() tea.Msg {
		result, err := backend.RunFeature(ctx, date, id, inputs)
		return FeatureDoneMsg{Feature: id, Result: result, Err: err}
	}
}

// SendDiary flattens the local record and forwards it to the teacher.
func (s *Session) SendDiary() tea.Cmd {
	if s.sendingDiary {
		return nil
	}
	if s.studentName == "" {
		s.modal = models.MsgNoStudentName
		return nil
	}

	s.sendingDiary = true
	content := models.FlattenDiary(s.record)
	ctx, backend, date, name := s.ctx, s.backend, s.date, s.studentName
	return func() tea.Msg {
		msg, err := backend.Dispatch(ctx, name, content, date)
		return DispatchDoneMsg{Message: msg, Err: err}
	}
}

// Apply folds an async completion or a subscription snapshot into local state.
func (s *Session) Apply(msg tea.Msg) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		s.applySnapshot(msg.Record)

	case SavedMsg:
		if msg.Err != nil {
			logger.L.Warnw("merge write failed", "date", s.date, "error", msg.Err)
			s.modal = models.MsgSaveFailed
		}

	case FeatureDoneMsg:
		s.loading[msg.Feature] = false
		if msg.Err != nil {
			logger.L.Warnw("feature request failed", "feature", msg.Feature, "error", msg.Err)
			s.modal = userMessage(msg.Err, models.MsgAIFailed)
			return
		}
		if msg.Result == nil {
			s.modal = models.MsgAIFailed
			return
		}
		if len(msg.Result.Fields) > 0 {
			if err := s.record.Apply(msg.Result.Fields); err != nil {
				logger.L.Warnw("could not apply feature result", "feature", msg.Feature, "error", err)
			}
		}
		if !msg.Result.Persisted && msg.Result.Message != "" {
			s.modal = msg.Result.Message
		}

	case DispatchDoneMsg:
		s.sendingDiary = false
		if msg.Err != nil {
			logger.L.Warnw("diary dispatch failed", "error", msg.Err)
			s.modal = models.MsgDispatchFailed
			return
		}
		s.modal = models.MsgDispatchOK
		if msg.Message != "" {
			s.modal = msg.Message
		}
	}
}

func (s *Session) applySnapshot(rec *models.DailyRecord) {
	if rec == nil {
		return
	}
	next := rec.Clone()
	for field, value := range s.pending {
		setText(next, field, value)
	}
	if len(s.pendingAnswers) > 0 {
		if next.UserAnswers == nil {
			next.UserAnswers = make(map[int]string)
		}
		for i, value := range s.pendingAnswers {
			next.UserAnswers[i] = value
		}
	}
	s.record = next
}

func (s *Session) write(fields models.Fields) tea.Cmd {
	ctx, backend, date := s.ctx, s.backend, s.date
	return func() tea.Msg {
		_, err := backend.MergeWrite(ctx, date, fields)
		return SavedMsg{Fields: fields, Err: err}
	}
}

func isTextField(field string) bool {
	for _, f := range TextFields {
		if f == field {
			return true
		}
	}
	return false
}

func setText(rec *models.DailyRecord, field, value string) {
	switch field {
	case models.FieldEmotionReason:
		rec.EmotionReason = value
	case models.FieldDailyThought:
		rec.DailyThought = value
	case models.FieldStudyContent:
		rec.StudyContent = value
	}
}

func userMessage(err error, fallback string) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return fallback
}
