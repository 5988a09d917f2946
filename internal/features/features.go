// Package features holds the AI feature table: for each feature, the local
// precondition, the prompt template, the declared response shape and the
// parser that turns model text into document fields.
package features

import (
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"learning-diary/internal/models"
)

type ID string

const (
	LifeFeedback  ID = "life_feedback"
	Coaching      ID = "coaching"
	Problems      ID = "problems"
	DeepDive      ID = "deep_dive"
	Goal          ID = "goal"
	Story         ID = "story"
	PraiseSticker ID = "praise_sticker"
)

type Kind int

const (
	KindText Kind = iota
	KindStructured
	KindSticker
)

type Status string

const (
	StatusOK           Status = "ok"
	StatusInvalid      Status = "invalid"
	StatusInsufficient Status = "insufficient"
)

// Result is the tagged outcome of parsing a model reply. It never carries a
// Go error: a reply that cannot be decoded becomes StatusInvalid with the
// feature's sentinel value.
type Result struct {
	Status  Status
	Fields  models.Fields
	Reason  string
	// Detail is the decode error behind StatusInvalid, for logs only.
	Detail  string
	Persist bool
}

func ok(fields models.Fields) Result {
	return Result{Status: StatusOK, Fields: fields, Persist: true}
}

// PreconditionError reports a missing local input. No model call is made.
type PreconditionError struct {
	Feature ID
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

type Feature struct {
	ID    ID
	Label string
	Kind  Kind
	// StorageField is the document field the result lands in.
	StorageField string
	// Schema declares the JSON shape for structured features. It is sent to
	// the model as the response schema and used again to validate the reply.
	Schema   *genai.Schema
	Fallback string

	check  func(rec *models.DailyRecord) string
	prompt func(rec *models.DailyRecord) string
	parse  func(f *Feature, text string) Result
}

// Check validates local preconditions.
func (f *Feature) Check(rec *models.DailyRecord) error {
	if rec == nil {
		rec = &models.DailyRecord{}
	}
	if msg := f.check(rec); msg != "" {
		return &PreconditionError{Feature: f.ID, Message: msg}
	}
	return nil
}

// Prompt renders the feature's template against the current fields.
func (f *Feature) Prompt(rec *models.DailyRecord) string {
	if rec == nil {
		rec = &models.DailyRecord{}
	}
	return f.prompt(rec)
}

// Parse maps the model's primary text output to document fields.
func (f *Feature) Parse(text string) Result {
	return f.parse(f, text)
}

var table = []*Feature{
	{
		ID:           LifeFeedback,
		Label:        "✨ AI 선생님 피드백 받기",
		Kind:         KindText,
		StorageField: models.FieldAILifeFeedback,
		Fallback:     "오늘 하루도 정말 수고 많았어요! 선생님이 지금은 답장을 쓰지 못했지만, 언제나 응원하고 있어요. 😊",
		check:        checkLifeInputs,
		prompt:       lifeFeedbackPrompt,
		parse:        parseText,
	},
	{
		ID:           Coaching,
		Label:        "✍️ AI 맞춤형 학습 코칭 받기",
		Kind:         KindStructured,
		StorageField: models.FieldAICoachingReport,
		Schema:       coachingSchema,
		check:        checkStudyContent,
		prompt:       coachingPrompt,
		parse:        parseCoaching,
	},
	{
		ID:           Problems,
		Label:        "📝 관련 문제 풀기",
		Kind:         KindStructured,
		StorageField: models.FieldAIProblems,
		Schema:       problemsSchema,
		check:        checkStudyContent,
		prompt:       problemsPrompt,
		parse:        parseProblems,
	},
	{
		ID:           DeepDive,
		Label:        "🔍 더 알아보기 주제 추천",
		Kind:         KindStructured,
		StorageField: models.FieldAIDeepDive,
		Schema:       deepDiveSchema,
		check:        checkStudyContent,
		prompt:       deepDivePrompt,
		parse:        parseDeepDive,
	},
	{
		ID:           Goal,
		Label:        "🎯 내일의 목표 추천",
		Kind:         KindText,
		StorageField: models.FieldAIGoalSuggestion,
		Fallback:     "내일은 오늘 배운 내용을 한 번 더 떠올려 보고, 친구에게 설명해 보는 목표를 세워 봐요!",
		check:        checkGoalInputs,
		prompt:       goalPrompt,
		parse:        parseText,
	},
	{
		ID:           Story,
		Label:        "📖 학습 동화 만들기",
		Kind:         KindStructured,
		StorageField: models.FieldAIStoryData,
		Schema:       storySchema,
		check:        checkStudyContent,
		prompt:       storyPrompt,
		parse:        parseStory,
	},
	{
		ID:           PraiseSticker,
		Label:        "🏅 칭찬 스티커 받기",
		Kind:         KindSticker,
		StorageField: models.FieldPraiseSticker,
		Fallback:     "오늘도 열심히 한 너에게 칭찬 스티커를 줄게요!",
		check:        checkStickerInputs,
		prompt:       stickerMessagePrompt,
		parse:        parseText,
	},
}

// All returns the feature table in display order.
func All() []*Feature {
	out := make([]*Feature, len(table))
	copy(out, table)
	return out
}

// Lookup finds a feature by id.
func Lookup(id ID) (*Feature, bool) {
	for _, f := range table {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

func MustLookup(id ID) *Feature {
	f, found := Lookup(id)
	if !found {
		panic(fmt.Sprintf("unknown feature %q", id))
	}
	return f
}

func checkStudyContent(rec *models.DailyRecord) string {
	if strings.TrimSpace(rec.StudyContent) == "" {
		return "먼저 '오늘 배운 내용'을 작성해주세요."
	}
	return ""
}

func checkLifeInputs(rec *models.DailyRecord) string {
	if rec.SelectedEmotion == "" && strings.TrimSpace(rec.EmotionReason) == "" && strings.TrimSpace(rec.DailyThought) == "" {
		return "오늘의 감정이나 생각을 먼저 기록해주세요."
	}
	return ""
}

func checkGoalInputs(rec *models.DailyRecord) string {
	if strings.TrimSpace(rec.StudyContent) == "" && strings.TrimSpace(rec.DailyThought) == "" {
		return "목표를 추천받으려면 '오늘 배운 내용'이나 '오늘의 생각'을 먼저 작성해주세요."
	}
	return ""
}

func checkStickerInputs(rec *models.DailyRecord) string {
	for _, item := range models.ChecklistItems() {
		if rec.Checked(item.ID) {
			return ""
		}
	}
	if strings.TrimSpace(rec.StudyContent) != "" {
		return ""
	}
	return "칭찬 스티커를 받으려면 학습 루틴을 체크하거나 오늘 배운 내용을 작성해주세요."
}

// parseText returns the first non-empty generated text or the canned fallback.
func parseText(f *Feature, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		text = f.Fallback
	}
	return ok(models.Fields{f.StorageField: text})
}
