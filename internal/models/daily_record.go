package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date used as the document id.
const DateLayout = "2006-01-02"

// Document field names. These are the keys stored in the daily log document
// and accepted by merge writes.
const (
	FieldLearningChecklist = "learningChecklist"
	FieldSelectedEmotion   = "selectedEmotion"
	FieldEmotionReason     = "emotionReason"
	FieldDailyThought      = "dailyThought"
	FieldStudyContent      = "studyContent"
	FieldAIFeedback        = "aiFeedback"
	FieldAILifeFeedback    = "aiLifeFeedback"
	FieldAICoachingReport  = "aiCoachingReport"
	FieldAIProblems        = "aiProblems"
	FieldUserAnswers       = "userAnswers"
	FieldRevealedAnswers   = "revealedAnswers"
	FieldAIStory           = "aiStory"
	FieldAIStoryData       = "aiStoryData"
	FieldAIDeepDive        = "aiDeepDive"
	FieldAIGoalSuggestion  = "aiGoalSuggestion"
	FieldPraiseSticker     = "praiseSticker"
	FieldLastUpdated       = "lastUpdated"
	FieldRevision          = "revision"
)

var writableFields = map[string]bool{
	FieldLearningChecklist: true,
	FieldSelectedEmotion:   true,
	FieldEmotionReason:     true,
	FieldDailyThought:      true,
	FieldStudyContent:      true,
	FieldAIFeedback:        true,
	FieldAILifeFeedback:    true,
	FieldAICoachingReport:  true,
	FieldAIProblems:        true,
	FieldUserAnswers:       true,
	FieldRevealedAnswers:   true,
	FieldAIStory:           true,
	FieldAIStoryData:       true,
	FieldAIDeepDive:        true,
	FieldAIGoalSuggestion:  true,
	FieldPraiseSticker:     true,
}

// IsWritableField reports whether clients may set the field through a merge write.
// lastUpdated and revision are always assigned by the store.
func IsWritableField(name string) bool {
	return writableFields[name]
}

// DocKey identifies one daily log document.
type DocKey struct {
	AppID  string
	UserID string
	Date   string
}

// Path renders the document path, also used as the change-feed channel name.
func (k DocKey) Path() string {
	return fmt.Sprintf("artifacts/%s/users/%s/daily_logs/%s", k.AppID, k.UserID, k.Date)
}

// ParseDate validates an ISO date, resolving "today" (or empty) against now in UTC.
func ParseDate(raw string, now time.Time) (string, error) {
	if raw == "" || raw == "today" {
		return now.UTC().Format(DateLayout), nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return t.Format(DateLayout), nil
}

type CoachingReport struct {
	Summary  string `json:"summary"`
	Strength string `json:"strength"`
	Tip      string `json:"tip"`
	Comment  string `json:"comment"`
}

type Problem struct {
	Question     string `json:"question"`
	SimpleAnswer string `json:"simple_answer"`
	Explanation  string `json:"explanation"`
}

type StoryData struct {
	Title     string   `json:"title"`
	Story     string   `json:"story"`
	Summary   string   `json:"summary"`
	Questions []string `json:"questions"`
}

type DeepDive struct {
	Concept string `json:"concept"`
	Keyword string `json:"keyword"`
}

type PraiseSticker struct {
	Message      string `json:"message"`
	PromptUsed   string `json:"promptUsed"`
	ImageDataURL string `json:"imageDataUrl"`
}

// DailyRecord is one student's diary for one calendar day.
type DailyRecord struct {
	LearningChecklist map[string]bool `json:"learningChecklist,omitempty"`
	SelectedEmotion   string          `json:"selectedEmotion,omitempty"`
	EmotionReason     string          `json:"emotionReason,omitempty"`
	DailyThought      string          `json:"dailyThought,omitempty"`
	StudyContent      string          `json:"studyContent,omitempty"`
	AIFeedback        string          `json:"aiFeedback,omitempty"`
	AILifeFeedback    string          `json:"aiLifeFeedback,omitempty"`
	AICoachingReport  *CoachingReport `json:"aiCoachingReport,omitempty"`
	AIProblems        []Problem       `json:"aiProblems,omitempty"`
	UserAnswers       map[int]string  `json:"userAnswers,omitempty"`
	RevealedAnswers   map[int]bool    `json:"revealedAnswers,omitempty"`
	AIStory           string          `json:"aiStory,omitempty"`
	AIStoryData       *StoryData      `json:"aiStoryData,omitempty"`
	AIDeepDive        *DeepDive       `json:"aiDeepDive,omitempty"`
	AIGoalSuggestion  string          `json:"aiGoalSuggestion,omitempty"`
	PraiseSticker     *PraiseSticker  `json:"praiseSticker,omitempty"`
	LastUpdated       *time.Time      `json:"lastUpdated,omitempty"`

	// Revision counts committed merges of this document. Assigned by the store.
	Revision int64 `json:"revision,omitempty"`
}

// LifeFeedback prefers the current field and falls back to the legacy one.
func (r *DailyRecord) LifeFeedback() string {
	if r.AILifeFeedback != "" {
		return r.AILifeFeedback
	}
	return r.AIFeedback
}

// Checked reports whether a checklist item is set. Unset ids are false.
func (r *DailyRecord) Checked(id string) bool {
	return r.LearningChecklist[id]
}

// Clone returns a deep copy so callers can mutate local state freely.
func (r *DailyRecord) Clone() *DailyRecord {
	if r == nil {
		return &DailyRecord{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return &DailyRecord{}
	}
	out := &DailyRecord{}
	if err := json.Unmarshal(data, out); err != nil {
		return &DailyRecord{}
	}
	return out
}

// Fields is a partial document used by merge writes.
type Fields map[string]interface{}

// Apply merges the fields into the record using merge-write semantics.
func (r *DailyRecord) Apply(fields Fields) error {
	doc, err := RecordToDoc(r)
	if err != nil {
		return err
	}
	merged, err := MergeFields(doc, fields)
	if err != nil {
		return err
	}
	next, err := DocToRecord(merged)
	if err != nil {
		return err
	}
	*r = *next
	return nil
}

// RecordToDoc converts a record into its generic document form.
func RecordToDoc(r *DailyRecord) (map[string]interface{}, error) {
	doc := map[string]interface{}{}
	if r == nil {
		return doc, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return doc, nil
}

// DocToRecord converts a generic document into a record.
func DocToRecord(doc map[string]interface{}) (*DailyRecord, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	rec := &DailyRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return rec, nil
}

// MergeFields applies a partial write onto a stored document.
//
// Nested objects merge key by key, arrays and scalars replace, and an explicit
// nil deletes the key. Keys absent from fields are never touched. The returned
// map is a new value; doc is not modified.
func MergeFields(doc map[string]interface{}, fields Fields) (map[string]interface{}, error) {
	normalized, err := normalize(map[string]interface{}(fields))
	if err != nil {
		return nil, err
	}
	base, err := normalize(doc)
	if err != nil {
		return nil, err
	}
	return mergeMaps(base, normalized), nil
}

func mergeMaps(dst, src map[string]interface{}) map[string]interface{} {
	if dst == nil {
		dst = map[string]interface{}{}
	}
	for k, v := range src {
		if v == nil {
			delete(dst, k)
			continue
		}
		srcMap, srcIsMap := v.(map[string]interface{})
		dstMap, dstIsMap := dst[k].(map[string]interface{})
		if srcIsMap && dstIsMap {
			dst[k] = mergeMaps(dstMap, srcMap)
			continue
		}
		if srcIsMap {
			dst[k] = mergeMaps(map[string]interface{}{}, srcMap)
			continue
		}
		dst[k] = v
	}
	return dst
}

// normalize round-trips through JSON so typed values (structs, int-keyed maps)
// become plain maps, slices and scalars.
func normalize(m map[string]interface{}) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if m == nil {
		return out, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	return out, nil
}
