package features

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"learning-diary/internal/models"
)

// InsufficientKeyword is the deep dive keyword the model uses when the study
// content is too thin to suggest a topic.
const InsufficientKeyword = "정보 부족"

const (
	invalidReason      = "AI 응답을 해석하지 못했어요. 잠시 후 다시 시도해 주세요."
	insufficientReason = "오늘 배운 내용을 조금 더 자세히 적어주면 더 알아볼 주제를 추천해 줄 수 있어요."
)

var coachingSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary":  {Type: genai.TypeString},
		"strength": {Type: genai.TypeString},
		"tip":      {Type: genai.TypeString},
		"comment":  {Type: genai.TypeString},
	},
	Required: []string{"summary", "strength", "tip", "comment"},
}

var problemsSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"question":      {Type: genai.TypeString},
			"simple_answer": {Type: genai.TypeString},
			"explanation":   {Type: genai.TypeString},
		},
		Required: []string{"question", "simple_answer", "explanation"},
	},
}

var deepDiveSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"concept": {Type: genai.TypeString},
		"keyword": {Type: genai.TypeString},
	},
	Required: []string{"concept", "keyword"},
}

var storySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":     {Type: genai.TypeString},
		"story":     {Type: genai.TypeString},
		"summary":   {Type: genai.TypeString},
		"questions": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"title", "story", "summary", "questions"},
}

// Decode strips markdown fences, checks the reply against schema and fills
// out. Any mismatch is returned as an error.
func Decode(text string, schema *genai.Schema, out interface{}) error {
	raw := extractJSON(text)
	if raw == "" {
		return fmt.Errorf("empty response")
	}

	var generic interface{}
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	if err := validate(generic, schema, "$"); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("response does not match %T: %w", out, err)
	}
	return nil
}

// extractJSON removes ```json fences and trims any prose around the outermost
// JSON value.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if json.Valid([]byte(text)) {
		return text
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end <= start {
		return text
	}
	return text[start : end+1]
}

func validate(v interface{}, s *genai.Schema, path string) error {
	if s == nil {
		return nil
	}
	switch s.Type {
	case genai.TypeObject:
		obj, isObj := v.(map[string]interface{})
		if !isObj {
			return fmt.Errorf("%s: expected object", path)
		}
		for _, name := range s.Required {
			val, present := obj[name]
			if !present || val == nil {
				return fmt.Errorf("%s.%s: missing required field", path, name)
			}
			if str, isStr := val.(string); isStr && strings.TrimSpace(str) == "" {
				return fmt.Errorf("%s.%s: empty required field", path, name)
			}
		}
		for name, prop := range s.Properties {
			if val, present := obj[name]; present && val != nil {
				if err := validate(val, prop, path+"."+name); err != nil {
					return err
				}
			}
		}
	case genai.TypeArray:
		arr, isArr := v.([]interface{})
		if !isArr {
			return fmt.Errorf("%s: expected array", path)
		}
		for i, item := range arr {
			if err := validate(item, s.Items, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case genai.TypeString:
		if _, isStr := v.(string); !isStr {
			return fmt.Errorf("%s: expected string", path)
		}
	case genai.TypeNumber, genai.TypeInteger:
		if _, isNum := v.(float64); !isNum {
			return fmt.Errorf("%s: expected number", path)
		}
	case genai.TypeBoolean:
		if _, isBool := v.(bool); !isBool {
			return fmt.Errorf("%s: expected boolean", path)
		}
	}
	return nil
}

func invalid(fields models.Fields, persist bool, err error) Result {
	return Result{Status: StatusInvalid, Fields: fields, Reason: invalidReason, Detail: err.Error(), Persist: persist}
}

func parseCoaching(f *Feature, text string) Result {
	var report models.CoachingReport
	if err := Decode(text, f.Schema, &report); err != nil {
		return invalid(models.Fields{f.StorageField: models.CoachingReport{
			Summary: "코칭 리포트를 만들지 못했어요.",
			Comment: invalidReason,
		}}, false, err)
	}
	return ok(models.Fields{f.StorageField: report})
}

// problemSentinel is persisted in place of an unreadable problem set so the
// student sees that generation ran.
var problemSentinel = models.Problem{
	Question:     "문제를 만드는 중에 오류가 발생했어요. 다시 시도해 주세요.",
	SimpleAnswer: "-",
	Explanation:  "AI 응답을 해석하지 못했습니다.",
}

func parseProblems(f *Feature, text string) Result {
	var problems []models.Problem
	err := Decode(text, f.Schema, &problems)
	if err == nil && len(problems) == 0 {
		err = fmt.Errorf("no problems generated")
	}

	// A new problem set always clears previous answers.
	fields := models.Fields{
		models.FieldUserAnswers:     nil,
		models.FieldRevealedAnswers: nil,
	}
	if err != nil {
		fields[f.StorageField] = []models.Problem{problemSentinel}
		return invalid(fields, true, err)
	}
	fields[f.StorageField] = problems
	return ok(fields)
}

func parseDeepDive(f *Feature, text string) Result {
	var dive models.DeepDive
	if err := Decode(text, f.Schema, &dive); err != nil {
		return invalid(models.Fields{f.StorageField: models.DeepDive{
			Concept: invalidReason,
			Keyword: "오류",
		}}, false, err)
	}
	if strings.TrimSpace(dive.Keyword) == InsufficientKeyword {
		reason := insufficientReason
		if strings.TrimSpace(dive.Concept) != "" {
			reason = strings.TrimSpace(dive.Concept)
		}
		return Result{Status: StatusInsufficient, Fields: models.Fields{f.StorageField: dive}, Reason: reason}
	}
	return ok(models.Fields{f.StorageField: dive})
}

func parseStory(f *Feature, text string) Result {
	var story models.StoryData
	if err := Decode(text, f.Schema, &story); err != nil {
		return invalid(models.Fields{f.StorageField: models.StoryData{
			Title: "동화를 만들지 못했어요",
			Story: invalidReason,
		}}, false, err)
	}
	return ok(models.Fields{f.StorageField: story})
}

// PrimaryText returns the first non-empty text part of the first candidate
// that has one.
func PrimaryText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, isText := part.(genai.Text); isText && strings.TrimSpace(string(txt)) != "" {
				return string(txt)
			}
		}
	}
	return ""
}
