package models

type ChecklistItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type Emotion struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Emoji string `json:"emoji"`
}

type ReferenceData struct {
	Checklist []ChecklistItem `json:"checklist"`
	Emotions  []Emotion       `json:"emotions"`
}

var checklistItems = []ChecklistItem{
	{ID: "concentration", Label: "수업 집중"},
	{ID: "homework", Label: "숙제 완료"},
	{ID: "review", Label: "예습 또는 복습"},
	{ID: "tidying", Label: "정리정돈"},
	{ID: "customProblem", Label: "나만의 문제 만들기"},
	{ID: "mindmap", Label: "배운 내용 마인드맵으로 그리기"},
}

var emotions = []Emotion{
	{ID: "good", Label: "좋음", Emoji: "😄"},
	{ID: "ok", Label: "괜찮음", Emoji: "🙂"},
	{ID: "soso", Label: "그냥 그럼", Emoji: "😐"},
	{ID: "sad", Label: "슬픔", Emoji: "😢"},
	{ID: "tired", Label: "피곤함", Emoji: "😴"},
	{ID: "angry", Label: "화남", Emoji: "😠"},
}

// ChecklistItems returns the fixed checklist in display order.
func ChecklistItems() []ChecklistItem {
	out := make([]ChecklistItem, len(checklistItems))
	copy(out, checklistItems)
	return out
}

// Emotions returns the fixed emotion options in display order.
func Emotions() []Emotion {
	out := make([]Emotion, len(emotions))
	copy(out, emotions)
	return out
}

func Reference() ReferenceData {
	return ReferenceData{Checklist: ChecklistItems(), Emotions: Emotions()}
}

func IsChecklistItem(id string) bool {
	for _, item := range checklistItems {
		if item.ID == id {
			return true
		}
	}
	return false
}

func ChecklistLabel(id string) string {
	for _, item := range checklistItems {
		if item.ID == id {
			return item.Label
		}
	}
	return ""
}

func EmotionByID(id string) (Emotion, bool) {
	for _, e := range emotions {
		if e.ID == id {
			return e, true
		}
	}
	return Emotion{}, false
}
