package models

import (
	"fmt"
	"strings"
)

// FlattenDiary renders the record as the plain-text diary sent to the teacher.
func FlattenDiary(r *DailyRecord) string {
	if r == nil {
		r = &DailyRecord{}
	}

	var checked []string
	for _, item := range checklistItems {
		if r.Checked(item.ID) {
			checked = append(checked, item.Label)
		}
	}
	routine := "없음"
	if len(checked) > 0 {
		routine = strings.Join(checked, ", ")
	}

	mood := "표시 안 함"
	if e, found := EmotionByID(r.SelectedEmotion); found {
		mood = e.Label
	}

	text := fmt.Sprintf("[오늘의 학습 루틴]\n%s\n\n[오늘의 감정]\n- 기분: %s\n- 이유: %s\n\n[오늘의 생각]\n%s\n\n[오늘 배운 내용]\n%s",
		routine, mood, orMissing(r.EmotionReason), orMissing(r.DailyThought), orMissing(r.StudyContent))
	return strings.TrimSpace(text)
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return "기록 없음"
	}
	return s
}
