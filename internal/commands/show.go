package commands

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"learning-diary/internal/logger"
	"learning-diary/internal/models"
)

func addShow(topLevel *cobra.Command) {
	var date string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a day's diary",
		Example: `
diary show
diary show --date 2026-03-02
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer logger.Sync()

			day, err := resolveDate(date)
			if err != nil {
				return err
			}
			if _, err := a.signIn(cmd.Context()); err != nil {
				return err
			}
			rec, err := a.client.GetDailyLog(cmd.Context(), day)
			if err != nil {
				return err
			}

			printRecord(day, rec)
			return nil
		},
	}
	addDateFlag(cmd, &date)

	topLevel.AddCommand(cmd)
}

func printRecord(date string, rec *models.DailyRecord) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint, color.Italic)

	_, _ = bold.Fprintf(color.Output, "\n%s\n\n", date)
	if rec == nil {
		_, _ = faint.Fprintln(color.Output, " 아직 기록이 없어요.")
		fmt.Fprintln(color.Output)
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.Wrap = true
	tbl.MaxColWidth = 80

	for _, item := range models.ChecklistItems() {
		mark := " "
		if rec.Checked(item.ID) {
			mark = color.GreenString("✓")
		}
		tbl.AddRow(bold.Sprint(item.Label), mark)
	}

	mood := "표시 안 함"
	if e, ok := models.EmotionByID(rec.SelectedEmotion); ok {
		mood = e.Emoji + " " + e.Label
	}
	tbl.AddRow(bold.Sprint("기분"), mood)
	addIfSet(tbl, "이유", rec.EmotionReason)
	addIfSet(tbl, "오늘의 생각", rec.DailyThought)
	addIfSet(tbl, "오늘 배운 내용", rec.StudyContent)
	addIfSet(tbl, "AI 피드백", rec.LifeFeedback())
	if r := rec.AICoachingReport; r != nil {
		addIfSet(tbl, "코칭 요약", r.Summary)
		addIfSet(tbl, "코칭 팁", r.Tip)
	}
	if d := rec.AIDeepDive; d != nil {
		addIfSet(tbl, "더 알아보기", d.Concept+" ("+d.Keyword+")")
	}
	addIfSet(tbl, "내일의 목표", rec.AIGoalSuggestion)
	if s := rec.AIStoryData; s != nil {
		addIfSet(tbl, "동화", s.Title)
	} else {
		addIfSet(tbl, "동화", rec.AIStory)
	}
	if s := rec.PraiseSticker; s != nil {
		addIfSet(tbl, "칭찬 스티커", s.Message)
	}

	for i, p := range rec.AIProblems {
		answer := rec.UserAnswers[i]
		if rec.RevealedAnswers[i] {
			answer += faint.Sprint(" (정답: " + p.SimpleAnswer + ")")
		}
		tbl.AddRow(bold.Sprint("문제 "+strconv.Itoa(i+1)), p.Question)
		if answer != "" {
			tbl.AddRow("", answer)
		}
	}

	fmt.Fprintln(color.Output, tbl)
	if rec.LastUpdated != nil {
		_, _ = faint.Fprintf(color.Output, "\n마지막 저장: %s\n", rec.LastUpdated.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(color.Output)
}

func addIfSet(tbl *uitable.Table, label, value string) {
	if value == "" {
		return
	}
	tbl.AddRow(color.New(color.Bold).Sprint(label), value)
}
