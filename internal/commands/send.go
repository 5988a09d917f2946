package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"learning-diary/internal/logger"
	"learning-diary/internal/models"
)

func addSend(topLevel *cobra.Command) {
	var (
		date string
		name string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a day's diary to the teacher",
		Example: `
diary send --name 민준
diary send --date 2026-03-02
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
			if name = strings.TrimSpace(name); name == "" {
				name = a.studentName()
			} else if err := a.cache.SetStudentName(name); err != nil {
				logger.L.Warnw("could not save student name", "error", err)
			}
			if name == "" {
				_, _ = color.New(color.FgYellow).Fprintln(color.Output, models.MsgNoStudentName)
				return fmt.Errorf("student name is required")
			}

			if _, err := a.signIn(cmd.Context()); err != nil {
				return err
			}

			msg, err := a.client.Dispatch(cmd.Context(), name, "", day)
			if err != nil {
				logger.L.Errorw("diary dispatch failed", "date", day, "error", err)
				_, _ = color.New(color.FgRed).Fprintln(color.Output, models.MsgDispatchFailed)
				return err
			}
			_, _ = color.New(color.FgGreen).Fprintln(color.Output, msg)
			return nil
		},
	}
	addDateFlag(cmd, &date)
	cmd.Flags().StringVar(&name, "name", "",
		"Student name shown to the teacher. Remembered for later runs.")

	topLevel.AddCommand(cmd)
}
