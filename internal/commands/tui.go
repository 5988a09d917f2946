package commands

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"learning-diary/internal/logger"
	"learning-diary/internal/tui"
)

func addTUI(topLevel *cobra.Command) {
	var date string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive diary",
		Example: `
diary tui
diary tui --date 2026-03-02
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), date)
		},
	}
	addDateFlag(cmd, &date)

	topLevel.AddCommand(cmd)
}

func runTUI(ctx context.Context, rawDate string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer logger.Sync()

	date, err := resolveDate(rawDate)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := tui.New(ctx, tui.Options{
		Resolver:     a.resolver,
		Provider:     a.identity,
		InitialToken: a.cfg.CustomToken,
		Backend:      a.client,
		Date:         date,
		StudentName:  a.studentName(),
		SaveName:     a.cache.SetStudentName,
		InitErr:      a.cfg.Validate(),
	})

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
