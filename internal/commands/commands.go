// Package commands builds the diary command tree.
package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"learning-diary/internal/client"
	"learning-diary/internal/identity"
	"learning-diary/internal/logger"
	"learning-diary/internal/models"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diary",
		Short: "AI learning diary on the command line.",
		Long: `Keep a daily learning diary: a study routine checklist, today's mood,
free-form thoughts and what you learned, with AI feedback on top.

Running diary without a subcommand opens the interactive diary for today.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), "today")
		},
	}

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addTUI(topLevel)
	addShow(topLevel)
	addSend(topLevel)
	addLogin(topLevel)
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg      *Config
	client   *client.Client
	cache    *client.TokenCache
	identity *client.Identity
	resolver *identity.Resolver
}

func newApp() (*app, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.Options{File: cfg.LogFile}); err != nil {
		return nil, err
	}

	c := client.New(cfg.Server)
	cache := client.NewTokenCache(cfg.CacheDir)
	return &app{
		cfg:      cfg,
		client:   c,
		cache:    cache,
		identity: client.NewIdentity(c, cache),
		resolver: identity.NewResolver(),
	}, nil
}

func (a *app) signIn(ctx context.Context) (*identity.User, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	return a.resolver.Resolve(ctx, a.identity, a.cfg.CustomToken)
}

func (a *app) studentName() string {
	if name := a.cache.StudentName(); name != "" {
		return name
	}
	return a.cfg.StudentName
}

func resolveDate(raw string) (string, error) {
	return models.ParseDate(raw, time.Now())
}

func addDateFlag(cmd *cobra.Command, date *string) {
	cmd.Flags().StringVar(date, "date", "today",
		`Diary date, example: --date="2026-03-02".`)
}
