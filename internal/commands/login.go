package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"learning-diary/internal/logger"
)

func addLogin(topLevel *cobra.Command) {
	var (
		token  string
		logout bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and cache the session",
		Long: `Sign in with a custom token issued by the school, or anonymously when
no token is given. The session is cached so later runs reuse it.`,
		Example: `
diary login
diary login --token eyJhbGciOi...
diary login --logout
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := a.cache.Clear(); err != nil {
				return err
			}
			if logout {
				_, _ = color.New(color.Faint).Fprintln(color.Output, "signed out")
				return nil
			}
			if token != "" {
				a.cfg.CustomToken = token
			}

			user, err := a.signIn(cmd.Context())
			if err != nil {
				_, _ = color.New(color.FgRed).Fprintf(color.Output, "사용자 인증에 실패했습니다: %v\n", err)
				return err
			}
			_, _ = color.New(color.FgGreen).Fprintf(color.Output, "✓ signed in as %s (%s)\n", user.ID, user.Provider)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "",
		"Custom sign-in token. Defaults to DIARY_CUSTOM_TOKEN.")
	cmd.Flags().BoolVar(&logout, "logout", false,
		"Forget the cached session.")

	topLevel.AddCommand(cmd)
}
