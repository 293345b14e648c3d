package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"tokenkeeper/pkg/auth"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to the configured provider",
		Long: `Log in to the configured OAuth provider through the browser.

A temporary local server receives the provider's redirect; the resulting
login is stored for the configured profile and reused by later commands.

Examples:
  tokenkeeper login                   # Log in using the default config
  tokenkeeper login --config my.yaml  # Log in using a specific config`,
		RunE: runLogin,
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	authenticator, store, err := newAuthenticator(cfg, func(login auth.Login, err error) {
		if err != nil {
			slog.Warn("SECURITY_AUDIT: interactive login failed", "profile", cfg.Profile, "error", err)
			return
		}
		slog.Debug("SECURITY_AUDIT: interactive login succeeded", "profile", cfg.Profile)
	})
	if err != nil {
		return err
	}

	login, err := authenticator.Authenticate(cmd.Context())
	if err != nil {
		return &loginFailedError{err: err}
	}

	fmt.Printf("Logged in (profile %q).\n", store.Profile())
	if !login.AccessToken.Expiry.IsZero() {
		fmt.Printf("Access token expires at %s.\n", login.AccessToken.Expiry.Local().Format("2006-01-02 15:04:05"))
	}

	return nil
}
