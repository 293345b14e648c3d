package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tokenkeeper/internal/config"
	"tokenkeeper/pkg/auth"
)

// Exit codes for CLI commands. These follow common conventions so scripts can
// distinguish "log in first" from genuine failures.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the login flow failed.
	ExitCodeAuthFailed = 3
)

// Global flags.
var (
	configPath string
	debugMode  bool
)

// rootCmd is the base command for the tokenkeeper application.
var rootCmd = &cobra.Command{
	Use:   "tokenkeeper",
	Short: "Manage OAuth logins for command-line tools",
	Long: `tokenkeeper obtains, stores, and refreshes OAuth access tokens so that
other tools can call protected APIs without re-authenticating.

Logins are kept per profile under ~/.config/tokenkeeper/logins and reused
until they expire, at which point they are refreshed or re-acquired through
a browser-based login.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if debugMode {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

// SetVersion sets the version for the root command. Called from the main
// package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and exits with a semantic exit code.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "tokenkeeper version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps error types onto exit codes for scripting.
func getExitCode(err error) int {
	if errors.Is(err, auth.ErrManualAuthRequired) {
		return ExitCodeAuthRequired
	}

	var loginErr *loginFailedError
	if errors.As(err, &loginErr) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

// loginFailedError marks errors from the interactive login flow so they map
// to ExitCodeAuthFailed.
type loginFailedError struct {
	err error
}

func (e *loginFailedError) Error() string {
	return fmt.Sprintf("login failed: %v", e.err)
}

func (e *loginFailedError) Unwrap() error {
	return e.err
}

// loadConfig loads and validates the configuration from --config or the
// default location.
func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return config.Config{}, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $HOME/.config/tokenkeeper/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newVersionCmd())
}
