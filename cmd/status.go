package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"tokenkeeper/pkg/auth"
)

var statusWatch bool

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored login for the configured profile",
		Long: `Show whether a login is stored for the configured profile, and when its
tokens expire. Token values themselves are never printed.

With --watch, the command keeps running and reprints the status whenever the
stored login changes, for example after a login in another terminal.`,
		RunE: runStatus,
	}

	cmd.Flags().BoolVar(&statusWatch, "watch", false, "keep running and report login changes")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	login, err := store.Retrieve(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read stored login: %w", err)
	}

	printStatus(store.Profile(), login)

	if !statusWatch {
		return nil
	}

	return store.Watch(cmd.Context(), func(login *auth.Login) {
		fmt.Println()
		printStatus(store.Profile(), login)
	})
}

func printStatus(profile string, login *auth.Login) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("PROFILE"),
		text.FgHiCyan.Sprint("STATUS"),
		text.FgHiCyan.Sprint("EXPIRES"),
		text.FgHiCyan.Sprint("REFRESH TOKEN"),
	})

	if login == nil {
		t.AppendRow(table.Row{profile, text.FgYellow.Sprint("not logged in"), "-", "-"})
		t.Render()
		return
	}

	status := text.FgGreen.Sprint("valid")
	if login.AccessToken.Expired() {
		status = text.FgRed.Sprint("expired")
	}

	refresh := "no"
	if login.RefreshToken != nil {
		refresh = "yes"
		if login.RefreshToken.Expired() {
			refresh = "expired"
		}
	}

	t.AppendRow(table.Row{profile, status, formatExpiry(login.AccessToken.Expiry), refresh})
	t.Render()
}

func formatExpiry(expiry time.Time) string {
	if expiry.IsZero() {
		return "never"
	}
	return expiry.Local().Format("2006-01-02 15:04:05")
}
