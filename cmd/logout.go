package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored login for the configured profile",
		RunE:  runLogout,
	}
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	if err := store.Delete(); err != nil {
		return fmt.Errorf("failed to delete stored login: %w", err)
	}

	fmt.Printf("Logged out (profile %q).\n", store.Profile())
	return nil
}
