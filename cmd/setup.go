package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/briandowns/spinner"

	"tokenkeeper/internal/browser"
	"tokenkeeper/internal/callback"
	"tokenkeeper/internal/config"
	"tokenkeeper/pkg/auth"
	"tokenkeeper/pkg/oauth"
)

// newAuthenticator wires the configuration into a ready authenticator backed
// by a file store and a browser-based interactive login.
func newAuthenticator(cfg config.Config, onOutcome func(auth.Login, error)) (*auth.Authenticator, *auth.FileStore, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	creds, err := cfg.Credentials()
	if err != nil {
		return nil, nil, err
	}

	var flowOpts []oauth.FlowOption
	if cfg.AuthURL != "" && cfg.TokenURL != "" {
		flowOpts = append(flowOpts, oauth.WithEndpoints(cfg.AuthURL, cfg.TokenURL))
	}
	flow := oauth.NewCodeFlow(oauth.NewClient(), cfg.Issuer, flowOpts...)

	authenticator, err := auth.New(auth.Config{
		Credentials:      creds,
		Handler:          flow.Handler(),
		Store:            store,
		Mode:             cfg.AuthMode(),
		InteractiveLogin: browserLogin(cfg),
		OnOutcome:        onOutcome,
		TokenURL:         cfg.TokenURL,
	})
	if err != nil {
		return nil, nil, err
	}

	return authenticator, store, nil
}

// newStore creates the file-backed login store for the configured profile.
func newStore(cfg config.Config) (*auth.FileStore, error) {
	return auth.NewFileStore(auth.FileStoreConfig{
		Dir:     cfg.StorageDir,
		Profile: cfg.Profile,
	})
}

// browserLogin returns an interactive login that starts a loopback redirect
// server, opens the authorization URL in the user's browser, and waits for
// the provider to redirect back.
func browserLogin(cfg config.Config) auth.InteractiveLoginFunc {
	return func(ctx context.Context, authorizationURL *url.URL, redirectScheme string) (*url.URL, error) {
		waitCtx, cancel := context.WithTimeout(ctx, callback.Timeout)
		defer cancel()

		server := callback.NewServer(cfg.CallbackPort, cfg.CallbackPath)
		if _, err := server.Start(waitCtx); err != nil {
			return nil, err
		}
		defer server.Stop()

		if err := browser.Open(authorizationURL.String()); err != nil {
			slog.Warn("failed to open browser; open the URL manually", "error", err)
			fmt.Printf("Open this URL in your browser to log in:\n\n  %s\n\n", authorizationURL)
		}

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Waiting for login to complete in your browser..."
		s.Start()
		defer s.Stop()

		return server.Wait(waitCtx)
	}
}
