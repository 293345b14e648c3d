package auth

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource adapts the authenticator to the oauth2.TokenSource interface,
// so the engine can back any code built on golang.org/x/oauth2. Each Token
// call runs the same acquisition state machine as Do.
func (a *Authenticator) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, auth: a}
}

type tokenSource struct {
	ctx  context.Context
	auth *Authenticator
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	login, err := s.auth.obtainValidLogin(s.ctx)
	if err != nil {
		return nil, err
	}
	return login.OAuth2Token(), nil
}
