package oauth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"tokenkeeper/pkg/auth"
)

// CodeFlow binds the protocol client into a ready-made auth.TokenHandler
// implementing the authorization-code grant with PKCE.
//
// The PKCE verifier and state parameter generated while building the
// authorization URL are held until the matching grant exchange; the
// authenticator's serialized acquisition path guarantees the two calls are
// paired.
type CodeFlow struct {
	client *Client
	issuer string

	// Explicit endpoints skip metadata discovery when set.
	authEndpoint  string
	tokenEndpoint string

	mu       sync.Mutex
	verifier string
	state    string
}

// FlowOption configures a CodeFlow.
type FlowOption func(*CodeFlow)

// WithEndpoints sets explicit authorization and token endpoints, bypassing
// issuer metadata discovery.
func WithEndpoints(authEndpoint, tokenEndpoint string) FlowOption {
	return func(f *CodeFlow) {
		f.authEndpoint = authEndpoint
		f.tokenEndpoint = tokenEndpoint
	}
}

// NewCodeFlow creates an authorization-code flow against the given issuer.
// Endpoints are discovered from the issuer's well-known metadata unless
// provided via WithEndpoints.
func NewCodeFlow(client *Client, issuer string, opts ...FlowOption) *CodeFlow {
	f := &CodeFlow{
		client: client,
		issuer: strings.TrimSuffix(issuer, "/"),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Handler returns the flow as an auth.TokenHandler. The four operations stay
// individually replaceable on the returned value.
func (f *CodeFlow) Handler() auth.TokenHandler {
	return auth.TokenHandler{
		BuildAuthorizationURL: f.BuildAuthorizationURL,
		ExchangeGrant:         f.ExchangeGrant,
		Refresh:               f.Refresh,
		ClassifyResponse:      ClassifyUnauthorized,
	}
}

// BuildAuthorizationURL constructs the authorization URL for the credentials,
// generating a fresh PKCE challenge and state parameter for the flow.
func (f *CodeFlow) BuildAuthorizationURL(ctx context.Context, creds auth.Credentials) (*url.URL, error) {
	endpoint := f.authEndpoint
	if endpoint == "" {
		metadata, err := f.client.DiscoverMetadata(ctx, f.issuer)
		if err != nil {
			return nil, err
		}
		endpoint = metadata.AuthorizationEndpoint
	}

	authURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid authorization endpoint: %w", err)
	}
	if creds.RedirectURL == nil {
		return nil, fmt.Errorf("credentials have no redirect URL")
	}

	pkce, err := GeneratePKCE()
	if err != nil {
		return nil, err
	}
	state, err := GenerateState()
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.verifier = pkce.CodeVerifier
	f.state = state
	f.mu.Unlock()

	query := authURL.Query()
	query.Set("response_type", "code")
	query.Set("client_id", creds.ClientID)
	query.Set("redirect_uri", creds.RedirectURL.String())
	query.Set("state", state)
	query.Set("code_challenge", pkce.CodeChallenge)
	query.Set("code_challenge_method", pkce.CodeChallengeMethod)
	if len(creds.Scopes) > 0 {
		query.Set("scope", strings.Join(creds.Scopes, " "))
	}

	authURL.RawQuery = query.Encode()
	return authURL, nil
}

// ExchangeGrant converts the redirect URL captured by the interactive flow
// into a login. It verifies the state parameter against the one issued by
// BuildAuthorizationURL and consumes the pending PKCE verifier.
func (f *CodeFlow) ExchangeGrant(ctx context.Context, redirectURL *url.URL, creds auth.Credentials, tokenURL string) (auth.Login, error) {
	query := redirectURL.Query()

	if errCode := query.Get("error"); errCode != "" {
		if desc := query.Get("error_description"); desc != "" {
			return auth.Login{}, fmt.Errorf("authorization failed: %s - %s", errCode, desc)
		}
		return auth.Login{}, fmt.Errorf("authorization failed: %s", errCode)
	}

	f.mu.Lock()
	state, verifier := f.state, f.verifier
	f.state, f.verifier = "", ""
	f.mu.Unlock()

	if state == "" {
		return auth.Login{}, fmt.Errorf("no authorization flow in progress")
	}
	// Critical security check to prevent CSRF attacks
	if query.Get("state") != state {
		return auth.Login{}, fmt.Errorf("state mismatch - possible CSRF attack")
	}

	code := query.Get("code")
	if code == "" {
		return auth.Login{}, fmt.Errorf("authorization response missing code")
	}

	endpoint, err := f.resolveTokenEndpoint(ctx, tokenURL)
	if err != nil {
		return auth.Login{}, err
	}

	f.client.logger.Debug("exchanging authorization grant",
		"flow_id", auth.FlowIDFromContext(ctx),
		"endpoint", endpoint,
	)
	return f.client.ExchangeCode(ctx, endpoint, code, verifier, creds)
}

// Refresh obtains a new login using the current login's refresh token. When
// the server omits a new refresh token from its response, the current one is
// carried forward (RFC 6749 section 6).
func (f *CodeFlow) Refresh(ctx context.Context, current auth.Login, creds auth.Credentials, tokenURL string) (auth.Login, error) {
	if current.RefreshToken == nil {
		return auth.Login{}, fmt.Errorf("login has no refresh token")
	}
	if current.RefreshToken.Expired() {
		return auth.Login{}, fmt.Errorf("refresh token has expired")
	}

	endpoint, err := f.resolveTokenEndpoint(ctx, tokenURL)
	if err != nil {
		return auth.Login{}, err
	}

	f.client.logger.Debug("refreshing login",
		"flow_id", auth.FlowIDFromContext(ctx),
		"endpoint", endpoint,
	)
	login, err := f.client.RefreshGrant(ctx, endpoint, current.RefreshToken.Value, creds)
	if err != nil {
		return auth.Login{}, err
	}

	if login.RefreshToken == nil {
		login.RefreshToken = current.RefreshToken
	}
	return login, nil
}

// resolveTokenEndpoint prefers the caller's hint, then the explicit
// configuration, then issuer metadata.
func (f *CodeFlow) resolveTokenEndpoint(ctx context.Context, hint string) (string, error) {
	if hint != "" {
		return hint, nil
	}
	if f.tokenEndpoint != "" {
		return f.tokenEndpoint, nil
	}

	metadata, err := f.client.DiscoverMetadata(ctx, f.issuer)
	if err != nil {
		return "", err
	}
	return metadata.TokenEndpoint, nil
}
