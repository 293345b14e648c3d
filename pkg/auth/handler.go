package auth

import (
	"context"
	"net/http"
	"net/url"
)

// Classification is the caller-supplied judgment of whether a completed
// response indicates the authorization used was invalid.
type Classification int

const (
	// Valid means the response gives no indication that the authorization
	// was rejected.
	Valid Classification = iota

	// InvalidAuthentication means the server rejected the authorization
	// used for the request, e.g. a 401 with an expired bearer token.
	InvalidAuthentication
)

// String returns the string representation of the classification.
func (c Classification) String() string {
	switch c {
	case Valid:
		return "valid"
	case InvalidAuthentication:
		return "invalid_authentication"
	default:
		return "valid"
	}
}

// TokenHandler bundles the four OAuth-specific operations the authenticator
// drives. Each field is independently replaceable, so callers can substitute
// a single operation while leaving the others untouched.
//
// BuildAuthorizationURL and ExchangeGrant are required. Refresh and
// ClassifyResponse may be nil, which changes the reachable transitions of
// the authentication state machine: without Refresh an expired login is
// always treated as unrefreshable, and without ClassifyResponse every
// response counts as Valid so no retry ever occurs.
type TokenHandler struct {
	// BuildAuthorizationURL constructs the URL presented to the interactive
	// login surface.
	BuildAuthorizationURL func(ctx context.Context, creds Credentials) (*url.URL, error)

	// ExchangeGrant converts the redirect URL captured by the interactive
	// flow into a Login. The tokenURL hint names the token endpoint; an
	// implementation may ignore it and discover the endpoint itself.
	ExchangeGrant func(ctx context.Context, redirectURL *url.URL, creds Credentials, tokenURL string) (Login, error)

	// Refresh obtains a new login from the current one without user
	// interaction. Optional.
	Refresh func(ctx context.Context, current Login, creds Credentials, tokenURL string) (Login, error)

	// ClassifyResponse judges a completed transport response. Optional;
	// nil marks every response Valid.
	ClassifyResponse func(resp *http.Response) Classification
}

// classify applies the configured classifier, defaulting to Valid.
func (h TokenHandler) classify(resp *http.Response) Classification {
	if h.ClassifyResponse == nil {
		return Valid
	}
	return h.ClassifyResponse(resp)
}
