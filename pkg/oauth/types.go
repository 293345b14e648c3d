package oauth

import (
	"fmt"
	"time"

	"tokenkeeper/pkg/auth"
)

// Metadata represents OAuth 2.0 Authorization Server Metadata as defined in
// RFC 8414. Only the fields the engine consumes are modeled.
type Metadata struct {
	// Issuer is the authorization server's issuer identifier.
	Issuer string `json:"issuer"`

	// AuthorizationEndpoint is the URL of the authorization endpoint.
	AuthorizationEndpoint string `json:"authorization_endpoint"`

	// TokenEndpoint is the URL of the token endpoint.
	TokenEndpoint string `json:"token_endpoint"`

	// ScopesSupported lists the OAuth 2.0 scope values supported.
	ScopesSupported []string `json:"scopes_supported,omitempty"`

	// CodeChallengeMethodsSupported lists the PKCE code challenge methods.
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`
}

// SupportsPKCE returns true if the server supports S256 PKCE.
func (m *Metadata) SupportsPKCE() bool {
	for _, method := range m.CodeChallengeMethodsSupported {
		if method == "S256" {
			return true
		}
	}
	// If not specified, assume S256 is supported (OAuth 2.1 requirement)
	return len(m.CodeChallengeMethodsSupported) == 0
}

// TokenError is an error response from the token endpoint as defined in
// RFC 6749 section 5.2.
type TokenError struct {
	// Code is the machine-readable error code, e.g. "invalid_grant".
	Code string `json:"error"`

	// Description is the human-readable explanation, if the server sent one.
	Description string `json:"error_description,omitempty"`

	// Status is the HTTP status code of the response.
	Status int `json:"-"`
}

// Error implements the error interface.
func (e *TokenError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("token request failed: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("token request failed: %s", e.Code)
}

// tokenResponse is the successful token endpoint response wire format
// (RFC 6749 section 5.1).
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// login converts the wire response into the engine's login model. An absent
// expires_in yields a non-expiring access token.
func (r tokenResponse) login() auth.Login {
	login := auth.NewLogin(r.AccessToken)
	if r.ExpiresIn > 0 {
		login.AccessToken.Expiry = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	if r.RefreshToken != "" {
		refresh := auth.NewToken(r.RefreshToken)
		login.RefreshToken = &refresh
	}
	return login
}
