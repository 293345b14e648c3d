package auth

import "net/url"

// Credentials is the immutable client identity used for every authorization
// flow. It is fixed at construction time and lives for the authenticator's
// entire lifetime.
type Credentials struct {
	// ClientID identifies the client at the authorization server.
	ClientID string

	// ClientSecret authenticates confidential clients at the token endpoint.
	// Empty for public clients.
	ClientSecret string

	// Scopes are the authorization scopes requested during login.
	Scopes []string

	// RedirectURL is the registered redirect target the authorization server
	// sends the user-agent back to.
	RedirectURL *url.URL
}

// RedirectScheme returns the scheme of the redirect target: "http" for a
// loopback redirect, or the custom registered scheme of a native app.
func (c Credentials) RedirectScheme() string {
	if c.RedirectURL == nil {
		return ""
	}
	return c.RedirectURL.Scheme
}
