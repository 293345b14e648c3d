package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// Token is a single credential value with an optional expiry.
type Token struct {
	// Value is the opaque token string.
	Value string `json:"value"`

	// Expiry is when the token stops being usable. A zero Expiry means the
	// token never expires.
	Expiry time.Time `json:"expiry,omitempty"`
}

// NewToken returns a token that never expires.
func NewToken(value string) Token {
	return Token{Value: value}
}

// Expired reports whether the token has expired. Tokens without an expiry
// never expire.
func (t Token) Expired() bool {
	if t.Expiry.IsZero() {
		return false
	}
	return !time.Now().Before(t.Expiry)
}

// Login pairs an access token with an optional refresh token.
type Login struct {
	// AccessToken authorizes requests.
	AccessToken Token `json:"access_token"`

	// RefreshToken obtains a new access token without interactive login.
	// Nil when the authorization server issued none.
	RefreshToken *Token `json:"refresh_token,omitempty"`
}

// NewLogin returns a login with a non-expiring access token and no refresh
// token.
func NewLogin(accessToken string) Login {
	return Login{AccessToken: NewToken(accessToken)}
}

// Equal reports whether two logins carry the same access and refresh tokens.
func (l Login) Equal(other Login) bool {
	if l.AccessToken != other.AccessToken {
		return false
	}
	if (l.RefreshToken == nil) != (other.RefreshToken == nil) {
		return false
	}
	return l.RefreshToken == nil || *l.RefreshToken == *other.RefreshToken
}

// OAuth2Token converts the login to an *oauth2.Token for interoperability
// with code built on golang.org/x/oauth2.
func (l Login) OAuth2Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken: l.AccessToken.Value,
		TokenType:   "Bearer",
		Expiry:      l.AccessToken.Expiry,
	}
	if l.RefreshToken != nil {
		token.RefreshToken = l.RefreshToken.Value
	}
	return token
}

// FromOAuth2Token converts an *oauth2.Token to a Login. The refresh token,
// when present, is carried over without an expiry of its own.
func FromOAuth2Token(token *oauth2.Token) Login {
	login := Login{
		AccessToken: Token{Value: token.AccessToken, Expiry: token.Expiry},
	}
	if token.RefreshToken != "" {
		refresh := NewToken(token.RefreshToken)
		login.RefreshToken = &refresh
	}
	return login
}
