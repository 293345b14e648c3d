package oauth

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"tokenkeeper/pkg/auth"
)

// Challenge represents parsed information from a WWW-Authenticate header
// (RFC 6750 section 3).
type Challenge struct {
	// Scheme is the authentication scheme, typically "Bearer".
	Scheme string

	// Realm is the protection realm, often the authorization server URL.
	Realm string

	// Scope is the space-separated list of required scopes.
	Scope string

	// Error is the error code from the header, e.g. "invalid_token".
	Error string

	// ErrorDescription is a human-readable error description, if any.
	ErrorDescription string
}

// paramRegex extracts key="value" pairs from the parameter portion of a
// WWW-Authenticate header.
var paramRegex = regexp.MustCompile(`(\w+)="([^"]*)"`)

// ParseWWWAuthenticate parses a WWW-Authenticate header value.
//
// Example headers:
//
//	Bearer realm="https://auth.example.com"
//	Bearer realm="https://auth.example.com", error="invalid_token"
func ParseWWWAuthenticate(header string) (*Challenge, error) {
	if header == "" {
		return nil, fmt.Errorf("empty WWW-Authenticate header")
	}

	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	challenge := &Challenge{
		Scheme: parts[0],
	}

	if len(parts) > 1 {
		params := parseAuthParams(parts[1])
		challenge.Realm = params["realm"]
		challenge.Scope = params["scope"]
		challenge.Error = params["error"]
		challenge.ErrorDescription = params["error_description"]
	}

	return challenge, nil
}

// parseAuthParams parses parameters in the format key1="value1", key2="value2".
func parseAuthParams(paramStr string) map[string]string {
	params := make(map[string]string)

	for _, match := range paramRegex.FindAllStringSubmatch(paramStr, -1) {
		if len(match) == 3 {
			params[strings.ToLower(match[1])] = match[2]
		}
	}

	return params
}

// ChallengeFromResponse extracts the bearer challenge from a 401 response.
// Returns nil if the response is not a 401, carries no WWW-Authenticate
// header, or the header cannot be parsed.
func ChallengeFromResponse(resp *http.Response) *Challenge {
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		return nil
	}

	header := resp.Header.Get("WWW-Authenticate")
	if header == "" {
		return nil
	}

	challenge, err := ParseWWWAuthenticate(header)
	if err != nil {
		return nil
	}

	return challenge
}

// ClassifyUnauthorized flags 401 responses as invalid authentication. Use it
// as the ClassifyResponse slot of an auth.TokenHandler to opt in to the
// single-retry behavior on rejected tokens.
func ClassifyUnauthorized(resp *http.Response) auth.Classification {
	if resp != nil && resp.StatusCode == http.StatusUnauthorized {
		return auth.InvalidAuthentication
	}
	return auth.Valid
}
