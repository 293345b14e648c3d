// Package oauth implements OAuth 2.1 protocol operations for the
// authorization-code grant with PKCE.
//
// It provides authorization server metadata discovery (RFC 8414 with an
// OpenID Connect fallback), token endpoint operations (code exchange and
// refresh), PKCE and state generation, and WWW-Authenticate challenge
// parsing (RFC 6750).
//
// CodeFlow binds these operations into a ready-made auth.TokenHandler for
// tokenkeeper/pkg/auth. Each of the handler's four operations remains
// individually replaceable after construction.
package oauth
