// Package auth implements a client-side OAuth2 authorization engine.
//
// The engine transparently attaches bearer-token authorization to outgoing
// HTTP requests, acquires a login through an interactive flow when none
// exists, refreshes expired logins, and retries a request exactly once when
// the server signals that the authorization used was invalid.
//
// # Architecture
//
// The central type is the Authenticator. It orchestrates three pluggable
// collaborators:
//
//   - TokenHandler: four independently replaceable operations that do the
//     OAuth-specific work (build the authorization URL, exchange a grant for
//     a login, refresh a login, classify a response).
//   - LoginStore: persistence behind the in-process login cache. The two
//     together form a two-tier cache with write-through on every new login.
//   - InteractiveLoginFunc: the user-facing exchange that turns an
//     authorization URL into a redirect URL.
//
// A ready-made TokenHandler for the authorization-code grant with PKCE lives
// in tokenkeeper/pkg/oauth.
//
// # Usage
//
//	a, err := auth.New(auth.Config{
//	    Credentials:      creds,
//	    Handler:          flow.Handler(),
//	    Store:            store,
//	    InteractiveLogin: login,
//	})
//	if err != nil {
//	    return err
//	}
//
//	resp, err := a.Do(ctx, req)
//
// All public operations are safe for concurrent use. Login acquisition is
// serialized per Authenticator instance; transport calls run concurrently
// once each caller holds a valid login.
package auth
