package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultHTTPTimeout is the default timeout for transport requests when no
// custom HTTP client is configured.
const DefaultHTTPTimeout = 30 * time.Second

// Mode selects how the authenticator reacts when no usable login exists.
type Mode int

const (
	// ModeAutomatic launches the interactive login flow when a request
	// needs a login and none is usable.
	ModeAutomatic Mode = iota

	// ModeManualOnly never launches the interactive flow on behalf of a
	// request; callers get ErrManualAuthRequired until an explicit
	// Authenticate succeeds.
	ModeManualOnly
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeAutomatic:
		return "automatic"
	case ModeManualOnly:
		return "manual_only"
	default:
		return "automatic"
	}
}

// InteractiveLoginFunc presents an authorization URL to the user and returns
// the redirect URL captured once the external user-agent completes. It fails
// when the user cancels or the flow times out.
type InteractiveLoginFunc func(ctx context.Context, authorizationURL *url.URL, redirectScheme string) (*url.URL, error)

// Config configures an Authenticator. All fields are fixed at construction.
type Config struct {
	// Credentials is the client identity used for every flow.
	Credentials Credentials

	// Handler bundles the OAuth-specific operations. BuildAuthorizationURL
	// and ExchangeGrant are required.
	Handler TokenHandler

	// Store persists logins across restarts. Optional; when nil only the
	// in-process cache is used.
	Store LoginStore

	// Mode selects automatic or manual-only login. Defaults to ModeAutomatic.
	Mode Mode

	// InteractiveLogin runs the user-facing part of the login flow.
	InteractiveLogin InteractiveLoginFunc

	// OnOutcome, when set, observes the final result of every explicit
	// Authenticate flow exactly once. It is not invoked for silent refresh
	// or fallback transitions inside request handling.
	OnOutcome func(Login, error)

	// HTTPClient is the transport used by Do. Defaults to a client with
	// DefaultHTTPTimeout.
	HTTPClient *http.Client

	// TokenURL is the token endpoint hint passed through to ExchangeGrant
	// and Refresh. Optional.
	TokenURL string

	// Logger receives structured debug and audit logs. Token values are
	// never logged. Defaults to slog.Default().
	Logger *slog.Logger
}

// Authenticator orchestrates login acquisition, header attachment, and
// bounded retry for outgoing requests.
//
// The cached login is the only shared mutable state. It is written
// exclusively inside the serialized acquisition path and read when building
// the authorization header.
type Authenticator struct {
	creds       Credentials
	handler     TokenHandler
	store       LoginStore
	mode        Mode
	interactive InteractiveLoginFunc
	onOutcome   func(Login, error)
	httpClient  *http.Client
	tokenURL    string
	logger      *slog.Logger

	// mu serializes login acquisition so concurrent callers coalesce onto
	// one in-flight refresh or interactive flow. Waiters re-check the cache
	// after acquiring the lock and reuse the winner's result.
	mu          sync.Mutex
	login       *Login
	invalidated bool // cached login was rejected; usable only as a refresh source
}

// New creates an Authenticator from the configuration.
func New(cfg Config) (*Authenticator, error) {
	if cfg.Handler.BuildAuthorizationURL == nil || cfg.Handler.ExchangeGrant == nil {
		return nil, errors.New("token handler must provide BuildAuthorizationURL and ExchangeGrant")
	}
	if cfg.InteractiveLogin == nil {
		return nil, errors.New("interactive login function is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Authenticator{
		creds:       cfg.Credentials,
		handler:     cfg.Handler,
		store:       cfg.Store,
		mode:        cfg.Mode,
		interactive: cfg.InteractiveLogin,
		onOutcome:   cfg.OnOutcome,
		httpClient:  httpClient,
		tokenURL:    cfg.TokenURL,
		logger:      logger,
	}, nil
}

// Do sends the request with bearer authorization attached, acquiring or
// refreshing a login as needed. When the configured classifier flags the
// response as invalid authentication, the cached login is invalidated and
// the request is retried exactly once with a freshly obtained login; the
// second result is returned regardless of its classification.
//
// The request itself is never mutated; a clone carries the header.
func (a *Authenticator) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	login, err := a.obtainValidLogin(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := a.send(ctx, req, login)
	if err != nil {
		return nil, err
	}
	if a.handler.classify(resp) == Valid {
		return resp, nil
	}

	a.logger.Debug("response classified as invalid authentication, retrying once",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
	)
	drainAndClose(resp)
	a.invalidate(login)

	login, err = a.obtainValidLogin(ctx)
	if err != nil {
		return nil, err
	}
	return a.send(ctx, req, login)
}

// Authenticate unconditionally runs the interactive login flow, regardless
// of the configured mode or any cached login. The new login is stored and
// cached on success. The outcome observer, when configured, is notified with
// the final result exactly once; the result is also returned to the caller.
func (a *Authenticator) Authenticate(ctx context.Context) (Login, error) {
	a.mu.Lock()
	login, err := a.runInteractiveFlowLocked(ctx)
	a.mu.Unlock()

	if a.onOutcome != nil {
		a.onOutcome(login, err)
	}
	return login, err
}

// obtainValidLogin returns a usable login, consulting the in-process cache,
// persistent storage, the refresh grant, and finally the interactive flow.
// It is the single serialized region of the authenticator.
func (a *Authenticator) obtainValidLogin(ctx context.Context) (Login, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.login == nil && a.store != nil {
		stored, err := a.store.Retrieve(ctx)
		if err != nil {
			a.logger.Debug("login retrieval failed, treating as absent", "error", err.Error())
		} else if stored != nil {
			a.login = stored
			a.invalidated = false
		}
	}

	if a.login != nil {
		if !a.invalidated && !a.login.AccessToken.Expired() {
			return *a.login, nil
		}

		// Expired or rejected: try the refresh grant before falling back to
		// a full login. A failed refresh is treated identically to having
		// no login at all.
		if a.handler.Refresh != nil {
			flowID := uuid.NewString()
			refreshed, err := a.handler.Refresh(WithFlowID(ctx, flowID), *a.login, a.creds, a.tokenURL)
			if err == nil {
				a.setLoginLocked(ctx, refreshed)
				return refreshed, nil
			}
			a.logger.Debug("refresh failed, falling back to full login",
				"flow_id", flowID,
				"error", err.Error(),
			)
		}
	}

	if a.mode == ModeManualOnly {
		return Login{}, ErrManualAuthRequired
	}
	return a.runInteractiveFlowLocked(ctx)
}

// runInteractiveFlowLocked builds the authorization URL, hands it to the
// interactive login surface, and exchanges the captured redirect for a
// login. Requires a.mu to be held.
func (a *Authenticator) runInteractiveFlowLocked(ctx context.Context) (Login, error) {
	flowID := uuid.NewString()
	ctx = WithFlowID(ctx, flowID)

	authorizationURL, err := a.handler.BuildAuthorizationURL(ctx, a.creds)
	if err != nil {
		return Login{}, fmt.Errorf("failed to build authorization URL: %w", err)
	}

	a.logger.Debug("starting interactive login",
		"flow_id", flowID,
		"client_id", a.creds.ClientID,
		"redirect_scheme", a.creds.RedirectScheme(),
	)

	redirectURL, err := a.interactive(ctx, authorizationURL, a.creds.RedirectScheme())
	if err != nil {
		a.logger.Debug("interactive login failed",
			"flow_id", flowID,
			"error", err.Error(),
		)
		return Login{}, err
	}

	login, err := a.handler.ExchangeGrant(ctx, redirectURL, a.creds, a.tokenURL)
	if err != nil {
		a.logger.Debug("grant exchange failed",
			"flow_id", flowID,
			"error", err.Error(),
		)
		return Login{}, err
	}

	a.setLoginLocked(ctx, login)
	a.logger.Debug("interactive login complete",
		"flow_id", flowID,
		"has_refresh_token", login.RefreshToken != nil,
	)
	return login, nil
}

// setLoginLocked writes the login through to storage, then caches it.
// Storage failures do not fail the flow: the login is still valid for this
// process and is cached regardless. Requires a.mu to be held.
func (a *Authenticator) setLoginLocked(ctx context.Context, login Login) {
	if a.store != nil {
		if err := a.store.Store(ctx, login); err != nil {
			a.logger.Warn("failed to persist login", "error", err.Error())
		}
	}
	cached := login
	a.login = &cached
	a.invalidated = false
}

// invalidate marks the cached login as rejected by the server so the next
// acquisition refreshes or re-authenticates. The login is kept as a refresh
// source. A login obtained after the rejected one is left untouched.
func (a *Authenticator) invalidate(rejected Login) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.login != nil && a.login.Equal(rejected) {
		a.invalidated = true
	}
}

// send clones the request, attaches the bearer header, and invokes the
// transport. The body is re-materialized via GetBody so a retried request
// does not reuse a consumed reader.
func (a *Authenticator) send(ctx context.Context, req *http.Request, login Login) (*http.Response, error) {
	r := req.Clone(ctx)
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		r.Body = body
	}
	r.Header.Set("Authorization", "Bearer "+login.AccessToken.Value)
	return a.httpClient.Do(r)
}

// drainAndClose discards the remaining body so the underlying connection can
// be reused for the retry.
func drainAndClose(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
