// Package callback provides a temporary loopback HTTP server that captures a
// single OAuth authorization redirect. It backs the interactive login step of
// the authenticator: start the server, direct the user's browser at the
// provider, and wait for the redirect to arrive.
package callback

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// DefaultPort is the default port for the loopback redirect server.
const DefaultPort = 3000

// DefaultPath is the default path the provider redirects back to.
const DefaultPath = "/callback"

// Timeout is how long to wait for the authorization redirect.
const Timeout = 10 * time.Minute

const successHTML = `<!DOCTYPE html>
<html>
<head><title>Login Complete</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>Login complete</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`

const errorHTML = `<!DOCTYPE html>
<html>
<head><title>Login Failed</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>Login failed</h1>
<p>%s</p>
<p>Close this window and check the terminal for details.</p>
</body>
</html>`

// Server is a temporary local HTTP server for receiving a single
// authorization redirect. It starts, captures one redirect, then shuts down.
type Server struct {
	port     int
	path     string
	server   *http.Server
	listener net.Listener
	resultCh chan *url.URL
	errorCh  chan error
	once     sync.Once
	baseURL  string
}

// NewServer creates a redirect server on the given port and path. A zero port
// selects DefaultPort; an empty path selects DefaultPath.
func NewServer(port int, path string) *Server {
	if port == 0 {
		port = DefaultPort
	}
	if path == "" {
		path = DefaultPath
	}

	return &Server{
		port:     port,
		path:     path,
		resultCh: make(chan *url.URL, 1),
		errorCh:  make(chan error, 1),
	}
}

// Start begins listening for the authorization redirect. The server stops
// automatically when the context is cancelled. Returns the redirect URL to
// register with the authorization request.
func (s *Server) Start(ctx context.Context) (*url.URL, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start redirect server on %s: %w", addr, err)
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.baseURL = fmt.Sprintf("http://127.0.0.1:%d", s.port)

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleRedirect)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case s.errorCh <- err:
			default:
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return s.RedirectURL()
}

// Wait blocks until the redirect arrives, the server fails, or the context is
// done. The returned URL carries the provider's query parameters untouched.
func (s *Server) Wait(ctx context.Context) (*url.URL, error) {
	select {
	case result := <-s.resultCh:
		return result, nil
	case err := <-s.errorCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RedirectURL returns the redirect URL to register with the provider.
func (s *Server) RedirectURL() (*url.URL, error) {
	return url.Parse(s.baseURL + s.path)
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	return s.port
}

func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	var handled bool
	s.once.Do(func() {
		handled = true
		s.processRedirect(w, r)
	})

	if !handled {
		http.Error(w, "Redirect already processed", http.StatusBadRequest)
	}
}

// processRedirect runs exactly once via sync.Once.
func (s *Server) processRedirect(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	// Rebase the request URL so the captured value is absolute.
	captured := *r.URL
	captured.Scheme = "http"
	captured.Host = r.Host

	query := r.URL.Query()
	if errCode := query.Get("error"); errCode != "" {
		desc := query.Get("error_description")
		if desc == "" {
			desc = errCode
		}
		fmt.Fprintf(w, errorHTML, html.EscapeString(desc))
	} else {
		fmt.Fprint(w, successHTML)
	}

	select {
	case s.resultCh <- &captured:
	default:
	}

	// Give the response time to flush before tearing the server down.
	go func() {
		time.Sleep(1 * time.Second)
		s.Stop()
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}
