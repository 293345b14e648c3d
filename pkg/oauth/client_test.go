package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"tokenkeeper/pkg/auth"
)

func testClientCredentials(t *testing.T) auth.Credentials {
	t.Helper()
	redirect, err := url.Parse("http://127.0.0.1:3000/callback")
	if err != nil {
		t.Fatalf("failed to parse redirect URL: %v", err)
	}
	return auth.Credentials{
		ClientID:    "client-1",
		Scopes:      []string{"openid"},
		RedirectURL: redirect,
	}
}

func TestNewClient(t *testing.T) {
	t.Run("creates client with defaults", func(t *testing.T) {
		c := NewClient()
		if c.httpClient == nil {
			t.Error("expected httpClient to be set")
		}
		if c.logger == nil {
			t.Error("expected logger to be set")
		}
		if c.metadataTTL != DefaultMetadataCacheTTL {
			t.Errorf("expected metadataTTL %v, got %v", DefaultMetadataCacheTTL, c.metadataTTL)
		}
	})

	t.Run("applies options", func(t *testing.T) {
		customHTTP := &http.Client{Timeout: 10 * time.Second}
		customTTL := 5 * time.Minute

		c := NewClient(
			WithHTTPClient(customHTTP),
			WithMetadataCacheTTL(customTTL),
		)

		if c.httpClient != customHTTP {
			t.Error("expected custom httpClient to be set")
		}
		if c.metadataTTL != customTTL {
			t.Errorf("expected metadataTTL %v, got %v", customTTL, c.metadataTTL)
		}
	})
}

func TestDiscoverMetadata(t *testing.T) {
	metadata := &Metadata{
		Issuer:                "https://issuer.example.com",
		AuthorizationEndpoint: "https://issuer.example.com/authorize",
		TokenEndpoint:         "https://issuer.example.com/token",
	}

	t.Run("discovers via RFC 8414 endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/.well-known/oauth-authorization-server" {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(metadata)
				return
			}
			http.NotFound(w, r)
		}))
		defer server.Close()

		c := NewClient(WithHTTPClient(server.Client()))
		result, err := c.DiscoverMetadata(context.Background(), server.URL)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.AuthorizationEndpoint != metadata.AuthorizationEndpoint {
			t.Errorf("expected auth endpoint %s, got %s", metadata.AuthorizationEndpoint, result.AuthorizationEndpoint)
		}
	})

	t.Run("falls back to OIDC endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/.well-known/openid-configuration" {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(metadata)
				return
			}
			http.NotFound(w, r)
		}))
		defer server.Close()

		c := NewClient(WithHTTPClient(server.Client()))
		result, err := c.DiscoverMetadata(context.Background(), server.URL)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TokenEndpoint != metadata.TokenEndpoint {
			t.Errorf("expected token endpoint %s, got %s", metadata.TokenEndpoint, result.TokenEndpoint)
		}
	})

	t.Run("returns error when both endpoints fail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(http.NotFound))
		defer server.Close()

		c := NewClient(WithHTTPClient(server.Client()))
		if _, err := c.DiscoverMetadata(context.Background(), server.URL); err == nil {
			t.Error("expected error when discovery fails")
		}
	})

	t.Run("caches metadata", func(t *testing.T) {
		var callCount int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&callCount, 1)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(metadata)
		}))
		defer server.Close()

		c := NewClient(WithHTTPClient(server.Client()))

		for range 3 {
			if _, err := c.DiscoverMetadata(context.Background(), server.URL); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		if got := atomic.LoadInt32(&callCount); got != 1 {
			t.Errorf("expected 1 metadata fetch, got %d", got)
		}

		c.ClearMetadataCache()
		if _, err := c.DiscoverMetadata(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := atomic.LoadInt32(&callCount); got != 2 {
			t.Errorf("expected refetch after cache clear, got %d fetches", got)
		}
	})
}

func TestExchangeCode(t *testing.T) {
	t.Run("exchanges code for login", func(t *testing.T) {
		var gotForm url.Values
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				t.Errorf("failed to parse form: %v", err)
			}
			gotForm = r.PostForm

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  "ACCESS",
				"token_type":    "Bearer",
				"expires_in":    3600,
				"refresh_token": "REFRESH",
			})
		}))
		defer server.Close()

		c := NewClient(WithHTTPClient(server.Client()))
		login, err := c.ExchangeCode(context.Background(), server.URL, "CODE", "VERIFIER", testClientCredentials(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if login.AccessToken.Value != "ACCESS" {
			t.Errorf("expected access token ACCESS, got %q", login.AccessToken.Value)
		}
		if login.AccessToken.Expiry.IsZero() {
			t.Error("expected expiry derived from expires_in")
		}
		if login.RefreshToken == nil || login.RefreshToken.Value != "REFRESH" {
			t.Errorf("expected refresh token REFRESH, got %+v", login.RefreshToken)
		}

		if gotForm.Get("grant_type") != "authorization_code" {
			t.Errorf("expected grant_type authorization_code, got %q", gotForm.Get("grant_type"))
		}
		if gotForm.Get("code") != "CODE" {
			t.Errorf("expected code CODE, got %q", gotForm.Get("code"))
		}
		if gotForm.Get("code_verifier") != "VERIFIER" {
			t.Errorf("expected code_verifier VERIFIER, got %q", gotForm.Get("code_verifier"))
		}
		if gotForm.Get("client_id") != "client-1" {
			t.Errorf("expected client_id client-1, got %q", gotForm.Get("client_id"))
		}
	})

	t.Run("sends client secret for confidential clients", func(t *testing.T) {
		var gotSecret string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			gotSecret = r.PostForm.Get("client_secret")
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"access_token": "ACCESS"})
		}))
		defer server.Close()

		creds := testClientCredentials(t)
		creds.ClientSecret = "s3cret"

		c := NewClient(WithHTTPClient(server.Client()))
		if _, err := c.ExchangeCode(context.Background(), server.URL, "CODE", "", creds); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotSecret != "s3cret" {
			t.Errorf("expected client_secret to be sent, got %q", gotSecret)
		}
	})

	t.Run("returns typed token error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_grant",
				"error_description": "code expired",
			})
		}))
		defer server.Close()

		c := NewClient(WithHTTPClient(server.Client()))
		_, err := c.ExchangeCode(context.Background(), server.URL, "CODE", "", testClientCredentials(t))

		var tokenErr *TokenError
		if !errors.As(err, &tokenErr) {
			t.Fatalf("expected *TokenError, got %v", err)
		}
		if tokenErr.Code != "invalid_grant" {
			t.Errorf("expected error code invalid_grant, got %q", tokenErr.Code)
		}
		if tokenErr.Status != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", tokenErr.Status)
		}
	})

	t.Run("rejects response without access token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"token_type": "Bearer"})
		}))
		defer server.Close()

		c := NewClient(WithHTTPClient(server.Client()))
		if _, err := c.ExchangeCode(context.Background(), server.URL, "CODE", "", testClientCredentials(t)); err == nil {
			t.Error("expected error for response without access_token")
		}
	})
}

func TestRefreshGrant(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "NEW-ACCESS",
			"expires_in":   1800,
		})
	}))
	defer server.Close()

	c := NewClient(WithHTTPClient(server.Client()))
	login, err := c.RefreshGrant(context.Background(), server.URL, "OLD-REFRESH", testClientCredentials(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotForm.Get("grant_type") != "refresh_token" {
		t.Errorf("expected grant_type refresh_token, got %q", gotForm.Get("grant_type"))
	}
	if gotForm.Get("refresh_token") != "OLD-REFRESH" {
		t.Errorf("expected refresh_token OLD-REFRESH, got %q", gotForm.Get("refresh_token"))
	}
	if login.AccessToken.Value != "NEW-ACCESS" {
		t.Errorf("expected access token NEW-ACCESS, got %q", login.AccessToken.Value)
	}
	if login.RefreshToken != nil {
		t.Error("expected no refresh token when server omits one")
	}
}
