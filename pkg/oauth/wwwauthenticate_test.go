package oauth

import (
	"net/http"
	"testing"

	"tokenkeeper/pkg/auth"
)

func TestParseWWWAuthenticate(t *testing.T) {
	testCases := []struct {
		name     string
		header   string
		expected *Challenge
		wantErr  bool
	}{
		{
			name:   "bearer with realm",
			header: `Bearer realm="https://auth.example.com"`,
			expected: &Challenge{
				Scheme: "Bearer",
				Realm:  "https://auth.example.com",
			},
		},
		{
			name:   "bearer with realm and scope",
			header: `Bearer realm="https://auth.example.com", scope="openid profile"`,
			expected: &Challenge{
				Scheme: "Bearer",
				Realm:  "https://auth.example.com",
				Scope:  "openid profile",
			},
		},
		{
			name:   "bearer with error",
			header: `Bearer error="invalid_token", error_description="The access token expired"`,
			expected: &Challenge{
				Scheme:           "Bearer",
				Error:            "invalid_token",
				ErrorDescription: "The access token expired",
			},
		},
		{
			name:     "scheme only",
			header:   "Bearer",
			expected: &Challenge{Scheme: "Bearer"},
		},
		{
			name:    "empty header",
			header:  "",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			challenge, err := ParseWWWAuthenticate(tc.header)
			if tc.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *challenge != *tc.expected {
				t.Errorf("got %+v, want %+v", challenge, tc.expected)
			}
		})
	}
}

func TestChallengeFromResponse(t *testing.T) {
	t.Run("extracts challenge from 401", func(t *testing.T) {
		resp := &http.Response{
			StatusCode: http.StatusUnauthorized,
			Header:     http.Header{"Www-Authenticate": []string{`Bearer realm="https://auth.example.com"`}},
		}

		challenge := ChallengeFromResponse(resp)
		if challenge == nil {
			t.Fatal("expected challenge")
		}
		if challenge.Realm != "https://auth.example.com" {
			t.Errorf("expected realm, got %q", challenge.Realm)
		}
	})

	t.Run("nil for non-401", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}
		if ChallengeFromResponse(resp) != nil {
			t.Error("expected nil challenge for 200")
		}
	})

	t.Run("nil without header", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusUnauthorized, Header: http.Header{}}
		if ChallengeFromResponse(resp) != nil {
			t.Error("expected nil challenge without WWW-Authenticate")
		}
	})
}

func TestClassifyUnauthorized(t *testing.T) {
	if got := ClassifyUnauthorized(&http.Response{StatusCode: http.StatusUnauthorized}); got != auth.InvalidAuthentication {
		t.Errorf("expected InvalidAuthentication for 401, got %v", got)
	}
	if got := ClassifyUnauthorized(&http.Response{StatusCode: http.StatusOK}); got != auth.Valid {
		t.Errorf("expected Valid for 200, got %v", got)
	}
	if got := ClassifyUnauthorized(&http.Response{StatusCode: http.StatusForbidden}); got != auth.Valid {
		t.Errorf("expected Valid for 403, got %v", got)
	}
}
