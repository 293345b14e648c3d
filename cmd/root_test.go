package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"tokenkeeper/pkg/auth"
)

func TestGetExitCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "generic error",
			err:      errors.New("boom"),
			expected: ExitCodeError,
		},
		{
			name:     "manual auth required",
			err:      fmt.Errorf("request failed: %w", auth.ErrManualAuthRequired),
			expected: ExitCodeAuthRequired,
		},
		{
			name:     "login failed",
			err:      &loginFailedError{err: errors.New("user cancelled")},
			expected: ExitCodeAuthFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, getExitCode(tc.err))
		})
	}
}

func TestLoginFailedErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &loginFailedError{err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "login failed")
}
