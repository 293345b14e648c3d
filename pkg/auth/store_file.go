package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DefaultStorageDir is the default directory for persisted logins, relative
// to the user's home directory. This follows XDG conventions.
const DefaultStorageDir = ".config/tokenkeeper/logins"

// DefaultProfile is the profile name used when none is configured.
const DefaultProfile = "default"

// FileStore persists a single login per profile as a JSON file.
//
// SECURITY: This store handles sensitive credentials. Files are created with
// 0600 permissions, the storage directory with 0700, and token values are
// never logged (only profile names and expiry metadata).
type FileStore struct {
	dir     string
	profile string
	logger  *slog.Logger
}

// FileStoreConfig configures a FileStore.
type FileStoreConfig struct {
	// Dir is the directory for login files.
	// Defaults to ~/.config/tokenkeeper/logins.
	Dir string

	// Profile names the login within the directory, allowing several
	// independent identities side by side. Defaults to "default".
	Profile string

	// Logger is used for audit logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// storedLogin is the on-disk representation of a Login.
type storedLogin struct {
	AccessToken   string    `json:"access_token"`
	Expiry        time.Time `json:"expiry,omitempty"`
	RefreshToken  string    `json:"refresh_token,omitempty"`
	RefreshExpiry time.Time `json:"refresh_expiry,omitempty"`
	Profile       string    `json:"profile"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewFileStore creates a file-backed login store, creating the storage
// directory if needed.
func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	dir := cfg.Dir
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, DefaultStorageDir)
	}

	profile := cfg.Profile
	if profile == "" {
		profile = DefaultProfile
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create login storage directory: %w", err)
	}

	return &FileStore{
		dir:     dir,
		profile: profile,
		logger:  logger,
	}, nil
}

// Profile returns the profile name this store reads and writes.
func (s *FileStore) Profile() string {
	return s.profile
}

// Retrieve reads the persisted login for the profile. A missing file is not
// an error: it returns nil, nil.
func (s *FileStore) Retrieve(ctx context.Context) (*Login, error) {
	// #nosec G304 -- path is built from an internal hashed key, not user input
	data, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read login file: %w", err)
	}

	var stored storedLogin
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal login file: %w", err)
	}

	login := Login{
		AccessToken: Token{Value: stored.AccessToken, Expiry: stored.Expiry},
	}
	if stored.RefreshToken != "" {
		login.RefreshToken = &Token{Value: stored.RefreshToken, Expiry: stored.RefreshExpiry}
	}
	return &login, nil
}

// Store writes the login to disk with restricted permissions.
func (s *FileStore) Store(ctx context.Context, login Login) error {
	stored := storedLogin{
		AccessToken: login.AccessToken.Value,
		Expiry:      login.AccessToken.Expiry,
		Profile:     s.profile,
		CreatedAt:   time.Now(),
	}
	if login.RefreshToken != nil {
		stored.RefreshToken = login.RefreshToken.Value
		stored.RefreshExpiry = login.RefreshToken.Expiry
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal login: %w", err)
	}

	if err := os.WriteFile(s.path(), data, 0600); err != nil {
		s.logger.Warn("SECURITY_AUDIT: login storage failed",
			"event", "login_store_failed",
			"profile", s.profile,
			"error", err.Error(),
		)
		return fmt.Errorf("failed to write login file: %w", err)
	}

	s.logger.Info("SECURITY_AUDIT: login stored",
		"event", "login_stored",
		"profile", s.profile,
		"expiry", stored.Expiry.Format(time.RFC3339),
		"has_refresh_token", stored.RefreshToken != "",
	)
	return nil
}

// Delete removes the persisted login for the profile. Deleting a login that
// does not exist is not an error.
func (s *FileStore) Delete() error {
	err := os.Remove(s.path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("SECURITY_AUDIT: login deletion failed",
			"event", "login_delete_failed",
			"profile", s.profile,
			"error", err.Error(),
		)
		return err
	}

	s.logger.Info("SECURITY_AUDIT: login deleted",
		"event", "login_deleted",
		"profile", s.profile,
	)
	return nil
}

// path returns the login file path for the profile. The profile name is
// hashed to produce a filesystem-safe identifier.
func (s *FileStore) path() string {
	hash := sha256.Sum256([]byte(s.profile))
	return filepath.Join(s.dir, hex.EncodeToString(hash[:16])+".json")
}
