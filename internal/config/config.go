// Package config loads tokenkeeper configuration from YAML with sensible
// defaults for anything not set.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"tokenkeeper/pkg/auth"
)

const (
	userConfigDir  = ".config/tokenkeeper"
	configFileName = "config.yaml"
)

// Config describes an authorization target: the provider to log in against
// and how to run the interactive flow.
type Config struct {
	// Issuer is the authorization server base URL used for metadata
	// discovery. Required unless AuthURL and TokenURL are both set.
	Issuer string `yaml:"issuer"`

	// ClientID identifies this client at the provider. Required.
	ClientID string `yaml:"clientID"`

	// ClientSecret is set only for confidential clients.
	ClientSecret string `yaml:"clientSecret,omitempty"`

	// Scopes are the access scopes requested during login.
	Scopes []string `yaml:"scopes,omitempty"`

	// AuthURL and TokenURL bypass issuer metadata discovery when set.
	AuthURL  string `yaml:"authURL,omitempty"`
	TokenURL string `yaml:"tokenURL,omitempty"`

	// CallbackPort is the local port for the login redirect server.
	CallbackPort int `yaml:"callbackPort,omitempty"`

	// CallbackPath is the redirect path. Defaults to /callback.
	CallbackPath string `yaml:"callbackPath,omitempty"`

	// StorageDir overrides where logins are persisted.
	StorageDir string `yaml:"storageDir,omitempty"`

	// Profile separates stored logins for different accounts or providers.
	Profile string `yaml:"profile,omitempty"`

	// Mode is "automatic" (default) or "manual". Manual mode never opens a
	// browser on its own; authentication happens only via the login command.
	Mode string `yaml:"mode,omitempty"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		CallbackPort: 3000,
		CallbackPath: "/callback",
		Profile:      "default",
		Mode:         "automatic",
	}
}

// DefaultPath returns the default config file location under the user's home
// directory.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user home directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

// Load reads the configuration file at path, overlaying it onto the
// defaults. A missing file is not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("error reading config from %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that the configuration is complete enough to authenticate.
func (c Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("clientID is required")
	}
	if c.Issuer == "" && (c.AuthURL == "" || c.TokenURL == "") {
		return fmt.Errorf("issuer is required unless authURL and tokenURL are both set")
	}
	switch c.Mode {
	case "", "automatic", "manual":
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", "automatic", "manual", c.Mode)
	}
	return nil
}

// RedirectURL builds the loopback redirect URL from the callback settings.
func (c Config) RedirectURL() (*url.URL, error) {
	return url.Parse(fmt.Sprintf("http://127.0.0.1:%d%s", c.CallbackPort, c.CallbackPath))
}

// Credentials converts the configuration into client credentials.
func (c Config) Credentials() (auth.Credentials, error) {
	redirect, err := c.RedirectURL()
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("invalid callback settings: %w", err)
	}

	return auth.Credentials{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       c.Scopes,
		RedirectURL:  redirect,
	}, nil
}

// AuthMode maps the configured mode string onto the authenticator's mode.
func (c Config) AuthMode() auth.Mode {
	if c.Mode == "manual" {
		return auth.ModeManualOnly
	}
	return auth.ModeAutomatic
}
