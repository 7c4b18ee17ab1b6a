package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Credentials CredentialsConfig `toml:"credentials"`
	Security    SecurityConfig    `toml:"security"`
	Playback    PlaybackConfig    `toml:"playback"`
	Database    DatabaseConfig    `toml:"database"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Environment string `toml:"environment"` // "development" or "production"
	// AllowedOrigin is the single origin permitted to make credentialed
	// cross-origin requests. Empty disables CORS headers.
	AllowedOrigin string `toml:"allowed_origin"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify application credentials.
//
// Spotify rejects redirect URIs that do not match the authorization request
// byte for byte, and only accepts 127.0.0.1 (not "localhost") as a loopback
// host, so RedirectURI is configured once and used verbatim everywhere.
type SpotifyConfig struct {
	ClientID    string `toml:"client_id"`
	RedirectURI string `toml:"redirect_uri"`
}

// SecurityConfig contains cookie and token encryption settings.
type SecurityConfig struct {
	// EncryptionKey is the AES-256 key as 64 hex characters. Usually
	// supplied via the COOKIE_ENCRYPTION_KEY environment variable rather
	// than the config file.
	EncryptionKey string `toml:"encryption_key"`
}

// PlaybackConfig tunes the playback helper timing knobs.
type PlaybackConfig struct {
	// TransferDelayMS is how long to wait after a device transfer for
	// Spotify's state to propagate.
	TransferDelayMS int `toml:"transfer_delay_ms"`
	// QueueDelayMS is the pacing between sequential queue additions.
	QueueDelayMS int `toml:"queue_delay_ms"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// IsProduction reports whether the server runs with the production
// security posture (strict cookies, security headers).
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// ApplyEnv overlays environment variables onto the loaded configuration.
// Secrets belong in the environment, not in config.toml.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_REDIRECT_URI"); v != "" {
		c.Credentials.Spotify.RedirectURI = v
	}
	if v := os.Getenv("COOKIE_ENCRYPTION_KEY"); v != "" {
		c.Security.EncryptionKey = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Server.Environment = v
	}
}

// Validate checks that everything the server cannot run without is present.
// Called at startup; failures here are fatal by design.
func (c *Config) Validate() error {
	if c.Credentials.Spotify.ClientID == "" {
		return fmt.Errorf("%w: SPOTIFY_CLIENT_ID is required", ErrMissingConfig)
	}
	if c.Credentials.Spotify.RedirectURI == "" {
		return fmt.Errorf("%w: spotify redirect_uri is required", ErrMissingConfig)
	}
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("%w: COOKIE_ENCRYPTION_KEY is required", ErrMissingConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
