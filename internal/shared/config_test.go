package shared

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tu "github.com/vors-gg/vors/internal/testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./vors.db" {
			t.Errorf("expected database path ./vors.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.RedirectURI != "http://127.0.0.1:8080/auth/callback" {
			t.Errorf("expected loopback redirect URI, got %s", config.Credentials.Spotify.RedirectURI)
		}

		if config.Playback.TransferDelayMS != 500 {
			t.Errorf("expected transfer delay 500ms, got %d", config.Playback.TransferDelayMS)
		}

		if config.IsProduction() {
			t.Error("default config should not be production")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		tu.AssertFileExists(t, configPath)

		if !strings.Contains(tu.MustReadFile(t, configPath), "[credentials.spotify]") {
			t.Error("created config should contain the spotify credentials section")
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[server]
host = "0.0.0.0"
port = 9090
environment = "production"

[credentials.spotify]
client_id = "test_client_id"
redirect_uri = "http://127.0.0.1:9090/auth/callback"

[security]
encryption_key = "abc123"

[playback]
transfer_delay_ms = 250
queue_delay_ms = 100

[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Port != 9090 {
			t.Errorf("expected server port 9090, got %d", config.Server.Port)
		}

		if !config.IsProduction() {
			t.Error("expected production environment")
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Playback.TransferDelayMS != 250 {
			t.Errorf("expected transfer delay 250, got %d", config.Playback.TransferDelayMS)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("ApplyEnv overlays environment", func(t *testing.T) {
		t.Setenv("SPOTIFY_CLIENT_ID", "env_client")
		t.Setenv("COOKIE_ENCRYPTION_KEY", "env_key")
		t.Setenv("ENVIRONMENT", "production")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.Credentials.Spotify.ClientID != "env_client" {
			t.Errorf("expected env client_id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Security.EncryptionKey != "env_key" {
			t.Errorf("expected env encryption key, got %s", config.Security.EncryptionKey)
		}
		if !config.IsProduction() {
			t.Error("expected env to flip environment to production")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		valid := DefaultConfig()
		valid.Credentials.Spotify.ClientID = "id"
		valid.Security.EncryptionKey = "key"

		if err := valid.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}

		missingID := DefaultConfig()
		missingID.Security.EncryptionKey = "key"
		if err := missingID.Validate(); err == nil {
			t.Error("expected error for missing client_id")
		}

		missingKey := DefaultConfig()
		missingKey.Credentials.Spotify.ClientID = "id"
		if err := missingKey.Validate(); err == nil {
			t.Error("expected error for missing encryption key")
		}

		missingRedirect := DefaultConfig()
		missingRedirect.Credentials.Spotify.ClientID = "id"
		missingRedirect.Security.EncryptionKey = "key"
		missingRedirect.Credentials.Spotify.RedirectURI = ""
		if err := missingRedirect.Validate(); err == nil {
			t.Error("expected error for missing redirect URI")
		}
	})
}
