package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	// No config file anywhere: defaults must still apply.
	if err := Load(t.TempDir(), false, DefaultLoaderConfig("coursewire")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := GetClientConfig()
	if cfg.API.URL == "" {
		t.Error("api.url default missing")
	}
	if cfg.Channel.InitialBackoff != time.Second {
		t.Errorf("channel.initial_backoff = %v, want 1s", cfg.Channel.InitialBackoff)
	}
	if cfg.Channel.MaxAttempts != 0 {
		t.Errorf("channel.max_attempts = %d, want 0 (unbounded)", cfg.Channel.MaxAttempts)
	}
	if cfg.Credential.Service != "coursewire" {
		t.Errorf("credential.service = %q, want coursewire", cfg.Credential.Service)
	}
}

func TestLoadFromFile(t *testing.T) {
	resetViper(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
api:
  url: http://localhost:9000
channel:
  url: ws://localhost:9000/ws
  max_attempts: 5
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if err := Load(path, true, DefaultLoaderConfig("coursewire")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := GetClientConfig()
	if cfg.API.URL != "http://localhost:9000" {
		t.Errorf("api.url = %q", cfg.API.URL)
	}
	if cfg.Channel.MaxAttempts != 5 {
		t.Errorf("channel.max_attempts = %d, want 5", cfg.Channel.MaxAttempts)
	}
}

func TestValidateRequired(t *testing.T) {
	resetViper(t)
	viper.Set("api.url", "http://localhost")

	if err := ValidateRequired(map[string]string{"api.url": "API base URL"}); err != nil {
		t.Errorf("ValidateRequired failed for set field: %v", err)
	}
	if err := ValidateRequired(map[string]string{"missing.key": "something"}); err == nil {
		t.Error("ValidateRequired passed for missing field")
	}
}
