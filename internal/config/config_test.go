package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSubstitutesEnv(t *testing.T) {
	os.Setenv("TEST_API_KEY", "secret123")
	defer os.Unsetenv("TEST_API_KEY")

	path := writeConfig(t, `{
		"providers": [
			{"id": "main", "type": "openai", "api_key": "${TEST_API_KEY}", "endpoint": "${TEST_ENDPOINT:https://api.openai.com/v1}"}
		],
		"security": {"whitelist": ["5511999999999"]}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers[0].APIKey != "secret123" {
		t.Errorf("got %q, want env value", cfg.Providers[0].APIKey)
	}
	// Unset variable falls back to the inline default.
	if cfg.Providers[0].Endpoint != "https://api.openai.com/v1" {
		t.Errorf("got %q, want default", cfg.Providers[0].Endpoint)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.MetricsPort != 9090 {
		t.Errorf("metrics port default = %d", cfg.Server.MetricsPort)
	}
	if cfg.WhatsApp.Mode != "waha" {
		t.Errorf("whatsapp mode default = %q", cfg.WhatsApp.Mode)
	}
	if cfg.History.Driver != "memory" || cfg.History.MaxMessages != 20 {
		t.Errorf("history defaults = %q/%d", cfg.History.Driver, cfg.History.MaxMessages)
	}
	if cfg.Cache.Driver != "memory" || cfg.Cache.TTLSeconds != 3600 {
		t.Errorf("cache defaults = %q/%d", cfg.Cache.Driver, cfg.Cache.TTLSeconds)
	}
}

func TestLoadRejectsMissingAndInvalid(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, `{not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestProviderSelection(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"providers": [
			{"id": "a", "type": "openai"},
			{"id": "b", "type": "ollama"}
		]
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := cfg.Provider("")
	if err != nil || p.ID != "a" {
		t.Errorf("empty id should select the first provider, got %v, %v", p, err)
	}
	p, err = cfg.Provider("b")
	if err != nil || p.ID != "b" {
		t.Errorf("got %v, %v", p, err)
	}
	if _, err := cfg.Provider("missing"); err == nil {
		t.Error("expected error for unknown provider id")
	}
}
