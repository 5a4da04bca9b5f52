// Package config loads the JSON configuration file, substituting
// ${VAR} and ${VAR:default} references with environment values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig     `json:"server"`
	Providers []ProviderConfig `json:"providers"`
	WhatsApp  WhatsAppConfig   `json:"whatsapp"`
	History   HistoryConfig    `json:"history"`
	Cache     CacheConfig      `json:"cache"`
	Security  SecurityConfig   `json:"security"`
	Assistant AssistantConfig  `json:"assistant"`
	Skills    SkillsConfig     `json:"skills"`
}

type ServerConfig struct {
	MetricsPort int    `json:"metrics_port"`
	LogLevel    string `json:"log_level"`
}

type ProviderConfig struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Name     string            `json:"name"`
	Endpoint string            `json:"endpoint"`
	APIKey   string            `json:"api_key"`
	Model    string            `json:"model"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// WhatsAppConfig selects the transport: "waha" talks to a WAHA HTTP
// gateway, "whatsmeow" connects directly over the socket client.
type WhatsAppConfig struct {
	Mode        string `json:"mode"`
	WahaURL     string `json:"waha_url"`
	WahaAPIKey  string `json:"waha_api_key"`
	WahaSession string `json:"waha_session"`
	WebhookPort int    `json:"webhook_port"`
	DBPath      string `json:"db_path"`
}

type HistoryConfig struct {
	Driver      string `json:"driver"` // memory|sqlite|postgres
	Path        string `json:"path"`
	DSN         string `json:"dsn"`
	MaxMessages int    `json:"max_messages"`
}

type CacheConfig struct {
	Driver     string `json:"driver"` // memory|redis
	URL        string `json:"url"`
	TTLSeconds int    `json:"ttl_seconds"`
}

type SecurityConfig struct {
	Whitelist []string `json:"whitelist"`
}

type AssistantConfig struct {
	ProviderID    string  `json:"provider_id"`
	SystemPrompt  string  `json:"system_prompt"`
	Temperature   float64 `json:"temperature"`
	MaxToolRounds int     `json:"max_tool_rounds"`
	MaxAttempts   int     `json:"max_attempts"`
	AudioResponse bool    `json:"audio_response"`
}

type SkillsConfig struct {
	WebSearch       bool         `json:"web_search"`
	FileManager     bool         `json:"file_manager"`
	FileBaseDir     string       `json:"file_base_dir"`
	TerminalCommand bool         `json:"terminal_command"`
	Notion          bool         `json:"notion"`
	NotionAPIKey    string       `json:"notion_api_key"`
	GoogleCalendar  bool         `json:"google_calendar"`
	Google          GoogleConfig `json:"google"`
}

type GoogleConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`
	RefreshToken string `json:"refresh_token"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.MetricsPort == 0 {
		c.Server.MetricsPort = 9090
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.WhatsApp.Mode == "" {
		c.WhatsApp.Mode = "waha"
	}
	if c.WhatsApp.WebhookPort == 0 {
		c.WhatsApp.WebhookPort = 3000
	}
	if c.WhatsApp.DBPath == "" {
		c.WhatsApp.DBPath = "whatsapp.db"
	}
	if c.History.Driver == "" {
		c.History.Driver = "memory"
	}
	if c.History.MaxMessages == 0 {
		c.History.MaxMessages = 20
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 3600
	}
	if c.Skills.FileBaseDir == "" {
		c.Skills.FileBaseDir = "."
	}
}

// Provider returns the provider config with the given ID, falling back to
// the first configured provider when id is empty.
func (c *Config) Provider(id string) (*ProviderConfig, error) {
	if len(c.Providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	if id == "" {
		return &c.Providers[0], nil
	}
	for i := range c.Providers {
		if c.Providers[i].ID == id {
			return &c.Providers[i], nil
		}
	}
	return nil, fmt.Errorf("provider %q not found", id)
}
