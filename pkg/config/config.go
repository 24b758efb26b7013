package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config is the full popchat configuration. Values load from a JSON
// file with environment overrides on top; POPCHAT_CONFIG_JSON replaces
// the file entirely for containers and serverless.
type Config struct {
	Assistant AssistantConfig `json:"assistant"`
	Widget    WidgetConfig    `json:"widget"`
	Log       LogConfig       `json:"log"`
}

// AssistantConfig describes the backend the widget talks to and the
// fixed strings of a session. The endpoint is not validated here; a
// bad URL surfaces on the first call.
type AssistantConfig struct {
	Endpoint      string `json:"endpoint" env:"POPCHAT_ASSISTANT_ENDPOINT"`
	SystemPrompt  string `json:"system_prompt" env:"POPCHAT_ASSISTANT_SYSTEM_PROMPT"`
	Greeting      string `json:"greeting" env:"POPCHAT_ASSISTANT_GREETING"`
	FallbackText  string `json:"fallback_text" env:"POPCHAT_ASSISTANT_FALLBACK_TEXT"`
	ConnErrText   string `json:"connection_error_text" env:"POPCHAT_ASSISTANT_CONNECTION_ERROR_TEXT"`
	HistoryWindow int    `json:"history_window" env:"POPCHAT_ASSISTANT_HISTORY_WINDOW"`
}

// WidgetConfig configures the HTTP surface that hosts the popup.
type WidgetConfig struct {
	Host            string  `json:"host" env:"POPCHAT_WIDGET_HOST"`
	Port            int     `json:"port" env:"POPCHAT_WIDGET_PORT"`
	SessionTTLMin   int     `json:"session_ttl_minutes" env:"POPCHAT_WIDGET_SESSION_TTL_MINUTES"`
	RatePerSecond   float64 `json:"rate_per_second" env:"POPCHAT_WIDGET_RATE_PER_SECOND"`
	RateBurst       int     `json:"rate_burst" env:"POPCHAT_WIDGET_RATE_BURST"`
	AllowedOrigin   string  `json:"allowed_origin" env:"POPCHAT_WIDGET_ALLOWED_ORIGIN"`
	WidgetTitle     string  `json:"widget_title" env:"POPCHAT_WIDGET_TITLE"`
	WidgetSubtitle  string  `json:"widget_subtitle" env:"POPCHAT_WIDGET_SUBTITLE"`
	InputPlaceholder string `json:"input_placeholder" env:"POPCHAT_WIDGET_INPUT_PLACEHOLDER"`
}

type LogConfig struct {
	Level string `json:"level" env:"POPCHAT_LOG_LEVEL"`
}

func DefaultConfig() *Config {
	return &Config{
		Assistant: AssistantConfig{
			Endpoint:      "http://localhost:8801/api/chat",
			SystemPrompt:  "You are a friendly assistant embedded in a personal portfolio site. Answer questions about the site owner's work, projects, and background. Keep answers short.",
			Greeting:      "Hi! Ask me anything about this site or the work on it.",
			HistoryWindow: 25,
		},
		Widget: WidgetConfig{
			Host:            "0.0.0.0",
			Port:            8800,
			SessionTTLMin:   30,
			RatePerSecond:   1,
			RateBurst:       5,
			WidgetTitle:     "Chat",
			WidgetSubtitle:  "Usually replies in seconds",
			InputPlaceholder: "Type a message...",
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads the config file at path, falling back to defaults
// when it does not exist, then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Support full config from env var (for containers / serverless)
	if cfgJSON := os.Getenv("POPCHAT_CONFIG_JSON"); cfgJSON != "" {
		if err := json.Unmarshal([]byte(cfgJSON), cfg); err != nil {
			return nil, fmt.Errorf("parsing POPCHAT_CONFIG_JSON: %w", err)
		}
		if err := env.Parse(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig writes cfg as indented JSON, creating the directory if
// needed.
func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
