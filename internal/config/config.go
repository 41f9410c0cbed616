// Package config loads eduforge configuration: defaults, then the JSON
// file backend, then EDUFORGE_* environment overrides. Secrets are
// accepted only from the environment.
package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Database  DatabaseConfig
	LLM       LLMConfig
	Server    ServerConfig
	Generator GeneratorConfig
	Log       LogConfig
}

type DatabaseConfig struct {
	URL        string
	ServiceKey string
}

type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type ServerConfig struct {
	Port int
}

type GeneratorConfig struct {
	// FailOpen controls what a failed existence check means: true
	// treats it as "content absent" so the batch keeps moving, false
	// counts it as the combination's error.
	FailOpen bool
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Server: ServerConfig{
			Port: 4600,
		},
		Generator: GeneratorConfig{
			FailOpen: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/eduforge/config.json with EDUFORGE_* environment
// variables overriding backend values. The database URL, database
// service key, and LLM API key are required; missing any of them is a
// fatal startup error.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	var missing []string
	if cfg.Database.URL == "" {
		missing = append(missing, "EDUFORGE_DATABASE_URL")
	}
	if cfg.Database.ServiceKey == "" {
		missing = append(missing, "EDUFORGE_DATABASE_SERVICE_KEY")
	}
	if cfg.LLM.APIKey == "" {
		missing = append(missing, "EDUFORGE_LLM_API_KEY")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required config: set %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}
