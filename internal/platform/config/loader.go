package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Loader reads configuration from a yaml file with environment overrides.
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader that reads .config.yaml from the working directory.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		path:      ".config.yaml",
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the configuration file path (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// Load reads defaults, merges the yaml file if present, then applies
// environment variable overrides for secrets.
func (l *Loader) Load() (*Config, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using system environment")
		}
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		l.path = path
	}

	cfg := DefaultConfig()

	if data, err := os.ReadFile(l.path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", l.path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", l.path, err)
	}

	l.applyEnv(cfg)

	if err := l.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) applyEnv(cfg *Config) {
	setIfPresent := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setIfPresent(&cfg.Server.Auth.JWTSecret, "JWT_SECRET")
	setIfPresent(&cfg.ASR.Speechmatics.APIKey, "SPEECHMATICS_API_KEY")
	setIfPresent(&cfg.ASR.Deepgram.APIKey, "DEEPGRAM_API_KEY")
	setIfPresent(&cfg.ASR.AssemblyAI.APIKey, "ASSEMBLYAI_API_KEY")
	setIfPresent(&cfg.Translation.APIKey, "TRANSLATION_API_KEY")
	setIfPresent(&cfg.Redis.Password, "REDIS_PASSWORD")
}

// Validate checks structural invariants of the configuration.
func (l *Loader) Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Web.Enabled && (cfg.Web.Port <= 0 || cfg.Web.Port > 65535) {
		return fmt.Errorf("invalid web port: %d", cfg.Web.Port)
	}
	if cfg.Session.GraceWindow < 0 {
		return fmt.Errorf("grace window must not be negative")
	}
	if cfg.Caption.MaxWordsBeforeFlush <= 0 {
		return fmt.Errorf("max_words_before_flush must be positive")
	}
	if cfg.Caption.MaxDurationBeforeFlush <= 0 {
		return fmt.Errorf("max_duration_before_flush must be positive")
	}
	return nil
}
