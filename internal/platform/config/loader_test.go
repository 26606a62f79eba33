package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader_Load(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, ".config.yaml")

	configContent := `
server:
  ip: "127.0.0.1"
  port: 9090
log:
  log_level: "DEBUG"
session:
  grace_window: 5s
caption:
  max_words_before_flush: 10
asr:
  routing:
    en: deepgram
`

	if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	loader := NewLoader().WithDotEnv(false).WithPath(configFile)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.IP != "127.0.0.1" {
		t.Errorf("expected server IP 127.0.0.1, got %s", cfg.Server.IP)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected server port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Session.GraceWindow != 5*time.Second {
		t.Errorf("expected 5s grace window, got %v", cfg.Session.GraceWindow)
	}
	if cfg.Caption.MaxWordsBeforeFlush != 10 {
		t.Errorf("expected flush ceiling 10, got %d", cfg.Caption.MaxWordsBeforeFlush)
	}
	// untouched fields keep their defaults
	if cfg.Caption.MaxDurationBeforeFlush != 3.5 {
		t.Errorf("expected default duration ceiling 3.5, got %v", cfg.Caption.MaxDurationBeforeFlush)
	}
	if cfg.ASR.Routing["en"] != "deepgram" {
		t.Errorf("expected routing override for en, got %q", cfg.ASR.Routing["en"])
	}
}

func TestLoader_LoadMissingFileUsesDefaults(t *testing.T) {
	loader := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("expected defaults when file missing, got error: %v", err)
	}
	if cfg.Session.GraceWindow != 15*time.Second {
		t.Errorf("expected default grace window 15s, got %v", cfg.Session.GraceWindow)
	}
	if cfg.ASR.Deepgram.Model != "nova-2-general" {
		t.Errorf("unexpected default deepgram model: %s", cfg.ASR.Deepgram.Model)
	}
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "dg-test-key")
	t.Setenv("JWT_SECRET", "secret-from-env")

	loader := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ASR.Deepgram.APIKey != "dg-test-key" {
		t.Errorf("expected env api key, got %q", cfg.ASR.Deepgram.APIKey)
	}
	if cfg.Server.Auth.JWTSecret != "secret-from-env" {
		t.Errorf("expected env jwt secret, got %q", cfg.Server.Auth.JWTSecret)
	}
}

func TestLoader_Validate(t *testing.T) {
	loader := NewLoader()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "invalid server port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "zero flush ceiling",
			mutate:  func(c *Config) { c.Caption.MaxWordsBeforeFlush = 0 },
			wantErr: true,
		},
		{
			name:    "negative grace window",
			mutate:  func(c *Config) { c.Session.GraceWindow = -time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := loader.Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
