package config

import (
	"time"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Web         WebConfig         `yaml:"web"`
	Session     SessionConfig     `yaml:"session"`
	Caption     CaptionConfig     `yaml:"caption"`
	ASR         ASRConfig         `yaml:"asr"`
	Translation TranslationConfig `yaml:"translation"`
	Redis       RedisConfig       `yaml:"redis"`
	Storage     StorageConfig     `yaml:"storage"`
}

type ServerConfig struct {
	IP               string        `yaml:"ip"`
	Port             int           `yaml:"port"`
	Path             string        `yaml:"path"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	Auth             AuthConfig    `yaml:"auth"`
}

type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// WebConfig configures the auxiliary HTTP API (health, session stats).
type WebConfig struct {
	Enabled bool     `yaml:"enabled"`
	Port    int      `yaml:"port"`
	Origins []string `yaml:"origins"`
}

// SessionConfig holds session lifecycle tunables.
type SessionConfig struct {
	// GraceWindow is how long a session keeps its provider connection alive
	// after an abnormal client disconnect, awaiting reattachment.
	GraceWindow time.Duration `yaml:"grace_window"`
}

// CaptionConfig holds sentence reconstruction and filtering tunables.
type CaptionConfig struct {
	// MaxWordsBeforeFlush forces a final caption once this many committed
	// words accumulate without a sentence boundary.
	MaxWordsBeforeFlush int `yaml:"max_words_before_flush"`
	// MaxDurationBeforeFlush forces a final caption once the committed span
	// reaches this many seconds without a sentence boundary.
	MaxDurationBeforeFlush float64 `yaml:"max_duration_before_flush"`
}

// ASRConfig carries per-vendor settings plus the language routing table.
type ASRConfig struct {
	// Routing overrides the built-in language -> provider table. Keys are
	// source language codes, values are provider names.
	Routing      map[string]string  `yaml:"routing"`
	Speechmatics SpeechmaticsConfig `yaml:"speechmatics"`
	Deepgram     DeepgramConfig     `yaml:"deepgram"`
	AssemblyAI   AssemblyAIConfig   `yaml:"assemblyai"`
}

type SpeechmaticsConfig struct {
	APIKey         string  `yaml:"api_key"`
	URL            string  `yaml:"url"`
	OperatingPoint string  `yaml:"operating_point"`
	MaxDelay       float64 `yaml:"max_delay"`
}

type DeepgramConfig struct {
	APIKey      string        `yaml:"api_key"`
	URL         string        `yaml:"url"`
	Model       string        `yaml:"model"`
	Endpointing int           `yaml:"endpointing"`
	KeepAlive   time.Duration `yaml:"keep_alive"`
}

type AssemblyAIConfig struct {
	APIKey                 string  `yaml:"api_key"`
	URL                    string  `yaml:"url"`
	EndOfTurnConfidence    float64 `yaml:"end_of_turn_confidence"`
	MaxTurnSilenceMs       int     `yaml:"max_turn_silence_ms"`
	MinEndOfTurnSilenceMs  int     `yaml:"min_end_of_turn_silence_ms"`
}

// TranslationConfig points at an OpenAI-compatible chat completion endpoint.
type TranslationConfig struct {
	BaseURL     string  `yaml:"url"`
	APIKey      string  `yaml:"api_key"`
	ModelName   string  `yaml:"model_name"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	// AccountRules holds optional per-account extra prompt context, keyed by
	// account id.
	AccountRules map[string]string `yaml:"account_rules"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}
