package config

import "time"

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:               "0.0.0.0",
			Port:             8080,
			Path:             "/",
			HandshakeTimeout: 10 * time.Second,
			Auth: AuthConfig{
				Enabled: true,
			},
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8081,
		},
		Session: SessionConfig{
			GraceWindow: 15 * time.Second,
		},
		Caption: CaptionConfig{
			MaxWordsBeforeFlush:    14,
			MaxDurationBeforeFlush: 3.5,
		},
		ASR: ASRConfig{
			Speechmatics: SpeechmaticsConfig{
				URL:            "wss://us.rt.speechmatics.com/v2",
				OperatingPoint: "standard",
				MaxDelay:       1,
			},
			Deepgram: DeepgramConfig{
				URL:         "wss://api.deepgram.com/v1/listen",
				Model:       "nova-2-general",
				Endpointing: 300,
				KeepAlive:   3 * time.Second,
			},
			AssemblyAI: AssemblyAIConfig{
				URL:                   "wss://streaming.assemblyai.com/v3/ws",
				EndOfTurnConfidence:   0.3,
				MaxTurnSilenceMs:      800,
				MinEndOfTurnSilenceMs: 0,
			},
		},
		Translation: TranslationConfig{
			ModelName:   "gemini-2.5-flash-lite",
			Temperature: 0.3,
			MaxTokens:   1024,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "127.0.0.1:6379",
			Prefix:  "captions:",
		},
		Storage: StorageConfig{
			Dir: "./data",
		},
	}
}
