package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// ASR provider selection and per-provider settings.
	ASRProvider     string        `env:"ASR_PROVIDER" envDefault:"whisper"`
	WhisperURL      string        `env:"WHISPER_URL" envDefault:"http://localhost:8000/v1/audio/transcriptions"`
	WhisperModel    string        `env:"WHISPER_MODEL" envDefault:"whisper-tiny"`
	WhisperTimeout  time.Duration `env:"WHISPER_TIMEOUT" envDefault:"60s"`
	ElevenLabsKey   string        `env:"ELEVENLABS_API_KEY"`
	ElevenLabsModel string        `env:"ELEVENLABS_MODEL" envDefault:"scribe_v1"`

	// LLM summarization.
	OpenAIKey          string        `env:"OPENAI_API_KEY"`
	OpenAIModel        string        `env:"OPENAI_MODEL" envDefault:"gpt-4"`
	SummaryInstruction string        `env:"SUMMARY_INSTRUCTION" envDefault:"Résume le message de la boîte vocale. Ton résumé doit être en français, et détaillé."`
	SummaryTimeout     time.Duration `env:"SUMMARY_TIMEOUT" envDefault:"30s"`
	SummaryMaxRetries  int           `env:"SUMMARY_MAX_RETRIES" envDefault:"0"`

	// Telephony provider credentials for pulling webhook recordings.
	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`

	// Remote recording fetch policy. The provider may not have finalized the
	// recording when the webhook fires, so the first attempt waits FetchDelay
	// and not-ready responses are retried up to FetchMaxRetries.
	FetchDelay      time.Duration `env:"FETCH_DELAY" envDefault:"5s"`
	FetchMaxRetries int           `env:"FETCH_MAX_RETRIES" envDefault:"3"`
	FetchTimeout    time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`

	// ScratchDir is the root for per-run audio staging. Empty = system temp.
	ScratchDir string `env:"SCRATCH_DIR"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile  string
	HTTPAddr string
	LogLevel string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	// Parse environment variables into config struct
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}

	return cfg, nil
}
