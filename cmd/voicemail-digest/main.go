package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/voicemail-digest/internal/api"
	"github.com/snarg/voicemail-digest/internal/config"
	"github.com/snarg/voicemail-digest/internal/pipeline"
	"github.com/snarg/voicemail-digest/internal/storage"
	"github.com/snarg/voicemail-digest/internal/summarize"
	"github.com/snarg/voicemail-digest/internal/transcribe"
)

var version = "dev"

func main() {
	startTime := time.Now()

	envFile := flag.String("env-file", "", "path to .env file")
	httpAddr := flag.String("addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	logLevel := flag.String("log-level", "", "log level (overrides LOG_LEVEL)")
	flag.Parse()

	// Config
	cfg, err := config.Load(config.Overrides{
		EnvFile:  *envFile,
		HTTPAddr: *httpAddr,
		LogLevel: *logLevel,
	})
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("voicemail-digest starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ASR provider
	provider, err := buildProvider(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure ASR provider")
	}
	log.Info().Str("provider", provider.Name()).Str("model", provider.Model()).Msg("ASR provider configured")

	// Summarizer
	if cfg.OpenAIKey == "" {
		log.Fatal().Msg("OPENAI_API_KEY is required")
	}
	summarizer := summarize.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.SummaryMaxRetries)

	// Pipeline
	orch := pipeline.New(pipeline.Options{
		Provider:          provider,
		Summarizer:        summarizer,
		Scratch:           storage.NewScratch(cfg.ScratchDir),
		Instruction:       cfg.SummaryInstruction,
		TranscribeTimeout: cfg.WhisperTimeout,
		SummarizeTimeout:  cfg.SummaryTimeout,
		Log:               log,
	})

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	health := api.NewHealthHandler(version, startTime, provider.Name(), provider.Model(), cfg.OpenAIModel)
	srv := api.NewServer(cfg, orch, health, httpLog)

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("voicemail-digest stopped")
}

func buildProvider(cfg *config.Config) (transcribe.Provider, error) {
	switch cfg.ASRProvider {
	case "whisper":
		return transcribe.NewWhisperClient(cfg.WhisperURL, cfg.WhisperModel, cfg.WhisperTimeout), nil
	case "elevenlabs":
		if cfg.ElevenLabsKey == "" {
			return nil, fmt.Errorf("ELEVENLABS_API_KEY is required for the elevenlabs provider")
		}
		return transcribe.NewElevenLabsClient(cfg.ElevenLabsKey, cfg.ElevenLabsModel, cfg.WhisperTimeout), nil
	default:
		return nil, fmt.Errorf("unknown ASR provider %q", cfg.ASRProvider)
	}
}
