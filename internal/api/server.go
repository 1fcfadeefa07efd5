package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/snarg/voicemail-digest/internal/config"
	"github.com/snarg/voicemail-digest/internal/ingest"
	"github.com/snarg/voicemail-digest/internal/metrics"
)

const welcomeMessage = "Welcome to the Voicemail Digest API"

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(cfg *config.Config, p RunProcessor, health *HealthHandler, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(metrics.InstrumentHandler)

	// Liveness probe
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		WriteJSON(w, http.StatusOK, MessageResponse{Message: welcomeMessage})
	})

	// Processing pipeline
	process := NewProcessHandler(p, ProviderCredentials{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
	}, ingest.FetchPolicy{
		InitialDelay: cfg.FetchDelay,
		MaxRetries:   cfg.FetchMaxRetries,
		Timeout:      cfg.FetchTimeout,
	}, log)
	process.Routes(r)

	// Operational surface
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
