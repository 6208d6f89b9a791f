// Package server exposes the assistant over HTTP: chat turns, manual lead
// and feedback submission, transcript export, and a health probe.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	eventlogx "github.com/neuraestate/propmatch/agent/eventlog"
	orchestratorx "github.com/neuraestate/propmatch/agent/orchestrator"
)

type Config struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

// Health is the probe contract implemented by main wiring; it reports the
// readiness of each upstream without failing the process.
type Health interface {
	Check(ctx context.Context) map[string]string
}

type Server struct {
	cfg     Config
	http    *http.Server
	orch    *orchestratorx.Orchestrator
	events  *eventlogx.Logger
	health  Health
}

func New(cfg Config, orch *orchestratorx.Orchestrator, events *eventlogx.Logger, health Health) *Server {
	s := &Server{
		cfg:    cfg,
		orch:   orch,
		events: events,
		health: health,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/chat", s.handleChat)
	r.Post("/leads", s.handleLead)
	r.Post("/feedback", s.handleFeedback)
	r.Get("/sessions/{sessionID}/export", s.handleExport)
	r.Get("/healthz", s.handleHealthz)

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then drains within ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("server: listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func trimPathParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}
