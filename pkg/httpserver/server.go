// Package httpserver wraps net/http with graceful shutdown and health-check
// handlers so cmd/server stays small.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var (
	ErrStart    = errors.New("httpserver: failed to start")
	ErrShutdown = errors.New("httpserver: failed to shut down gracefully")
)

// Config is populated from the environment via config.Load.
type Config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Server runs an http.Server and shuts it down on context cancellation or
// SIGINT/SIGTERM.
type Server struct {
	cfg Config
	log *slog.Logger
}

// New returns a Server; a nil logger falls back to slog.Default.
func New(cfg Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{cfg: cfg, log: log}
}

// Run starts listening and blocks until the context is done, a signal
// arrives, or the listener fails.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	s.log.Info("http server listening", "addr", s.cfg.Addr)

	var runErr error
	select {
	case <-ctx.Done():
		runErr = s.shutdown(srv, errCh)
	case sig := <-stop:
		s.log.Info("shutting down on signal", "signal", sig.String())
		runErr = s.shutdown(srv, errCh)
	case runErr = <-errCh:
	}

	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		return errors.Join(ErrStart, runErr)
	}
	return nil
}

func (s *Server) shutdown(srv *http.Server, errCh chan error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return errors.Join(ErrShutdown, err)
	}
	return <-errCh
}

// HealthCheckHandler serves liveness when called with no checks and
// readiness when dependency checks are supplied.
func HealthCheckHandler(log *slog.Logger, checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed", "error", err)
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("NOT_READY"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
