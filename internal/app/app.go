// Package app wires all EchoVerse subsystems into a running service.
//
// The App struct owns the full lifecycle: New connects the providers,
// session manager, and HTTP server; Run serves until the context is
// cancelled; Shutdown tears everything down in order.
//
// For testing, inject mock providers directly via the Providers struct.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/echoverse/echoverse/internal/config"
	"github.com/echoverse/echoverse/internal/health"
	"github.com/echoverse/echoverse/internal/server"
	"github.com/echoverse/echoverse/internal/session"
	"github.com/echoverse/echoverse/pkg/provider/rewrite"
	"github.com/echoverse/echoverse/pkg/provider/speech"
)

// shutdownTimeout bounds graceful HTTP shutdown after ctx cancellation.
const shutdownTimeout = 10 * time.Second

// Providers holds one interface value per provider slot. Populated by
// main.go via the config registry, or by tests with mocks.
type Providers struct {
	Rewrite rewrite.Provider
	Speech  speech.Provider
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers
	manager   *session.Manager
	httpSrv   *http.Server

	// closers are called in order during Shutdown.
	closers []func(context.Context) error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithCloser registers an extra shutdown hook, called after the HTTP server
// has stopped. Used by main.go for the telemetry provider shutdown.
func WithCloser(fn func(context.Context) error) Option {
	return func(a *App) {
		a.closers = append(a.closers, fn)
	}
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
func New(cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.Rewrite == nil {
		return nil, fmt.Errorf("app: a rewrite provider is required")
	}
	if providers.Speech == nil {
		return nil, fmt.Errorf("app: a speech provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	var managerOpts []session.Option
	if cfg.History.MaxRecords > 0 {
		managerOpts = append(managerOpts, session.WithHistoryCap(cfg.History.MaxRecords))
	}
	a.manager = session.NewManager(managerOpts...)

	checkers := []health.Checker{
		{Name: "rewrite-provider", Check: func(context.Context) error {
			if a.providers.Rewrite == nil {
				return errors.New("not configured")
			}
			return nil
		}},
		{Name: "speech-provider", Check: func(context.Context) error {
			if a.providers.Speech == nil {
				return errors.New("not configured")
			}
			return nil
		}},
	}

	srv := server.New(a.manager, providers.Rewrite, providers.Speech,
		server.WithHealth(health.New(checkers...)),
	)

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	a.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Manager exposes the session manager. Used by tests.
func (a *App) Manager() *session.Manager {
	return a.manager
}

// Addr returns the configured listen address.
func (a *App) Addr() string {
	return a.httpSrv.Addr
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully. It
// returns the first serve error, or nil on a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server listening", "addr", a.httpSrv.Addr)
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown stops the HTTP server gracefully and runs registered closers in
// order. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "active_sessions", a.manager.Count())

		sctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := a.httpSrv.Shutdown(sctx); err != nil {
			slog.Warn("http shutdown error", "err", err)
			shutdownErr = err
		}

		for i, closer := range a.closers {
			if err := closer(sctx); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
