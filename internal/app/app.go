// Package app is the main orchestrator that ties all gateway components
// together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/arispretz/codeuniverse-backend/internal/api"
	"github.com/arispretz/codeuniverse-backend/internal/auth"
	"github.com/arispretz/codeuniverse-backend/internal/config"
	"github.com/arispretz/codeuniverse-backend/internal/gateway"
	"github.com/arispretz/codeuniverse-backend/internal/inference"
	"github.com/arispretz/codeuniverse-backend/internal/store"
)

// App is the gateway process.
type App struct {
	cfg          *config.Config
	store        store.Store
	authProvider auth.Provider
	gateway      *gateway.Gateway
	api          *api.Server
	logger       *slog.Logger
}

// New creates the gateway process from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := store.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	authProvider, err := auth.NewProvider(cfg.Auth, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init auth provider: %w", err)
	}

	// Bootstrap creates the initial admin user for the builtin provider.
	if b, ok := authProvider.(interface{ Bootstrap(context.Context) error }); ok {
		if err := b.Bootstrap(context.Background()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap auth: %w", err)
		}
	}

	var loginProvider auth.LoginProvider
	if lp, ok := authProvider.(auth.LoginProvider); ok {
		loginProvider = lp
	}

	client := inference.NewClient(cfg.Inference.BaseURL, cfg.Inference.Timeout.Duration)

	gw := gateway.New(db, authProvider, client, logger, gateway.Options{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		PingInterval:    cfg.Gateway.PingInterval.Duration,
		PongWait:        cfg.Gateway.PongWait.Duration,
		MaxMessageBytes: cfg.Gateway.MaxMessageBytes,
	})

	apiSrv := api.NewServer(db, authProvider, loginProvider, gw, client, cfg, logger)

	a := &App{
		cfg:          cfg,
		store:        db,
		authProvider: authProvider,
		gateway:      gw,
		api:          apiSrv,
		logger:       logger.With("component", "app"),
	}

	// Startup validation warnings (only for builtin provider).
	if authProvider.Name() == "builtin" {
		if len(cfg.Auth.JWTSecret) < 32 {
			logger.Warn("JWT secret is shorter than 32 characters; use a stronger secret in production")
		}
		if cfg.Auth.InitialAdmin != nil &&
			cfg.Auth.InitialAdmin.Username == "admin" && cfg.Auth.InitialAdmin.Password == "admin" {
			logger.Warn("default admin credentials detected (admin/admin); change immediately in production")
		}
	}
	for _, origin := range cfg.Server.AllowedOrigins {
		if origin == "*" {
			logger.Warn("CORS allowed_origins contains wildcard '*'; restrict to specific origins in production")
			break
		}
	}

	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.cfg.Server.Addr,
		Handler: a.api.Handler(),
	}

	a.api.StartBackgroundTasks(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("gateway listening", "addr", a.cfg.Server.Addr, "inference", a.cfg.Inference.BaseURL)
		if a.cfg.Server.TLSCert != "" && a.cfg.Server.TLSKey != "" {
			errCh <- srv.ListenAndServeTLS(a.cfg.Server.TLSCert, a.cfg.Server.TLSKey)
		} else {
			a.logger.Warn("TLS not configured, running without encryption (development only)")
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			_ = srv.Close()
		} else {
			a.logger.Info("http server stopped gracefully")
		}

		a.logger.Info("closing store")
		_ = a.store.Close()
		a.logger.Info("shutdown complete")
		return ctx.Err()

	case err := <-errCh:
		_ = a.store.Close()
		return err
	}
}
