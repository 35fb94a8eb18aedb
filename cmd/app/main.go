package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/chris/custodial-ledger/pkg/api"
	"github.com/chris/custodial-ledger/pkg/bootstrap"
	"github.com/chris/custodial-ledger/pkg/config"
	"github.com/chris/custodial-ledger/pkg/handlers"
	wshandler "github.com/chris/custodial-ledger/pkg/handlers/websockets"
	"github.com/chris/custodial-ledger/pkg/identity"
	"github.com/chris/custodial-ledger/pkg/ledger"
	"github.com/chris/custodial-ledger/pkg/middleware"
	"github.com/chris/custodial-ledger/pkg/scheduler"
	"github.com/chris/custodial-ledger/pkg/websockets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger := bootstrap.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build dependencies", "error", err)
		os.Exit(1)
	}
	defer components.Close()

	verifier, err := identity.NewVerifier([]byte(cfg.JWTSecret), cfg.JWTIssuer)
	if err != nil {
		logger.Error("failed to create token verifier", "error", err)
		os.Exit(1)
	}

	hub := websockets.NewHub(logger)
	handler := handlers.NewApiHandler(components.Engine, components.Store, hub, components.SettleLimiter(), logger)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.NewStructuredLogger(logger))
	router.Use(chimiddleware.Recoverer)

	router.With(verifier.RequireUser).Handle("/ws", wshandler.NewHandler(hub, nil, logger))
	api.HandlerWithOptions(handler, api.ChiServerOptions{
		BaseRouter:  router,
		Middlewares: []api.MiddlewareFunc{verifier.Authenticate},
	})

	// The expiry lambda and reconciliation lambda cover these when deployed on AWS;
	// running them here too is safe because every transition is conditional.
	runner := scheduler.NewRunner(logger)
	runner.AddTask("expire-stale-sessions", cfg.SweepInterval, func(ctx context.Context) error {
		n, err := components.Engine.ExpireStale(ctx)
		if n > 0 {
			logger.Info("expired stale sessions", "count", n)
		}
		return err
	})
	runner.AddTask("reconcile-settling-sessions", cfg.ReconcileInterval, func(ctx context.Context) error {
		report, err := components.Engine.ReconcileSettling(ctx)
		if report != (ledger.ReconcileReport{}) {
			logger.Info("reconciled settling sessions", "report", report)
		}
		return err
	})
	runner.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// A settlement may wait out the user lock and then the payout.
		WriteTimeout: cfg.Policy.MaxRequestDuration(),
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting server", "port", cfg.HTTPPort, "backend", cfg.Backend, "custody_address", components.Engine.CustodyAddress())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	runner.Stop()
	slog.Info("server stopped")
}
