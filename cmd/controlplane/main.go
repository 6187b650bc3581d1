package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/zrclouddev-oss/saas-starter-vue/internal/adapter/fsm"
	handler "github.com/zrclouddev-oss/saas-starter-vue/internal/adapter/http"
	"github.com/zrclouddev-oss/saas-starter-vue/internal/adapter/otel"
	riveradapter "github.com/zrclouddev-oss/saas-starter-vue/internal/adapter/river"
	"github.com/zrclouddev-oss/saas-starter-vue/internal/adapter/sqlite"
	"github.com/zrclouddev-oss/saas-starter-vue/internal/adapter/tenantdb"
	"github.com/zrclouddev-oss/saas-starter-vue/internal/app"
	"github.com/zrclouddev-oss/saas-starter-vue/internal/config"
	"github.com/zrclouddev-oss/saas-starter-vue/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "controlplane: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	log := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()

	// --- Observability ---
	providers, err := otel.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("otel shutdown")
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	catalog := sqlite.NewCatalog(db)

	provisioner, err := tenantdb.New(cfg.TenantDataDir)
	if err != nil {
		return fmt.Errorf("tenant data dir: %w", err)
	}

	riverClient, err := riveradapter.Setup(ctx, db, log)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}
	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("river start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			log.Error().Err(err).Msg("river stop")
		}
	}()

	publisher := otel.NewTracingPublisher(riveradapter.NewPublisher(riverClient))
	tracedRepo := otel.NewTracingRepository(repo)

	// --- Application ---
	tenants := app.NewTenantService(tracedRepo, provisioner, publisher, fsm.New(), cfg.BaseDomain,
		app.WithProvisionTimeout(cfg.ProvisionTimeout))
	plans := app.NewPlanService(catalog)
	features := app.NewFeatureService(catalog)
	subs := app.NewSubscriptionService(catalog, tracedRepo, catalog)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware("controlplane", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("controlplane", "0.1.0"))
	handler.Register(api, tenants, plans, features, subs)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("base_domain", cfg.BaseDomain).Msg("controlplane listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info().Msg("stopped")
	return nil
}
