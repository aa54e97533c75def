// Package main starts the submission collector, the backend the
// registration site posts completed registrations to.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/config"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/database"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/handler"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/receipt"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/repository"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/service"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/telemetry"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.ParseCollector(flag.CommandLine, os.Args[1:])
	if err != nil {
		slog.Error("parse config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("collector stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Collector) error {
	shutdownTracing, err := telemetry.Setup(ctx, "techfest-collector", cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("flush traces", "error", err)
		}
	}()

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	slog.Info("connected to postgres")

	if err := database.Migrate(ctx, pool); err != nil {
		return err
	}

	cat := catalog.Default()
	eventRepo := repository.NewEventRepository(pool)
	if err := eventRepo.Sync(ctx, cat.All()); err != nil {
		return err
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	receipts, err := receipt.NewDiskStore(cfg.ReceiptDir)
	if err != nil {
		return err
	}
	regRepo := repository.NewRegistrationRepository(pool)
	collectorSvc := service.NewCollectorService(cat, regRepo, eventRepo, receipts)
	collectorHandler := handler.NewCollectorHandler(collectorSvc, cfg.MaxUploadMB<<20)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger)
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)
	collectorHandler.Routes(r)

	// ── 4. Serve until cancelled ──────────────────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("collector listening", "addr", "http://localhost:"+cfg.Port, "receipts", cfg.ReceiptDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down collector")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("collector stopped")
	return nil
}
