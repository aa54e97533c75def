// Package main starts the registration site: the event catalog, the
// registration form API and the static festival assets.
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
	"github.com/Shivanand-hulikatti/techfest-registration/internal/countdown"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/handler"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/registration"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/service"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/submit"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/telemetry"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.ParseSite(flag.CommandLine, os.Args[1:])
	if err != nil {
		slog.Error("parse config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("site stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Site) error {
	// ── 1. Tracing ────────────────────────────────────────────────────────
	shutdownTracing, err := telemetry.Setup(ctx, "techfest-site", cfg.OTelEndpoint)
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

	// ── 2. Wire up layers ────────────────────────────────────────────────
	client := submit.NewClient(cfg.BackendURL, &http.Client{Timeout: cfg.SubmitTimeout})
	opts := []registration.Option{registration.WithResetDelay(cfg.SuccessResetDelay)}
	if !cfg.RegistrationDeadline.IsZero() {
		opts = append(opts, registration.WithDeadline(cfg.RegistrationDeadline))
	}
	sessions := service.NewSessionService(catalog.Default(), client, cfg.SessionIdleTimeout, opts...)
	defer sessions.CloseAll()

	stopSweeper, err := sessions.StartSweeper(cfg.SessionSweepSchedule)
	if err != nil {
		return err
	}
	defer stopSweeper()

	siteHandler := handler.NewSiteHandler(sessions, cfg.FestivalStart, cfg.RegistrationDeadline)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger)
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)
	r.Route("/api", siteHandler.Routes)

	// Brochure, rulebook, payment QR and the pages themselves.
	r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))

	// ── 4. Serve until cancelled ──────────────────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SubmitTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("site listening", "addr", "http://localhost:"+cfg.Port, "backend", cfg.BackendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		countdown.Run(ctx, cfg.FestivalStart, time.Hour, func(left countdown.Remaining) {
			if left.Over {
				slog.Info("festival has started", "start", cfg.FestivalStart)
				return
			}
			slog.Info("festival countdown",
				"days", left.Days,
				"hours", left.Hours,
				"live_sessions", sessions.Len(),
				"live_previews", sessions.Previews().Stats().Live,
			)
		})
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down site")
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
	slog.Info("site stopped")
	return nil
}
