// main is the entry point of the e-learning API.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Connect to (and set up) the database
//  4. Register all HTTP routes
//  5. Start the HTTP server in a separate goroutine
//  6. Block until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, close the pool, exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/e-learning-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/e-learning-api
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aanand-mishra/e-learning-api/internal/config"
	"github.com/aanand-mishra/e-learning-api/internal/http/router"
	"github.com/aanand-mishra/e-learning-api/internal/storage/sqldb"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	// SetDefault makes every slog.Info/Error call in the handlers and
	// middleware go through this logger.
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting e-learning-api",
		slog.String("env", cfg.Env),
		slog.String("driver", cfg.Storage.Driver),
		slog.String("update_policy", cfg.Storage.UpdatePolicy),
	)

	// ── 3. Initialise Storage (Database) ──────────────────────────────────
	// Opening, pinging and creating the tables must finish within 15s.
	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	storage, err := sqldb.New(startCtx, cfg.Storage)
	cancelStart()
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	log.Info("storage initialised", slog.String("driver", cfg.Storage.Driver))

	// ── 4. Register HTTP Routes / 5. Create the HTTP Server ───────────────
	// router.New returns the mux already wrapped in the middleware chain.
	server := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: router.New(storage, cfg.Storage.UpdatePolicy),

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── 6. Start Server in a Goroutine ────────────────────────────────────
	// ListenAndServe blocks, so it runs in the background while main
	// waits for a signal below.
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		// ListenAndServe returns http.ErrServerClosed once Shutdown is called.
		if err := server.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 7. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	// Shutdown stops accepting connections and waits up to 5s for in-flight
	// requests. The deferred storage.Close then releases the pool.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
		return
	}

	log.Info("server stopped gracefully")
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
