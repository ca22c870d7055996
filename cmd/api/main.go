// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

// Command api is the entry point for the Memodeck authentication API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Build security primitives (wordlists, password policy, hasher, JWT).
//  7. Wire repositories, services, and HTTP handlers.
//  8. Launch the expired-session sweeper.
//  9. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/memodeck/memodeck/internal/api"
	"github.com/memodeck/memodeck/internal/platform/config"
	"github.com/memodeck/memodeck/internal/platform/constants"
	"github.com/memodeck/memodeck/internal/platform/metrics"
	"github.com/memodeck/memodeck/internal/platform/migration"
	pgstore "github.com/memodeck/memodeck/internal/platform/postgres"
	redisstore "github.com/memodeck/memodeck/internal/platform/redis"
	"github.com/memodeck/memodeck/internal/platform/sec"
	"github.com/memodeck/memodeck/internal/users/account"
	"github.com/memodeck/memodeck/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Memodeck] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Security Primitives ────────────────────────────────────────────
	profanity, err := loadWordlist(cfg.ProfanityListPath, sec.DefaultProfanity)
	must(log, err, "load profanity wordlist")

	commonPasswords, err := loadWordlist(cfg.CommonPasswordListPath, sec.DefaultCommonPasswords)
	must(log, err, "load common-password wordlist")

	passwordPolicy := sec.NewPasswordPolicy(commonPasswords)
	hasher := sec.NewArgon2idHasher(sec.DefaultArgon2idParams(), runtime.NumCPU())

	jwtSvc, err := sec.NewTokenService([]byte(cfg.JWTSecret), constants.AuthIssuer, cfg.AccessTokenTTL)
	must(log, err, "initialize jwt service")

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	registry := metrics.NewRegistry()

	userRepository := auth.NewUserRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	loginThrottle := auth.NewLoginThrottle(rdb, log)
	sweepMark := auth.NewSweepMark(rdb)

	authService := auth.NewService(
		userRepository,
		sessionRepository,
		loginThrottle,
		jwtSvc,
		hasher,
		passwordPolicy,
		profanity,
		log,
		auth.Options{
			RefreshTokenTTL: cfg.RefreshTokenTTL,
			MaxSessions:     cfg.MaxSessions,
		},
	)
	authHandler := auth.NewHandler(authService, registry, cfg.IsProduction())

	accountService := account.NewService(
		authService,
		userRepository,
		sessionRepository,
		hasher,
		passwordPolicy,
		profanity,
		log,
	)
	accountHandler := account.NewHandler(accountService, registry)

	// ── 9. Session Sweeper ────────────────────────────────────────────────
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	defer sweeperCancel()

	sweeper := auth.NewSweeper(sessionRepository, sweepMark, registry, log)
	go sweeper.Run(sweeperCtx)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Account:   accountHandler,
	}

	server := api.NewServer(sweeperCtx, cfg, log, registry, jwtSvc, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	sweeperCancel()

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// loadWordlist reads the list at path, or falls back to the embedded default
// when no path is configured.
func loadWordlist(path string, fallback func() *sec.Wordlist) (*sec.Wordlist, error) {
	if path == "" {
		return fallback(), nil
	}
	return sec.LoadWordlist(path)
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
