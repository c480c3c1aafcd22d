package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cardiolab/ecg-engine/pkg/auth"
	"github.com/cardiolab/ecg-engine/pkg/config"
	"github.com/cardiolab/ecg-engine/pkg/database"
	"github.com/cardiolab/ecg-engine/pkg/dispatch"
	"github.com/cardiolab/ecg-engine/pkg/handlers"
	"github.com/cardiolab/ecg-engine/pkg/logging"
	"github.com/cardiolab/ecg-engine/pkg/middleware"
	"github.com/cardiolab/ecg-engine/pkg/repositories"
	"github.com/cardiolab/ecg-engine/pkg/retry"
	"github.com/cardiolab/ecg-engine/pkg/services"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Optional .env for local development; absence is not an error
	_ = godotenv.Load()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Host),
		zap.String("redis", cfg.Redis.Host),
		zap.Int("analysis_workers", cfg.Analysis.Workers))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database pool, with startup retry: in container orchestration the
	// database often comes up a few seconds after the service.
	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Job status store: Redis when configured, in-memory otherwise
	var store dispatch.JobStore
	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient != nil {
		store = dispatch.NewRedisStore(redisClient)
		logger.Info("Using Redis job store", zap.String("host", cfg.Redis.Host))
	} else {
		store = dispatch.NewMemoryStore()
		logger.Info("Using in-memory job store")
	}

	queue := dispatch.New(store, cfg.Analysis.Workers, logger,
		dispatch.WithRetryConfig(dispatch.RetryConfig{
			MaxRetries: cfg.Analysis.MaxRetries,
			Delay:      cfg.Analysis.RetryDelay,
		}))

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	ecgRepo := repositories.NewECGRepository(db)

	// Services
	issuer := auth.NewIssuer(cfg.Tokens.AccessKey, cfg.Tokens.RefreshKey,
		cfg.Tokens.AccessTTL, cfg.Tokens.RefreshTTL)
	authService := auth.NewService(issuer, userRepo, logger.Named("auth"))
	authMiddleware := auth.NewMiddleware(authService, logger.Named("auth"))
	userService := services.NewUserService(userRepo, logger.Named("users"))
	ecgService := services.NewECGService(ecgRepo, queue, logger.Named("ecg"))

	// HTTP routes
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(userService, issuer, logger.Named("handlers")).RegisterRoutes(mux, authMiddleware)
	handlers.NewECGHandler(ecgService, logger.Named("handlers")).RegisterRoutes(mux, authMiddleware)

	var handler http.Handler = mux
	if cfg.Env == "local" {
		handler = middleware.RequestLogger(logger)(handler)
	}

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting ecg-engine",
			zap.String("addr", addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	// Drain the worker pool after the server stops accepting requests
	queue.Close()

	logger.Info("Shutdown complete")
}

// runMigrations applies pending migrations through database/sql, which
// golang-migrate requires.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("Failed to close migration connection", zap.Error(err))
		}
	}()

	return database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger)
}
