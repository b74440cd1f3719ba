// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Vidora HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the user store (MongoDB, PostgreSQL + migrations, or memory).
//  4. Connect to Redis when REDIS_URL is set (refresh lock).
//  5. Build the token issuer and object storage.
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/vidora/internal/api"
	"github.com/taibuivan/vidora/internal/platform/config"
	"github.com/taibuivan/vidora/internal/platform/constants"
	"github.com/taibuivan/vidora/internal/platform/metrics"
	"github.com/taibuivan/vidora/internal/platform/migration"
	mongostore "github.com/taibuivan/vidora/internal/platform/mongo"
	"github.com/taibuivan/vidora/internal/platform/objstore"
	pgstore "github.com/taibuivan/vidora/internal/platform/postgres"
	redisstore "github.com/taibuivan/vidora/internal/platform/redis"
	"github.com/taibuivan/vidora/internal/platform/sec"
	"github.com/taibuivan/vidora/internal/users/account"
	"github.com/taibuivan/vidora/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	log := newLogger(slog.LevelInfo)
	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store_driver", cfg.StoreDriver),
		slog.String("object_store_driver", cfg.ObjectStoreDriver),
	)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. User Store ─────────────────────────────────────────────────────
	repository, storeCheck, closeStore, err := openUserStore(startupCtx, cfg, log)
	must(log, err, "open user store")
	defer closeStore()

	// ── 4. Redis (optional) ───────────────────────────────────────────────
	var locker auth.RefreshLocker
	var cacheCheck *api.HealthCheck
	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_error", slog.Any("error", cerr))
			}
		}()

		locker = auth.NewRedisRefreshLocker(rdb, auth.RefreshLockTTL)
		cacheCheck = &api.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
		}
	} else {
		log.Warn("refresh_lock_disabled", slog.String("reason", "REDIS_URL not set"))
	}

	// ── 5. Tokens, Metrics & Object Storage ──────────────────────────────
	issuer, err := sec.NewTokenIssuer(sec.IssuerConfig{
		Issuer:        constants.AuthIssuer,
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	must(log, err, "initialize token issuer")

	appMetrics := metrics.New(constants.MetricsNamespace)

	storage, err := openObjectStorage(startupCtx, cfg, log)
	must(log, err, "initialize object storage")
	instrumentedStorage := objstore.NewInstrumented(storage, appMetrics)

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	credentials := auth.NewCredentialStore(repository, cfg.BcryptCost)

	authService := auth.NewService(credentials, issuer, auth.ServiceConfig{
		Policy: auth.SessionPolicy{
			RevokeOnPasswordChange: cfg.RevokeSessionsOnPasswordChange,
			RevokeOnReuse:          cfg.RevokeSessionOnReuse,
		},
		Locker:  locker,
		Metrics: appMetrics,
	})
	accountService := account.NewService(credentials, instrumentedStorage)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		Store: storeCheck,
		Cache: cacheCheck,
	}, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService),
		Account: account.NewHandler(accountService, account.UploadConfig{
			TempDir:  cfg.UploadTempDir,
			MaxBytes: cfg.MaxUploadBytes,
		}),
	}

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(cfg, log, issuer, appMetrics, handlers)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	log.Info("shutting_down_server", slog.Duration("timeout", constants.ShutdownTimeout))

	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

// newLogger builds the JSON logger, tags it with the app name and installs it
// as the default.
func newLogger(level slog.Level) *slog.Logger {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName))
	slog.SetDefault(log)
	return log
}

// openUserStore opens the repository selected by STORE_DRIVER and returns its
// readiness probe and a close function.
func openUserStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (auth.UserRepository, *api.HealthCheck, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		database, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			log.Info("closing_mongo_client")
			if err := mongostore.Disconnect(database.Client()); err != nil {
				log.Error("mongo_close_error", slog.Any("error", err))
			}
		}

		repository, err := auth.NewMongoUserRepository(ctx, database)
		if err != nil {
			closeFn()
			return nil, nil, nil, err
		}
		return repository, &api.HealthCheck{Name: "mongo", Check: repository.Ping}, closeFn, nil

	case config.StorePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			log.Info("closing_postgres_pool")
			pool.Close()
		}

		if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
			closeFn()
			return nil, nil, nil, err
		}

		repository := auth.NewPostgresUserRepository(pool)
		return repository, &api.HealthCheck{Name: "postgres", Check: repository.Ping}, closeFn, nil

	case config.StoreMemory:
		log.Warn("memory_store_enabled", slog.String("reason", "data is lost on restart"))
		repository := auth.NewMemoryUserRepository()
		return repository, &api.HealthCheck{Name: "memory", Check: repository.Ping}, func() {}, nil
	}

	return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// openObjectStorage builds the driver selected by OBJECT_STORE_DRIVER.
func openObjectStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (objstore.Storage, error) {
	storeConfig := objstore.Config{
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
		PublicURL: cfg.MediaPublicURL,
		Timeout:   cfg.UploadTimeout,
	}

	switch cfg.ObjectStoreDriver {
	case config.ObjectStoreMinIO:
		storage, err := objstore.NewMinIOStorage(storeConfig)
		if err != nil {
			return nil, err
		}
		if err := storage.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		log.Info("object_storage_ready", slog.String("driver", "minio"), slog.String("bucket", cfg.S3Bucket))
		return storage, nil

	case config.ObjectStoreS3:
		storage, err := objstore.NewS3Storage(ctx, storeConfig)
		if err != nil {
			return nil, err
		}
		log.Info("object_storage_ready", slog.String("driver", "s3"), slog.String("bucket", cfg.S3Bucket))
		return storage, nil
	}

	return nil, fmt.Errorf("unknown object store driver %q", cfg.ObjectStoreDriver)
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
