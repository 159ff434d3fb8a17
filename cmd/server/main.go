// Package main is the entry point for the vitalog API server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vitalog/vitalog-api/internal/api"
	"github.com/vitalog/vitalog-api/internal/api/handler"
	"github.com/vitalog/vitalog-api/internal/api/middleware"
	"github.com/vitalog/vitalog-api/internal/core/ports"
	"github.com/vitalog/vitalog-api/internal/core/service"
	"github.com/vitalog/vitalog-api/internal/infrastructure/config"
	mongodb "github.com/vitalog/vitalog-api/internal/infrastructure/db/mongo"
	"github.com/vitalog/vitalog-api/internal/infrastructure/db/postgres"
	redisdb "github.com/vitalog/vitalog-api/internal/infrastructure/db/redis"
	"github.com/vitalog/vitalog-api/internal/infrastructure/security"
	"github.com/vitalog/vitalog-api/internal/infrastructure/storage"
	"github.com/vitalog/vitalog-api/pkg/logger"
)

const (
	heapLimit     = 150 << 20
	diskThreshold = 0.9
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vitalog: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "vitalog-api",
	})

	tokens, err := security.NewTokenIssuer(security.TokenConfig{
		Secret:             cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.AccessExpiry,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiry,
	})
	if err != nil {
		return err
	}

	var (
		users      ports.UserRepository
		files      ports.FileRepository
		readiness  []handler.HealthCheck
		closeStore func()
	)
	switch cfg.Database.Driver {
	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		closeStore = func() { _ = mongodb.Disconnect(client, cfg.ShutdownTimeout) }

		userRepo := mongodb.NewUserRepository(db)
		fileRepo := mongodb.NewFileRepository(db)
		if err := userRepo.EnsureIndexes(ctx); err != nil {
			return err
		}
		if err := fileRepo.EnsureIndexes(ctx); err != nil {
			return err
		}
		users, files = userRepo, fileRepo
		readiness = append(readiness, handler.HealthCheck{
			Name:  "database",
			Check: func(ctx context.Context) error { return mongodb.Ping(ctx, client) },
		})
	default:
		db, err := postgres.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns)
		if err != nil {
			return err
		}
		closeStore = func() { _ = db.Close() }

		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(ctx, db, log); err != nil {
				return err
			}
		}
		users, files = postgres.NewUserRepository(db), postgres.NewFileRepository(db)
		readiness = append(readiness, sqlCheck(db))
	}
	defer closeStore()
	log.Info().Str("driver", cfg.Database.Driver).Msg("database connected")

	var limiter echomiddleware.RateLimiterStore
	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		limiter = redisdb.NewRateLimitStore(rdb, cfg.Throttle.Limit, cfg.Throttle.Window(), log)
		readiness = append(readiness, redisCheck(rdb))
	} else {
		log.Warn().Msg("REDIS_ADDR not set; using in-memory rate limiter")
		limiter = middleware.NewMemoryStore(cfg.Throttle.Limit, cfg.Throttle.Window())
	}

	s3Client, err := storage.NewS3Client(ctx, storage.Config{
		AccountID:       cfg.R2.AccountID,
		AccessKeyID:     cfg.R2.AccessKeyID,
		SecretAccessKey: cfg.R2.SecretAccessKey,
		Bucket:          cfg.R2.Bucket,
		PublicURL:       cfg.R2.PublicURL,
		Endpoint:        cfg.R2.Endpoint,
		Region:          cfg.R2.Region,
		MaxAttempts:     cfg.R2.MaxAttempts,
	})
	if err != nil {
		return err
	}
	objects := storage.NewR2Client(s3Client, cfg.R2.Bucket, cfg.R2.PublicURL, log)

	authService := service.NewAuthService(users, security.NewBcryptHasher(security.DefaultBcryptCost), tokens, log)
	uploadService := service.NewUploadService(objects, files, service.UploadConfig{
		MaxFileSize:      cfg.Upload.MaxFileSize,
		AllowedMimeTypes: cfg.Upload.AllowedMimeTypes,
		Concurrency:      cfg.Upload.Concurrency,
	}, log)

	health := handler.NewHealthHandler(log, readiness, []handler.HealthCheck{
		{Name: "storage", Check: objects.Ping},
		handler.HeapCheck(heapLimit),
		handler.DiskCheck("/", diskThreshold),
	})

	e := api.NewRouter(api.Dependencies{
		Prefix:      cfg.RoutePrefix(),
		CORSOrigins: cfg.CORSOrigins,
		// multipart overhead on top of the largest allowed batch
		BodyLimit:      cfg.Upload.MaxFileSize*int64(cfg.Upload.MaxFiles) + 1<<20,
		AuthService:    authService,
		UploadService:  uploadService,
		Tokens:         tokens,
		Health:         health,
		UploadLimits:   handler.UploadLimits{MaxFileSize: cfg.Upload.MaxFileSize, MaxFiles: cfg.Upload.MaxFiles},
		RateLimitStore: limiter,
		Logger:         log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("prefix", cfg.RoutePrefix()).Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func sqlCheck(db *sql.DB) handler.HealthCheck {
	return handler.HealthCheck{Name: "database", Check: db.PingContext}
}

func redisCheck(rdb *goredis.Client) handler.HealthCheck {
	return handler.HealthCheck{
		Name:  "redis",
		Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
}
