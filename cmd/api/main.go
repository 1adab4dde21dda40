package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbxbilling/insights/internal/config"
	"github.com/mbxbilling/insights/internal/contact"
	"github.com/mbxbilling/insights/internal/db"
	"github.com/mbxbilling/insights/internal/events"
	"github.com/mbxbilling/insights/internal/handlers"
	"github.com/mbxbilling/insights/internal/middleware"
	"github.com/mbxbilling/insights/internal/posts"
	"github.com/mbxbilling/insights/internal/storage"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo  posts.Repository
		sqlDB *sql.DB
	)
	if cfg.DatabaseURL != "" {
		var err error
		sqlDB, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer sqlDB.Close()
		if err := db.Migrate(ctx, sqlDB); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		repo = posts.NewPostgresRepository(sqlDB)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		mem := posts.NewMemoryRepository()
		mem.SeedTaxonomy()
		repo = mem
	}

	var st storage.Storage
	if cfg.S3Bucket != "" {
		client, err := storage.NewS3Client(ctx, cfg.AWSRegion, cfg.S3Endpoint)
		if err != nil {
			logger.Error("failed to create s3 client", "error", err)
			os.Exit(1)
		}
		st = storage.NewS3Storage(client, cfg.S3Bucket)
	} else {
		logger.Warn("S3_BUCKET not set, cover uploads disabled")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		rmq, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events disabled", "error", err)
		} else {
			defer rmq.Close()
			publisher = rmq
		}
	} else {
		logger.Warn("RABBITMQ_URL not set, events disabled")
	}

	postsSvc := posts.NewService(repo, st, publisher, posts.ServiceConfig{
		DefaultPageSize: cfg.DefaultPageSize,
		DraftPolicy:     posts.DraftPublishedAtPolicy(cfg.DraftPolicy),
		S3Bucket:        cfg.S3Bucket,
		AWSRegion:       cfg.AWSRegion,
		PublicMediaURL:  cfg.S3PublicBaseURL,
	}, logger)
	contactSvc := contact.NewService(contact.QueueDeliverer{Publisher: publisher}, cfg.ContactMinDwell, logger)

	router := handlers.NewRouter(handlers.RouterDeps{
		Posts:         postsSvc,
		Contact:       contactSvc,
		Health:        &handlers.HealthDeps{DB: sqlDB, Storage: st, RabbitMQURL: cfg.RabbitMQURL},
		ContactLimits: middleware.NewRateLimiter(cfg.ContactRateLimit, cfg.ContactRateBurst),
		Logger:        logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
