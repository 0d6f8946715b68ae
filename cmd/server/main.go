package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vidobj/vidobj/internal/api"
	"github.com/vidobj/vidobj/internal/blob"
	"github.com/vidobj/vidobj/internal/config"
	"github.com/vidobj/vidobj/internal/database"
	"github.com/vidobj/vidobj/internal/ingest"
	"github.com/vidobj/vidobj/internal/logging"
	"github.com/vidobj/vidobj/internal/queue"
	"github.com/vidobj/vidobj/internal/search"
	"github.com/vidobj/vidobj/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	db, err := database.NewDB(database.Config{
		Type:       cfg.DBType,
		Host:       cfg.DBHost,
		Port:       cfg.DBPort,
		User:       cfg.DBUser,
		Password:   cfg.DBPassword,
		Name:       cfg.DBName,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if cfg.DBType == "postgres" {
		if err := db.RunMigrations(cfg.MigrationsPath, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	blobs, err := blob.NewLocalStore(cfg.BlobDir, cfg.BlobBaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize blob store", zap.Error(err))
	}

	producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	defer producer.Close()

	videos := database.NewVideoRepository(db)
	aggregates := database.NewAggregateRepository(db)

	sessions := session.NewStore(cfg.SessionTTL)
	go sessions.Sweep(context.Background(), time.Minute)

	app := &api.App{
		Ingest:        ingest.NewService(videos, blobs, producer, cfg.FetchTimeout, cfg.MaxUploadSize, logger),
		Videos:        videos,
		Aggregates:    aggregates,
		Search:        search.NewService(videos, aggregates),
		Sessions:      sessions,
		Blobs:         blobs,
		MaxUploadSize: cfg.MaxUploadSize,
		Log:           logger,
	}

	router := api.NewRouter(app)

	logger.Info("Server starting",
		zap.String("port", cfg.Port),
		zap.String("db_type", cfg.DBType),
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.Int64("max_upload_size", cfg.MaxUploadSize),
	)

	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}
