package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vidobj/vidobj/internal/config"
	"github.com/vidobj/vidobj/internal/database"
	"github.com/vidobj/vidobj/internal/detect"
	"github.com/vidobj/vidobj/internal/logging"
	"github.com/vidobj/vidobj/internal/pipeline"
	"github.com/vidobj/vidobj/internal/queue"
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

	videos := database.NewVideoRepository(db)
	aggregates := database.NewAggregateRepository(db)
	detector := detect.NewClient(cfg.DetectorURL, cfg.DetectorTimeout)

	orchestrator := pipeline.NewOrchestrator(videos, aggregates, detector, nil, cfg.FetchTimeout, logger)

	consumer := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, orchestrator, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Worker starting",
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.String("kafka_topic", cfg.KafkaTopic),
		zap.String("detector_url", cfg.DetectorURL),
	)

	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("Worker stopped", zap.Error(err))
	}
	logger.Info("Worker shut down")
}
