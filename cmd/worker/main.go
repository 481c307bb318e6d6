package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"go-docflow/internal/config"
	"go-docflow/internal/observability"
	"go-docflow/internal/ocr"
	"go-docflow/internal/rabbit"
	"go-docflow/internal/search"
	"go-docflow/internal/storage"
)

func main() {
	cfg := config.Load()
	observability.InitLogger(cfg.Logging.Level)

	if err := cfg.Broker.Validate(); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Storage.Validate(); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Search.Validate(); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Converter.Validate(); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Consumer.Validate(); err != nil {
		log.Fatal(err)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer zapLogger.Sync()

	store, err := storage.NewClient(cfg.Storage)
	if err != nil {
		log.Fatal(err)
	}

	indexer, err := search.NewIndexer(cfg.Search)
	if err != nil {
		log.Fatal(err)
	}

	client := rabbit.NewClient(cfg.Broker)
	defer client.Close()

	metrics := observability.NewInMemoryMetrics()

	// Result publishing runs on its own channel, separate from the ingest
	// consumer's.
	publisherClient := rabbit.NewClient(cfg.Broker)
	defer publisherClient.Close()

	resultPublisher := rabbit.NewPublisher(rabbit.PublisherConfig{
		Client:   publisherClient,
		Topology: rabbit.Result,
		Logger:   zapLogger,
		Metrics:  metrics,
	})

	worker := ocr.NewWorker(ocr.WorkerConfig{
		Storage:   store,
		Rasterize: ocr.NewImageMagickRasterizer(cfg.Converter),
		Recognize: ocr.NewTesseractRecognizer(cfg.OCR),
		Indexer:   indexer,
		Publisher: resultPublisher,
		TempDir:   cfg.Converter.TempDir,
		Logger:    zapLogger,
		Metrics:   metrics,
	})

	consumer := rabbit.NewConsumer(rabbit.ConsumerConfig{
		Client:   client,
		Topology: rabbit.Ingest,
		Logger:   zapLogger,
		Metrics:  metrics,
		Prefetch: cfg.Consumer.Prefetch,
		Tag:      "ocr-worker",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx, worker.Handle); err != nil {
		log.Fatal(err)
	}
}
