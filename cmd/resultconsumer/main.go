package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"go-docflow/internal/config"
	"go-docflow/internal/observability"
	"go-docflow/internal/rabbit"
	"go-docflow/internal/repository"
	"go-docflow/internal/service"
)

func main() {
	cfg := config.Load()
	observability.InitLogger(cfg.Logging.Level)

	if err := cfg.Broker.Validate(); err != nil {
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.NewDocuments(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	client := rabbit.NewClient(cfg.Broker)
	defer client.Close()

	processor := service.NewResultProcessor(store)

	consumer := rabbit.NewConsumer(rabbit.ConsumerConfig{
		Client:   client,
		Topology: rabbit.Result,
		Logger:   zapLogger,
		Prefetch: cfg.Consumer.Prefetch,
		Tag:      "result-consumer",
	})

	if err := consumer.Start(ctx, processor.Process); err != nil {
		log.Fatal(err)
	}
}
