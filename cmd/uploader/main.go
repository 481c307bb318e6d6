package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-docflow/internal/config"
	"go-docflow/internal/observability"
	"go-docflow/internal/rabbit"
	"go-docflow/internal/repository"
	"go-docflow/internal/storage"
	"go-docflow/pkg/models"
)

// uploader pushes a local PDF through the upload path: store the blob,
// insert the document row, publish the ingest message. It stands in for the
// HTTP upload API during development.
func main() {
	filePath := flag.String("file", "", "path to the PDF to upload")
	title := flag.String("title", "", "document title (defaults to the file name)")
	tenant := flag.String("tenant", "", "optional tenant tag")
	flag.Parse()

	if *filePath == "" {
		log.Fatal("usage: uploader -file document.pdf [-title t] [-tenant t]")
	}

	cfg := config.Load()
	observability.InitLogger(cfg.Logging.Level)

	if err := cfg.Storage.Validate(); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Broker.Validate(); err != nil {
		log.Fatal(err)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer zapLogger.Sync()

	ctx := context.Background()

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		log.Fatal(err)
	}

	store, err := storage.NewClient(cfg.Storage)
	if err != nil {
		log.Fatal(err)
	}

	fileName := filepath.Base(*filePath)
	info, err := store.Upload(ctx, f, stat.Size(), fileName, "application/pdf")
	if err != nil {
		log.Fatal(err)
	}

	docs, err := repository.NewDocuments(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal(err)
	}
	defer docs.Close()

	documentID := uuid.New()
	msg := models.NewDocumentMessage(documentID, info.FileName, info.ContentType, info.Key, *tenant)

	docTitle := *title
	if docTitle == "" {
		docTitle = info.FileName
	}
	if err := docs.Insert(ctx, repository.Document{
		ID:         documentID,
		Title:      docTitle,
		FileName:   info.FileName,
		MimeType:   info.ContentType,
		Size:       info.Size,
		UploadedAt: msg.UploadedAtUTC,
		StorageKey: info.Key,
	}); err != nil {
		log.Fatal(err)
	}

	broker := rabbit.NewClient(cfg.Broker)
	defer broker.Close()

	publisher := rabbit.NewPublisher(rabbit.PublisherConfig{
		Client:   broker,
		Topology: rabbit.Ingest,
		Logger:   zapLogger,
	})

	if err := publisher.Publish(ctx, msg); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Uploaded %s as document %s (key %s)\n", fileName, documentID, info.Key)
}
