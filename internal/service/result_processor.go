package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"go-docflow/internal/observability"
	"go-docflow/internal/rabbit"
	"go-docflow/internal/repository"
	"go-docflow/pkg/models"
)

// ResultProcessor writes extracted text from result messages back into the
// document store.
type ResultProcessor struct {
	store  repository.DocumentStore
	logger *logrus.Logger
}

func NewResultProcessor(store repository.DocumentStore) *ResultProcessor {
	return &ResultProcessor{
		store:  store,
		logger: observability.GetLogger(),
	}
}

// Process replaces the document's extracted-text field with the message
// content. A missing document or a store failure is terminal: retrying
// against a document that does not exist is not expected to succeed, so the
// message is dead-lettered for manual inspection.
func (p *ResultProcessor) Process(ctx context.Context, msg models.DocumentMessage) *rabbit.ProcessingError {
	logger := p.logger.WithFields(logrus.Fields{
		"document_id":    msg.DocumentID,
		"correlation_id": msg.CorrelationID,
	})

	doc, err := p.store.GetByID(ctx, msg.DocumentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Error("Document missing, dead-lettering result")
		} else {
			logger.WithError(err).Error("Failed to load document")
		}
		return rabbit.NewProcessingError(rabbit.FailureRepository, err)
	}

	if err := p.store.ReplaceContent(ctx, doc.ID, msg.Content); err != nil {
		logger.WithError(err).Error("Failed to store extracted text")
		return rabbit.NewProcessingError(rabbit.FailureRepository, err)
	}

	logger.Info("Stored extracted text")
	return nil
}
