package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/sirupsen/logrus"

	"go-docflow/internal/config"
	"go-docflow/internal/observability"
)

// Document is the search engine's view of a processed PDF.
type Document struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	Content   string    `json:"content"`
	IndexedAt time.Time `json:"indexedAt"`
}

// Indexer pushes extracted text into Meilisearch. Writes are
// create-or-replace keyed by document id, and each write waits for the
// indexing task so a search issued immediately afterwards sees the document.
type Indexer struct {
	client meilisearch.ServiceManager
	index  string
	logger *logrus.Logger
}

func NewIndexer(cfg config.SearchConfig) (*Indexer, error) {
	client := meilisearch.New(cfg.Host, meilisearch.WithAPIKey(cfg.APIKey))

	// Idempotent: creating an existing index reports an error we can ignore.
	if _, err := client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        cfg.Index,
		PrimaryKey: "id",
	}); err != nil {
		observability.WithField("index", cfg.Index).WithError(err).Debug("Index creation skipped")
	}

	if _, err := client.Index(cfg.Index).UpdateSearchableAttributes(&[]string{
		"content",
		"fileName",
	}); err != nil {
		return nil, fmt.Errorf("failed to configure search index %s: %w", cfg.Index, err)
	}

	return &Indexer{
		client: client,
		index:  cfg.Index,
		logger: observability.GetLogger(),
	}, nil
}

// Index stores (or fully replaces) the document's extracted text.
func (i *Indexer) Index(ctx context.Context, id uuid.UUID, content, fileName string) error {
	doc := Document{
		ID:        id.String(),
		FileName:  fileName,
		Content:   content,
		IndexedAt: time.Now().UTC(),
	}

	pk := "id"
	task, err := i.client.Index(i.index).AddDocuments([]Document{doc}, &meilisearch.DocumentOptions{PrimaryKey: &pk})
	if err != nil {
		return fmt.Errorf("failed to index document %s: %w", id, err)
	}

	if err := i.waitForTask(ctx, task.TaskUID); err != nil {
		return fmt.Errorf("indexing of document %s did not complete: %w", id, err)
	}

	i.logger.WithField("document_id", id).Info("Indexed document")
	return nil
}

// Search returns the ids of documents matching the query over content and
// file name.
func (i *Indexer) Search(ctx context.Context, query string) ([]uuid.UUID, error) {
	if query == "" {
		return nil, nil
	}

	resp, err := i.client.Index(i.index).SearchWithContext(ctx, query, &meilisearch.SearchRequest{
		Limit: 100,
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			continue
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	i.logger.WithFields(logrus.Fields{
		"query": query,
		"count": len(ids),
	}).Info("Search completed")
	return ids, nil
}

// Delete removes a document from the index. Used by the external
// document-deletion path.
func (i *Indexer) Delete(ctx context.Context, id uuid.UUID) error {
	task, err := i.client.Index(i.index).DeleteDocument(id.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to delete document %s from index: %w", id, err)
	}
	if err := i.waitForTask(ctx, task.TaskUID); err != nil {
		return fmt.Errorf("deletion of document %s did not complete: %w", id, err)
	}
	return nil
}

func (i *Indexer) waitForTask(ctx context.Context, taskUID int64) error {
	task, err := i.client.WaitForTaskWithContext(ctx, taskUID, 50*time.Millisecond)
	if err != nil {
		return err
	}
	if task.Status != meilisearch.TaskStatusSucceeded {
		return fmt.Errorf("task %d finished with status %s: %s", taskUID, task.Status, task.Error.Message)
	}
	return nil
}
