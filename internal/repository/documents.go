package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-docflow/internal/observability"
)

// ErrNotFound is returned when no document exists for the given id.
var ErrNotFound = errors.New("document not found")

// Document is the persisted metadata record the pipeline writes back into.
type Document struct {
	ID         uuid.UUID
	Title      string
	FileName   string
	MimeType   string
	Size       int64
	UploadedAt time.Time
	Content    string
	StorageKey string
	Summary    string
}

// DocumentStore is the repository surface the result consumer depends on.
type DocumentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	ReplaceContent(ctx context.Context, id uuid.UUID, content string) error
}

// Documents is the Postgres-backed store.
type Documents struct {
	pool *pgxpool.Pool
}

func NewDocuments(ctx context.Context, databaseURL string) (*Documents, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database not responding: %w", err)
	}

	d := &Documents{pool: pool}
	if err := d.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return d, nil
}

func (d *Documents) initSchema(ctx context.Context) error {
	query := `
        CREATE TABLE IF NOT EXISTS documents (
            id UUID PRIMARY KEY,
            title TEXT NOT NULL,
            file_name TEXT NOT NULL,
            mime_type TEXT NOT NULL,
            size BIGINT NOT NULL DEFAULT 0,
            uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            content TEXT NOT NULL DEFAULT '',
            storage_key TEXT NOT NULL,
            summary TEXT NOT NULL DEFAULT ''
        );

        CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents(uploaded_at);
        `
	_, err := d.pool.Exec(ctx, query)
	if err == nil {
		observability.GetLogger().Info("Database schema verified")
	}
	return err
}

func (d *Documents) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	query := `
        SELECT id, title, file_name, mime_type, size, uploaded_at, content, storage_key, summary
        FROM documents
        WHERE id = $1
    `
	var doc Document
	err := d.pool.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.Title,
		&doc.FileName,
		&doc.MimeType,
		&doc.Size,
		&doc.UploadedAt,
		&doc.Content,
		&doc.StorageKey,
		&doc.Summary,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	return &doc, nil
}

// ReplaceContent overwrites the document's extracted text. Replace
// semantics keep re-processing of redelivered messages idempotent.
func (d *Documents) ReplaceContent(ctx context.Context, id uuid.UUID, content string) error {
	tag, err := d.pool.Exec(ctx, `UPDATE documents SET content = $2 WHERE id = $1`, id, content)
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Insert stores a new document record at upload time.
func (d *Documents) Insert(ctx context.Context, doc Document) error {
	query := `
        INSERT INTO documents (id, title, file_name, mime_type, size, uploaded_at, content, storage_key, summary)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := d.pool.Exec(ctx, query,
		doc.ID,
		doc.Title,
		doc.FileName,
		doc.MimeType,
		doc.Size,
		doc.UploadedAt,
		doc.Content,
		doc.StorageKey,
		doc.Summary,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
	}
	return nil
}

func (d *Documents) Close() {
	d.pool.Close()
}
