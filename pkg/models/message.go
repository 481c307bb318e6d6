package models

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the wire schema version stamped on new messages.
const SchemaVersion = 1

// MessageTypeDocumentUploaded is the value carried in the message-type
// transport header on both pipelines.
const MessageTypeDocumentUploaded = "DocumentUploadedMessage"

// Transport header names shared by publisher and consumers.
const (
	HeaderMessageType = "message-type"
	HeaderVersion     = "version"
	HeaderTenantID    = "tenant-id"
)

// DocumentMessage is the envelope carried on the ingest and result pipelines.
// A message value is never mutated after construction; derive updated copies
// with WithContent.
type DocumentMessage struct {
	DocumentID    uuid.UUID `json:"documentId"`
	FileName      string    `json:"fileName"`
	ContentType   string    `json:"contentType"`
	UploadedAtUTC time.Time `json:"uploadedAtUtc"`
	StoragePath   string    `json:"storagePath"`
	Content       string    `json:"content"`
	Summary       string    `json:"summary"`
	CorrelationID string    `json:"correlationId"`
	TenantID      string    `json:"tenantId,omitempty"`
	Version       int       `json:"version"`
}

// NewDocumentMessage builds an ingest envelope for a freshly uploaded
// document, stamping the upload timestamp, a correlation id and the current
// schema version.
func NewDocumentMessage(documentID uuid.UUID, fileName, contentType, storagePath, tenantID string) DocumentMessage {
	return DocumentMessage{
		DocumentID:    documentID,
		FileName:      fileName,
		ContentType:   contentType,
		UploadedAtUTC: time.Now().UTC(),
		StoragePath:   storagePath,
		CorrelationID: uuid.NewString(),
		TenantID:      tenantID,
		Version:       SchemaVersion,
	}
}

// WithContent returns a copy of the message with the extracted text set.
// The receiver is left untouched.
func (m DocumentMessage) WithContent(text string) DocumentMessage {
	m.Content = text
	return m
}
