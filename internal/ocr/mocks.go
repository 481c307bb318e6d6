package ocr

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"go-docflow/pkg/models"
)

// MockStorage is a mock Downloader for testing
type MockStorage struct {
	mu           sync.Mutex
	DownloadFunc func(ctx context.Context, objectKey string) (io.ReadCloser, error)
	Downloads    []string
	FailCount    int
	failures     int
}

func NewMockStorage() *MockStorage {
	return &MockStorage{}
}

func (m *MockStorage) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Downloads = append(m.Downloads, objectKey)

	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, objectKey)
	}

	if m.FailCount > 0 && m.failures < m.FailCount {
		m.failures++
		return nil, fmt.Errorf("simulated download failure %d", m.failures)
	}

	// PDF magic bytes
	return io.NopCloser(strings.NewReader("%PDF-1.4")), nil
}

// MockIndexer is a mock SearchIndexer for testing
type MockIndexer struct {
	mu        sync.Mutex
	IndexFunc func(ctx context.Context, id uuid.UUID, content, fileName string) error
	Calls     []IndexCall
}

type IndexCall struct {
	ID       uuid.UUID
	Content  string
	FileName string
}

func NewMockIndexer() *MockIndexer {
	return &MockIndexer{}
}

func (m *MockIndexer) Index(ctx context.Context, id uuid.UUID, content, fileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, IndexCall{ID: id, Content: content, FileName: fileName})

	if m.IndexFunc != nil {
		return m.IndexFunc(ctx, id, content, fileName)
	}
	return nil
}

// MockPublisher is a mock ResultPublisher for testing
type MockPublisher struct {
	mu          sync.Mutex
	PublishFunc func(ctx context.Context, msg models.DocumentMessage) error
	Published   []models.DocumentMessage
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, msg models.DocumentMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, msg)
	}

	m.Published = append(m.Published, msg)
	return nil
}

func (m *MockPublisher) GetPublished() []models.DocumentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.DocumentMessage(nil), m.Published...)
}

// stubRasterizer returns page files without touching ImageMagick.
func stubRasterizer(pages []string, err error) RasterizeFunc {
	return func(ctx context.Context, pdfPath, outputPrefix string) ([]string, error) {
		return pages, err
	}
}

// stubRecognizer serves canned per-page results keyed by image path.
func stubRecognizer(results map[string]PageResult) RecognizeFunc {
	return func(ctx context.Context, imagePath string) (PageResult, error) {
		res, ok := results[imagePath]
		if !ok {
			return PageResult{}, fmt.Errorf("no stub result for %s", imagePath)
		}
		return res, nil
	}
}

// recordingCleanup tracks that cleanup ran and with which paths.
type recordingCleanup struct {
	mu     sync.Mutex
	Called bool
	Paths  []string
}

func (r *recordingCleanup) Cleanup(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Called = true
	r.Paths = append(r.Paths, paths...)
}
