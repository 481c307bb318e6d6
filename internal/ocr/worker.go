package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-docflow/internal/observability"
	"go-docflow/internal/rabbit"
	"go-docflow/pkg/models"
)

// PageBreakMarker separates recognized page texts in the concatenated
// document content.
const PageBreakMarker = "\n--- PAGE BREAK ---\n"

// ConfidenceWarnThreshold is the mean word confidence below which a page is
// flagged as low quality. Low confidence is a quality signal, never an error.
const ConfidenceWarnThreshold = 0.70

// Downloader fetches stored PDF bytes by object key.
type Downloader interface {
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)
}

// SearchIndexer receives extracted text as a best-effort side effect.
type SearchIndexer interface {
	Index(ctx context.Context, id uuid.UUID, content, fileName string) error
}

// ResultPublisher forwards the completed envelope to the result pipeline.
type ResultPublisher interface {
	Publish(ctx context.Context, msg models.DocumentMessage) error
}

// PageResult is one page's recognition output.
type PageResult struct {
	Text       string
	Confidence float64
}

// RasterizeFunc converts a PDF into one raster image per page, returning the
// produced page files in ascending page order. Files already written must be
// returned even on failure so cleanup can remove them.
type RasterizeFunc func(ctx context.Context, pdfPath, outputPrefix string) ([]string, error)

// RecognizeFunc runs OCR over a single raster page.
type RecognizeFunc func(ctx context.Context, imagePath string) (PageResult, error)

// CleanupFunc removes the temporary files produced while processing one
// message. It must never fail the message; implementations log and move on.
type CleanupFunc func(paths []string)

// Worker drives the per-message OCR pipeline:
// download -> rasterize -> recognize -> index -> publish. Every stage is an
// injected dependency so each is independently substitutable in tests.
type Worker struct {
	storage   Downloader
	rasterize RasterizeFunc
	recognize RecognizeFunc
	indexer   SearchIndexer
	publisher ResultPublisher
	cleanup   CleanupFunc
	tempDir   string
	logger    *zap.Logger
	metrics   observability.MetricsCollector
}

type WorkerConfig struct {
	Storage   Downloader
	Rasterize RasterizeFunc
	Recognize RecognizeFunc
	Indexer   SearchIndexer
	Publisher ResultPublisher
	Cleanup   CleanupFunc
	TempDir   string
	Logger    *zap.Logger
	Metrics   observability.MetricsCollector
}

func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewInMemoryMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	w := &Worker{
		storage:   cfg.Storage,
		rasterize: cfg.Rasterize,
		recognize: cfg.Recognize,
		indexer:   cfg.Indexer,
		publisher: cfg.Publisher,
		cleanup:   cfg.Cleanup,
		tempDir:   cfg.TempDir,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
	if w.cleanup == nil {
		w.cleanup = w.removeFiles
	}
	return w
}

// Handle processes one ingest message end to end. A nil return means the
// result message was published and the delivery can be acknowledged; any
// ProcessingError dead-letters the delivery. Temporary files are removed
// regardless of which stage failed.
func (w *Worker) Handle(ctx context.Context, msg models.DocumentMessage) *rabbit.ProcessingError {
	logger := w.logger.With(
		zap.String("document_id", msg.DocumentID.String()),
		zap.String("file_name", msg.FileName),
	)
	logger.Info("Processing document")

	var tempFiles []string
	defer func() {
		w.cleanup(tempFiles)
	}()

	// Download. File names are namespaced by document id so concurrent
	// messages in one process cannot collide. The path is tracked before the
	// copy so a stream that breaks mid-write still gets its partial file
	// removed.
	pdfPath := filepath.Join(w.tempDir, msg.DocumentID.String()+".pdf")
	tempFiles = append(tempFiles, pdfPath)
	if err := w.downloadToFile(ctx, msg.StoragePath, pdfPath); err != nil {
		return rabbit.NewProcessingError(rabbit.FailureDownload, err)
	}

	// Rasterize. Page files are tracked before the error check so partial
	// output is still cleaned up.
	outputPrefix := filepath.Join(w.tempDir, msg.DocumentID.String()+"-page")
	pages, err := w.rasterize(ctx, pdfPath, outputPrefix)
	tempFiles = append(tempFiles, pages...)
	if err != nil {
		return rabbit.NewProcessingError(rabbit.FailureRasterize, err)
	}

	// Recognize in page order.
	texts := make([]string, 0, len(pages))
	for pageIndex, page := range pages {
		result, err := w.recognize(ctx, page)
		if err != nil {
			return rabbit.NewProcessingError(rabbit.FailureRecognize,
				fmt.Errorf("page %d: %w", pageIndex, err))
		}
		if result.Confidence < ConfidenceWarnThreshold {
			logger.Warn("Low OCR confidence",
				zap.Int("page", pageIndex),
				zap.Float64("confidence", result.Confidence),
			)
		}
		texts = append(texts, result.Text)
	}
	w.metrics.AddPagesRecognized(len(pages))
	content := strings.Join(texts, PageBreakMarker)

	// Index. Losing a search entry must never block the extracted text from
	// reaching the document record.
	if err := w.indexer.Index(ctx, msg.DocumentID, content, msg.FileName); err != nil {
		w.metrics.IncIndexFailed()
		logger.Warn("Search indexing failed, continuing", zap.Error(err))
	} else {
		w.metrics.IncIndexed()
	}

	// Publish the result. The document record has not been updated yet, so a
	// failure here is fatal for the message.
	if err := w.publisher.Publish(ctx, msg.WithContent(content)); err != nil {
		return rabbit.NewProcessingError(rabbit.FailurePublish, err)
	}

	logger.Info("Document processed", zap.Int("pages", len(pages)))
	return nil
}

func (w *Worker) downloadToFile(ctx context.Context, objectKey, localPath string) error {
	obj, err := w.storage.Download(ctx, objectKey)
	if err != nil {
		return err
	}
	defer obj.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, obj); err != nil {
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	return nil
}

// removeFiles is the default cleanup: deletion failures are logged, never
// re-raised.
func (w *Worker) removeFiles(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			w.logger.Warn("Failed to remove temp file",
				zap.String("path", p),
				zap.Error(err),
			)
		}
	}
}
