package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"go-docflow/internal/config"
	"go-docflow/internal/observability"
)

const (
	maxOperationAttempts = 3
	initialRetryBackoff  = 250 * time.Millisecond
)

var safeNamePattern = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// ObjectInfo describes a stored PDF after a successful upload.
type ObjectInfo struct {
	Key         string
	FileName    string
	ContentType string
	Size        int64
}

// Client stores and retrieves PDF blobs in a MinIO bucket. Every network
// operation runs inside a bounded retry loop, and the target bucket is
// created on first use if absent.
type Client struct {
	mc      *minio.Client
	bucket  string
	logger  *logrus.Logger
	backoff time.Duration
}

func NewClient(cfg config.StorageConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &Client{
		mc:      mc,
		bucket:  cfg.Bucket,
		logger:  observability.GetLogger(),
		backoff: initialRetryBackoff,
	}, nil
}

// Upload validates, sanitizes and stores a PDF, returning the generated
// object key. Non-PDF uploads are rejected before any network traffic.
func (c *Client) Upload(ctx context.Context, content io.Reader, size int64, fileName, contentType string) (ObjectInfo, error) {
	if !isPDF(contentType, fileName) {
		return ObjectInfo{}, fmt.Errorf("only PDF documents are supported, got %q (%s)", fileName, contentType)
	}

	safeName := sanitizeFileName(fileName)
	objectKey := buildObjectKey(safeName)

	if err := c.ensureBucket(ctx); err != nil {
		return ObjectInfo{}, err
	}

	err := c.putWithRetry(ctx, content, func() error {
		_, putErr := c.mc.PutObject(ctx, c.bucket, objectKey, content, size, minio.PutObjectOptions{
			ContentType: "application/pdf",
		})
		return putErr
	})
	if err != nil {
		return ObjectInfo{}, err
	}

	c.logger.WithFields(logrus.Fields{
		"object_key": objectKey,
		"bucket":     c.bucket,
	}).Info("Uploaded object")

	return ObjectInfo{
		Key:         objectKey,
		FileName:    safeName,
		ContentType: "application/pdf",
		Size:        size,
	}, nil
}

// Download returns a reader over the stored object. The caller closes it.
func (c *Client) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	if err := c.ensureBucket(ctx); err != nil {
		return nil, err
	}

	var obj io.ReadCloser
	err := c.withRetry(ctx, "download", func() error {
		o, getErr := c.mc.GetObject(ctx, c.bucket, objectKey, minio.GetObjectOptions{})
		if getErr != nil {
			return getErr
		}
		// GetObject is lazy; Stat forces the request so retry sees failures.
		if _, statErr := o.Stat(); statErr != nil {
			o.Close()
			return statErr
		}
		obj = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"object_key": objectKey,
		"bucket":     c.bucket,
	}).Info("Downloaded object")
	return obj, nil
}

// Delete removes an object. Used by the external document-deletion path;
// the pipeline itself never deletes blobs.
func (c *Client) Delete(ctx context.Context, objectKey string) error {
	if err := c.ensureBucket(ctx); err != nil {
		return err
	}
	return c.withRetry(ctx, "delete", func() error {
		return c.mc.RemoveObject(ctx, c.bucket, objectKey, minio.RemoveObjectOptions{})
	})
}

// ensureBucket lazily creates the bucket. Concurrent callers may race to
// create; the broker-side operation is idempotent and "already exists" is
// treated as success.
func (c *Client) ensureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", c.bucket, err)
	}
	if exists {
		return nil
	}

	c.logger.WithField("bucket", c.bucket).Info("Bucket missing. Creating.")
	if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "BucketAlreadyOwnedByYou" || resp.Code == "BucketAlreadyExists" {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", c.bucket, err)
	}
	return nil
}

// putWithRetry retries put with every attempt reading the stream from the
// start. A reader that cannot be rewound gets exactly one attempt; retrying
// it would re-send an already consumed stream and store a truncated object.
func (c *Client) putWithRetry(ctx context.Context, content io.Reader, put func() error) error {
	seeker, ok := content.(io.Seeker)
	if !ok {
		return put()
	}
	return c.withRetry(ctx, "upload", func() error {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("failed to rewind upload stream: %w", err)
		}
		return put()
	})
}

// withRetry runs op up to maxOperationAttempts times with exponential
// backoff starting at the client's base delay. The final attempt's error is
// propagated unretried.
func (c *Client) withRetry(ctx context.Context, operation string, op func() error) error {
	delay := c.backoff

	var lastErr error
	for attempt := 1; attempt <= maxOperationAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt == maxOperationAttempts {
			break
		}

		c.logger.WithFields(logrus.Fields{
			"operation": operation,
			"attempt":   attempt,
			"backoff":   delay,
		}).WithError(lastErr).Warn("Storage operation failed. Retrying.")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("storage %s failed after %d attempts: %w", operation, maxOperationAttempts, lastErr)
}

func isPDF(contentType, fileName string) bool {
	isMimePDF := strings.EqualFold(contentType, "application/pdf")
	isExtensionPDF := strings.EqualFold(path.Ext(fileName), ".pdf")
	return isMimePDF && isExtensionPDF
}

// sanitizeFileName strips path components, replaces unsafe characters and
// forces a .pdf suffix so stored names are safe to echo anywhere.
func sanitizeFileName(fileName string) string {
	name := strings.TrimSpace(fileName)
	if name == "" {
		name = "document.pdf"
	}
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = safeNamePattern.ReplaceAllString(name, "_")
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// buildObjectKey produces date-partitioned, collision-resistant keys of the
// form YYYY/MM/DD/<random-hex>-<name>.
func buildObjectKey(safeFileName string) string {
	datePrefix := time.Now().UTC().Format("2006/01/02")
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s/%s-%s", datePrefix, token, safeFileName)
}
