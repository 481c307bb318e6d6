package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"go-docflow/internal/config"
)

// NewTesseractRecognizer returns a RecognizeFunc backed by gosseract. A
// fresh client is created per page; the engine call is CPU-bound and
// synchronous, so cancellation is only checked between pages by the worker.
func NewTesseractRecognizer(cfg config.OCRConfig) RecognizeFunc {
	return func(ctx context.Context, imagePath string) (PageResult, error) {
		client := gosseract.NewClient()
		defer client.Close()

		if cfg.DataPath != "" {
			if err := client.SetTessdataPrefix(cfg.DataPath); err != nil {
				return PageResult{}, fmt.Errorf("failed to set tessdata path: %w", err)
			}
		}
		if cfg.Language != "" {
			if err := client.SetLanguage(cfg.Language); err != nil {
				return PageResult{}, fmt.Errorf("failed to set language %s: %w", cfg.Language, err)
			}
		}
		if err := client.SetImage(imagePath); err != nil {
			return PageResult{}, fmt.Errorf("failed to load image %s: %w", imagePath, err)
		}

		text, err := client.Text()
		if err != nil {
			return PageResult{}, fmt.Errorf("recognition failed for %s: %w", imagePath, err)
		}

		return PageResult{
			Text:       strings.TrimSpace(text),
			Confidence: meanConfidence(client),
		}, nil
	}
}

// meanConfidence averages per-word certainty, normalized to 0..1. Zero when
// the engine returns no word boxes (blank page or engine hiccup); the caller
// only uses it as a quality signal.
func meanConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}
