package ocr

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go-docflow/internal/config"
)

// NewImageMagickRasterizer returns a RasterizeFunc that shells out to
// ImageMagick once per PDF, producing one page-indexed raster file per page
// at the configured density. 300 DPI is the recognition-quality threshold;
// lower densities measurably degrade text accuracy.
func NewImageMagickRasterizer(cfg config.ConverterConfig) RasterizeFunc {
	return func(ctx context.Context, pdfPath, outputPrefix string) ([]string, error) {
		// The %d placeholder forces page-indexed output files even for
		// single-page PDFs (prefix-0.tiff, prefix-1.tiff, ...).
		target := fmt.Sprintf("%s-%%d.%s", outputPrefix, cfg.Format)

		cmd := exec.CommandContext(ctx, cfg.Binary,
			"-density", strconv.Itoa(cfg.DPI),
			pdfPath,
			"-compress", "lzw",
			target,
		)
		if output, err := cmd.CombinedOutput(); err != nil {
			pages, _ := discoverPages(outputPrefix, cfg.Format)
			return pages, fmt.Errorf("converter %s failed: %w: %s", cfg.Binary, err, strings.TrimSpace(string(output)))
		}

		pages, err := discoverPages(outputPrefix, cfg.Format)
		if err != nil {
			return nil, err
		}
		if len(pages) == 0 {
			return nil, fmt.Errorf("converter produced no page files for %s", pdfPath)
		}
		return pages, nil
	}
}

// discoverPages lists the converter's output files for a prefix and returns
// them sorted by page index. The page count is never assumed; whatever the
// converter wrote is what gets recognized.
func discoverPages(outputPrefix, format string) ([]string, error) {
	matches, err := filepath.Glob(fmt.Sprintf("%s-*.%s", outputPrefix, format))
	if err != nil {
		return nil, fmt.Errorf("failed to list page files: %w", err)
	}

	type page struct {
		path  string
		index int
	}
	pages := make([]page, 0, len(matches))
	suffix := "." + format
	for _, m := range matches {
		idxPart := strings.TrimSuffix(strings.TrimPrefix(m, outputPrefix+"-"), suffix)
		idx, err := strconv.Atoi(idxPart)
		if err != nil {
			continue
		}
		pages = append(pages, page{path: m, index: idx})
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].index < pages[j].index })

	paths := make([]string, 0, len(pages))
	for _, p := range pages {
		paths = append(paths, p.path)
	}
	return paths, nil
}
