// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package device

import (
	"fmt"
	"image"
	_ "image/gif"  // decode manual imports
	_ "image/jpeg" // decode imagecapture output
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/tiff" // decode manual TIFF imports

	"github.com/SummittDweller/D35-Scan-to-PDF/internal/rasterize"
	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

// Normalize converts a raw capture at srcPath into the session's canonical
// page form: a PNG named page_NNN.png in destDir. PDFs are rasterized to
// their first page; everything else is decoded and re-encoded. The raw file
// is removed on success. An unreadable capture wraps ErrDevice and leaves
// no page file behind.
func Normalize(srcPath, destDir string, seq int, req types.ScanRequest, capturedAt time.Time) (types.Page, error) {
	img, err := decodeCapture(srcPath, req.Resolution)
	if err != nil {
		return types.Page{}, fmt.Errorf("%w: %v", ErrDevice, err)
	}

	destPath := filepath.Join(destDir, fmt.Sprintf("page_%03d.png", seq))
	if err := writePNG(img, destPath); err != nil {
		return types.Page{}, fmt.Errorf("%w: %v", ErrDevice, err)
	}

	if srcPath != destPath {
		if err := os.Remove(srcPath); err != nil {
			os.Remove(destPath)
			return types.Page{}, fmt.Errorf("%w: removing raw capture %s: %v", ErrDevice, srcPath, err)
		}
	}

	bounds := img.Bounds()
	return types.Page{
		ID:         uuid.NewString(),
		ImagePath:  destPath,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Resolution: req.Resolution,
		Mode:       req.Mode,
		CapturedAt: capturedAt,
	}, nil
}

func decodeCapture(path string, dpi int) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return rasterize.FirstPage(path, dpi)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening capture %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding capture %s: %w", path, err)
	}
	return img, nil
}

// writePNG encodes img to destPath through a temporary file so a failed
// encode never leaves a partial page in the spool.
func writePNG(img image.Image, destPath string) error {
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".page-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	encErr := png.Encode(tmp, img)
	closeErr := tmp.Close()
	if encErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("encoding page: %w", encErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming page file: %w", err)
	}
	return nil
}
