// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rasterize renders PDF pages to images. Manual imports are
// occasionally PDFs (Image Capture and most scanner utilities can save
// directly to PDF); the capture pipeline needs them as page images.
package rasterize

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// FirstPage renders page 1 of the PDF at path at the given DPI.
func FirstPage(path string, dpi int) (image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("PDF %s has no pages", path)
	}

	img, err := doc.ImageDPI(0, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("rendering first page of %s: %w", path, err)
	}
	return img, nil
}
