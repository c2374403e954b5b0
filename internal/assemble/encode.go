// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

const (
	defaultJPEGQuality = 90

	// lineartThreshold splits luminance into black and white.
	lineartThreshold = 128
)

// encodedPage is one page's image bytes ready for PDF embedding.
type encodedPage struct {
	data   bytes.Buffer
	format string // "JPEG" or "PNG"
}

// encodePage reads a page's spool PNG and encodes it according to its color
// mode: color pages as JPEG, gray pages as single-channel JPEG, lineart
// pages thresholded to black and white and kept as PNG so threshold edges
// stay crisp.
func encodePage(p types.Page, quality int) (*encodedPage, error) {
	f, err := os.Open(p.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("opening page image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding page image: %w", err)
	}

	enc := &encodedPage{}
	switch p.Mode {
	case types.ModeGray:
		enc.format = "JPEG"
		err = jpeg.Encode(&enc.data, toGray(img), &jpeg.Options{Quality: quality})
	case types.ModeLineart:
		enc.format = "PNG"
		err = png.Encode(&enc.data, toLineart(img))
	default:
		enc.format = "JPEG"
		err = jpeg.Encode(&enc.data, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, fmt.Errorf("encoding page image: %w", err)
	}
	return enc, nil
}

// toGray converts img to 8-bit grayscale.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// toLineart thresholds img to pure black and white. The result is carried
// as 8-bit gray holding only 0 and 255; Go's image encoders have no 1-bit
// channel.
func toLineart(img image.Image) *image.Gray {
	gray := toGray(img)
	bounds := gray.Bounds()

	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if gray.GrayAt(x, y).Y >= lineartThreshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}
