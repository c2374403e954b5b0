// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the scan2pdf pipeline.
package types

import (
	"fmt"
	"strings"
	"time"
)

// ColorMode selects how captured pages are encoded in the output PDF.
type ColorMode string

const (
	ModeColor   ColorMode = "color"
	ModeGray    ColorMode = "gray"
	ModeLineart ColorMode = "lineart"
)

// ParseColorMode converts user input to a ColorMode. It accepts any casing
// of the canonical names ("Color", "gray", "LINEART").
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "color", "colour":
		return ModeColor, nil
	case "gray", "grey", "grayscale":
		return ModeGray, nil
	case "lineart", "line-art", "bw":
		return ModeLineart, nil
	}
	return "", fmt.Errorf("unknown color mode %q: use color, gray, or lineart", s)
}

// SupportedResolutions lists the scan resolutions the pipeline accepts, in DPI.
var SupportedResolutions = []int{150, 300, 600}

// ValidResolution reports whether dpi is a supported scan resolution.
func ValidResolution(dpi int) bool {
	for _, r := range SupportedResolutions {
		if dpi == r {
			return true
		}
	}
	return false
}

// ScanRequest holds the per-capture acquisition parameters. It is consumed
// by a single capture call and never persisted.
type ScanRequest struct {
	// Resolution is the scan resolution in DPI (150, 300, or 600).
	Resolution int `json:"resolution" yaml:"resolution"`

	// Mode selects the color mode for the captured page.
	Mode ColorMode `json:"mode" yaml:"mode"`

	// Device is an optional hardware device identifier (e.g. a SANE device
	// name like "epson2:libusb:001:004"). Empty means the backend's default.
	Device string `json:"device,omitempty" yaml:"device,omitempty"`
}

// Page is one captured page image. Pages are immutable once captured;
// re-scanning produces a new Page rather than mutating an existing one.
type Page struct {
	// ID uniquely identifies the page within a session.
	ID string `json:"id" yaml:"id"`

	// ImagePath is the normalized PNG in the session spool directory.
	ImagePath string `json:"image_path" yaml:"image_path"`

	// Width and Height are the image dimensions in pixels.
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`

	// Resolution is the DPI the page was captured at. Together with the
	// pixel dimensions it determines the physical PDF page size.
	Resolution int `json:"resolution" yaml:"resolution"`

	// Mode is the color mode requested for this page.
	Mode ColorMode `json:"mode" yaml:"mode"`

	// CapturedAt is when the capture completed.
	CapturedAt time.Time `json:"captured_at" yaml:"captured_at"`
}

// Artifact describes a committed PDF. It is returned by a successful commit,
// written as a YAML sidecar next to the PDF, and recorded in the history store.
type Artifact struct {
	// ID uniquely identifies the commit.
	ID string `json:"id" yaml:"id"`

	// Filename is the bare PDF filename (e.g. "Scan_20241024_143022.pdf").
	Filename string `json:"filename" yaml:"filename"`

	// Path is the full path the PDF was written to.
	Path string `json:"path" yaml:"path"`

	// Pages is the number of pages in the PDF.
	Pages int `json:"pages" yaml:"pages"`

	// Resolution and Mode record the capture parameters of the first page.
	Resolution int       `json:"resolution" yaml:"resolution"`
	Mode       ColorMode `json:"mode" yaml:"mode"`

	// Source names the capture method that produced the pages
	// (e.g. "sane", "folder").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// CreatedAt is when the commit started.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Duration is how long assembly took.
	Duration time.Duration `json:"duration" yaml:"duration"`
}
