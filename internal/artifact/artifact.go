// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact names committed PDFs and writes their metadata sidecars.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

// Extension is the suffix of every committed artifact.
const Extension = ".pdf"

// Name derives the output filename from a commit timestamp. The format is
// fixed: Scan_YYYYMMDD_HHMMSS.pdf in local time, zero-padded, no randomness.
// Equal timestamps yield equal names; collision handling is UniquePath's job.
func Name(t time.Time) string {
	return t.Format("Scan_20060102_150405") + Extension
}

// UniquePath joins dir and name, appending _2, _3, ... before the extension
// until the path does not exist. Commits in the same second therefore never
// overwrite an earlier PDF.
func UniquePath(dir, name string) string {
	path := filepath.Join(dir, name)
	if !exists(path) {
		return path
	}

	stem := strings.TrimSuffix(name, Extension)
	for n := 2; ; n++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, Extension))
		if !exists(path) {
			return path
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SidecarPath returns the metadata sidecar path for a PDF path.
func SidecarPath(pdfPath string) string {
	return strings.TrimSuffix(pdfPath, Extension) + ".yaml"
}

// WriteSidecar writes the artifact's metadata as YAML next to the PDF.
func WriteSidecar(a types.Artifact) error {
	data, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling sidecar: %w", err)
	}
	if err := os.WriteFile(SidecarPath(a.Path), data, 0o644); err != nil {
		return fmt.Errorf("writing sidecar: %w", err)
	}
	return nil
}

// ReadSidecar reads an artifact's metadata sidecar.
func ReadSidecar(pdfPath string) (*types.Artifact, error) {
	data, err := os.ReadFile(SidecarPath(pdfPath))
	if err != nil {
		return nil, err
	}
	var a types.Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parsing sidecar %s: %w", SidecarPath(pdfPath), err)
	}
	return &a, nil
}
