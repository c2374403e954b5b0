// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session holds the pages captured since the last commit or clear.
// A session is an ordered, append-only collection: capture order is the
// only page order, and pages leave the session only when the whole session
// is cleared. A session belongs to exactly one controller; it does no
// locking of its own.
package session

import (
	"fmt"
	"os"

	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

// Session accumulates captured pages and owns the spool directory their
// image files live in.
type Session struct {
	pages    []types.Page
	spoolDir string
}

// New returns an empty session. The spool directory is created on first use.
func New() *Session {
	return &Session{}
}

// SpoolDir returns the directory page images are written to, creating it
// on first call.
func (s *Session) SpoolDir() (string, error) {
	if s.spoolDir != "" {
		return s.spoolDir, nil
	}
	dir, err := os.MkdirTemp("", "d35scan-")
	if err != nil {
		return "", fmt.Errorf("creating spool directory: %w", err)
	}
	s.spoolDir = dir
	return dir, nil
}

// Append adds a captured page after all existing pages.
func (s *Session) Append(p types.Page) {
	s.pages = append(s.pages, p)
}

// Pages returns the pages in capture order. The slice is a copy; the
// session's own ordering cannot be disturbed through it.
func (s *Session) Pages() []types.Page {
	out := make([]types.Page, len(s.pages))
	copy(out, s.pages)
	return out
}

// Len returns the number of pages in the session.
func (s *Session) Len() int {
	return len(s.pages)
}

// Clear discards all pages and removes the spool directory. It is
// idempotent: clearing an empty session is a no-op. The page list is empty
// when Clear returns even if spool removal failed.
func (s *Session) Clear() error {
	s.pages = nil

	if s.spoolDir == "" {
		return nil
	}
	dir := s.spoolDir
	s.spoolDir = ""

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing spool directory %s: %w", dir, err)
	}
	return nil
}
