// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package controller orchestrates the capture pipeline: it owns the page
// session, drives the capture backend, and turns accumulated pages into a
// committed PDF. Operations are serialized; a call that arrives while
// another is running fails fast with ErrBusy instead of queueing.
package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SummittDweller/D35-Scan-to-PDF/internal/artifact"
	"github.com/SummittDweller/D35-Scan-to-PDF/internal/assemble"
	"github.com/SummittDweller/D35-Scan-to-PDF/internal/device"
	"github.com/SummittDweller/D35-Scan-to-PDF/internal/history"
	"github.com/SummittDweller/D35-Scan-to-PDF/internal/session"
	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

// ErrBusy indicates another capture, commit, or clear is in progress.
var ErrBusy = errors.New("another scan operation is in progress")

// State is the controller's observable lifecycle state.
type State int

const (
	// StateIdle means the session is empty.
	StateIdle State = iota

	// StateCapturing means at least one page is captured and uncommitted.
	StateCapturing
)

func (s State) String() string {
	if s == StateCapturing {
		return "capturing"
	}
	return "idle"
}

// Config wires a Controller's collaborators.
type Config struct {
	// Source is the capture backend. Required.
	Source device.Source

	// Assembler builds the output PDF. Nil uses the production assembler.
	Assembler assemble.Assembler

	// History records committed artifacts. Nil disables history.
	History *history.Store

	// Output controls where PDFs land and whether sidecars are written.
	Output types.OutputConfig

	// FileName overrides the timestamp-derived output name for the next
	// commit. Collision handling still applies.
	FileName string

	// Now supplies commit timestamps. Nil uses time.Now.
	Now func() time.Time

	// Logger receives diagnostics. Zero value stays silent.
	Logger zerolog.Logger
}

// Controller owns one page session and serializes all operations on it.
type Controller struct {
	mu sync.Mutex

	source   device.Source
	sess     *session.Session
	asm      assemble.Assembler
	hist     *history.Store
	output   types.OutputConfig
	fileName string
	now      func() time.Time
	log      zerolog.Logger
}

// New builds a Controller with an empty session.
func New(cfg Config) *Controller {
	asm := cfg.Assembler
	if asm == nil {
		asm = assemble.New()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		source:   cfg.Source,
		sess:     session.New(),
		asm:      asm,
		hist:     cfg.History,
		output:   cfg.Output,
		fileName: cfg.FileName,
		now:      now,
		log:      cfg.Logger,
	}
}

// State reports whether the session holds uncommitted pages.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess.Len() > 0 {
		return StateCapturing
	}
	return StateIdle
}

// Len returns the number of pages in the session.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.Len()
}

// Pages returns the session's pages in capture order.
func (c *Controller) Pages() []types.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.Pages()
}

// Capture acquires one page and appends it to the session. On failure the
// session is unchanged: no page is appended and existing pages keep their
// order. Cancelling ctx abandons the in-flight attempt the same way.
func (c *Controller) Capture(ctx context.Context, req types.ScanRequest) (types.Page, error) {
	if !c.mu.TryLock() {
		return types.Page{}, ErrBusy
	}
	defer c.mu.Unlock()

	spool, err := c.sess.SpoolDir()
	if err != nil {
		return types.Page{}, err
	}

	raw, err := c.source.Capture(ctx, req, spool)
	if err != nil {
		return types.Page{}, fmt.Errorf("capturing page %d: %w", c.sess.Len()+1, err)
	}

	page, err := device.Normalize(raw, spool, c.sess.Len()+1, req, c.now())
	if err != nil {
		return types.Page{}, fmt.Errorf("normalizing page %d: %w", c.sess.Len()+1, err)
	}

	c.sess.Append(page)
	c.log.Info().
		Str("method", c.source.Name()).
		Int("page", c.sess.Len()).
		Int("width", page.Width).
		Int("height", page.Height).
		Msg("page captured")
	return page, nil
}

// Commit assembles all session pages, in capture order, into one PDF and
// clears the session. An empty session fails with ErrNothingToAssemble and
// writes nothing. An assembly failure leaves every page and their order
// intact so the commit can be retried.
func (c *Controller) Commit(ctx context.Context) (types.Artifact, error) {
	if !c.mu.TryLock() {
		return types.Artifact{}, ErrBusy
	}
	defer c.mu.Unlock()

	pages := c.sess.Pages()
	if len(pages) == 0 {
		return types.Artifact{}, assemble.ErrNothingToAssemble
	}

	start := c.now()
	name := c.fileName
	if name == "" {
		name = artifact.Name(start)
	}

	if err := os.MkdirAll(c.output.Dir, 0o755); err != nil {
		return types.Artifact{}, fmt.Errorf("%w: creating output directory %s: %v",
			assemble.ErrWrite, c.output.Dir, err)
	}
	destPath := artifact.UniquePath(c.output.Dir, name)

	if err := c.asm.Assemble(pages, destPath); err != nil {
		return types.Artifact{}, fmt.Errorf("assembling %s: %w", filepath.Base(destPath), err)
	}

	a := types.Artifact{
		ID:         uuid.NewString(),
		Filename:   filepath.Base(destPath),
		Path:       destPath,
		Pages:      len(pages),
		Resolution: pages[0].Resolution,
		Mode:       pages[0].Mode,
		Source:     c.source.Name(),
		CreatedAt:  start,
		Duration:   c.now().Sub(start),
	}

	// The PDF is on disk; sidecar, history, and spool cleanup failures
	// must not undo the commit.
	if c.output.Sidecar {
		if err := artifact.WriteSidecar(a); err != nil {
			c.log.Warn().Err(err).Str("file", a.Filename).Msg("sidecar write failed")
		}
	}
	if c.hist != nil {
		if err := c.hist.Record(ctx, a); err != nil {
			c.log.Warn().Err(err).Str("file", a.Filename).Msg("history record failed")
		}
	}
	if err := c.sess.Clear(); err != nil {
		c.log.Warn().Err(err).Msg("spool cleanup failed")
	}

	c.log.Info().
		Str("file", a.Filename).
		Int("pages", a.Pages).
		Dur("duration", a.Duration).
		Msg("session committed")
	return a, nil
}

// Clear discards all session pages unconditionally and returns the
// controller to idle. Clearing an idle controller is a no-op.
func (c *Controller) Clear() error {
	if !c.mu.TryLock() {
		return ErrBusy
	}
	defer c.mu.Unlock()

	n := c.sess.Len()
	err := c.sess.Clear()
	if n > 0 {
		c.log.Info().Int("discarded", n).Msg("session cleared")
	}
	return err
}
