// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package controller

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SummittDweller/D35-Scan-to-PDF/internal/artifact"
	"github.com/SummittDweller/D35-Scan-to-PDF/internal/assemble"
	"github.com/SummittDweller/D35-Scan-to-PDF/internal/device"
	"github.com/SummittDweller/D35-Scan-to-PDF/internal/history"
	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

// --- test doubles ---

// scriptedSource is a capture backend driven by a list of per-call errors.
// A nil entry (or running past the end of the script) produces a real PNG
// whose width encodes the call number, so tests can verify page order.
type scriptedSource struct {
	script []error
	calls  int
}

func (s *scriptedSource) Name() string    { return "scripted" }
func (s *scriptedSource) Available() bool { return true }

func (s *scriptedSource) Capture(ctx context.Context, req types.ScanRequest, destDir string) (string, error) {
	s.calls++
	if s.calls <= len(s.script) && s.script[s.calls-1] != nil {
		return "", s.script[s.calls-1]
	}

	img := image.NewRGBA(image.Rect(0, 0, 10+s.calls, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 10+s.calls; x++ {
			img.Set(x, y, color.RGBA{R: 230, G: 230, B: 230, A: 255})
		}
	}

	path := filepath.Join(destDir, fmt.Sprintf("raw_%03d.png", s.calls))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return "", err
	}
	return path, nil
}

// blockingSource holds a capture open until released, for serialization tests.
type blockingSource struct {
	scriptedSource
	started chan struct{}
	release chan struct{}
}

func (b *blockingSource) Capture(ctx context.Context, req types.ScanRequest, destDir string) (string, error) {
	close(b.started)
	select {
	case <-b.release:
		return b.scriptedSource.Capture(ctx, req, destDir)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// flakyAssembler fails the first failures calls, then delegates to the real
// assembler.
type flakyAssembler struct {
	failures int
	calls    int
	real     assemble.Assembler
}

func (f *flakyAssembler) Assemble(pages []types.Page, destPath string) error {
	f.calls++
	if f.calls <= f.failures {
		return fmt.Errorf("%w: disk on fire", assemble.ErrWrite)
	}
	return f.real.Assemble(pages, destPath)
}

// --- helpers ---

func testController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	if cfg.Source == nil {
		cfg.Source = &scriptedSource{}
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = t.TempDir()
	}
	ctrl := New(cfg)
	t.Cleanup(func() { ctrl.Clear() })
	return ctrl
}

func colorRequest() types.ScanRequest {
	return types.ScanRequest{Resolution: 300, Mode: types.ModeColor}
}

func captureN(t *testing.T, ctrl *Controller, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := ctrl.Capture(context.Background(), colorRequest())
		require.NoError(t, err)
	}
}

func pdfPageCount(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading PDF: %v", err)
	}
	return bytes.Count(data, []byte("/Type /Page")) - bytes.Count(data, []byte("/Type /Pages"))
}

// --- capture tests ---

func TestCaptureAppendsInOrder(t *testing.T) {
	ctrl := testController(t, Config{})
	captureN(t, ctrl, 5)

	require.Equal(t, 5, ctrl.Len())
	pages := ctrl.Pages()
	for i, p := range pages {
		// The scripted source makes page i's image 10+i+1 pixels wide.
		assert.Equal(t, 10+i+1, p.Width, "page %d out of order", i+1)
		assert.Equal(t, 300, p.Resolution)
		assert.Equal(t, types.ModeColor, p.Mode)
		assert.True(t, strings.HasSuffix(p.ImagePath, fmt.Sprintf("page_%03d.png", i+1)))
	}
}

func TestCaptureFailureLeavesSessionUnchanged(t *testing.T) {
	src := &scriptedSource{script: []error{nil, nil, device.ErrDevice}}
	ctrl := testController(t, Config{Source: src})

	captureN(t, ctrl, 2)
	before := ctrl.Pages()

	_, err := ctrl.Capture(context.Background(), colorRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, device.ErrDevice)

	require.Equal(t, 2, ctrl.Len(), "failed capture must not change the page count")
	after := ctrl.Pages()
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID, "failed capture disturbed page order")
	}

	// The next attempt succeeds and appends after the existing pages.
	page, err := ctrl.Capture(context.Background(), colorRequest())
	require.NoError(t, err)
	assert.Equal(t, 3, ctrl.Len())
	assert.Equal(t, page.ID, ctrl.Pages()[2].ID)
}

func TestCaptureTimeoutIsRecoverable(t *testing.T) {
	src := &scriptedSource{script: []error{device.ErrCaptureTimeout}}
	ctrl := testController(t, Config{Source: src})

	_, err := ctrl.Capture(context.Background(), colorRequest())
	assert.ErrorIs(t, err, device.ErrCaptureTimeout)
	assert.Equal(t, 0, ctrl.Len())
	assert.Equal(t, StateIdle, ctrl.State())

	captureN(t, ctrl, 1)
	assert.Equal(t, 1, ctrl.Len())
}

func TestCaptureCancellation(t *testing.T) {
	src := &blockingSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	ctrl := testController(t, Config{Source: src})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Capture(ctx, colorRequest())
		done <- err
	}()

	<-src.started
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, ctrl.Len(), "cancelled capture must leave the session as it was")
	assert.Equal(t, StateIdle, ctrl.State())
}

// --- commit tests ---

func TestCommitWritesPDFAndClearsSession(t *testing.T) {
	outDir := t.TempDir()
	ctrl := testController(t, Config{Output: types.OutputConfig{Dir: outDir}})

	// Scenario: capture 3 pages at 300 DPI color, commit.
	captureN(t, ctrl, 3)
	assert.Equal(t, StateCapturing, ctrl.State())

	art, err := ctrl.Commit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, art.Pages)
	assert.Equal(t, 300, art.Resolution)
	assert.Equal(t, types.ModeColor, art.Mode)
	assert.Equal(t, "scripted", art.Source)
	assert.Equal(t, filepath.Join(outDir, art.Filename), art.Path)

	require.FileExists(t, art.Path)
	assert.Equal(t, 3, pdfPageCount(t, art.Path))

	assert.Equal(t, 0, ctrl.Len(), "session must be empty after a successful commit")
	assert.Equal(t, StateIdle, ctrl.State())
}

func TestCommitEmptySession(t *testing.T) {
	outDir := t.TempDir()
	ctrl := testController(t, Config{Output: types.OutputConfig{Dir: outDir}})

	_, err := ctrl.Commit(context.Background())
	assert.ErrorIs(t, err, assemble.ErrNothingToAssemble)

	entries, rerr := os.ReadDir(outDir)
	require.NoError(t, rerr)
	assert.Empty(t, entries, "an empty commit must write nothing")
}

func TestCommitFailurePreservesSessionForRetry(t *testing.T) {
	outDir := t.TempDir()
	asm := &flakyAssembler{failures: 1, real: assemble.New()}
	ctrl := testController(t, Config{
		Assembler: asm,
		Output:    types.OutputConfig{Dir: outDir},
	})

	captureN(t, ctrl, 2)
	before := ctrl.Pages()

	_, err := ctrl.Commit(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, assemble.ErrWrite)

	// Both pages survive the failed commit, in order.
	require.Equal(t, 2, ctrl.Len())
	after := ctrl.Pages()
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
	}
	assert.Equal(t, StateCapturing, ctrl.State())

	// Retrying the commit succeeds with the preserved pages.
	art, err := ctrl.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, art.Pages)
	assert.Equal(t, 2, pdfPageCount(t, art.Path))
	assert.Equal(t, 0, ctrl.Len())
}

func TestCommitFixedTimestampName(t *testing.T) {
	fixed := time.Date(2024, 10, 24, 14, 30, 22, 0, time.Local)
	ctrl := testController(t, Config{Now: func() time.Time { return fixed }})

	captureN(t, ctrl, 1)
	art, err := ctrl.Commit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Scan_20241024_143022.pdf", art.Filename)
	assert.True(t, art.CreatedAt.Equal(fixed))
}

func TestCommitSameSecondGetsSuffix(t *testing.T) {
	outDir := t.TempDir()
	fixed := time.Date(2024, 10, 24, 14, 30, 22, 0, time.Local)
	ctrl := testController(t, Config{
		Output: types.OutputConfig{Dir: outDir},
		Now:    func() time.Time { return fixed },
	})

	captureN(t, ctrl, 1)
	first, err := ctrl.Commit(context.Background())
	require.NoError(t, err)

	captureN(t, ctrl, 1)
	second, err := ctrl.Commit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Scan_20241024_143022.pdf", first.Filename)
	assert.Equal(t, "Scan_20241024_143022_2.pdf", second.Filename,
		"a same-second commit must get a suffix, not overwrite")
	require.FileExists(t, first.Path)
	require.FileExists(t, second.Path)
}

func TestCommitFilenameOverride(t *testing.T) {
	outDir := t.TempDir()
	ctrl := testController(t, Config{
		Output:   types.OutputConfig{Dir: outDir},
		FileName: "taxes-2024.pdf",
	})

	captureN(t, ctrl, 1)
	art, err := ctrl.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "taxes-2024.pdf", art.Filename)

	// The override is still collision-checked.
	captureN(t, ctrl, 1)
	art2, err := ctrl.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "taxes-2024_2.pdf", art2.Filename)
}

func TestCommitWritesSidecar(t *testing.T) {
	outDir := t.TempDir()
	ctrl := testController(t, Config{
		Output: types.OutputConfig{Dir: outDir, Sidecar: true},
	})

	captureN(t, ctrl, 2)
	art, err := ctrl.Commit(context.Background())
	require.NoError(t, err)

	side, err := artifact.ReadSidecar(art.Path)
	require.NoError(t, err, "sidecar should exist next to the PDF")
	assert.Equal(t, art.Filename, side.Filename)
	assert.Equal(t, 2, side.Pages)
}

func TestCommitRecordsHistory(t *testing.T) {
	outDir := t.TempDir()
	store, err := history.Open(types.HistoryConfig{}, outDir)
	require.NoError(t, err)
	defer store.Close()

	ctrl := testController(t, Config{
		History: store,
		Output:  types.OutputConfig{Dir: outDir},
	})

	captureN(t, ctrl, 1)
	art, err := ctrl.Commit(context.Background())
	require.NoError(t, err)

	commits, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, art.Filename, commits[0].Filename)
	assert.Equal(t, art.ID, commits[0].ID)
}

// --- clear tests ---

func TestClearAlwaysEmptiesSession(t *testing.T) {
	ctrl := testController(t, Config{})

	// Clearing an idle controller is a no-op.
	require.NoError(t, ctrl.Clear())
	assert.Equal(t, StateIdle, ctrl.State())

	captureN(t, ctrl, 3)
	require.NoError(t, ctrl.Clear())
	assert.Equal(t, 0, ctrl.Len())
	assert.Equal(t, StateIdle, ctrl.State())

	// The discard is unconditional: nothing is left to commit.
	_, err := ctrl.Commit(context.Background())
	assert.ErrorIs(t, err, assemble.ErrNothingToAssemble)
}

// --- serialization tests ---

func TestOperationsSerializedWithBusy(t *testing.T) {
	src := &blockingSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	ctrl := testController(t, Config{Source: src})

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Capture(context.Background(), colorRequest())
		done <- err
	}()
	<-src.started

	// A commit or clear arriving while the capture is in flight fails fast.
	_, err := ctrl.Commit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, ctrl.Clear(), ErrBusy)

	close(src.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, ctrl.Len(), "the in-flight capture must complete normally")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "capturing", StateCapturing.String())
}
