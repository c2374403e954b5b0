// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package device implements the capture backends that produce page images:
// the SANE command line, the macOS Image Capture command line, AppleScript
// automation, and a watched folder for manual imports. All backends present
// the same Source interface; detection picks the first available one.
package device

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

// Capture failure kinds. Backends wrap these with detail; callers
// discriminate with errors.Is.
var (
	// ErrNoDevice indicates no capture backend is available for the request.
	ErrNoDevice = errors.New("no scan device found")

	// ErrCaptureTimeout indicates a capture attempt exceeded its deadline,
	// including the wait for a manually imported file.
	ErrCaptureTimeout = errors.New("capture timed out")

	// ErrDevice indicates the backend ran but failed: non-zero exit,
	// no file produced, or an unreadable result.
	ErrDevice = errors.New("scan device error")
)

const (
	binScanimage    = "scanimage"
	binImageCapture = "imagecapture"
	binOsascript    = "osascript"

	defaultTimeout      = 30 * time.Second
	defaultPollInterval = 1 * time.Second
)

// Source is a capture backend. Capture acquires exactly one page image,
// writes it under destDir, and returns its path. The file is raw backend
// output; Normalize converts it to the session's PNG form.
type Source interface {
	// Name returns the backend name ("sane", "imagecapture", "applescript",
	// or "folder").
	Name() string

	// Available reports whether the backend can be used on this host.
	Available() bool

	// Capture acquires one page image into destDir and returns its path.
	// A failed capture leaves destDir unchanged.
	Capture(ctx context.Context, req types.ScanRequest, destDir string) (string, error)
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) (string, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

func (o *osExecutor) Output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return strings.TrimSpace(string(out)), err
}

var defaultExec executor = &osExecutor{}

// saneMode maps a ColorMode to the value scanimage expects for --mode.
func saneMode(m types.ColorMode) string {
	switch m {
	case types.ModeGray:
		return "Gray"
	case types.ModeLineart:
		return "Lineart"
	default:
		return "Color"
	}
}

// captureTimeout applies the configured or default per-capture deadline.
func captureTimeout(cfg types.CaptureConfig) time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return defaultTimeout
}

// classifyRunError maps a failed backend command to a capture error kind.
// Deadline expiry becomes ErrCaptureTimeout; caller cancellation is passed
// through; everything else is ErrDevice.
func classifyRunError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrCaptureTimeout
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return ErrDevice
}
