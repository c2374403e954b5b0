// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

// Capture method names accepted in configuration and on the command line.
const (
	MethodAuto         = "auto"
	MethodSANE         = "sane"
	MethodImageCapture = "imagecapture"
	MethodAppleScript  = "applescript"
	MethodFolder       = "folder"
)

// newSources builds every backend in probe priority order. The folder
// source comes last and doubles as the AppleScript fallback.
func newSources(exec executor, cfg types.CaptureConfig, log zerolog.Logger) []Source {
	folder := newFolderSource(cfg, log)
	return []Source{
		newSANESource(exec, cfg),
		newImageCaptureSource(exec, cfg),
		newAppleScriptSource(exec, cfg, folder, log),
		folder,
	}
}

// Detect returns the first available capture backend, probing in priority
// order: SANE, Image Capture command, AppleScript automation, watched
// folder. The folder backend is always available, so auto detection never
// fails; a host with no scanner tooling degrades to manual import.
func Detect(cfg types.CaptureConfig, log zerolog.Logger) Source {
	return detect(defaultExec, cfg, log)
}

func detect(exec executor, cfg types.CaptureConfig, log zerolog.Logger) Source {
	for _, s := range newSources(exec, cfg, log) {
		if s.Available() {
			log.Debug().Str("method", s.Name()).Msg("capture method selected")
			return s
		}
	}
	// Unreachable as long as the folder source reports available.
	return newFolderSource(cfg, log)
}

// ForMethod returns the named capture backend, or an error wrapping
// ErrNoDevice when the backend exists but is not usable on this host.
func ForMethod(name string, cfg types.CaptureConfig, log zerolog.Logger) (Source, error) {
	return forMethod(defaultExec, name, cfg, log)
}

func forMethod(exec executor, name string, cfg types.CaptureConfig, log zerolog.Logger) (Source, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == MethodAuto {
		return detect(exec, cfg, log), nil
	}

	for _, s := range newSources(exec, cfg, log) {
		if s.Name() != name {
			continue
		}
		if !s.Available() {
			return nil, fmt.Errorf("%w: capture method %s is not available on this host", ErrNoDevice, name)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown capture method %q: use %s, %s, %s, %s, or %s",
		name, MethodAuto, MethodSANE, MethodImageCapture, MethodAppleScript, MethodFolder)
}

// MethodStatus reports the availability of one capture backend.
type MethodStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`

	// Detail is a short human-readable note: tool version, binary path,
	// or the watched directory.
	Detail string `json:"detail,omitempty"`
}

// Probe checks every backend concurrently and returns their statuses in
// priority order.
func Probe(ctx context.Context, cfg types.CaptureConfig, log zerolog.Logger) []MethodStatus {
	return probe(ctx, defaultExec, cfg, log)
}

func probe(ctx context.Context, exec executor, cfg types.CaptureConfig, log zerolog.Logger) []MethodStatus {
	sources := newSources(exec, cfg, log)
	statuses := make([]MethodStatus, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, s := range sources {
		g.Go(func() error {
			statuses[i] = MethodStatus{
				Name:      s.Name(),
				Available: s.Available(),
				Detail:    methodDetail(ctx, exec, s, cfg),
			}
			return nil
		})
	}
	// Probes only record; they never return errors.
	_ = g.Wait()

	return statuses
}

func methodDetail(ctx context.Context, exec executor, s Source, cfg types.CaptureConfig) string {
	switch s.Name() {
	case MethodSANE:
		tctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if out, err := exec.Output(tctx, binScanimage, "--version"); err == nil {
			return firstLine(out)
		}
	case MethodImageCapture:
		if path, err := exec.LookPath(binImageCapture); err == nil {
			return path
		}
	case MethodAppleScript:
		if path, err := exec.LookPath(binOsascript); err == nil {
			return path
		}
	case MethodFolder:
		return "watching " + cfg.WatchDir
	}
	return ""
}

// ListScanners returns the scanner devices SANE reports, one per line of
// `scanimage -L` output. Callers should check the SANE backend is available
// first; an empty result means no scanners were identified.
func ListScanners(ctx context.Context) ([]string, error) {
	return listScanners(ctx, defaultExec)
}

func listScanners(ctx context.Context, exec executor) ([]string, error) {
	tctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	out, err := exec.Output(tctx, binScanimage, "-L")
	if err != nil {
		return nil, fmt.Errorf("listing scanners: %w", err)
	}

	// Device lines look like: device `epson2:libusb:001:004' is a ...
	// Everything else (including the multi-line "No scanners were
	// identified" advice) is commentary.
	var devices []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "device ") || strings.HasPrefix(line, "device`") {
			devices = append(devices, line)
		}
	}
	return devices, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
