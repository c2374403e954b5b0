// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

// saneSource drives a scanner through the SANE scanimage command.
type saneSource struct {
	device  string
	timeout time.Duration
	exec    executor
}

func newSANESource(exec executor, cfg types.CaptureConfig) *saneSource {
	return &saneSource{
		device:  cfg.Device,
		timeout: captureTimeout(cfg),
		exec:    exec,
	}
}

func (s *saneSource) Name() string { return "sane" }

// Available reports whether scanimage exists on PATH and answers --version.
// A present but broken SANE install fails the version check and is skipped.
func (s *saneSource) Available() bool {
	if _, err := s.exec.LookPath(binScanimage); err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.exec.RunSilent(ctx, binScanimage, "--version") == nil
}

func (s *saneSource) Capture(ctx context.Context, req types.ScanRequest, destDir string) (string, error) {
	dest := filepath.Join(destDir, fmt.Sprintf("raw_%d.png", time.Now().UnixNano()))

	args := make([]string, 0, 9)
	device := req.Device
	if device == "" {
		device = s.device
	}
	if device != "" {
		args = append(args, "-d", device)
	}
	args = append(args,
		"--format=png",
		"--resolution", strconv.Itoa(req.Resolution),
		"--mode", saneMode(req.Mode),
		"-o", dest,
	)

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.exec.RunSilent(tctx, binScanimage, args...); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("%w: scanimage: %v", classifyRunError(tctx), err)
	}
	if _, err := os.Stat(dest); err != nil {
		return "", fmt.Errorf("%w: scanimage exited cleanly but produced no file", ErrDevice)
	}
	return dest, nil
}

// imageCaptureSource drives a scanner through the macOS imagecapture command.
// The tool names its own output file, so the capture is located afterwards
// by the filename stem we asked for.
type imageCaptureSource struct {
	timeout time.Duration
	exec    executor
}

func newImageCaptureSource(exec executor, cfg types.CaptureConfig) *imageCaptureSource {
	return &imageCaptureSource{
		timeout: captureTimeout(cfg),
		exec:    exec,
	}
}

func (s *imageCaptureSource) Name() string { return "imagecapture" }

func (s *imageCaptureSource) Available() bool {
	_, err := s.exec.LookPath(binImageCapture)
	return err == nil
}

func (s *imageCaptureSource) Capture(ctx context.Context, req types.ScanRequest, destDir string) (string, error) {
	stem := fmt.Sprintf("capture_%d", time.Now().UnixNano())

	before, err := snapshotDir(destDir)
	if err != nil {
		return "", fmt.Errorf("%w: reading capture directory %s: %v", ErrDevice, destDir, err)
	}

	args := []string{
		"-path", destDir,
		"-name", stem,
		"-type", "public.jpeg",
		"-dpi", strconv.Itoa(req.Resolution),
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.exec.RunSilent(tctx, binImageCapture, args...); err != nil {
		return "", fmt.Errorf("%w: imagecapture: %v", classifyRunError(tctx), err)
	}

	return locateCapture(destDir, stem, before)
}

// locateCapture finds the file imagecapture wrote under dir. It prefers
// files matching the requested stem; some tool versions ignore -name, so
// the newest file that appeared during the capture is the fallback. Files
// present before the capture are never returned.
func locateCapture(dir, stem string, before map[string]struct{}) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: reading capture directory %s: %v", ErrDevice, dir, err)
	}

	var newest, newestMatch string
	var newestTime, newestMatchTime time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, existed := before[e.Name()]; existed {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(newestTime) {
			newest = e.Name()
			newestTime = info.ModTime()
		}
		if strings.HasPrefix(e.Name(), stem) && info.ModTime().After(newestMatchTime) {
			newestMatch = e.Name()
			newestMatchTime = info.ModTime()
		}
	}

	switch {
	case newestMatch != "":
		return filepath.Join(dir, newestMatch), nil
	case newest != "":
		return filepath.Join(dir, newest), nil
	}
	return "", fmt.Errorf("%w: imagecapture exited cleanly but produced no file in %s", ErrDevice, dir)
}
