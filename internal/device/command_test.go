// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package device

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SummittDweller/D35-Scan-to-PDF/internal/logging"
	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool   // binary -> whether LookPath succeeds
	runnableCmds  map[string]bool   // "bin arg1 arg2" -> whether RunSilent succeeds
	outputs       map[string]string // "bin arg1 arg2" -> Output result
	runFunc       func(ctx context.Context, name string, args []string) error
	calls         []string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(ctx context.Context, name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	m.calls = append(m.calls, key)
	if m.runFunc != nil {
		return m.runFunc(ctx, name, args)
	}
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) Output(ctx context.Context, name string, args ...string) (string, error) {
	key := name + " " + strings.Join(args, " ")
	m.calls = append(m.calls, key)
	if out, ok := m.outputs[key]; ok {
		return out, nil
	}
	return "", errors.New("command failed: " + key)
}

// argValue returns the argument following flag in args, or "".
func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestSANESourceAvailable(t *testing.T) {
	tests := []struct {
		name string
		exec *mockExecutor
		want bool
	}{
		{
			name: "binary present and responding",
			exec: &mockExecutor{
				availableBins: map[string]bool{"scanimage": true},
				runnableCmds:  map[string]bool{"scanimage --version": true},
			},
			want: true,
		},
		{
			name: "binary present but version fails",
			exec: &mockExecutor{
				availableBins: map[string]bool{"scanimage": true},
				runnableCmds:  map[string]bool{},
			},
			want: false,
		},
		{
			name: "binary missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{},
				runnableCmds:  map[string]bool{},
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newSANESource(tt.exec, types.CaptureConfig{})
			if got := src.Available(); got != tt.want {
				t.Errorf("Available() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSANECaptureWritesFile(t *testing.T) {
	destDir := t.TempDir()

	exec := &mockExecutor{
		runFunc: func(ctx context.Context, name string, args []string) error {
			dest := argValue(args, "-o")
			return os.WriteFile(dest, []byte("png"), 0o644)
		},
	}
	src := newSANESource(exec, types.CaptureConfig{})

	req := types.ScanRequest{Resolution: 300, Mode: types.ModeGray}
	path, err := src.Capture(context.Background(), req, destDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("capture file missing: %v", err)
	}
	if filepath.Dir(path) != destDir {
		t.Errorf("capture landed in %s, want %s", filepath.Dir(path), destDir)
	}

	if len(exec.calls) != 1 {
		t.Fatalf("expected 1 command, got %d", len(exec.calls))
	}
	call := exec.calls[0]
	for _, want := range []string{"scanimage", "--format=png", "--resolution 300", "--mode Gray"} {
		if !strings.Contains(call, want) {
			t.Errorf("command %q missing %q", call, want)
		}
	}
	if strings.Contains(call, "-d ") {
		t.Errorf("command %q should not select a device", call)
	}
}

func TestSANECaptureDeviceSelection(t *testing.T) {
	destDir := t.TempDir()
	exec := &mockExecutor{
		runFunc: func(ctx context.Context, name string, args []string) error {
			return os.WriteFile(argValue(args, "-o"), []byte("png"), 0o644)
		},
	}

	// Request device wins over configured device.
	src := newSANESource(exec, types.CaptureConfig{Device: "cfg-device"})
	req := types.ScanRequest{Resolution: 150, Mode: types.ModeColor, Device: "req-device"}
	if _, err := src.Capture(context.Background(), req, destDir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(exec.calls[0], "-d req-device") {
		t.Errorf("command %q should select req-device", exec.calls[0])
	}

	// Configured device applies when the request has none.
	exec.calls = nil
	req.Device = ""
	if _, err := src.Capture(context.Background(), req, destDir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(exec.calls[0], "-d cfg-device") {
		t.Errorf("command %q should select cfg-device", exec.calls[0])
	}
}

func TestSANECaptureFailures(t *testing.T) {
	tests := []struct {
		name    string
		runFunc func(ctx context.Context, name string, args []string) error
		timeout time.Duration
		wantErr error
	}{
		{
			name: "non-zero exit",
			runFunc: func(ctx context.Context, name string, args []string) error {
				return errors.New("exit status 1")
			},
			wantErr: ErrDevice,
		},
		{
			name: "exits cleanly but writes nothing",
			runFunc: func(ctx context.Context, name string, args []string) error {
				return nil
			},
			wantErr: ErrDevice,
		},
		{
			name: "deadline expires",
			runFunc: func(ctx context.Context, name string, args []string) error {
				<-ctx.Done()
				return ctx.Err()
			},
			timeout: 10 * time.Millisecond,
			wantErr: ErrCaptureTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{runFunc: tt.runFunc}
			src := newSANESource(exec, types.CaptureConfig{Timeout: tt.timeout})

			_, err := src.Capture(context.Background(),
				types.ScanRequest{Resolution: 300, Mode: types.ModeColor}, t.TempDir())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSANECaptureCancelled(t *testing.T) {
	exec := &mockExecutor{
		runFunc: func(ctx context.Context, name string, args []string) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	src := newSANESource(exec, types.CaptureConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := src.Capture(ctx, types.ScanRequest{Resolution: 300, Mode: types.ModeColor}, t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrCaptureTimeout) {
		t.Errorf("cancellation must not be reported as a timeout: %v", err)
	}
}

func TestImageCaptureLocatesNamedFile(t *testing.T) {
	destDir := t.TempDir()
	exec := &mockExecutor{
		runFunc: func(ctx context.Context, name string, args []string) error {
			stem := argValue(args, "-name")
			return os.WriteFile(filepath.Join(argValue(args, "-path"), stem+".jpg"), []byte("jpeg"), 0o644)
		},
	}
	src := newImageCaptureSource(exec, types.CaptureConfig{})

	path, err := src.Capture(context.Background(),
		types.ScanRequest{Resolution: 300, Mode: types.ModeColor}, destDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "capture_") {
		t.Errorf("located %q, want the stem-named file", path)
	}
	if !strings.Contains(exec.calls[0], "-type public.jpeg") {
		t.Errorf("command %q missing image type", exec.calls[0])
	}
	if !strings.Contains(exec.calls[0], "-dpi 300") {
		t.Errorf("command %q missing dpi", exec.calls[0])
	}
}

func TestImageCaptureFallsBackToNewestNewFile(t *testing.T) {
	destDir := t.TempDir()

	// A file from an earlier page must never be picked up.
	preexisting := filepath.Join(destDir, "page_001.png")
	if err := os.WriteFile(preexisting, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	exec := &mockExecutor{
		runFunc: func(ctx context.Context, name string, args []string) error {
			// Tool ignored -name and chose its own filename.
			return os.WriteFile(filepath.Join(argValue(args, "-path"), "IMG_0042.jpg"), []byte("jpeg"), 0o644)
		},
	}
	src := newImageCaptureSource(exec, types.CaptureConfig{})

	path, err := src.Capture(context.Background(),
		types.ScanRequest{Resolution: 150, Mode: types.ModeColor}, destDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "IMG_0042.jpg" {
		t.Errorf("located %q, want IMG_0042.jpg", path)
	}
}

func TestImageCaptureNoFileProduced(t *testing.T) {
	exec := &mockExecutor{
		runFunc: func(ctx context.Context, name string, args []string) error {
			return nil
		},
	}
	src := newImageCaptureSource(exec, types.CaptureConfig{})

	_, err := src.Capture(context.Background(),
		types.ScanRequest{Resolution: 300, Mode: types.ModeColor}, t.TempDir())
	if !errors.Is(err, ErrDevice) {
		t.Errorf("error = %v, want ErrDevice", err)
	}
}

func TestAppleScriptFallsBackToFolder(t *testing.T) {
	watchDir := t.TempDir()
	destDir := t.TempDir()

	// The automation run fails; the capture must still succeed through the
	// watched folder.
	exec := &mockExecutor{
		availableBins: map[string]bool{"osascript": true},
		runFunc: func(ctx context.Context, name string, args []string) error {
			return errors.New("osascript: Image Capture got an error")
		},
	}

	folder := newFolderSource(types.CaptureConfig{
		WatchDir:     watchDir,
		Timeout:      2 * time.Second,
		PollInterval: 10 * time.Millisecond,
	}, logging.Nop())
	folder.settle = 0

	src := newAppleScriptSource(exec, types.CaptureConfig{}, folder, logging.Nop())
	if !src.Available() {
		t.Fatal("osascript on PATH should make the source available")
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(filepath.Join(watchDir, "scan.png"), []byte("png"), 0o644)
	}()

	path, err := src.Capture(context.Background(),
		types.ScanRequest{Resolution: 300, Mode: types.ModeColor}, destDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "scan.png" {
		t.Errorf("captured %q, want scan.png", path)
	}
}
