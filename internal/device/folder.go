// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package device

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

// acceptedExtensions are the file types recognized as manually imported
// scans. Anything else appearing in the watch directory is ignored.
var acceptedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".pdf":  true,
}

// folderSource waits for the user to drop a scan into a watched directory,
// typically by importing from Image Capture or any other scanning utility.
// It is the last-resort backend and is always considered available.
//
// Detection combines fsnotify create events with a periodic re-list; the
// re-list covers editors and network mounts that do not emit events. A
// detected file is consumed: moved into the session spool so a subsequent
// capture can never observe it again.
type folderSource struct {
	watchDir string
	timeout  time.Duration
	poll     time.Duration
	settle   time.Duration
	log      zerolog.Logger
}

func newFolderSource(cfg types.CaptureConfig, log zerolog.Logger) *folderSource {
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return &folderSource{
		watchDir: cfg.WatchDir,
		timeout:  captureTimeout(cfg),
		poll:     poll,
		settle:   500 * time.Millisecond,
		log:      log,
	}
}

func (f *folderSource) Name() string { return "folder" }

func (f *folderSource) Available() bool { return true }

func (f *folderSource) Capture(ctx context.Context, req types.ScanRequest, destDir string) (string, error) {
	if err := os.MkdirAll(f.watchDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: preparing watch directory %s: %v", ErrDevice, f.watchDir, err)
	}

	before, err := snapshotDir(f.watchDir)
	if err != nil {
		return "", fmt.Errorf("%w: reading watch directory %s: %v", ErrDevice, f.watchDir, err)
	}

	// Event-driven wakeups when the platform supports them; the poll tick
	// below finds the file regardless.
	var events chan fsnotify.Event
	watcher, werr := fsnotify.NewWatcher()
	if werr == nil {
		if err := watcher.Add(f.watchDir); err == nil {
			events = make(chan fsnotify.Event, 16)
			go forwardEvents(watcher, events)
		} else {
			watcher.Close()
			watcher = nil
		}
	}
	if watcher != nil {
		defer watcher.Close()
	} else {
		f.log.Debug().Str("dir", f.watchDir).Msg("fsnotify unavailable, polling only")
	}

	deadline := time.NewTimer(f.timeout)
	defer deadline.Stop()
	tick := time.NewTicker(f.poll)
	defer tick.Stop()

	f.log.Info().Str("dir", f.watchDir).Dur("timeout", f.timeout).
		Msg("waiting for manually imported scan")

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for scan in %s: %w", f.watchDir, ctx.Err())

		case <-deadline.C:
			return "", fmt.Errorf("%w: no new file appeared in %s within %s",
				ErrCaptureTimeout, f.watchDir, f.timeout)

		case ev := <-events:
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Base(ev.Name)
			if candidate := f.pick(name, before); candidate != "" {
				return f.consume(ctx, candidate, destDir)
			}

		case <-tick.C:
			names, err := listDir(f.watchDir)
			if err != nil {
				continue
			}
			for _, name := range names {
				if candidate := f.pick(name, before); candidate != "" {
					return f.consume(ctx, candidate, destDir)
				}
			}
		}
	}
}

// pick returns the full path of name if it is a newly appeared, accepted
// scan file, or "" otherwise.
func (f *folderSource) pick(name string, before map[string]struct{}) string {
	if _, existed := before[name]; existed {
		return ""
	}
	if !acceptedExtensions[strings.ToLower(filepath.Ext(name))] {
		return ""
	}
	path := filepath.Join(f.watchDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}

// consume claims src for the session by moving it into destDir. After a
// short settle delay for writers that are still flushing, the file is
// renamed; a cross-device rename falls back to copy and remove. Either way
// src is gone from the watch directory on success.
func (f *folderSource) consume(ctx context.Context, src, destDir string) (string, error) {
	if f.settle > 0 {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for scan in %s: %w", f.watchDir, ctx.Err())
		case <-time.After(f.settle):
		}
	}

	dest := filepath.Join(destDir, filepath.Base(src))
	if err := os.Rename(src, dest); err != nil {
		if err := copyFile(src, dest); err != nil {
			return "", fmt.Errorf("%w: consuming %s: %v", ErrDevice, src, err)
		}
		if err := os.Remove(src); err != nil {
			// Capture stands on the copy. The leftover is in the next
			// call's snapshot, so it is never consumed twice.
			f.log.Warn().Str("file", src).Err(err).
				Msg("imported scan could not be removed from watch directory")
		}
	}

	f.log.Info().Str("file", filepath.Base(src)).Msg("consumed manually imported scan")
	return dest, nil
}

func forwardEvents(w *fsnotify.Watcher, out chan<- fsnotify.Event) {
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			select {
			case out <- ev:
			default:
			}
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}

// snapshotDir records the names currently present in dir. A missing dir
// yields an empty snapshot.
func snapshotDir(dir string) (map[string]struct{}, error) {
	names, err := listDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, err
	}
	snap := make(map[string]struct{}, len(names))
	for _, n := range names {
		snap[n] = struct{}{}
	}
	return snap, nil
}

func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".import-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	_, copyErr := io.Copy(tmp, in)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return copyErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return closeErr
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
