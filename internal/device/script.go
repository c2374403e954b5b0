// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package device

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

// scanScript nudges the macOS Image Capture application into starting a
// scan. Image Capture offers no scripting dictionary for the scan button
// itself, so the script opens the app and presses the button through System
// Events. The scanned file lands wherever Image Capture is configured to
// import to, which is why completion is detected by the folder source.
const scanScript = `
tell application "Image Capture" to activate
delay 1
tell application "System Events"
	tell process "Image Capture"
		try
			click button "Scan" of window 1
		end try
	end tell
end tell
`

// appleScriptSource automates Image Capture via osascript. The automation
// is best effort: whether or not the script manages to press the button,
// the resulting file is picked up from the watched folder. Script failures
// (no Image Capture, accessibility permissions missing, user dismissed the
// dialog) therefore degrade silently to a plain manual import.
type appleScriptSource struct {
	fallback Source
	timeout  time.Duration
	exec     executor
	log      zerolog.Logger
}

func newAppleScriptSource(exec executor, cfg types.CaptureConfig, fallback Source, log zerolog.Logger) *appleScriptSource {
	return &appleScriptSource{
		fallback: fallback,
		timeout:  captureTimeout(cfg),
		exec:     exec,
		log:      log,
	}
}

func (s *appleScriptSource) Name() string { return "applescript" }

func (s *appleScriptSource) Available() bool {
	_, err := s.exec.LookPath(binOsascript)
	return err == nil
}

func (s *appleScriptSource) Capture(ctx context.Context, req types.ScanRequest, destDir string) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	if err := s.exec.RunSilent(tctx, binOsascript, "-e", scanScript); err != nil {
		s.log.Debug().Err(err).Msg("image capture automation failed, falling back to manual import")
	}
	cancel()

	if ctx.Err() != nil {
		return "", fmt.Errorf("image capture automation: %w", ctx.Err())
	}

	return s.fallback.Capture(ctx, req, destDir)
}
