package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/SummittDweller/D35-Scan-to-PDF/internal/controller"
	"github.com/SummittDweller/D35-Scan-to-PDF/internal/device"
	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Capture pages and commit them to a timestamped PDF",
	Long: `Scan captures pages one at a time from the detected capture backend and
commits them to a single PDF under the output directory.

Between pages you are prompted to place the next sheet; press q to commit
what you have so far. A failed capture never loses the pages already in
the session: fix the scanner (or drop the file into the watched folder)
and press Enter to try the same page again.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntP("pages", "p", 1, "number of pages to capture")
	scanCmd.Flags().IntP("resolution", "r", 300, "scan resolution in DPI: 150, 300, or 600")
	scanCmd.Flags().StringP("mode", "m", "color", "color mode: color, gray, or lineart")
	scanCmd.Flags().StringP("device", "d", "", "capture method or SANE device name (default auto-detect)")
	scanCmd.Flags().StringP("output", "o", "", "output filename (default Scan_<timestamp>.pdf)")
	scanCmd.Flags().Bool("no-prompt", false, "capture back-to-back without prompting between pages")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := appConfig()
	log := newLogger(cmd, cfg)

	pageCount, _ := cmd.Flags().GetInt("pages")
	if pageCount < 1 {
		return fmt.Errorf("pages must be at least 1")
	}
	noPrompt, _ := cmd.Flags().GetBool("no-prompt")

	src, capture, err := resolveSource(cmd, cfg.Capture, log)
	if err != nil {
		return err
	}

	req, err := scanRequest(cmd, capture)
	if err != nil {
		return err
	}

	outName, _ := cmd.Flags().GetString("output")
	if outName != "" && !strings.HasSuffix(strings.ToLower(outName), ".pdf") {
		outName += ".pdf"
	}

	hist := openHistory(cfg, log)
	if hist != nil {
		defer hist.Close()
	}

	ctrl := controller.New(controller.Config{
		Source:   src,
		History:  hist,
		Output:   cfg.Output,
		FileName: outName,
		Logger:   log,
	})

	ctx := cmd.Context()
	in := bufio.NewReader(cmd.InOrStdin())

	fmt.Fprintf(os.Stderr, "Capturing %d page(s) via %s at %d DPI (%s)\n",
		pageCount, src.Name(), req.Resolution, req.Mode)

	for ctrl.Len() < pageCount {
		n := ctrl.Len() + 1

		if !noPrompt {
			fmt.Fprintf(os.Stderr, "Place page %d and press Enter (q to commit early): ", n)
			line, err := in.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			answer := strings.ToLower(strings.TrimSpace(line))
			if answer == "q" || errors.Is(err, io.EOF) {
				break
			}
		}

		page, err := captureOne(ctx, ctrl, req, src.Name(), noPrompt)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			statusFail.Fprint(os.Stderr, "✗ ")
			fmt.Fprintf(os.Stderr, "page %d failed: %v\n", n, err)
			if noPrompt {
				return err
			}
			// Interactive runs keep the session and re-prompt the same page.
			continue
		}

		statusOK.Fprint(os.Stderr, "✓ ")
		fmt.Fprintf(os.Stderr, "page %d captured (%dx%d px)\n", n, page.Width, page.Height)
	}

	return commitAndReport(ctx, ctrl)
}

// scanRequest builds the per-capture parameters from flags over config.
func scanRequest(cmd *cobra.Command, capture types.CaptureConfig) (types.ScanRequest, error) {
	resolution := flagInt(cmd, "resolution", capture.Resolution)
	if !types.ValidResolution(resolution) {
		return types.ScanRequest{}, fmt.Errorf("unsupported resolution %d: use 150, 300, or 600", resolution)
	}

	fallbackMode := string(capture.Mode)
	if fallbackMode == "" {
		fallbackMode = string(types.ModeColor)
	}
	mode, err := types.ParseColorMode(flagString(cmd, "mode", fallbackMode))
	if err != nil {
		return types.ScanRequest{}, err
	}

	return types.ScanRequest{
		Resolution: resolution,
		Mode:       mode,
		Device:     capture.Device,
	}, nil
}

// resolveSource picks the capture backend. The --device flag accepts either
// a capture method name (sane, imagecapture, applescript, folder) or a SANE
// hardware device name; anything that is not a method name is treated as
// hardware and implies the SANE backend. The returned config carries the
// effective device so the scan request targets the same hardware.
func resolveSource(cmd *cobra.Command, capture types.CaptureConfig, log zerolog.Logger) (device.Source, types.CaptureConfig, error) {
	method := capture.Method

	if cmd.Flags().Lookup("device") != nil {
		raw := flagString(cmd, "device", "")
		switch v := strings.ToLower(raw); v {
		case "":
		case device.MethodAuto, device.MethodSANE, device.MethodImageCapture,
			device.MethodAppleScript, device.MethodFolder:
			method = v
		default:
			// SANE device names are case-sensitive; pass them through as typed.
			capture.Device = raw
			method = device.MethodSANE
		}
	}

	src, err := device.ForMethod(method, capture, log)
	return src, capture, err
}

// captureOne runs a single capture, showing a spinner while the scanner
// works unless the run is non-interactive.
func captureOne(ctx context.Context, ctrl *controller.Controller, req types.ScanRequest, method string, quiet bool) (types.Page, error) {
	if quiet {
		return ctrl.Capture(ctx, req)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" scanning via %s...", method)
	s.Writer = os.Stderr
	s.Start()
	page, err := ctrl.Capture(ctx, req)
	s.Stop()
	return page, err
}

// commitAndReport assembles the session and prints the artifact line.
func commitAndReport(ctx context.Context, ctrl *controller.Controller) error {
	art, err := ctrl.Commit(ctx)
	if err != nil {
		return err
	}

	statusOK.Fprint(os.Stderr, "✓ ")
	fmt.Fprintf(os.Stderr, "%s (%d page(s), %s)\n",
		art.Path, art.Pages, art.Duration.Round(time.Millisecond))
	return nil
}
