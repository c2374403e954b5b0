package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SummittDweller/D35-Scan-to-PDF/internal/controller"
	"github.com/SummittDweller/D35-Scan-to-PDF/internal/device"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Collect manually imported scans and commit them to one PDF",
	Long: `Watch waits for image files (or single-page PDFs) to appear in the
watched folder, claiming each one as a page. Import pages from Image
Capture or any scanner utility that can save to a folder; when all pages
are in, commit them to a single PDF.

Each claimed file is moved out of the watched folder, so a file is never
counted twice.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntP("resolution", "r", 300, "DPI assumed for imported pages: 150, 300, or 600")
	watchCmd.Flags().StringP("mode", "m", "color", "color mode: color, gray, or lineart")
	watchCmd.Flags().String("dir", "", "folder to watch (default from config, usually ~/Desktop)")
	watchCmd.Flags().Duration("timeout", 0, "how long to wait for each file (default 30s)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := appConfig()
	log := newLogger(cmd, cfg)

	if dir := flagString(cmd, "dir", ""); dir != "" {
		cfg.Capture.WatchDir = dir
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Capture.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}

	req, err := scanRequest(cmd, cfg.Capture)
	if err != nil {
		return err
	}

	src, err := device.ForMethod(device.MethodFolder, cfg.Capture, log)
	if err != nil {
		return err
	}

	hist := openHistory(cfg, log)
	if hist != nil {
		defer hist.Close()
	}

	ctrl := controller.New(controller.Config{
		Source:  src,
		History: hist,
		Output:  cfg.Output,
		Logger:  log,
	})

	ctx := cmd.Context()
	in := bufio.NewReader(cmd.InOrStdin())

	fmt.Fprintf(os.Stderr, "Watching %s; import each page there.\n", cfg.Capture.WatchDir)

	for {
		n := ctrl.Len() + 1

		page, err := captureOne(ctx, ctrl, req, "folder", false)
		switch {
		case err == nil:
			statusOK.Fprint(os.Stderr, "✓ ")
			fmt.Fprintf(os.Stderr, "page %d claimed (%dx%d px)\n", n, page.Width, page.Height)
		case ctx.Err() != nil:
			return err
		case errors.Is(err, device.ErrCaptureTimeout):
			statusWarn.Fprint(os.Stderr, "⚠ ")
			fmt.Fprintf(os.Stderr, "no file appeared within %s\n", cfg.Capture.Timeout)
		default:
			statusFail.Fprint(os.Stderr, "✗ ")
			fmt.Fprintf(os.Stderr, "page %d failed: %v\n", n, err)
		}

		fmt.Fprintf(os.Stderr, "Enter to wait for the next page, c to commit %d page(s), q to discard: ", ctrl.Len())
		line, rerr := in.ReadString('\n')
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return rerr
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "c":
			return commitAndReport(ctx, ctrl)
		case "q":
			if err := ctrl.Clear(); err != nil {
				log.Warn().Err(err).Msg("session cleanup failed")
			}
			fmt.Fprintln(os.Stderr, "Session discarded.")
			return nil
		}
		if errors.Is(rerr, io.EOF) {
			return commitAndReport(ctx, ctrl)
		}
	}
}
