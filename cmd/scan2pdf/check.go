package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/SummittDweller/D35-Scan-to-PDF/internal/device"
	"github.com/SummittDweller/D35-Scan-to-PDF/internal/history"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify scanner tooling and directories",
	Long: `Check probes the capture backends and verifies the directories and
history database scan2pdf needs. Run it after installing SANE or when
captures fail unexpectedly.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := appConfig()
	log := newLogger(cmd, cfg)
	ctx := cmd.Context()

	failures := 0
	hardware := 0

	for _, st := range device.Probe(ctx, cfg.Capture, log) {
		if st.Available {
			statusOK.Print("✓ ")
			fmt.Printf("capture method %-14s %s\n", st.Name, st.Detail)
			if st.Name == device.MethodSANE || st.Name == device.MethodImageCapture {
				hardware++
			}
		} else {
			statusFail.Print("✗ ")
			fmt.Printf("capture method %-14s not available\n", st.Name)
		}
	}
	if hardware == 0 {
		statusWarn.Print("⚠ ")
		fmt.Println("no scanner command line found; captures rely on manual import")
	}

	if err := checkWritable(cfg.Output.Dir); err != nil {
		statusFail.Print("✗ ")
		fmt.Printf("output directory %s: %v\n", cfg.Output.Dir, err)
		failures++
	} else {
		statusOK.Print("✓ ")
		fmt.Printf("output directory %s is writable\n", cfg.Output.Dir)
	}

	if err := os.MkdirAll(cfg.Capture.WatchDir, 0o755); err != nil {
		statusFail.Print("✗ ")
		fmt.Printf("watch directory %s: %v\n", cfg.Capture.WatchDir, err)
		failures++
	} else {
		statusOK.Print("✓ ")
		fmt.Printf("watch directory %s exists\n", cfg.Capture.WatchDir)
	}

	if store, err := history.Open(cfg.History, cfg.Output.Dir); err != nil {
		statusWarn.Print("⚠ ")
		fmt.Printf("history database: %v (scanning still works)\n", err)
	} else {
		store.Close()
		statusOK.Print("✓ ")
		fmt.Printf("history database at %s\n", history.DBPath(cfg.History, cfg.Output.Dir))
	}

	if failures > 0 {
		return fmt.Errorf("%d check(s) failed", failures)
	}
	return nil
}

// checkWritable creates dir if needed and proves a file can land in it.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".scan2pdf-check")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}
