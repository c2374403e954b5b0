package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SummittDweller/D35-Scan-to-PDF/internal/device"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture methods and detected scanners",
	Long: `Devices probes every capture backend and reports which are usable on
this host. When the SANE tools are available it also lists the scanner
hardware they detect.`,
	RunE: runDevices,
}

func init() {
	devicesCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg := appConfig()
	log := newLogger(cmd, cfg)
	ctx := cmd.Context()

	statuses := device.Probe(ctx, cfg.Capture, log)

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	fmt.Printf("%-14s  %-12s  %s\n", "Method", "Status", "Detail")
	saneAvailable := false
	for _, st := range statuses {
		if st.Name == device.MethodSANE && st.Available {
			saneAvailable = true
		}
		fmt.Printf("%-14s  ", st.Name)
		if st.Available {
			statusOK.Printf("%-12s", "available")
		} else {
			statusFail.Printf("%-12s", "unavailable")
		}
		fmt.Printf("  %s\n", st.Detail)
	}

	if !saneAvailable {
		return nil
	}

	scanners, err := device.ListScanners(ctx)
	if err != nil {
		statusWarn.Fprint(os.Stderr, "⚠ ")
		fmt.Fprintf(os.Stderr, "scanner listing failed: %v\n", err)
		return nil
	}

	fmt.Println()
	if len(scanners) == 0 {
		fmt.Println("No scanners identified. Check connections and SANE configuration.")
		return nil
	}
	fmt.Println("Scanners:")
	for _, s := range scanners {
		fmt.Printf("  %s\n", s)
	}
	return nil
}
