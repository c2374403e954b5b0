// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the scan2pdf CLI: capture pages from
// a document scanner, accumulate them in a session, and commit them to a
// single timestamped PDF.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SummittDweller/D35-Scan-to-PDF/internal/device"
	"github.com/SummittDweller/D35-Scan-to-PDF/internal/history"
	"github.com/SummittDweller/D35-Scan-to-PDF/internal/logging"
	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the scan2pdf CLI.
var rootCmd = &cobra.Command{
	Use:   "scan2pdf",
	Short: "Scan documents to multi-page PDFs",
	Long: `scan2pdf drives a document scanner, collects captured pages in a session,
and commits them to a single PDF named Scan_YYYYMMDD_HHMMSS.pdf.

Capture works through whichever backend the host offers: the SANE command
line, the macOS Image Capture tool, AppleScript automation, or a watched
folder for manual imports. Detection tries them in that order; no scanner
tooling at all still works via the watched folder.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load .env if present; absence is not an error.
		_ = godotenv.Load()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./scan2pdf.yaml or ~/.config/scan2pdf/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, or error")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("scan2pdf")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "scan2pdf"))
		}
	}

	viper.SetEnvPrefix("SCAN2PDF")
	viper.AutomaticEnv()

	viper.SetDefault("capture.method", device.MethodAuto)
	viper.SetDefault("capture.device", "")
	viper.SetDefault("capture.resolution", 300)
	viper.SetDefault("capture.mode", string(types.ModeColor))
	viper.SetDefault("capture.timeout", "30s")
	viper.SetDefault("capture.poll_interval", "1s")
	viper.SetDefault("capture.watch_dir", defaultWatchDir())
	viper.SetDefault("output.dir", "scans")
	viper.SetDefault("output.sidecar", true)
	viper.SetDefault("history.db_path", "")
	viper.SetDefault("history.max_results", 20)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// defaultWatchDir is where manually imported scans are expected: the
// Desktop, which is where Image Capture drops files by default.
func defaultWatchDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Desktop")
}

// appConfig assembles the runtime configuration from config file,
// environment, and defaults. Per-command flags override on top.
func appConfig() types.AppConfig {
	return types.AppConfig{
		Capture: types.CaptureConfig{
			Method:       viper.GetString("capture.method"),
			Device:       viper.GetString("capture.device"),
			Resolution:   viper.GetInt("capture.resolution"),
			Mode:         types.ColorMode(viper.GetString("capture.mode")),
			Timeout:      viper.GetDuration("capture.timeout"),
			PollInterval: viper.GetDuration("capture.poll_interval"),
			WatchDir:     viper.GetString("capture.watch_dir"),
		},
		Output: types.OutputConfig{
			Dir:     viper.GetString("output.dir"),
			Sidecar: viper.GetBool("output.sidecar"),
		},
		History: types.HistoryConfig{
			DBPath:     viper.GetString("history.db_path"),
			MaxResults: viper.GetInt("history.max_results"),
		},
		Log: types.LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
	}
}

func newLogger(cmd *cobra.Command, cfg types.AppConfig) zerolog.Logger {
	level := cfg.Log.Level
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		level = v
	}
	return logging.New(level, cfg.Log.Format)
}

// openHistory opens the commit history store. History is bookkeeping, not
// a commit dependency: when it cannot be opened scanning proceeds without it.
func openHistory(cfg types.AppConfig, log zerolog.Logger) *history.Store {
	store, err := history.Open(cfg.History, cfg.Output.Dir)
	if err != nil {
		log.Warn().Err(err).Msg("history disabled")
		return nil
	}
	return store
}

// Flag-over-config helpers: a flag the user set wins over the config value.

func flagString(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}

func flagInt(cmd *cobra.Command, name string, fallback int) int {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetInt(name)
		return v
	}
	return fallback
}

// Status markers for user-facing progress lines.
var (
	statusOK   = color.New(color.FgGreen)
	statusFail = color.New(color.FgRed)
	statusWarn = color.New(color.FgYellow)
)

func main() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
