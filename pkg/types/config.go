package types

import "time"

// CaptureConfig holds settings for the scan source adapter.
type CaptureConfig struct {
	// Method selects the capture backend: auto, sane, imagecapture,
	// applescript, or folder. Auto probes in priority order.
	Method string `json:"method" yaml:"method"`

	// Device is the default hardware device identifier passed to the
	// backend (SANE device name). Empty means the backend's default.
	Device string `json:"device,omitempty" yaml:"device,omitempty"`

	// Resolution is the default scan resolution in DPI (default 300).
	Resolution int `json:"resolution" yaml:"resolution"`

	// Mode is the default color mode (default color).
	Mode ColorMode `json:"mode" yaml:"mode"`

	// Timeout bounds a single capture attempt, including the wait for a
	// manually imported file (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// PollInterval is how often the watched folder is re-listed while
	// waiting for a manual import (default 1s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// WatchDir is the directory watched for manually imported scans
	// (default ~/Desktop, where Image Capture drops files).
	WatchDir string `json:"watch_dir" yaml:"watch_dir"`
}

// OutputConfig holds settings for committed PDFs.
type OutputConfig struct {
	// Dir is the directory committed PDFs are written to (default "scans").
	Dir string `json:"dir" yaml:"dir"`

	// Sidecar controls whether a YAML metadata sidecar is written next to
	// each committed PDF (default true).
	Sidecar bool `json:"sidecar" yaml:"sidecar"`
}

// HistoryConfig holds settings for the commit history store.
type HistoryConfig struct {
	// DBPath is the SQLite database path. Empty derives
	// [OutputConfig.Dir]/index/scan2pdf.db.
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`

	// MaxResults is the default maximum number of history entries listed
	// (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	// Level is the minimum level logged: debug, info, warn, or error.
	Level string `json:"level" yaml:"level"`

	// Format is "console" or "json".
	Format string `json:"format" yaml:"format"`
}

// AppConfig groups all configuration for the scan2pdf CLI.
type AppConfig struct {
	Capture CaptureConfig `json:"capture" yaml:"capture"`
	Output  OutputConfig  `json:"output" yaml:"output"`
	History HistoryConfig `json:"history" yaml:"history"`
	Log     LogConfig     `json:"log" yaml:"log"`
}
