// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SummittDweller/D35-Scan-to-PDF/internal/artifact"
	"github.com/SummittDweller/D35-Scan-to-PDF/internal/history"
	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List committed PDFs",
	Long: `History lists past commits from the local history database, newest
first. When the database is unavailable it falls back to the metadata
sidecars next to the PDFs in the output directory.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 0, "maximum entries to list (0 = config default)")
	historyCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := appConfig()
	log := newLogger(cmd, cfg)
	limit, _ := cmd.Flags().GetInt("limit")

	var (
		commits []types.Artifact
		err     error
	)
	store, openErr := history.Open(cfg.History, cfg.Output.Dir)
	if openErr == nil {
		defer store.Close()
		commits, err = store.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
	} else {
		log.Warn().Err(openErr).Msg("history database unavailable, reading sidecars")
		commits = sidecarHistory(cfg.Output.Dir, limit, cfg.History.MaxResults)
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(commits)
	}

	if len(commits) == 0 {
		fmt.Println("No commits recorded.")
		return nil
	}

	fmt.Printf("%-28s  %5s  %-7s  %4s  %-19s  %s\n",
		"File", "Pages", "Mode", "DPI", "Created", "Source")
	fmt.Println(strings.Repeat("-", 80))
	for _, a := range commits {
		fmt.Printf("%-28s  %5d  %-7s  %4d  %-19s  %s\n",
			a.Filename, a.Pages, a.Mode, a.Resolution,
			a.CreatedAt.Local().Format("2006-01-02 15:04:05"), a.Source)
	}
	fmt.Printf("\n%d commit(s)\n", len(commits))
	return nil
}

// sidecarHistory reconstructs the commit list from YAML sidecars when the
// database cannot be opened.
func sidecarHistory(outputDir string, limit, defaultLimit int) []types.Artifact {
	matches, err := filepath.Glob(filepath.Join(outputDir, "*"+artifact.Extension))
	if err != nil {
		return nil
	}

	var commits []types.Artifact
	for _, pdfPath := range matches {
		a, err := artifact.ReadSidecar(pdfPath)
		if err != nil {
			continue
		}
		commits = append(commits, *a)
	}

	sort.Slice(commits, func(i, j int) bool {
		return commits[i].CreatedAt.After(commits[j].CreatedAt)
	})

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit <= 0 {
		limit = 20
	}
	if len(commits) > limit {
		commits = commits[:limit]
	}
	return commits
}
