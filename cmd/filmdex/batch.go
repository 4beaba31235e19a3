package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"filmdex/internal/ingest"
	"filmdex/internal/logging"
	"filmdex/internal/pipeline"
)

// indexDocument is the on-disk shape of a built index.
type indexDocument struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Stats       pipeline.Stats    `json:"stats"`
	Films       []*pipeline.Entry `json:"films"`
	URIMap      map[string]string `json:"uri_map"`
}

// runBatch executes the pipeline over refs and reports the result on
// the command output. A non-empty outPath also persists the index.
func runBatch(cmd *cobra.Command, a *app, refs []ingest.Reference, opts pipeline.RunOptions, outPath string, jsonOut bool) error {
	start := time.Now()
	result, err := a.pipeline.Run(cmd.Context(), refs, opts)
	if err != nil {
		if notifyErr := a.notifier.NotifyError(cmd.Context(), err, "index build"); notifyErr != nil {
			a.logger.Warn("notification failed", logging.Error(notifyErr))
		}
		return err
	}
	elapsed := time.Since(start)

	doc := indexDocument{
		GeneratedAt: time.Now().UTC(),
		Stats:       result.Stats,
		Films:       result.Entries,
		URIMap:      result.URIMap(),
	}
	if outPath != "" {
		if err := writeIndex(outPath, doc); err != nil {
			return err
		}
	}

	notifyCtx := cmd.Context()
	if err := a.notifier.NotifyBatchCompleted(notifyCtx, result.Stats.Films, result.Stats.Enriched, result.Stats.Errors, elapsed); err != nil {
		a.logger.Warn("notification failed", logging.Error(err))
	}

	if jsonOut {
		return writeJSON(cmd, doc)
	}

	printBatchSummary(cmd.OutOrStdout(), result, elapsed)
	if outPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote index to %s\n", outPath)
	}
	return nil
}

func writeIndex(path string, doc indexDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	data = append(data, '\n')
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure index directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

func printBatchSummary(out io.Writer, result *pipeline.Result, elapsed time.Duration) {
	stats := result.Stats
	rows := [][]string{
		{"References", strconv.Itoa(stats.References)},
		{"Films", strconv.Itoa(stats.Films)},
		{"Enriched", strconv.Itoa(stats.Enriched)},
		{"Cache hits", strconv.Itoa(stats.CacheHits)},
		{"Cache misses", strconv.Itoa(stats.CacheMisses)},
		{"Errors", strconv.Itoa(stats.Errors)},
		{"Retracted", strconv.Itoa(stats.Retracted)},
		{"Duration", elapsed.Round(time.Millisecond).String()},
	}
	fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	printEntryErrors(out, result.Entries)
}

func printEntryErrors(out io.Writer, entries []*pipeline.Entry) {
	var failed []*pipeline.Entry
	for _, entry := range entries {
		if entry.Error != "" {
			failed = append(failed, entry)
		}
	}
	if len(failed) == 0 {
		return
	}
	fmt.Fprintln(out, "Failed entries:")
	for _, entry := range failed {
		fmt.Fprintf(out, "  - %s: %s\n", entry.CanonicalURL, entry.Error)
	}
}
