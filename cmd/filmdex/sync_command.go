package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"filmdex/internal/ingest"
)

type syncReport struct {
	User    string `json:"user"`
	Path    string `json:"path"`
	Fetched int    `json:"fetched"`
	Added   int    `json:"added"`
	DryRun  bool   `json:"dry_run,omitempty"`
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var (
		user      string
		csvPath   string
		limit     int
		stopAfter int
		dryRun    bool
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Merge new diary feed entries into a CSV export",
		Long: `Sync pulls the member's public diary RSS feed and appends entries the
CSV export does not have yet, so the export stays current between full
downloads. Entries dedupe on title and year; the walk stops once the
feed lines up with the newest rows already in the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(user) == "" || strings.TrimSpace(csvPath) == "" {
				return errors.New("both --user and --csv are required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := newCLILogger(cfg, "cli-sync")
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			feed, err := a.client.FetchFeed(cmd.Context(), user)
			if err != nil {
				return err
			}
			items, err := ingest.ReadFeed(bytes.NewReader(feed))
			if err != nil {
				return fmt.Errorf("read feed: %w", err)
			}
			fetched := len(items)
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}

			file, err := os.Open(csvPath)
			if err != nil {
				return fmt.Errorf("open diary csv: %w", err)
			}
			diary, err := ingest.ReadDiary(file)
			file.Close()
			if err != nil {
				return fmt.Errorf("read diary csv: %w", err)
			}

			added := diary.MergeFeed(items, stopAfter)
			if !dryRun && added > 0 {
				if err := writeDiary(csvPath, diary); err != nil {
					return err
				}
			}

			if jsonOut {
				return writeJSON(cmd, syncReport{
					User:    user,
					Path:    csvPath,
					Fetched: fetched,
					Added:   added,
					DryRun:  dryRun,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Feed entries: %d\n", fetched)
			fmt.Fprintf(out, "New diary rows: %d\n", added)
			switch {
			case dryRun:
				fmt.Fprintln(out, "Dry run: no files written.")
			case added > 0:
				fmt.Fprintf(out, "Updated %s\n", csvPath)
			default:
				fmt.Fprintln(out, "Diary already up to date.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Letterboxd username whose diary feed is pulled")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Diary CSV export to merge new entries into")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum feed entries to consider")
	cmd.Flags().IntVar(&stopAfter, "stop-after", 2, "Stop after this many consecutive entries already at the top of the diary")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit a JSON report")

	return cmd
}

func writeDiary(path string, diary *ingest.Diary) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write diary csv: %w", err)
	}
	if err := diary.Write(file); err != nil {
		file.Close()
		return fmt.Errorf("write diary csv: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("write diary csv: %w", err)
	}
	return nil
}
