package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"filmdex/internal/ingest"
	"filmdex/internal/pipeline"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var (
		csvPath   string
		rssUser   string
		outPath   string
		enrichRun bool
		maxEnrich int
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a film index from a watched-films export or diary feed",
		Long: `Build runs the full pipeline: ingest film references, collapse duplicate
and short-form URLs into canonical film pages, and optionally match each
film against TMDB and attach its metadata.

Examples:
  filmdex build --csv watched.csv
  filmdex build --csv watched.csv --enrich --max 100
  filmdex build --rss katswnt --out diary.json --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (csvPath == "") == (rssUser == "") {
				return errors.New("exactly one of --csv or --rss is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if enrichRun && strings.TrimSpace(cfg.TMDB.APIKey) == "" {
				return errors.New("enrichment requires tmdb api_key in the configuration")
			}

			logger, err := newCLILogger(cfg, "cli-build")
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			refs, err := readBuildReferences(cmd, a, csvPath, rssUser)
			if err != nil {
				return err
			}

			opts := pipeline.RunOptions{Enrich: enrichRun, MaxEnrich: maxEnrich}
			return runBatch(cmd, a, refs, opts, outPath, jsonOut)
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "Path to a Letterboxd watched-films CSV export")
	cmd.Flags().StringVar(&rssUser, "rss", "", "Letterboxd username whose diary feed seeds the index")
	cmd.Flags().StringVarP(&outPath, "out", "o", "filmdex-index.json", "Write the index JSON to this file")
	cmd.Flags().BoolVar(&enrichRun, "enrich", false, "Match films against TMDB and attach metadata")
	cmd.Flags().IntVar(&maxEnrich, "max", 0, "Cap the number of films enriched this run")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the full index as JSON on stdout")

	return cmd
}

func readBuildReferences(cmd *cobra.Command, a *app, csvPath, rssUser string) ([]ingest.Reference, error) {
	if csvPath != "" {
		file, err := os.Open(csvPath)
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		defer file.Close()
		refs, err := ingest.ReadCSV(file, ingest.CSVOptions{})
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		return refs, nil
	}

	feed, err := a.client.FetchFeed(cmd.Context(), rssUser)
	if err != nil {
		return nil, err
	}
	refs, err := ingest.ReadRSS(bytes.NewReader(feed))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	return refs, nil
}
