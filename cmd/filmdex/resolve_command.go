package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"filmdex/internal/ingest"
	"filmdex/internal/pipeline"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var enrichRun bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "resolve URL...",
		Short: "Resolve film URLs to canonical form",
		Long: `Resolve accepts any mix of canonical, user-scoped, and boxd.it short
links, expands them, and prints one row per distinct film. With --enrich
each film is also matched against TMDB.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if enrichRun && strings.TrimSpace(cfg.TMDB.APIKey) == "" {
				return errors.New("enrichment requires tmdb api_key in the configuration")
			}

			logger, err := newCLILogger(cfg, "cli-resolve")
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			refs := ingest.FromURLs(args)
			result, err := a.pipeline.Run(cmd.Context(), refs, pipeline.RunOptions{Enrich: enrichRun})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, result.Entries)
			}

			rows := make([][]string, 0, len(result.Entries))
			for _, entry := range result.Entries {
				tmdbID := ""
				if entry.TMDBID != 0 {
					tmdbID = strconv.FormatInt(entry.TMDBID, 10)
				}
				rows = append(rows, []string{
					entry.CanonicalURL,
					tmdbID,
					string(entry.Kind),
					entry.Error,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Film", "TMDB", "Kind", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&enrichRun, "enrich", false, "Match resolved films against TMDB")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit entries as JSON on stdout")

	return cmd
}
