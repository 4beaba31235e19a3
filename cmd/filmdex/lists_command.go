package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

func newListsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Show configured curated lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(cfg.Lists.Files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No curated lists configured (add entries under [lists.files] in config.toml)")
				return nil
			}

			logger, err := newCLILogger(cfg, "cli-lists")
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			names := make([]string, 0, len(cfg.Lists.Files))
			for name := range cfg.Lists.Files {
				names = append(names, name)
			}
			sort.Strings(names)

			type listRow struct {
				Name   string `json:"name"`
				Source string `json:"source"`
				Films  int    `json:"films"`
				Error  string `json:"error,omitempty"`
			}
			entries := make([]listRow, 0, len(names))
			for _, name := range names {
				path := cfg.Lists.Files[name]
				row := listRow{Name: name, Source: path}
				set, err := a.lists.Load(cmd.Context(), name, path)
				if err != nil {
					row.Error = err.Error()
				} else {
					row.Films = set.Len()
				}
				entries = append(entries, row)
			}

			if jsonOut {
				return writeJSON(cmd, entries)
			}

			rows := make([][]string, 0, len(entries))
			for _, row := range entries {
				films := strconv.Itoa(row.Films)
				if row.Error != "" {
					films = "error: " + row.Error
				}
				rows = append(rows, []string{row.Name, row.Source, films})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"List", "Source", "Films"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit list details as JSON on stdout")

	return cmd
}
