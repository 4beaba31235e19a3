package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"filmdex/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the resolution cache",
	}

	cacheCmd.AddCommand(newCachePingCommand(ctx))
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))

	return cacheCmd
}

func newCachePingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the cache backend is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, backend, err := openCacheStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if !store.Ping(cmd.Context()) {
				return fmt.Errorf("cache backend %q is not reachable", backend)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cache backend %q reachable\n", backend)
			return nil
		},
	}
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache backend usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, backend, err := openCacheStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend:   %s\n", backend)
			fmt.Fprintf(out, "Reachable: %s\n", yesNo(store.Ping(cmd.Context())))
			fmt.Fprintf(out, "Entries:   %d\n", store.Count(cmd.Context()))
			return nil
		},
	}
}

func openCacheStore(ctx *commandContext) (cache.Store, string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	logger, err := newCLILogger(cfg, "cli-cache")
	if err != nil {
		return nil, "", err
	}
	return cache.NewFromConfig(cfg, logger), cfg.Cache.Backend, nil
}
