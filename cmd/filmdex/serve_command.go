package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"filmdex/internal/httpapi"
	"filmdex/internal/logging"
	"filmdex/internal/pipeline"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Serve exposes the pipeline over HTTP: health checks, batch job
submission, and job status polling. Only one instance may run per state
directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(bind) != "" {
				cfg.Paths.APIBind = strings.TrimSpace(bind)
			}

			runID := time.Now().UTC().Format("20060102T150405")
			logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("filmdex-%s.log", runID))
			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stdout", logPath},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			lock := flock.New(filepath.Join(cfg.Paths.StateDir, "filmdex.lock"))
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return errors.New("another filmdex instance is already running")
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					logger.Warn("failed to release instance lock", logging.Error(err))
				}
			}()

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			tracker := pipeline.NewTracker(cfg.JobRetention(), logger)
			defer tracker.Close()

			server := httpapi.New(cfg, a.pipeline, tracker, a.store, a.notifier, logger)
			if server == nil {
				return errors.New("api server is not configured (set paths.api_bind)")
			}
			if err := server.Start(cmd.Context()); err != nil {
				return fmt.Errorf("start api server: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Filmdex API listening on %s\n", server.Addr())

			<-cmd.Context().Done()
			logger.Info("filmdex shutting down")
			server.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Bind address override (host:port)")

	return cmd
}
