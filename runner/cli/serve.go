package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runpod-serverless-metrics/runner/api"
	"github.com/runpod-serverless-metrics/runner/exporter"
	"github.com/runpod-serverless-metrics/runner/metrics"
)

func newServeCmd(opts *options) *cobra.Command {
	var (
		listenAddr string
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Collect on an interval and serve the textfile over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("interval must be greater than 0")
			}

			log, err := newLogger(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(opts, log)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			recorder := metrics.NewRecorder(true)

			server := api.NewServer(listenAddr, cfg.OutputPath(), recorder.Gatherer(), log)
			if err := server.Start(ctx); err != nil {
				return fmt.Errorf("failed to start HTTP server: %w", err)
			}
			defer server.Stop()

			scheduler := exporter.NewScheduler(newCollector(cfg, log), interval, func(result *exporter.RunResult, err error) {
				recorder.Observe(result, err)
				if cfg.SelfMetrics {
					writeSelfMetrics(recorder, cfg, log)
				}
			}, log)

			return scheduler.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", ":9877", "Address to serve metrics on")
	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Minute, "Time between collection runs")

	return cmd
}
