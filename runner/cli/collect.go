package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/runpod-serverless-metrics/runner/config"
	"github.com/runpod-serverless-metrics/runner/exporter"
	"github.com/runpod-serverless-metrics/runner/metrics"
	"github.com/runpod-serverless-metrics/runner/runpod"
)

func newCollectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Fetch metrics for all endpoints once and rewrite the textfile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd, opts)
		},
	}
}

func runCollect(cmd *cobra.Command, opts *options) error {
	log, err := newLogger(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts, log)
	if err != nil {
		return err
	}

	collector := newCollector(cfg, log)
	result, runErr := collector.Run(cmd.Context())

	if cfg.SelfMetrics {
		recorder := metrics.NewRecorder(false)
		recorder.Observe(result, runErr)
		writeSelfMetrics(recorder, cfg, log)
	}

	return runErr
}

func newCollector(cfg *config.Config, log logrus.FieldLogger) *exporter.Collector {
	client := runpod.NewClientFromConfig(cfg, log)
	return exporter.NewCollector(cfg, client, log)
}

func writeSelfMetrics(recorder *metrics.Recorder, cfg *config.Config, log logrus.FieldLogger) {
	if err := recorder.WriteTextfile(cfg.TextfilePath); err != nil {
		log.WithError(err).Warn("Failed to write exporter self metrics")
	}
}
