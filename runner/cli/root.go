package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/runpod-serverless-metrics/runner/config"
)

// options holds flags shared by all commands
type options struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
}

// NewRootCmd builds the command tree. Running the root command without a
// subcommand performs a single collection.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "runpod-exporter",
		Short:         "Export RunPod serverless endpoint metrics as a Prometheus textfile",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to YAML configuration file (default: config.yml next to the executable)")
	flags.StringVar(&opts.envFile, "env-file", "", "Dotenv file loaded before configuration substitution")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(newCollectCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newCheckCmd())

	return rootCmd
}

// Execute runs the root command and exits the process on failure.
// A missing configuration file is reported but is not a failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()

	os.Exit(exitCode(err, logrus.StandardLogger()))
}

// exitCode reports err and maps it to the process exit status
func exitCode(err error, log logrus.FieldLogger) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, config.ErrConfigNotFound):
		log.WithError(err).Error("Configuration file not found")
		return 0
	default:
		log.WithError(err).Error("Metrics export failed")
		return 1
	}
}

// newLogger configures a logger writing to out
func newLogger(out io.Writer, level, format string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(lvl)

	switch format {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}

	// errors reported by Execute use the same formatting
	logrus.SetFormatter(log.Formatter)
	return log, nil
}

// loadConfig loads the env file and the configuration selected by opts
func loadConfig(opts *options, log logrus.FieldLogger) (*config.Config, error) {
	if err := config.LoadEnvFile(opts.envFile, false, log); err != nil {
		return nil, err
	}

	path := opts.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	return config.LoadFromFile(path, log)
}
