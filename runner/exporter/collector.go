package exporter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/runpod-serverless-metrics/runner/config"
	"github.com/runpod-serverless-metrics/runner/runpod"
	"github.com/runpod-serverless-metrics/runner/types"
)

// SampleSource returns the latest sample for an endpoint, or nil when there is none
type SampleSource interface {
	LatestSample(ctx context.Context, endpoint config.Endpoint) (*types.Sample, error)
}

// RunResult summarizes one collection run
type RunResult struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Written   []string
	Stale     []string
	Empty     []string
	Committed bool
}

// Collector runs the fetch, filter, format and write pipeline over all endpoints
type Collector struct {
	cfg    *config.Config
	source SampleSource
	writer *TextfileWriter
	now    func() time.Time
	log    logrus.FieldLogger
}

// CollectorOption customizes a Collector
type CollectorOption func(*Collector)

// WithClock replaces the clock used for staleness checks
func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) {
		c.now = now
	}
}

// NewCollector creates a collector writing to cfg.OutputPath()
func NewCollector(cfg *config.Config, source SampleSource, log logrus.FieldLogger, opts ...CollectorOption) *Collector {
	c := &Collector{
		cfg:    cfg,
		source: source,
		writer: NewTextfileWriter(cfg.OutputPath(), log),
		now:    time.Now,
		log:    log.WithField("component", "collector"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes endpoints in configuration order. The first error stops the run
// and the destination file keeps its previous content.
func (c *Collector) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: c.now(),
	}
	log := c.log.WithField("run_id", result.RunID)

	err := c.run(ctx, log, result)
	result.Duration = c.now().Sub(result.StartedAt)

	if err != nil {
		if abortErr := c.writer.Abort(); abortErr != nil {
			log.WithError(abortErr).Warn("Failed to remove temp file")
		}
		return result, err
	}

	log.WithFields(logrus.Fields{
		"written":  len(result.Written),
		"stale":    len(result.Stale),
		"empty":    len(result.Empty),
		"duration": result.Duration,
		"path":     c.writer.Path(),
	}).Info("Metrics collection completed")

	return result, nil
}

func (c *Collector) run(ctx context.Context, log logrus.FieldLogger, result *RunResult) error {
	if err := c.writer.Begin(); err != nil {
		return err
	}

	window := c.cfg.SampleWindow()

	for _, endpoint := range c.cfg.Endpoints {
		if err := ctx.Err(); err != nil {
			return err
		}

		elog := log.WithField("endpoint", endpoint.Name)

		sample, err := c.source.LatestSample(ctx, endpoint)
		if err != nil {
			return fmt.Errorf("failed to collect metrics: %w", err)
		}

		if sample == nil {
			elog.Info("No samples returned for endpoint")
			result.Empty = append(result.Empty, endpoint.Name)
			continue
		}

		stale, err := IsStale(sample, c.now(), window)
		if err != nil {
			return &runpod.MalformedSampleError{Endpoint: endpoint.Name, Err: err}
		}
		if stale {
			elog.WithField("sample_time", sample.Time).Warn("Skipping stale sample")
			result.Stale = append(result.Stale, endpoint.Name)
			continue
		}

		if err := sample.Validate(); err != nil {
			return &runpod.MalformedSampleError{Endpoint: endpoint.Name, Err: err}
		}

		lines, err := FormatSample(c.cfg.MetricPrefix, endpoint.Name, sample)
		if err != nil {
			return fmt.Errorf("failed to format sample for %s endpoint: %w", endpoint.Name, err)
		}

		if err := c.writer.Append(lines); err != nil {
			return err
		}

		elog.WithField("sample_time", sample.Time).Debug("Wrote endpoint metrics")
		result.Written = append(result.Written, endpoint.Name)
	}

	if err := c.writer.Commit(); err != nil {
		return err
	}
	result.Committed = true

	return nil
}
