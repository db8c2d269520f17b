package exporter

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Runner performs one collection run
type Runner interface {
	Run(ctx context.Context) (*RunResult, error)
}

// RunObserver is notified after every run, successful or not
type RunObserver func(result *RunResult, err error)

// Scheduler repeats collection runs on a fixed interval. Runs never overlap.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	observe  RunObserver
	log      logrus.FieldLogger
}

// NewScheduler creates a scheduler; observe may be nil
func NewScheduler(runner Runner, interval time.Duration, observe RunObserver, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		observe:  observe,
		log:      log.WithField("component", "scheduler"),
	}
}

// Run collects immediately and then every interval until ctx is done.
// A failed run is logged and the previous textfile stays in place.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.interval).Info("Starting collection loop")

	for {
		s.runOnce(ctx)

		select {
		case <-ctx.Done():
			s.log.Info("Collection loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	result, err := s.runner.Run(ctx)
	if err != nil && ctx.Err() == nil {
		s.log.WithError(err).Error("Metrics collection failed, keeping previous textfile")
	}
	if s.observe != nil {
		s.observe(result, err)
	}
}
