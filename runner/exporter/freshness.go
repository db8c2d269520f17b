package exporter

import (
	"time"

	"github.com/runpod-serverless-metrics/runner/types"
)

// IsStale reports whether the sample is older than window at now.
// A sample exactly window old is still fresh; one from the future is fresh.
func IsStale(sample *types.Sample, now time.Time, window time.Duration) (bool, error) {
	ts, err := sample.Timestamp()
	if err != nil {
		return false, err
	}
	return now.UTC().Sub(ts) > window, nil
}
