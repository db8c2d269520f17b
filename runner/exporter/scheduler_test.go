package exporter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context) (*RunResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RunResult), args.Error(1)
}

func TestScheduler_RepeatsUntilCancelled(t *testing.T) {
	log, hook := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := new(MockRunner)
	calls := 0
	runner.On("Run", mock.Anything).Return(&RunResult{Committed: true}, nil).Times(2)
	runner.On("Run", mock.Anything).Return(&RunResult{}, errors.New("authentication failed")).Run(func(args mock.Arguments) {
		cancel()
	}).Once()

	var observed []error
	s := NewScheduler(runner, 5*time.Millisecond, func(result *RunResult, err error) {
		calls++
		observed = append(observed, err)
	}, log)

	require.NoError(t, s.Run(ctx))

	runner.AssertNumberOfCalls(t, "Run", 3)
	assert.Equal(t, 3, calls)
	assert.NoError(t, observed[0])
	assert.NoError(t, observed[1])
	assert.EqualError(t, observed[2], "authentication failed")

	// the failure coincided with cancellation, so it is not logged as an error
	for _, entry := range hook.AllEntries() {
		assert.NotEqual(t, "Metrics collection failed, keeping previous textfile", entry.Message)
	}
}

func TestScheduler_LogsFailedRuns(t *testing.T) {
	log, hook := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := new(MockRunner)
	runner.On("Run", mock.Anything).Return(nil, errors.New("unexpected status code")).Once()
	runner.On("Run", mock.Anything).Return(&RunResult{Committed: true}, nil).Run(func(args mock.Arguments) {
		cancel()
	}).Once()

	s := NewScheduler(runner, time.Millisecond, nil, log)
	require.NoError(t, s.Run(ctx))

	runner.AssertExpectations(t)

	var messages []string
	for _, entry := range hook.AllEntries() {
		messages = append(messages, entry.Message)
	}
	assert.Contains(t, messages, "Metrics collection failed, keeping previous textfile")
}
