package backfill

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/engage-api/internal/domain/model"
)

type fakeBackfiller struct {
	calls atomic.Int32
	err   error
}

func (f *fakeBackfiller) BackfillAll(context.Context) ([]model.BackfillStats, error) {
	f.calls.Add(1)
	return []model.BackfillStats{{JourneyID: "j1", Evaluated: 2, Converted: 1}, {JourneyID: "j2", Skipped: true}}, f.err
}

func TestNewRunner(t *testing.T) {
	_, err := NewRunner(RunnerOptions{Interval: time.Second})
	require.Error(t, err)

	_, err = NewRunner(RunnerOptions{Service: &fakeBackfiller{}})
	require.Error(t, err)

	r, err := NewRunner(RunnerOptions{Service: &fakeBackfiller{}, Interval: time.Second})
	require.NoError(t, err)
	assert.NotNil(t, r.logger)
}

func TestRunner_Run(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "passes repeat until cancelled"},
		{name: "failed passes keep the loop alive", err: errors.New("journey j1: boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeBackfiller{err: tt.err}
			r, err := NewRunner(RunnerOptions{Service: svc, Interval: 20 * time.Millisecond})
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- r.Run(ctx) }()

			assert.Eventually(t, func() bool { return svc.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
			cancel()

			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(time.Second):
				t.Fatal("Run did not stop after context cancellation")
			}
		})
	}
}

func TestRunner_StopsDuringJitter(t *testing.T) {
	svc := &fakeBackfiller{}
	r, err := NewRunner(RunnerOptions{Service: svc, Interval: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, r.Run(ctx))
	assert.Zero(t, svc.calls.Load())
}
