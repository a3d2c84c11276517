package monitoring

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/isdelr/diary-be/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeMaintainer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeMaintainer) Maintain(context.Context) error {
	f.calls.Add(1)
	return f.err
}

func (f *fakeMaintainer) Name() string { return "fake" }

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(&fakeMaintainer{}, "every tuesday", nil)
	assert.Error(t, err)
}

func TestSchedulerRunOnce(t *testing.T) {
	m := metrics.New()
	ok := &fakeMaintainer{}
	s, err := NewScheduler(ok, "@daily", m)
	require.NoError(t, err)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, int32(1), ok.calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(m.MaintenanceRuns.WithLabelValues(metrics.ResultSuccess)), 0)

	failing := &fakeMaintainer{err: errors.New("disk full")}
	s, err = NewScheduler(failing, "@daily", m)
	require.NoError(t, err)
	assert.Error(t, s.RunOnce(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(m.MaintenanceRuns.WithLabelValues(metrics.ResultError)), 0)
}

func TestSchedulerFiresOnSchedule(t *testing.T) {
	target := &fakeMaintainer{}
	s, err := NewScheduler(target, "@every 1s", nil)
	require.NoError(t, err)

	s.Start()
	assert.False(t, s.Next().IsZero())
	require.Eventually(t, func() bool { return target.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestSample(t *testing.T) {
	stats, err := Sample(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, stats.DiskUsedBytes+stats.DiskFreeBytes)
	assert.GreaterOrEqual(t, stats.MemoryUsedPct, 0.0)
	assert.LessOrEqual(t, stats.MemoryUsedPct, 100.0)
}

func TestStatUpdaterPublishesGauges(t *testing.T) {
	m := metrics.New()
	su := NewStatUpdater(t.TempDir(), time.Hour, m)

	done := make(chan struct{})
	go func() {
		su.Run()
		close(done)
	}()

	require.Eventually(t, func() bool { return !su.Latest().SampledAt.IsZero() }, 5*time.Second, 20*time.Millisecond)
	assert.Positive(t, testutil.ToFloat64(m.DiskFreeBytes)+testutil.ToFloat64(m.DiskUsedBytes))

	su.Stop()
	su.Stop()
	<-done
}
