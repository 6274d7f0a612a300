package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idea-incubator-backend/pkg/metrics"
)

type fakeSender struct {
	calls int32
	sent  int
	err   error
}

func (f *fakeSender) SendDueReminders(ctx context.Context) (int, error) {
	atomic.AddInt32(&f.calls, 1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("expected a deadline")
	}
	return f.sent, f.err
}

type fakeCleaner struct{ calls int }

func (f *fakeCleaner) Cleanup() int {
	f.calls++
	return 2
}

func TestAddRejectsInvalidSpec(t *testing.T) {
	s := NewScheduler(time.Second)
	err := s.Add("broken", "every tuesday", Reminders(&fakeSender{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Add(JobTaskReminders, "@hourly", Reminders(&fakeSender{})))
	require.NoError(t, s.Add(JobLimiterCleanup, "*/10 * * * *", Cleanup(&fakeCleaner{})))
	assert.Equal(t, 2, s.Len())
}

func TestRunRecordsOutcome(t *testing.T) {
	s := NewScheduler(time.Second)

	ok := &fakeSender{sent: 3}
	s.run("test_reminders_ok", Reminders(ok))
	failing := &fakeSender{err: errors.New("store down")}
	s.run("test_reminders_fail", Reminders(failing))

	assert.EqualValues(t, 1, ok.calls)
	assert.EqualValues(t, 1, failing.calls)
	assert.Equal(t, 1.0, jobRuns(t, "test_reminders_ok", "true"))
	assert.Equal(t, 1.0, jobRuns(t, "test_reminders_fail", "false"))
	assert.Equal(t, 0.0, jobRuns(t, "test_reminders_ok", "false"))
}

func TestCleanupJob(t *testing.T) {
	c := &fakeCleaner{}
	require.NoError(t, Cleanup(c)(context.Background()))
	assert.Equal(t, 1, c.calls)
}

func TestStopWaitsForScheduler(t *testing.T) {
	s := NewScheduler(0)
	require.NoError(t, s.Add(JobLimiterCleanup, "@every 1h", Cleanup(&fakeCleaner{})))
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
	assert.Error(t, s.ctx.Err())
}

// jobRuns reads one series of the job counter from the shared registry.
func jobRuns(t *testing.T, job, success string) float64 {
	t.Helper()
	families, err := metrics.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "idea_incubator_jobs_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["job"] == job && labels["success"] == success {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
