package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name     string
	schedule Schedule
	err      error
	runs     int
}

func (j *stubJob) Name() string       { return j.name }
func (j *stubJob) Schedule() Schedule { return j.schedule }
func (j *stubJob) Execute(ctx context.Context) error {
	j.runs++
	return j.err
}

func TestSchedulerService_AddJobAndRun(t *testing.T) {
	scheduler := NewSchedulerService()
	job := &stubJob{name: "alerts", schedule: Hourly}

	require.NoError(t, scheduler.AddJob(job))
	assert.Equal(t, 1, scheduler.GetJobCount())

	require.NoError(t, scheduler.RunJob(context.Background(), "alerts"))
	assert.Equal(t, 1, job.runs)
}

func TestSchedulerService_RunJobErrors(t *testing.T) {
	scheduler := NewSchedulerService()
	failing := &stubJob{name: "failing", schedule: Daily, err: errors.New("boom")}
	require.NoError(t, scheduler.AddJob(failing))

	assert.EqualError(t, scheduler.RunJob(context.Background(), "failing"), "boom")
	assert.EqualError(t, scheduler.RunJob(context.Background(), "missing"), "job not found")
}

func TestSchedulerService_UnknownSchedule(t *testing.T) {
	scheduler := NewSchedulerService()
	assert.Error(t, scheduler.AddJob(&stubJob{name: "odd", schedule: Schedule(42)}))
	assert.Equal(t, 0, scheduler.GetJobCount())
}

func TestSchedulerService_StartStop(t *testing.T) {
	scheduler := NewSchedulerService()
	ctx := context.Background()

	require.NoError(t, scheduler.Start(ctx))
	assert.False(t, scheduler.IsRunning(), "no jobs means no start")

	require.NoError(t, scheduler.AddJob(&stubJob{name: "hourly", schedule: Hourly}))
	require.NoError(t, scheduler.Start(ctx))
	assert.True(t, scheduler.IsRunning())

	require.NoError(t, scheduler.Stop(ctx))
	assert.False(t, scheduler.IsRunning())
}
