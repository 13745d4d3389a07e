package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingJob captures the context of its first invocation
type recordingJob struct {
	ran chan context.Context
}

func (j *recordingJob) Name() string { return "recording" }

func (j *recordingJob) Run(ctx context.Context) error {
	select {
	case j.ran <- ctx:
	default:
	}
	return nil
}

func TestAddJob_RejectsInvalidSchedule(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	s := New(log)

	err := s.AddJob("not a cron spec", 0, &recordingJob{ran: make(chan context.Context, 1)})
	assert.Error(t, err)
}

func TestAddJob_RunsJobWithDeadline(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	s := New(log)

	job := &recordingJob{ran: make(chan context.Context, 1)}
	require.NoError(t, s.AddJob("@every 1s", time.Minute, job))

	s.Start()
	defer s.Stop()

	select {
	case ctx := <-job.ran:
		deadline, ok := ctx.Deadline()
		require.True(t, ok, "job context should carry a deadline")
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
	case <-time.After(3 * time.Second):
		t.Fatal("job was not run")
	}
}

func TestAddJob_NoTimeoutMeansNoDeadline(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	s := New(log)

	job := &recordingJob{ran: make(chan context.Context, 1)}
	require.NoError(t, s.AddJob("@every 1s", 0, job))

	s.Start()
	defer s.Stop()

	select {
	case ctx := <-job.ran:
		_, ok := ctx.Deadline()
		assert.False(t, ok, "job context should be unbounded")
	case <-time.After(3 * time.Second):
		t.Fatal("job was not run")
	}
}
