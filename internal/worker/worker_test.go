package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildagent/internal/dispatch"
	"git.home.luguber.info/inful/buildagent/internal/metrics"
)

func TestRunExecutesJob(t *testing.T) {
	var ran atomic.Bool
	done := make(chan struct{})
	d := New(func(ctx context.Context, job *dispatch.JobRequest) error {
		ran.Store(true)
		close(done)
		return nil
	}, metrics.NoopRecorder{})

	d.Run(&dispatch.JobRequest{JobID: "j1"})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job never ran")
	}
	require.NoError(t, d.Shutdown(context.Background()))
	assert.True(t, ran.Load())
	assert.Equal(t, 0, d.Running())
}

func TestCancelStopsRunningJob(t *testing.T) {
	started := make(chan struct{})
	d := New(func(ctx context.Context, job *dispatch.JobRequest) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, metrics.NoopRecorder{})

	d.Run(&dispatch.JobRequest{JobID: "j1"})
	<-started
	assert.True(t, d.Cancel(&dispatch.JobCancel{JobID: "j1"}))
	require.NoError(t, d.Shutdown(context.Background()))
}

func TestCancelUnknownJobReturnsFalse(t *testing.T) {
	d := New(func(ctx context.Context, job *dispatch.JobRequest) error { return nil }, nil)
	assert.False(t, d.Cancel(&dispatch.JobCancel{JobID: "nope"}))
}

func TestDuplicateJobIgnored(t *testing.T) {
	block := make(chan struct{})
	var runs atomic.Int32
	d := New(func(ctx context.Context, job *dispatch.JobRequest) error {
		runs.Add(1)
		<-block
		return nil
	}, metrics.NoopRecorder{})

	d.Run(&dispatch.JobRequest{JobID: "j1"})
	d.Run(&dispatch.JobRequest{JobID: "j1"})
	// give the second Run a chance to (incorrectly) start
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	close(block)
	require.NoError(t, d.Shutdown(context.Background()))
}

func TestShutdownWaitsForJobs(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool
	d := New(func(ctx context.Context, job *dispatch.JobRequest) error {
		<-release
		finished.Store(true)
		return nil
	}, metrics.NoopRecorder{})

	d.Run(&dispatch.JobRequest{JobID: "j1"})
	go func() {
		time.Sleep(100 * time.Millisecond)
		close(release)
	}()
	require.NoError(t, d.Shutdown(context.Background()))
	assert.True(t, finished.Load())
}

func TestShutdownForcesCancelAfterDeadline(t *testing.T) {
	started := make(chan struct{})
	d := New(func(ctx context.Context, job *dispatch.JobRequest) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, metrics.NoopRecorder{})

	d.Run(&dispatch.JobRequest{JobID: "j1"})
	<-started
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := d.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, d.Running())
}
