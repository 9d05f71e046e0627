// Package worker owns job lifecycles: it runs jobs handed over by the run
// loop, cancels them on request, and drains on shutdown.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/buildagent/internal/dispatch"
	"git.home.luguber.info/inful/buildagent/internal/logfields"
	"git.home.luguber.info/inful/buildagent/internal/metrics"
)

// JobRunner executes one job to completion. The context is canceled when the
// job is canceled or the dispatcher shuts down.
type JobRunner func(ctx context.Context, job *dispatch.JobRequest) error

// Dispatcher runs jobs concurrently; each job's acquisitions run
// sequentially inside its runner.
type Dispatcher struct {
	runner   JobRunner
	recorder metrics.Recorder

	mu   sync.Mutex
	jobs map[string]*runningJob
	wg   sync.WaitGroup
}

type runningJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a dispatcher. recorder may be the NoopRecorder.
func New(runner JobRunner, recorder metrics.Recorder) *Dispatcher {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Dispatcher{
		runner:   runner,
		recorder: recorder,
		jobs:     map[string]*runningJob{},
	}
}

// Run starts a job without blocking. A duplicate job id is logged and
// dropped.
func (d *Dispatcher) Run(job *dispatch.JobRequest) {
	d.mu.Lock()
	if _, exists := d.jobs[job.JobID]; exists {
		d.mu.Unlock()
		slog.Warn("Duplicate job request ignored", logfields.JobID(job.JobID))
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	rj := &runningJob{cancel: cancel, done: make(chan struct{})}
	d.jobs[job.JobID] = rj
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer close(rj.done)
		defer func() {
			d.mu.Lock()
			delete(d.jobs, job.JobID)
			d.mu.Unlock()
		}()

		slog.Info("Job started", logfields.JobID(job.JobID))
		start := time.Now()
		err := d.runner(ctx, job)
		d.recorder.ObserveJobDuration(time.Since(start))
		if err != nil {
			d.recorder.IncJobOutcome(metrics.ResultFailed)
			slog.Error("Job failed", logfields.JobID(job.JobID), logfields.Error(err))
			return
		}
		d.recorder.IncJobOutcome(metrics.ResultSuccess)
		slog.Info("Job finished", logfields.JobID(job.JobID))
	}()
}

// Cancel stops a running job. Returns false when the job is not running
// (already finished, or never arrived here).
func (d *Dispatcher) Cancel(c *dispatch.JobCancel) bool {
	d.mu.Lock()
	rj, ok := d.jobs[c.JobID]
	d.mu.Unlock()
	if !ok {
		return false
	}
	slog.Info("Job cancel requested", logfields.JobID(c.JobID))
	rj.cancel()
	return true
}

// Running reports the number of in-flight jobs.
func (d *Dispatcher) Running() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

// Shutdown cancels nothing but waits for in-flight jobs to finish, bounded
// by ctx. On ctx expiry the remaining jobs are canceled and awaited until
// they unwind.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	// Grace period expired: cancel stragglers and wait for them to unwind.
	d.mu.Lock()
	for id, rj := range d.jobs {
		slog.Warn("Forcing job cancellation on shutdown", logfields.JobID(id))
		rj.cancel()
	}
	d.mu.Unlock()
	<-done
	return ctx.Err()
}
