package metrics

import "time"

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for the run loop and acquisitions.
// Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObserveAcquisitionDuration(repo string, d time.Duration, success bool)
	IncAcquisitionOutcome(outcome ResultLabel)
	ObserveJobDuration(d time.Duration)
	IncJobOutcome(outcome ResultLabel)
	IncMessage(messageType string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveAcquisitionDuration(string, time.Duration, bool) {}
func (NoopRecorder) IncAcquisitionOutcome(ResultLabel)                      {}
func (NoopRecorder) ObserveJobDuration(time.Duration)                       {}
func (NoopRecorder) IncJobOutcome(ResultLabel)                              {}
func (NoopRecorder) IncMessage(string)                                      {}
