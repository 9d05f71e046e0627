package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	acquisitionDuration *prom.HistogramVec
	acquisitionOutcome  *prom.CounterVec
	jobDuration         prom.Histogram
	jobOutcome          *prom.CounterVec
	messages            *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the agent metrics on reg
// (a private registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		acquisitionDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "buildagent",
			Name:      "acquisition_duration_seconds",
			Help:      "Duration of individual repository acquisitions",
			Buckets:   prom.DefBuckets,
		}, []string{"repo", "result"}),
		acquisitionOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildagent",
			Name:      "acquisition_outcomes_total",
			Help:      "Acquisition outcomes by final status",
		}, []string{"outcome"}),
		jobDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "buildagent",
			Name:      "job_duration_seconds",
			Help:      "Total job duration",
			Buckets:   prom.DefBuckets,
		}),
		jobOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildagent",
			Name:      "job_outcomes_total",
			Help:      "Job outcomes by final status",
		}, []string{"outcome"}),
		messages: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildagent",
			Name:      "dispatcher_messages_total",
			Help:      "Dispatcher messages received by type",
		}, []string{"type"}),
	}
	reg.MustRegister(
		pr.acquisitionDuration,
		pr.acquisitionOutcome,
		pr.jobDuration,
		pr.jobOutcome,
		pr.messages,
	)
	return pr
}

func (p *PrometheusRecorder) ObserveAcquisitionDuration(repo string, d time.Duration, success bool) {
	result := string(ResultSuccess)
	if !success {
		result = string(ResultFailed)
	}
	p.acquisitionDuration.WithLabelValues(repo, result).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncAcquisitionOutcome(outcome ResultLabel) {
	p.acquisitionOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveJobDuration(d time.Duration) {
	p.jobDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncJobOutcome(outcome ResultLabel) {
	p.jobOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncMessage(messageType string) {
	p.messages.WithLabelValues(messageType).Inc()
}
