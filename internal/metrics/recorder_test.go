package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveAcquisitionDuration("w", time.Second, true)
	r.IncAcquisitionOutcome(ResultSuccess)
	r.ObserveJobDuration(time.Second)
	r.IncJobOutcome(ResultFailed)
	r.IncMessage("JobRequest")
}

func TestPrometheusRecorderRegisters(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.ObserveAcquisitionDuration("w", 2*time.Second, true)
	r.IncAcquisitionOutcome(ResultSuccess)
	r.ObserveJobDuration(5 * time.Second)
	r.IncJobOutcome(ResultSuccess)
	r.IncMessage("JobRequest")
	r.IncMessage("JobRequest")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["buildagent_acquisition_duration_seconds"])
	assert.True(t, names["buildagent_acquisition_outcomes_total"])
	assert.True(t, names["buildagent_job_duration_seconds"])
	assert.True(t, names["buildagent_job_outcomes_total"])
	assert.True(t, names["buildagent_dispatcher_messages_total"])
}

func TestPrometheusRecorderFailureLabel(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)
	r.ObserveAcquisitionDuration("w", time.Second, false)

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() != "buildagent_acquisition_duration_seconds" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == "failed" {
					found = true
				}
			}
		}
	}
	assert.True(t, found)
}
