package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayCurves(t *testing.T) {
	fixed := NewPolicy(BackoffFixed, time.Second, 10*time.Second, 3)
	assert.Equal(t, time.Second, fixed.Delay(1))
	assert.Equal(t, time.Second, fixed.Delay(3))

	linear := NewPolicy(BackoffLinear, time.Second, 10*time.Second, 3)
	assert.Equal(t, time.Second, linear.Delay(1))
	assert.Equal(t, 3*time.Second, linear.Delay(3))

	exp := NewPolicy(BackoffExponential, time.Second, 10*time.Second, 6)
	assert.Equal(t, time.Second, exp.Delay(1))
	assert.Equal(t, 4*time.Second, exp.Delay(3))
	assert.Equal(t, 10*time.Second, exp.Delay(6), "capped at max")
}

func TestDelayZeroForNonPositiveAttempt(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, time.Duration(0), p.Delay(-1))
}

func TestNewPolicyFallbacks(t *testing.T) {
	p := NewPolicy("bogus", 0, 0, -1)
	assert.Equal(t, DefaultPolicy(), p)

	p = NewPolicy(BackoffFixed, time.Minute, time.Second, 1)
	assert.Equal(t, time.Second, p.Initial, "initial clamped to max")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	assert.Error(t, Policy{Initial: 0, Max: time.Second}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: 0}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
}

func TestSleepHonorsCancellation(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Minute, time.Minute, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := p.Sleep(ctx, 1)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
