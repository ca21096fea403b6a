package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFailed = errors.New("failed")

func fail() error { return errFailed }

func succeed() error { return nil }

// clock is a manually advanced time source
type clock struct{ t time.Time }

func newClock() *clock { return &clock{t: time.Unix(1_700_000_000, 0)} }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func withClock(b *Breaker, c *clock) *Breaker {
	b.now = c.now
	return b
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		calls         []func() error
		expectedState State
	}{
		{"stays closed on successes", []func() error{succeed, succeed, succeed}, StateClosed},
		{"opens after consecutive failures", []func() error{fail, fail, fail}, StateOpen},
		{"success resets the streak", []func() error{fail, fail, succeed, fail, fail}, StateClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", Settings{Trip: 3, Cooldown: time.Minute})
			for _, call := range tt.calls {
				_ = breaker.Do(call)
			}
			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerOpenRejects(t *testing.T) {
	breaker := New("test", Settings{Trip: 2, Cooldown: time.Minute})
	_ = breaker.Do(fail)
	_ = breaker.Do(fail)

	called := false
	err := breaker.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	counts := breaker.Counts()
	assert.Equal(t, uint32(2), counts.Calls)
	assert.Equal(t, uint32(2), counts.Failures)
	assert.Equal(t, uint32(1), counts.Rejected)
}

func TestBreakerHalfOpenTrial(t *testing.T) {
	c := newClock()
	breaker := withClock(New("test", Settings{Trip: 1, Cooldown: time.Minute}), c)

	_ = breaker.Do(fail)
	require.Equal(t, StateOpen, breaker.State())

	c.advance(time.Minute)
	require.Equal(t, StateHalfOpen, breaker.State())

	// a failed trial reopens for another cooldown
	_ = breaker.Do(fail)
	assert.Equal(t, StateOpen, breaker.State())

	c.advance(time.Minute)
	require.NoError(t, breaker.Do(succeed))
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerCallTimeout(t *testing.T) {
	breaker := New("test", Settings{Trip: 1, Cooldown: time.Minute})
	release := make(chan struct{})
	defer close(release)

	err := breaker.Call(10*time.Millisecond, func() error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, StateOpen, breaker.State())

	assert.NoError(t, New("fast", Settings{}).Call(time.Second, succeed))
}

func TestBreakerCallbacks(t *testing.T) {
	c := newClock()
	var transitions []string

	breaker := withClock(New("test", Settings{
		Trip:     2,
		Cooldown: time.Second,
		OnStateChange: func(name string, from State, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	}), c)

	_ = breaker.Do(fail)
	_ = breaker.Do(fail)
	c.advance(time.Second)
	_ = breaker.Do(succeed)

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}
