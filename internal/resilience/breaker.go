package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen is returned without calling fn while the breaker is open
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTimeout is returned when fn outlives the call timeout
	ErrTimeout = errors.New("call timed out")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// Trip is the number of consecutive failures that opens the breaker
	Trip uint32
	// Cooldown is how long the breaker stays open before one trial call
	Cooldown time.Duration
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from State, to State)
}

// Counts holds the statistics for the circuit breaker
type Counts struct {
	Calls               uint32
	Failures            uint32
	ConsecutiveFailures uint32
	Rejected            uint32
}

// Breaker stops calling a dependency that keeps failing. After Cooldown a
// single trial call is let through; its outcome closes or reopens it.
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	counts   Counts
	openedAt time.Time
	trial    bool
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	if settings.Trip == 0 {
		settings.Trip = 3
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = 30 * time.Second
	}
	return &Breaker{name: name, settings: settings, now: time.Now}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

// Counts returns a copy of the internal counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs fn if the breaker accepts the call and records the outcome
func (b *Breaker) Do(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err == nil)
	return err
}

// Call is Do with a deadline. A call that times out counts as a failure;
// fn keeps running in the background until it returns on its own.
func (b *Breaker) Call(timeout time.Duration, fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-done:
	case <-timer.C:
		err = ErrTimeout
	}
	b.after(err == nil)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.current() {
	case StateOpen:
		b.counts.Rejected++
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.trial {
			b.counts.Rejected++
			return ErrCircuitOpen
		}
		b.trial = true
	}
	b.counts.Calls++
	return nil
}

func (b *Breaker) after(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.current()
	if success {
		b.counts.ConsecutiveFailures = 0
		if state == StateHalfOpen {
			b.trial = false
			b.setState(StateClosed)
		}
		return
	}

	b.counts.Failures++
	b.counts.ConsecutiveFailures++
	switch {
	case state == StateHalfOpen:
		b.trial = false
		b.open()
	case state == StateClosed && b.counts.ConsecutiveFailures >= b.settings.Trip:
		b.open()
	}
}

// current moves an open breaker to half-open once the cooldown elapsed
func (b *Breaker) current() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.Cooldown {
		b.setState(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) open() {
	b.openedAt = b.now()
	b.setState(StateOpen)
}

func (b *Breaker) setState(state State) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
