// Package task provides per-operation handles for long-running file operations.
//
// A Handle bundles the cancellation signal and the optional progress sink of
// exactly one operation. Handles are passed down the call chain instead of
// living on the dispatcher, so overlapping operations never share a flag or
// a callback. Cancellation is cooperative: workers poll Checkpoint between
// discrete steps (per file, per directory entry).
//
// A nil *Handle is valid and behaves as an uncancellable operation with no
// progress sink.
package task

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/id"
)

// ProgressFunc receives (current, total, label). Total is 0 when unknown.
type ProgressFunc func(current, total int, label string)

// Listener receives progress of tasks started on a caller's behalf
type Listener func(taskID id.TaskID, current, total int, label string)

type listenerKey struct{}

// WithListener attaches a progress listener to ctx. Transports use it to
// stream progress frames for operations they dispatch.
func WithListener(ctx context.Context, l Listener) context.Context {
	return context.WithValue(ctx, listenerKey{}, l)
}

// ListenerFrom returns the listener attached to ctx, if any
func ListenerFrom(ctx context.Context) Listener {
	if ctx == nil {
		return nil
	}
	l, _ := ctx.Value(listenerKey{}).(Listener)
	return l
}

// Handle is the per-call operation context
type Handle struct {
	ID        id.TaskID
	Operation string
	Started   time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	progress ProgressFunc
	pause    time.Duration
}

// New creates a handle derived from parent
func New(parent context.Context, operation string, progress ProgressFunc) *Handle {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Handle{
		ID:        id.NewTaskID(),
		Operation: operation,
		Started:   time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		progress:  progress,
	}
}

// WithPause sets the yield pause inserted between bulk items
func (h *Handle) WithPause(d time.Duration) *Handle {
	if h != nil {
		h.pause = d
	}
	return h
}

// Context returns the handle's context
func (h *Handle) Context() context.Context {
	if h == nil {
		return context.Background()
	}
	return h.ctx
}

// Cancel requests cancellation; takes effect at the next checkpoint
func (h *Handle) Cancel() {
	if h != nil {
		h.cancel()
	}
}

// Cancelled reports whether cancellation was requested
func (h *Handle) Cancelled() bool {
	return h != nil && h.ctx.Err() != nil
}

// Checkpoint returns a Cancelled error if cancellation was requested
func (h *Handle) Checkpoint(op string) error {
	if h.Cancelled() {
		return errs.New(errs.Cancelled, op, "", nil)
	}
	return nil
}

// Report forwards progress to the sink. A panicking sink is contained here.
func (h *Handle) Report(current, total int, label string) {
	if h == nil || h.progress == nil {
		return
	}
	defer func() { _ = recover() }()
	h.progress(current, total, label)
}

// Yield pauses between bulk items so interactive clients stay responsive.
// It wakes early and returns Cancelled if the operation is cancelled.
func (h *Handle) Yield(op string) error {
	if h == nil || h.pause <= 0 {
		return h.Checkpoint(op)
	}

	timer := time.NewTimer(h.pause)
	defer timer.Stop()

	select {
	case <-h.ctx.Done():
		return errs.New(errs.Cancelled, op, "", nil)
	case <-timer.C:
		return nil
	}
}

// release frees the context's resources
func (h *Handle) release() {
	if h != nil {
		h.cancel()
	}
}

// Info describes a running task
type Info struct {
	ID        id.TaskID `json:"taskId"`
	Operation string    `json:"operation"`
	Started   time.Time `json:"started"`
}

// Registry tracks running handles so they can be cancelled by ID
type Registry struct {
	mu      sync.Mutex
	running map[id.TaskID]*Handle
	pause   time.Duration
}

// NewRegistry creates a registry whose handles yield for pause between items
func NewRegistry(pause time.Duration) *Registry {
	return &Registry{
		running: make(map[id.TaskID]*Handle),
		pause:   pause,
	}
}

// Start creates and tracks a new handle. A listener attached to parent
// receives the handle's progress after progress itself.
func (r *Registry) Start(parent context.Context, operation string, progress ProgressFunc) *Handle {
	h := New(parent, operation, nil).WithPause(r.pause)

	listener := ListenerFrom(parent)
	switch {
	case listener == nil:
		h.progress = progress
	case progress == nil:
		h.progress = func(current, total int, label string) { listener(h.ID, current, total, label) }
	default:
		h.progress = func(current, total int, label string) {
			progress(current, total, label)
			listener(h.ID, current, total, label)
		}
	}

	r.mu.Lock()
	r.running[h.ID] = h
	r.mu.Unlock()

	return h
}

// Finish stops tracking h and releases its context
func (r *Registry) Finish(h *Handle) {
	if h == nil {
		return
	}

	r.mu.Lock()
	delete(r.running, h.ID)
	r.mu.Unlock()

	h.release()
}

// Cancel cancels the running task with the given ID
func (r *Registry) Cancel(taskID id.TaskID) bool {
	r.mu.Lock()
	h, ok := r.running[taskID]
	r.mu.Unlock()

	if ok {
		h.Cancel()
	}
	return ok
}

// Running lists running tasks
func (r *Registry) Running() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]Info, 0, len(r.running))
	for _, h := range r.running {
		infos = append(infos, Info{ID: h.ID, Operation: h.Operation, Started: h.Started})
	}
	return infos
}
