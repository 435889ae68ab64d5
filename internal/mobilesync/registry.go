package mobilesync

import (
	"context"
	"sync"

	"github.com/dedale/desktop/internal/transfer"
)

// Handle is the command side of one push session: a queue of events to
// send, a terminate request and a wake signal for the session loop.
type Handle struct {
	id      string
	events  chan transfer.Event
	control chan struct{}
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newHandle(id string, queue int) *Handle {
	if queue < 1 {
		queue = 1
	}
	return &Handle{
		id:      id,
		events:  make(chan transfer.Event, queue),
		control: make(chan struct{}, 1),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (h *Handle) ID() string { return h.id }

// Done is closed once the session has ended.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) signal() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Send queues e for delivery. It blocks while the queue is full, until ctx
// ends or the session closes.
func (h *Handle) Send(ctx context.Context, e transfer.Event) error {
	select {
	case <-h.done:
		return ErrSessionClosed
	default:
	}
	select {
	case h.events <- e:
		h.signal()
		return nil
	case <-h.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Terminate asks the session to say goodbye and close. Repeated requests
// collapse into one.
func (h *Handle) Terminate() error {
	select {
	case <-h.done:
		return ErrSessionClosed
	default:
	}
	select {
	case h.control <- struct{}{}:
	default:
	}
	h.signal()
	return nil
}

func (h *Handle) finish() {
	h.once.Do(func() { close(h.done) })
}

// Registry holds the handle of the most recently accepted push session.
// The lock only guards the slot; sends happen on a copy taken outside it.
type Registry struct {
	mu      sync.Mutex
	current *Handle
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Set installs h and returns the handle it replaced, if any.
func (r *Registry) Set(h *Handle) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.current
	r.current = h
	return prev
}

// Clear empties the slot only if h is still current, so a superseded
// session exiting late cannot unregister its successor.
func (r *Registry) Clear(h *Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != h {
		return false
	}
	r.current = nil
	return true
}

func (r *Registry) Current() *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// PushEvent queues e on the current session, or fails with ErrNoMobile.
func (r *Registry) PushEvent(ctx context.Context, e transfer.Event) error {
	h := r.Current()
	if h == nil {
		return ErrNoMobile
	}
	if err := h.Send(ctx, e); err != nil {
		if err == ErrSessionClosed {
			return ErrNoMobile
		}
		return err
	}
	return nil
}

// Terminate asks the current session to close, or fails with ErrNoSession.
func (r *Registry) Terminate() error {
	h := r.Current()
	if h == nil {
		return ErrNoSession
	}
	if err := h.Terminate(); err != nil {
		return ErrNoSession
	}
	return nil
}
