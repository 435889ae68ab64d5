package mobilesync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dedale/desktop/internal/transfer"
)

func TestRegistryEmpty(t *testing.T) {
	r := NewRegistry()
	if err := r.PushEvent(context.Background(), transfer.Event{ID: "E1"}); !errors.Is(err, ErrNoMobile) {
		t.Errorf("PushEvent() error = %v, want ErrNoMobile", err)
	}
	if err := r.Terminate(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Terminate() error = %v, want ErrNoSession", err)
	}
}

func TestRegistryClearOnlyCurrent(t *testing.T) {
	r := NewRegistry()
	a := newHandle("a", 1)
	b := newHandle("b", 1)

	if prev := r.Set(a); prev != nil {
		t.Fatalf("Set(a) returned %v, want nil", prev)
	}
	if prev := r.Set(b); prev != a {
		t.Fatalf("Set(b) returned %v, want a", prev)
	}
	if r.Clear(a) {
		t.Error("Clear(a) cleared a superseded handle")
	}
	if r.Current() != b {
		t.Fatal("superseded session unregistered its successor")
	}
	if !r.Clear(b) {
		t.Error("Clear(b) = false, want true")
	}
	if r.Current() != nil {
		t.Error("Current() not nil after Clear")
	}
}

func TestRegistryPushToClosedSession(t *testing.T) {
	r := NewRegistry()
	h := newHandle("a", 1)
	r.Set(h)
	h.finish()

	if err := r.PushEvent(context.Background(), transfer.Event{ID: "E1"}); !errors.Is(err, ErrNoMobile) {
		t.Errorf("PushEvent() error = %v, want ErrNoMobile", err)
	}
	if err := r.Terminate(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Terminate() error = %v, want ErrNoSession", err)
	}
}

func TestHandleSendBlocksWhenFull(t *testing.T) {
	h := newHandle("a", 1)
	if err := h.Send(context.Background(), transfer.Event{ID: "E1"}); err != nil {
		t.Fatalf("first Send() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := h.Send(ctx, transfer.Event{ID: "E2"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send() on full queue error = %v, want deadline exceeded", err)
	}

	done := make(chan error, 1)
	go func() { done <- h.Send(context.Background(), transfer.Event{ID: "E3"}) }()
	h.finish()
	select {
	case err := <-done:
		if !errors.Is(err, ErrSessionClosed) {
			t.Errorf("Send() after finish error = %v, want ErrSessionClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send() did not unblock on finish")
	}
}

func TestHandleFinishIdempotent(t *testing.T) {
	h := newHandle("a", 1)
	h.finish()
	h.finish()
	select {
	case <-h.Done():
	default:
		t.Error("Done() not closed")
	}
}

func TestNextStepPriority(t *testing.T) {
	h := newHandle("a", 4)
	inbound := make(chan frame, 4)

	if st := nextStep(h, inbound); st.kind != stepIdle {
		t.Fatalf("empty nextStep = %v, want idle", st.kind)
	}

	inbound <- frame{data: []byte(`{"action":"get_events"}`)}
	h.events <- transfer.Event{ID: "E1"}
	h.events <- transfer.Event{ID: "E2"}
	if err := h.Terminate(); err != nil {
		t.Fatal(err)
	}
	// Repeated terminate requests collapse.
	if err := h.Terminate(); err != nil {
		t.Fatal(err)
	}

	want := []stepKind{stepTerminate, stepEvent, stepEvent, stepFrame, stepIdle}
	for i, w := range want {
		st := nextStep(h, inbound)
		if st.kind != w {
			t.Fatalf("step %d = %v, want %v", i, st.kind, w)
		}
		if st.kind == stepEvent && i == 1 && st.event.ID != "E1" {
			t.Errorf("first event = %s, want E1 (FIFO)", st.event.ID)
		}
	}
}
