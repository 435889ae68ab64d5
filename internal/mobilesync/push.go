package mobilesync

import (
	"context"
	"fmt"

	"github.com/dedale/desktop/internal/session"
	"github.com/dedale/desktop/internal/transfer"
)

// pushSession serves one mobile connection that can receive the session's
// events and submit field data.
type pushSession struct {
	*link
	handle   *Handle
	eventIDs []string
}

type stepKind int

const (
	stepIdle stepKind = iota
	stepTerminate
	stepEvent
	stepFrame
)

type step struct {
	kind  stepKind
	event transfer.Event
	frame frame
}

// nextStep picks the next unit of work without blocking. A terminate
// request always wins over a queued event, which wins over client input.
func nextStep(h *Handle, inbound <-chan frame) step {
	select {
	case <-h.control:
		return step{kind: stepTerminate}
	default:
	}
	select {
	case e := <-h.events:
		return step{kind: stepEvent, event: e}
	default:
	}
	select {
	case f := <-inbound:
		return step{kind: stepFrame, frame: f}
	default:
	}
	return step{}
}

func (s *pushSession) run(ctx context.Context, remote string) {
	s.onEnd = s.release
	reason := s.serve(ctx, remote)
	s.end()
	s.finish(reason)
}

// release unregisters the handle so later pushes fail with ErrNoMobile
// instead of queueing behind a closing connection.
func (s *pushSession) release() {
	s.m.registry.Clear(s.handle)
	s.handle.finish()
}

func (s *pushSession) serve(ctx context.Context, remote string) string {
	s.connected(remote)
	if err := s.reply(transfer.Connected(len(s.eventIDs))); err != nil {
		return s.ioFailure(err)
	}
	go s.peer.readLoop(s.handle.signal)

	for {
		st := nextStep(s.handle, s.peer.inbound)
		switch st.kind {
		case stepTerminate:
			s.logger.Info("terminate requested by desktop")
			s.goodbye(byeServerClosed)
			return session.ReasonControl

		case stepEvent:
			if err := s.reply(transfer.SingleEvent(st.event)); err != nil {
				return s.ioFailure(err)
			}
			s.m.metrics.eventSent()
			s.notify(NoteEventSent, st.event.ID)
			s.logger.Info("event pushed", "event_id", st.event.ID)
			continue

		case stepFrame:
			if st.frame.err != nil {
				return s.ioFailure(st.frame.err)
			}
			if reason, done := s.dispatch(ctx, st.frame.data); done {
				return reason
			}
			continue
		}

		select {
		case <-s.handle.wake:
		case <-ctx.Done():
			s.goodbye(byeShutdown)
			return session.ReasonShutdown
		}
	}
}

// dispatch handles one client frame. done reports the end of the session.
func (s *pushSession) dispatch(ctx context.Context, data []byte) (reason string, done bool) {
	in := Classify(data)
	s.m.metrics.inbound(in.Kind)

	var err error
	switch in.Kind {
	case KindClientAction:
		switch in.Action.Action {
		case transfer.ActionGetEvents:
			err = s.sendEvents(ctx)
		case transfer.ActionTerminate:
			s.logger.Info("terminate requested by mobile")
			s.goodbye(byeClient)
			return session.ReasonClient, true
		default:
			s.logger.Info("unknown client action", "action", in.Action.Action)
		}

	case KindEventAck:
		s.logger.Info("event acknowledged", "event_id", in.Ack.ID, "event_name", in.Ack.Name)
		err = s.reply(transfer.OK(fmt.Sprintf("event %s received", in.Ack.Name)))

	case KindMobileExport:
		return s.ingest(ctx, in.Export)

	case KindLegacyPoints:
		err = s.insertLegacy(ctx, in.Legacy)

	default:
		s.logger.Info("unrecognized frame", "error", in.Err, "size", len(data))
	}

	if err != nil {
		return s.ioFailure(err), true
	}
	return "", false
}

// sendEvents answers get_events. Only write errors are returned; a failed
// lookup is reported to the client.
func (s *pushSession) sendEvents(ctx context.Context) error {
	events, err := s.m.data.TransferEvents(ctx, s.eventIDs)
	if err != nil {
		s.logger.Warn("loading transfer events failed", "error", err)
		return s.reply(transfer.Error("could not load events: " + err.Error()))
	}
	s.logger.Info("sending events", "count", len(events))
	return s.reply(transfer.Events(events))
}

// insertLegacy stores a legacy point array one point at a time and replies
// in plain text. The session stays open either way.
func (s *pushSession) insertLegacy(ctx context.Context, points []transfer.PointWithDetails) error {
	for _, p := range points {
		if _, err := s.m.data.InsertLegacyPoint(ctx, p); err != nil {
			s.logger.Warn("legacy point insert failed", "point_id", p.ID, "error", err)
			return s.peer.writeText(transfer.LegacyFailure(err))
		}
	}
	s.logger.Info("legacy points stored", "count", len(points))
	return s.peer.writeText(transfer.LegacyDone)
}
