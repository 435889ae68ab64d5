package mobilesync

import (
	"context"

	"github.com/dedale/desktop/internal/session"
	"github.com/dedale/desktop/internal/transfer"
)

// receiveSession waits for a single mobile export for one event.
type receiveSession struct {
	*link
	eventID string
}

func (s *receiveSession) run(ctx context.Context, remote string) {
	s.finish(s.serve(ctx, remote))
}

func (s *receiveSession) serve(ctx context.Context, remote string) string {
	s.connected(remote)
	if err := s.reply(transfer.ReadyToReceive(s.eventID)); err != nil {
		return s.ioFailure(err)
	}
	go s.peer.readLoop(nil)

	for {
		var f frame
		select {
		case f = <-s.peer.inbound:
		case <-ctx.Done():
			s.goodbye(byeShutdown)
			return session.ReasonShutdown
		}
		if f.err != nil {
			return s.ioFailure(f.err)
		}

		in := Classify(f.data)
		s.m.metrics.inbound(in.Kind)
		if in.Kind != KindMobileExport {
			s.logger.Info("ignoring frame while waiting for export", "kind", in.Kind.String(), "error", in.Err)
			continue
		}
		if in.Export.Event.ID != s.eventID {
			s.logger.Warn("export targets a different event", "expected", s.eventID, "got", in.Export.Event.ID)
		}
		if reason, done := s.ingest(ctx, in.Export); done {
			return reason
		}
	}
}
