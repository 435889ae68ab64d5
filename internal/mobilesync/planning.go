package mobilesync

import (
	"context"

	"github.com/dedale/desktop/internal/session"
	"github.com/dedale/desktop/internal/transfer"
)

// Close reason for a planning session whose lookup failed.
const reasonPlanningFailed = "planning_failed"

// planningSession hands one team its planning and closes. It never reads
// or sends geographic records.
type planningSession struct {
	*link
	teamID string
}

func (s *planningSession) run(ctx context.Context, remote string) {
	s.finish(s.serve(ctx, remote))
}

func (s *planningSession) serve(ctx context.Context, remote string) string {
	s.connected(remote)

	tp, err := s.m.data.TeamPlanning(ctx, s.teamID)
	if err != nil {
		s.logger.Warn("loading planning failed", "team_id", s.teamID, "error", err)
		if err := s.reply(transfer.Error("could not load planning: " + err.Error())); err != nil {
			return s.ioFailure(err)
		}
		s.goodbye(byeServerClosed)
		return reasonPlanningFailed
	}

	if err := s.reply(transfer.PlanningData(tp.Wire())); err != nil {
		return s.ioFailure(err)
	}
	s.logger.Info("planning sent", "team_id", s.teamID, "unscheduled", tp.Unscheduled())
	s.goodbye(byePlanning)
	return session.ReasonDelivered
}
