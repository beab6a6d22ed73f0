package services

import (
	"context"
	"fmt"
	"time"

	"github.com/courtline/tournament-engine/models"
	"github.com/courtline/tournament-engine/repositories"
)

// advanceWinnerCascade pushes a completed match's winner into every
// downstream slot naming it as a source, then keeps walking: a
// downstream bye match that just received its lone real side is
// auto-completed and its winner propagated in turn. The slot updates
// are guarded, so a hop that already happened is skipped rather than
// repeated. Returns every downstream match touched by this call.
func advanceWinnerCascade(ctx context.Context, exec repositories.SQLExecutor, matchRepo repositories.MatchRepository, sourceMatchID, winnerID int) ([]*models.Match, error) {
	type hop struct {
		matchID  int
		winnerID int
	}
	queue := []hop{{matchID: sourceMatchID, winnerID: winnerID}}
	touched := make([]*models.Match, 0, 2)

	for len(queue) > 0 {
		step := queue[0]
		queue = queue[1:]

		advancedIDs, err := matchRepo.AdvanceWinner(ctx, exec, step.matchID, step.winnerID)
		if err != nil {
			return nil, err
		}
		for _, id := range advancedIDs {
			downstream, err := matchRepo.GetByID(ctx, exec, id)
			if err != nil {
				return nil, fmt.Errorf("load advanced match %d: %w", id, err)
			}

			if downstream.Bye && downstream.State == models.MatchStatePending {
				freeWinner := loneResolvedSide(downstream)
				if freeWinner != nil {
					transitioned, err := matchRepo.Complete(ctx, exec, downstream.ID, nil, freeWinner, time.Now())
					if err != nil {
						return nil, err
					}
					if transitioned {
						downstream.State = models.MatchStateCompleted
						downstream.WinnerID = freeWinner
						queue = append(queue, hop{matchID: downstream.ID, winnerID: *freeWinner})
					}
				}
			}
			touched = append(touched, downstream)
		}
	}
	return touched, nil
}

// loneResolvedSide returns the participant of a bye match's single real
// side, or nil while that side is still waiting on a prerequisite.
func loneResolvedSide(m *models.Match) *int {
	p1Empty := m.P1ParticipantID == nil && m.P1SourceMatchID == nil
	p2Empty := m.P2ParticipantID == nil && m.P2SourceMatchID == nil
	switch {
	case m.P1ParticipantID != nil && p2Empty:
		return m.P1ParticipantID
	case m.P2ParticipantID != nil && p1Empty:
		return m.P2ParticipantID
	default:
		return nil
	}
}
