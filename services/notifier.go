package services

import (
	"fmt"

	"github.com/courtline/tournament-engine/brackets"
)

// Event types broadcast to tournament subscribers.
const (
	EventGroupsUpdated     = "groups-updated"
	EventMatchesGenerated  = "matches-generated"
	EventMatchUpdated      = "match-updated"
	EventStandingsUpdated  = "standings-updated"
	EventTournamentUpdated = "tournament-updated"
)

// Notifier emits real-time events for a tournament. Emission is
// best-effort and happens after the owning transaction commits;
// a failure to emit never fails the operation.
type Notifier interface {
	Notify(tournamentID int, eventType string, payload interface{})
}

type hubNotifier struct {
	hub *brackets.Hub
}

// NewHubNotifier broadcasts events into the websocket hub's room for
// the tournament.
func NewHubNotifier(hub *brackets.Hub) Notifier {
	return &hubNotifier{hub: hub}
}

// TournamentRoom names the hub room for a tournament.
func TournamentRoom(tournamentID int) string {
	return fmt.Sprintf("tournament_%d", tournamentID)
}

func (n *hubNotifier) Notify(tournamentID int, eventType string, payload interface{}) {
	n.hub.BroadcastToRoom(TournamentRoom(tournamentID), brackets.Event{
		Type:    eventType,
		Payload: payload,
	})
}

// NopNotifier discards all events; used in tests.
type NopNotifier struct{}

func (NopNotifier) Notify(int, string, interface{}) {}
