package brackets

import "sort"

// Qualifier is one participant advancing out of a round-robin group,
// carrying the record the seeding comparator needs.
type Qualifier struct {
	ParticipantID int
	GroupID       int
	// Rank is the 1-based finishing position within the group.
	Rank         int
	Wins         int
	PointDiff    int
	PointsScored int
}

// HeadToHead resolves a direct meeting between two participants of the
// same group: it returns the winner's participant id, or 0 when they
// never met or drew.
type HeadToHead func(a, b int) int

// SeedQualifiers orders group qualifiers for bracket entry: all group
// winners first, then all runners-up, and so on tier by tier. Within a
// tier the order is match wins, then point differential, then total
// points scored, then the head-to-head result for participants of the
// same group, with participant id as the stable final tiebreak. Seeds
// are the resulting positions 1..len(quals). Group winners therefore
// never meet each other before the semifinal-equivalent stage under
// balanced seeding.
func SeedQualifiers(quals []Qualifier, h2h HeadToHead) []Qualifier {
	seeded := make([]Qualifier, len(quals))
	copy(seeded, quals)

	sort.SliceStable(seeded, func(i, j int) bool {
		a, b := seeded[i], seeded[j]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.PointDiff != b.PointDiff {
			return a.PointDiff > b.PointDiff
		}
		if a.PointsScored != b.PointsScored {
			return a.PointsScored > b.PointsScored
		}
		if a.GroupID == b.GroupID && h2h != nil {
			switch h2h(a.ParticipantID, b.ParticipantID) {
			case a.ParticipantID:
				return true
			case b.ParticipantID:
				return false
			}
		}
		return a.ParticipantID < b.ParticipantID
	})

	return seeded
}
