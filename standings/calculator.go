// Package standings computes ranked in-group standings from completed
// round-robin matches.
package standings

import (
	"fmt"
	"sort"

	"github.com/courtline/tournament-engine/models"
)

// Result is the slice of a completed match the calculator needs.
type Result struct {
	P1ID     int
	P2ID     int
	WinnerID *int
	// Score is the per-set CSV, e.g. "6-4,3-6,7-5".
	Score string
}

// Row is one participant's accumulated record.
type Row struct {
	ParticipantID int
	Disqualified  bool
	Played        int
	Wins          int
	Losses        int
	Ties          int
	PointsFor     int
	PointsAgainst int
}

func (r Row) PointDiff() int { return r.PointsFor - r.PointsAgainst }

// Table is the ranked standings of one group. Rows are ordered best
// first; the order is deterministic for a fixed set of inputs.
type Table struct {
	Rows []Row

	// headToHead records the direct winner between two participants,
	// keyed both ways. Zero value means they never met or drew.
	headToHead map[[2]int]int
}

// HeadToHead returns the winner of the direct meeting between a and b,
// or 0 when they never met or drew. When the pair met more than once,
// the most recent decisive result wins.
func (t *Table) HeadToHead(a, b int) int {
	return t.headToHead[[2]int{a, b}]
}

// Compute aggregates completed matches into ranked standings. The sort
// order is: match wins, point differential, total points scored,
// head-to-head result between the tied pair, and finally participant id
// for a stable order. Disqualified participants keep their accumulated
// record; downstream consumers exclude them from advancing, not from
// the math.
func Compute(participants []models.Participant, results []Result) (*Table, error) {
	index := make(map[int]*Row, len(participants))
	order := make([]int, 0, len(participants))
	for _, p := range participants {
		if _, ok := index[p.ID]; ok {
			continue
		}
		index[p.ID] = &Row{ParticipantID: p.ID, Disqualified: p.Disqualified}
		order = append(order, p.ID)
	}

	h2h := make(map[[2]int]int)
	for _, res := range results {
		r1 := index[res.P1ID]
		r2 := index[res.P2ID]
		if r1 == nil || r2 == nil {
			return nil, fmt.Errorf("match references participant outside the group (%d vs %d)", res.P1ID, res.P2ID)
		}

		sets, err := models.ParseScore(res.Score)
		if err != nil {
			return nil, fmt.Errorf("match %d vs %d: %w", res.P1ID, res.P2ID, err)
		}
		pts1, pts2 := models.TotalPoints(sets)
		r1.Played++
		r2.Played++
		r1.PointsFor += pts1
		r1.PointsAgainst += pts2
		r2.PointsFor += pts2
		r2.PointsAgainst += pts1

		switch {
		case res.WinnerID != nil && *res.WinnerID == res.P1ID:
			r1.Wins++
			r2.Losses++
			h2h[[2]int{res.P1ID, res.P2ID}] = res.P1ID
			h2h[[2]int{res.P2ID, res.P1ID}] = res.P1ID
		case res.WinnerID != nil && *res.WinnerID == res.P2ID:
			r2.Wins++
			r1.Losses++
			h2h[[2]int{res.P1ID, res.P2ID}] = res.P2ID
			h2h[[2]int{res.P2ID, res.P1ID}] = res.P2ID
		default:
			// No winner matching either side counts as a tie for both.
			r1.Ties++
			r2.Ties++
		}
	}

	table := &Table{
		Rows:       make([]Row, 0, len(order)),
		headToHead: h2h,
	}
	for _, id := range order {
		table.Rows = append(table.Rows, *index[id])
	}

	sort.SliceStable(table.Rows, func(i, j int) bool {
		a, b := table.Rows[i], table.Rows[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.PointDiff() != b.PointDiff() {
			return a.PointDiff() > b.PointDiff()
		}
		if a.PointsFor != b.PointsFor {
			return a.PointsFor > b.PointsFor
		}
		switch h2h[[2]int{a.ParticipantID, b.ParticipantID}] {
		case a.ParticipantID:
			return true
		case b.ParticipantID:
			return false
		}
		return a.ParticipantID < b.ParticipantID
	})

	return table, nil
}
