package brackets

import (
	"errors"
	"fmt"
	"sort"
)

// SlotKind tags the source of one side of a planned match.
type SlotKind int

const (
	// SlotEntrant means the side is a concrete entrant known at build time.
	SlotEntrant SlotKind = iota
	// SlotWinnerOf means the side is the winner of another planned match.
	SlotWinnerOf
	// SlotBye means the side has no opponent; the other side advances.
	SlotBye
)

// Entrant is one qualifier entering the bracket, identified either by a
// concrete participant or by an unresolved group-rank placeholder such
// as "A1". Seeds run 1..N without gaps.
type Entrant struct {
	Seed          int
	ParticipantID *int
	Placeholder   string
}

// Slot is a tagged slot source: exactly one of the variants applies,
// selected by Kind.
type Slot struct {
	Kind      SlotKind
	Entrant   *Entrant
	SourceUID string
}

func entrantSlot(e *Entrant) Slot  { return Slot{Kind: SlotEntrant, Entrant: e} }
func winnerSlot(uid string) Slot   { return Slot{Kind: SlotWinnerOf, SourceUID: uid} }
func byeSlot() Slot                { return Slot{Kind: SlotBye} }

// PlanMatch is one node of the knockout tree skeleton.
type PlanMatch struct {
	UID          string
	Round        int
	OrderInRound int
	RoundName    string
	Slot1        Slot
	Slot2        Slot
	// Bye marks a match with exactly one real side. It is completed
	// automatically during materialization and never waits for input.
	Bye bool
}

// ByePolicy selects how a first-round bye is expressed in the plan.
type ByePolicy int

const (
	// ByeDirectAdvance skips the bye match entirely; the lone entrant is
	// placed straight into the slot of the consuming downstream match.
	ByeDirectAdvance ByePolicy = iota
	// ByeVirtualMatch emits an auto-completed bye match so that normal
	// prerequisite propagation handles the advancement uniformly.
	ByeVirtualMatch
)

// Plan is the full single-elimination skeleton for a field of Entrants
// qualifiers: bracket size, play-in count and the slot→source mapping,
// computed once and consumed by a single materialization routine.
type Plan struct {
	Entrants    int
	BracketSize int
	PlayInCount int
	Rounds      int
	Matches     []*PlanMatch
}

// FinalUID returns the UID of the Final match.
func (p *Plan) FinalUID() string {
	return p.Matches[len(p.Matches)-1].UID
}

var (
	ErrNotEnoughEntrants = errors.New("cannot build a bracket with fewer than 2 entrants")
	ErrBadSeeds          = errors.New("entrant seeds must be exactly 1..N")
)

// SeedingOrder builds the balanced bracket seeding sequence for a
// bracket of size M (a power of two) by recursive mirroring: each
// doubling step replaces element x of a sequence of size s with the
// pair (x, 2s+1-x). Seed 1 and seed 2 end up on opposite halves.
// For M=8 the result is [1 8 4 5 2 7 3 6].
func SeedingOrder(size int) []int {
	seq := []int{1}
	for len(seq) < size {
		doubled := len(seq) * 2
		next := make([]int, 0, doubled)
		for _, x := range seq {
			next = append(next, x, doubled+1-x)
		}
		seq = next
	}
	return seq
}

// FieldSize decides the main bracket size and play-in count for n real
// entrants. A non-power-of-two field closer to the previous power of
// two is reduced with play-ins; otherwise the next power of two is used
// and the missing slots become byes. Equidistant fields take the next
// power of two.
func FieldSize(n int) (bracketSize, playIns int) {
	if n < 2 {
		return 0, 0
	}
	prev := 1
	for prev*2 <= n {
		prev *= 2
	}
	if prev == n {
		return n, 0
	}
	next := prev * 2
	if n-prev < next-n {
		return prev, n - prev
	}
	return next, 0
}

// roundName labels a round by its distance from the Final, so brackets
// of any depth label correctly.
func roundName(distanceFromFinal, absoluteRound int) string {
	switch distanceFromFinal {
	case 0:
		return "Final"
	case 1:
		return "Semi Finals"
	case 2:
		return "Quarter Finals"
	case 3:
		return "Round of 16"
	case 4:
		return "Round of 32"
	case 5:
		return "Round of 64"
	default:
		return fmt.Sprintf("Round %d", absoluteRound)
	}
}

// node is a feeder into a round: either a concrete entrant, the winner
// of an earlier match, or a structural bye.
type node struct {
	entrant   *Entrant
	sourceUID string
	bye       bool
}

func (n node) slot() Slot {
	switch {
	case n.bye:
		return byeSlot()
	case n.entrant != nil:
		return entrantSlot(n.entrant)
	default:
		return winnerSlot(n.sourceUID)
	}
}

// BuildPlan constructs the complete knockout skeleton for the given
// entrants. Entrants may arrive in any order; they are sorted by seed
// and must carry exactly the seeds 1..N.
func BuildPlan(entrants []Entrant, policy ByePolicy) (*Plan, error) {
	n := len(entrants)
	if n < 2 {
		return nil, ErrNotEnoughEntrants
	}

	sorted := make([]Entrant, n)
	copy(sorted, entrants)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seed < sorted[j].Seed })
	for i := range sorted {
		if sorted[i].Seed != i+1 {
			return nil, fmt.Errorf("%w: got seed %d at position %d", ErrBadSeeds, sorted[i].Seed, i+1)
		}
	}

	bracketSize, playIns := FieldSize(n)
	mainRounds := 0
	for 1<<mainRounds < bracketSize {
		mainRounds++
	}

	plan := &Plan{
		Entrants:    n,
		BracketSize: bracketSize,
		PlayInCount: playIns,
		Rounds:      mainRounds,
	}

	mainFirstRound := 1
	if playIns > 0 {
		plan.Rounds++
		mainFirstRound = 2
	}

	// Play-in round: the bottom 2*playIns seeds pair highest-vs-lowest;
	// winner j fills main bracket slot bracketSize-playIns+j.
	directCount := bracketSize - playIns
	playInUIDs := make([]string, playIns)
	for j := 1; j <= playIns; j++ {
		uid := fmt.Sprintf("PIM%d", j)
		playInUIDs[j-1] = uid
		high := &sorted[directCount+j-1]
		low := &sorted[n-j]
		plan.Matches = append(plan.Matches, &PlanMatch{
			UID:          uid,
			Round:        1,
			OrderInRound: j,
			RoundName:    "Play-In",
			Slot1:        entrantSlot(high),
			Slot2:        entrantSlot(low),
		})
	}

	// Seed positions of the first main round.
	order := SeedingOrder(bracketSize)
	entryNode := func(seed int) node {
		switch {
		case playIns > 0 && seed > directCount:
			return node{sourceUID: playInUIDs[seed-directCount-1]}
		case seed <= n:
			return node{entrant: &sorted[seed-1]}
		default:
			return node{bye: true}
		}
	}

	feeders := make([]node, 0, bracketSize)
	for _, seed := range order {
		feeders = append(feeders, entryNode(seed))
	}

	// Build round by round until only the champion's node remains.
	for r := mainFirstRound; len(feeders) > 1; r++ {
		feeders = plan.pairRound(feeders, r, roundName(plan.Rounds-r, r), policy)
	}

	if len(plan.Matches) == 0 {
		return nil, fmt.Errorf("bracket plan for %d entrants produced no matches", n)
	}
	return plan, nil
}

// pairRound pairs a round's feeder nodes left to right and appends the
// resulting matches to the plan, returning the feeders of the next
// round. An odd feeder count should not happen in a well-formed
// bracket; the last feeder then gets a free pass (a bye second slot).
func (p *Plan) pairRound(feeders []node, round int, name string, policy ByePolicy) []node {
	next := make([]node, 0, (len(feeders)+1)/2)
	orderInRound := 0

	for i := 0; i < len(feeders); i += 2 {
		left := feeders[i]
		right := node{bye: true}
		if i+1 < len(feeders) {
			right = feeders[i+1]
		}

		switch {
		case left.bye && right.bye:
			// Two structural byes meeting cannot happen with balanced
			// seeding; tolerate by propagating the bye.
			next = append(next, node{bye: true})

		case left.bye || right.bye:
			real := left
			if left.bye {
				real = right
			}
			if policy == ByeDirectAdvance && real.entrant != nil {
				next = append(next, real)
				continue
			}
			orderInRound++
			uid := fmt.Sprintf("R%dM%d", round, orderInRound)
			p.Matches = append(p.Matches, &PlanMatch{
				UID:          uid,
				Round:        round,
				OrderInRound: orderInRound,
				RoundName:    name,
				Slot1:        real.slot(),
				Slot2:        byeSlot(),
				Bye:          true,
			})
			next = append(next, node{sourceUID: uid})

		default:
			orderInRound++
			uid := fmt.Sprintf("R%dM%d", round, orderInRound)
			p.Matches = append(p.Matches, &PlanMatch{
				UID:          uid,
				Round:        round,
				OrderInRound: orderInRound,
				RoundName:    name,
				Slot1:        left.slot(),
				Slot2:        right.slot(),
			})
			next = append(next, node{sourceUID: uid})
		}
	}
	return next
}
