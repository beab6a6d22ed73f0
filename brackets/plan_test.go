package brackets

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEntrants(n int) []Entrant {
	entrants := make([]Entrant, n)
	for i := 0; i < n; i++ {
		id := 100 + i + 1
		entrants[i] = Entrant{Seed: i + 1, ParticipantID: &id}
	}
	return entrants
}

func TestSeedingOrder(t *testing.T) {
	assert.Equal(t, []int{1, 2}, SeedingOrder(2))
	assert.Equal(t, []int{1, 4, 2, 3}, SeedingOrder(4))
	assert.Equal(t, []int{1, 8, 4, 5, 2, 7, 3, 6}, SeedingOrder(8))

	order16 := SeedingOrder(16)
	require.Len(t, order16, 16)
	assert.Equal(t, 1, order16[0])
	assert.Equal(t, 16, order16[1])
	// Seeds 1 and 2 land in opposite halves.
	assert.Equal(t, 2, order16[8])
}

func TestFieldSize(t *testing.T) {
	cases := []struct {
		n, bracket, playIns int
	}{
		{2, 2, 0},
		{4, 4, 0},
		{8, 8, 0},
		{5, 4, 1},   // closer to 4
		{9, 8, 1},   // closer to 8
		{10, 8, 2},  // closer to 8
		{18, 16, 2}, // closer to 16
		{6, 8, 0},   // equidistant: byes, not play-ins
		{12, 16, 0}, // equidistant
		{13, 16, 0}, // closer to 16
		{31, 32, 0},
	}
	for _, tc := range cases {
		bracket, playIns := FieldSize(tc.n)
		assert.Equal(t, tc.bracket, bracket, "n=%d bracket", tc.n)
		assert.Equal(t, tc.playIns, playIns, "n=%d playIns", tc.n)
	}
}

func TestBuildPlanPowerOfTwoField(t *testing.T) {
	plan, err := BuildPlan(makeEntrants(8), ByeVirtualMatch)
	require.NoError(t, err)

	assert.Equal(t, 8, plan.BracketSize)
	assert.Equal(t, 0, plan.PlayInCount)
	assert.Equal(t, 3, plan.Rounds)
	// A field of N with no byes plays exactly N-1 matches.
	assert.Len(t, plan.Matches, 7)

	firstRoundPairs := [][2]int{}
	for _, m := range plan.Matches {
		if m.Round != 1 {
			continue
		}
		require.Equal(t, SlotEntrant, m.Slot1.Kind)
		require.Equal(t, SlotEntrant, m.Slot2.Kind)
		firstRoundPairs = append(firstRoundPairs, [2]int{m.Slot1.Entrant.Seed, m.Slot2.Entrant.Seed})
	}
	assert.Equal(t, [][2]int{{1, 8}, {4, 5}, {2, 7}, {3, 6}}, firstRoundPairs)

	assert.Equal(t, "Quarter Finals", plan.Matches[0].RoundName)
	assert.Equal(t, "Final", plan.Matches[len(plan.Matches)-1].RoundName)
	assert.Equal(t, plan.Matches[len(plan.Matches)-1].UID, plan.FinalUID())
}

func TestBuildPlanPrerequisitesPrecedeConsumers(t *testing.T) {
	for _, n := range []int{2, 5, 8, 11, 16, 18, 33} {
		plan, err := BuildPlan(makeEntrants(n), ByeVirtualMatch)
		require.NoError(t, err, "n=%d", n)

		seen := map[string]bool{}
		for _, m := range plan.Matches {
			for _, slot := range []Slot{m.Slot1, m.Slot2} {
				if slot.Kind == SlotWinnerOf {
					assert.True(t, seen[slot.SourceUID],
						"n=%d: match %s consumes %s before it exists", n, m.UID, slot.SourceUID)
				}
			}
			seen[m.UID] = true
		}
	}
}

// playOut resolves the whole plan assuming the lower seed always wins
// and returns the seeds contesting the Final.
func playOut(t *testing.T, plan *Plan) (int, int) {
	t.Helper()
	winners := map[string]int{} // uid -> winning seed

	resolve := func(slot Slot) (int, bool) {
		switch slot.Kind {
		case SlotEntrant:
			return slot.Entrant.Seed, true
		case SlotWinnerOf:
			seed, ok := winners[slot.SourceUID]
			require.True(t, ok, "unresolved source %s", slot.SourceUID)
			return seed, true
		default:
			return 0, false
		}
	}

	var finalS1, finalS2 int
	for _, m := range plan.Matches {
		s1, ok1 := resolve(m.Slot1)
		s2, ok2 := resolve(m.Slot2)
		switch {
		case ok1 && ok2:
			winner := s1
			if s2 < s1 {
				winner = s2
			}
			winners[m.UID] = winner
			finalS1, finalS2 = s1, s2
		case ok1:
			winners[m.UID] = s1
			finalS1, finalS2 = s1, 0
		case ok2:
			winners[m.UID] = s2
			finalS1, finalS2 = s2, 0
		default:
			t.Fatalf("match %s has no resolvable side", m.UID)
		}
	}
	return finalS1, finalS2
}

func TestTopTwoSeedsMeetOnlyInFinal(t *testing.T) {
	for _, n := range []int{4, 6, 8, 16, 18, 24} {
		plan, err := BuildPlan(makeEntrants(n), ByeVirtualMatch)
		require.NoError(t, err, "n=%d", n)

		s1, s2 := playOut(t, plan)
		if s2 < s1 {
			s1, s2 = s2, s1
		}
		assert.Equal(t, 1, s1, "n=%d", n)
		assert.Equal(t, 2, s2, "n=%d", n)
	}
}

func TestBuildPlanPlayIns(t *testing.T) {
	plan, err := BuildPlan(makeEntrants(18), ByeVirtualMatch)
	require.NoError(t, err)

	assert.Equal(t, 16, plan.BracketSize)
	assert.Equal(t, 2, plan.PlayInCount)
	assert.Equal(t, 5, plan.Rounds) // play-in round + 4 main rounds

	playIns := []*PlanMatch{}
	for _, m := range plan.Matches {
		if m.RoundName == "Play-In" {
			playIns = append(playIns, m)
		}
	}
	require.Len(t, playIns, 2)

	// Bottom 4 seeds contest the play-ins, highest vs lowest.
	assert.Equal(t, 15, playIns[0].Slot1.Entrant.Seed)
	assert.Equal(t, 18, playIns[0].Slot2.Entrant.Seed)
	assert.Equal(t, 16, playIns[1].Slot1.Entrant.Seed)
	assert.Equal(t, 17, playIns[1].Slot2.Entrant.Seed)

	// Play-in winners feed the main first round as pseudo-seeds 15 and 16.
	consumers := map[string]bool{}
	for _, m := range plan.Matches {
		for _, slot := range []Slot{m.Slot1, m.Slot2} {
			if slot.Kind == SlotWinnerOf && (slot.SourceUID == "PIM1" || slot.SourceUID == "PIM2") {
				consumers[slot.SourceUID] = true
				assert.Equal(t, 2, m.Round)
			}
		}
	}
	assert.Len(t, consumers, 2)
}

func TestBuildPlanVirtualByes(t *testing.T) {
	plan, err := BuildPlan(makeEntrants(6), ByeVirtualMatch)
	require.NoError(t, err)

	assert.Equal(t, 8, plan.BracketSize)
	// The full 8-bracket tree is materialized, bye matches included.
	assert.Len(t, plan.Matches, 7)

	byes := 0
	for _, m := range plan.Matches {
		if m.Bye {
			byes++
			assert.Equal(t, SlotBye, m.Slot2.Kind)
			assert.Equal(t, 1, m.Round)
		}
	}
	assert.Equal(t, 2, byes)
}

func TestBuildPlanDirectAdvanceByes(t *testing.T) {
	plan, err := BuildPlan(makeEntrants(6), ByeDirectAdvance)
	require.NoError(t, err)

	// Seeds 1 and 2 skip round 1 entirely: 2 first-round matches,
	// 2 semifinals, 1 final.
	require.Len(t, plan.Matches, 5)
	for _, m := range plan.Matches {
		assert.False(t, m.Bye, "match %s should not be a bye", m.UID)
	}

	// The skipped entrants appear as concrete entrants in round 2.
	round2Entrants := []int{}
	for _, m := range plan.Matches {
		if m.Round != 2 {
			continue
		}
		for _, slot := range []Slot{m.Slot1, m.Slot2} {
			if slot.Kind == SlotEntrant {
				round2Entrants = append(round2Entrants, slot.Entrant.Seed)
			}
		}
	}
	assert.ElementsMatch(t, []int{1, 2}, round2Entrants)
}

func TestBuildPlanRoundNamesBackwardFromFinal(t *testing.T) {
	plan, err := BuildPlan(makeEntrants(16), ByeVirtualMatch)
	require.NoError(t, err)

	names := map[int]string{}
	for _, m := range plan.Matches {
		names[m.Round] = m.RoundName
	}
	assert.Equal(t, "Round of 16", names[1])
	assert.Equal(t, "Quarter Finals", names[2])
	assert.Equal(t, "Semi Finals", names[3])
	assert.Equal(t, "Final", names[4])
}

func TestBuildPlanDeepBracketNamesNumericEarlyRounds(t *testing.T) {
	plan, err := BuildPlan(makeEntrants(128), ByeVirtualMatch)
	require.NoError(t, err)
	assert.Equal(t, "Round 1", plan.Matches[0].RoundName)
}

func TestBuildPlanErrors(t *testing.T) {
	_, err := BuildPlan(makeEntrants(1), ByeVirtualMatch)
	assert.ErrorIs(t, err, ErrNotEnoughEntrants)

	dup := makeEntrants(4)
	dup[3].Seed = 3
	_, err = BuildPlan(dup, ByeVirtualMatch)
	assert.ErrorIs(t, err, ErrBadSeeds)

	gap := makeEntrants(4)
	gap[3].Seed = 9
	_, err = BuildPlan(gap, ByeVirtualMatch)
	assert.ErrorIs(t, err, ErrBadSeeds)
}

func TestBuildPlanAcceptsUnsortedEntrants(t *testing.T) {
	entrants := makeEntrants(8)
	entrants[0], entrants[7] = entrants[7], entrants[0]
	entrants[2], entrants[5] = entrants[5], entrants[2]

	plan, err := BuildPlan(entrants, ByeVirtualMatch)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Matches[0].Slot1.Entrant.Seed)
	assert.Equal(t, 8, plan.Matches[0].Slot2.Entrant.Seed)
}

func TestPairRoundOddFeedersFreePass(t *testing.T) {
	plan := &Plan{}
	id := func(n int) *Entrant {
		e := Entrant{Seed: n}
		return &e
	}
	feeders := []node{
		{entrant: id(1)},
		{entrant: id(2)},
		{entrant: id(3)},
	}

	next := plan.pairRound(feeders, 1, "Round 1", ByeVirtualMatch)
	require.Len(t, next, 2)
	require.Len(t, plan.Matches, 2)
	assert.True(t, plan.Matches[1].Bye)
	assert.Equal(t, SlotBye, plan.Matches[1].Slot2.Kind)
}

func TestPairRoundTwoByesPropagate(t *testing.T) {
	plan := &Plan{}
	feeders := []node{{bye: true}, {bye: true}}
	next := plan.pairRound(feeders, 1, "Round 1", ByeVirtualMatch)
	require.Len(t, next, 1)
	assert.True(t, next[0].bye)
	assert.Empty(t, plan.Matches)
}

func TestBuildPlanUIDsAreUnique(t *testing.T) {
	plan, err := BuildPlan(makeEntrants(18), ByeVirtualMatch)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, m := range plan.Matches {
		require.False(t, seen[m.UID], "duplicate uid %s", m.UID)
		seen[m.UID] = true
	}
}

func ExampleSeedingOrder() {
	fmt.Println(SeedingOrder(8))
	// Output: [1 8 4 5 2 7 3 6]
}
