package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedQualifiersTiersBeforeRecords(t *testing.T) {
	quals := []Qualifier{
		{ParticipantID: 1, GroupID: 10, Rank: 1, Wins: 2},
		{ParticipantID: 2, GroupID: 20, Rank: 1, Wins: 3},
		{ParticipantID: 3, GroupID: 10, Rank: 2, Wins: 2},
		{ParticipantID: 4, GroupID: 20, Rank: 2, Wins: 1},
	}

	seeded := SeedQualifiers(quals, nil)
	require.Len(t, seeded, 4)

	// All group winners precede all runners-up, regardless of record.
	assert.Equal(t, 1, seeded[0].Rank)
	assert.Equal(t, 1, seeded[1].Rank)
	assert.Equal(t, 2, seeded[2].Rank)
	assert.Equal(t, 2, seeded[3].Rank)

	// Within the winner tier, more wins seeds higher.
	assert.Equal(t, 2, seeded[0].ParticipantID)
	assert.Equal(t, 1, seeded[1].ParticipantID)
}

func TestSeedQualifiersRecordTiebreaks(t *testing.T) {
	quals := []Qualifier{
		{ParticipantID: 1, GroupID: 10, Rank: 1, Wins: 2, PointDiff: 5, PointsScored: 30},
		{ParticipantID: 2, GroupID: 20, Rank: 1, Wins: 2, PointDiff: 8, PointsScored: 25},
		{ParticipantID: 3, GroupID: 30, Rank: 1, Wins: 2, PointDiff: 5, PointsScored: 33},
	}

	seeded := SeedQualifiers(quals, nil)
	assert.Equal(t, []int{2, 3, 1}, []int{
		seeded[0].ParticipantID, seeded[1].ParticipantID, seeded[2].ParticipantID,
	})
}

func TestSeedQualifiersHeadToHeadOnlySameGroup(t *testing.T) {
	quals := []Qualifier{
		{ParticipantID: 5, GroupID: 10, Rank: 1, Wins: 2},
		{ParticipantID: 3, GroupID: 10, Rank: 1, Wins: 2},
	}
	// 5 beat 3 directly.
	h2h := func(a, b int) int {
		if (a == 5 && b == 3) || (a == 3 && b == 5) {
			return 5
		}
		return 0
	}

	seeded := SeedQualifiers(quals, h2h)
	assert.Equal(t, 5, seeded[0].ParticipantID)

	// Different groups: head-to-head is ignored, id breaks the tie.
	quals[1].GroupID = 20
	seeded = SeedQualifiers(quals, h2h)
	assert.Equal(t, 3, seeded[0].ParticipantID)
}

func TestSeedQualifiersStableIDFallback(t *testing.T) {
	quals := []Qualifier{
		{ParticipantID: 9, GroupID: 10, Rank: 1},
		{ParticipantID: 4, GroupID: 20, Rank: 1},
	}
	seeded := SeedQualifiers(quals, nil)
	assert.Equal(t, 4, seeded[0].ParticipantID)
	assert.Equal(t, 9, seeded[1].ParticipantID)
}

func TestSeedQualifiersDoesNotMutateInput(t *testing.T) {
	quals := []Qualifier{
		{ParticipantID: 9, GroupID: 10, Rank: 2},
		{ParticipantID: 4, GroupID: 20, Rank: 1},
	}
	_ = SeedQualifiers(quals, nil)
	assert.Equal(t, 9, quals[0].ParticipantID)
}
