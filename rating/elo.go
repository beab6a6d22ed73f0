// Package rating implements the Elo-like rating update applied after
// every completed match with two real sides. All functions are pure;
// persistence and rank maintenance live in the service layer.
package rating

import (
	"errors"
	"math"

	"github.com/courtline/tournament-engine/models"
)

const (
	// Baseline is substituted for missing or invalid ratings.
	Baseline = models.DefaultRating

	ratingScale = 400.0

	// maxSetMargin is the largest possible single-set margin used to
	// normalize dominance (a 6-0 set).
	maxSetMargin = 6.0

	// DominanceWeight scales how much a blowout inflates the K-factor;
	// DominanceCap bounds the multiplier to prevent runaway swings.
	DominanceWeight = 0.5
	DominanceCap    = 1.75
)

var ErrNoRatedUsers = errors.New("cannot rate a side with zero identifiable users")

// Expected is the standard logistic expectation of a team with the
// given average rating against the opponent's average.
func Expected(teamAvg, opponentAvg float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opponentAvg-teamAvg)/ratingScale))
}

// TeamAverage is the mean rating of a side's (up to two) users.
// Non-positive and NaN ratings fall back to the baseline.
func TeamAverage(ratings []float64) float64 {
	if len(ratings) == 0 {
		return Baseline
	}
	sum := 0.0
	for _, r := range ratings {
		if r <= 0 || math.IsNaN(r) {
			r = Baseline
		}
		sum += r
	}
	return sum / float64(len(ratings))
}

// KFactor depends on round importance; unnamed rounds get the base 28.
func KFactor(roundName string) float64 {
	switch roundName {
	case "Final":
		return 40
	case "Semi Finals":
		return 36
	case "Quarter Finals":
		return 32
	default:
		return 28
	}
}

// DominanceMultiplier derives a K scaling factor from the average
// per-set margin: a blowout earns more rating than a narrow win,
// bounded by DominanceCap.
func DominanceMultiplier(sets []models.SetScore) float64 {
	if len(sets) == 0 {
		return 1.0
	}
	totalMargin := 0.0
	for _, s := range sets {
		totalMargin += math.Abs(float64(s.P1 - s.P2))
	}
	dominance := (totalMargin / float64(len(sets))) / maxSetMargin
	multiplier := 1.0 + dominance*DominanceWeight
	if multiplier > DominanceCap {
		multiplier = DominanceCap
	}
	return multiplier
}

// Outcome is the computed rating movement for one match.
type Outcome struct {
	K           float64
	WinnerDelta float64
	LoserDelta  float64
}

// MatchDeltas computes the per-user rating deltas for a completed
// match. Every user on the winning side moves by WinnerDelta and every
// user on the losing side by LoserDelta; both are derived from the team
// averages so doubles pairs move together.
func MatchDeltas(winnerRatings, loserRatings []float64, roundName string, sets []models.SetScore) (Outcome, error) {
	if len(winnerRatings) == 0 || len(loserRatings) == 0 {
		return Outcome{}, ErrNoRatedUsers
	}

	winAvg := TeamAverage(winnerRatings)
	loseAvg := TeamAverage(loserRatings)

	k := KFactor(roundName) * DominanceMultiplier(sets)
	winExpectation := Expected(winAvg, loseAvg)
	loseExpectation := Expected(loseAvg, winAvg)

	return Outcome{
		K:           k,
		WinnerDelta: k * (1 - winExpectation),
		LoserDelta:  k * (0 - loseExpectation),
	}, nil
}

// categoryBase maps each letter bracket to its lower bound.
var categoryBrackets = []struct {
	upper float64
	label string
	base  float64
}{
	{1050, "D", 900},
	{1200, "C", 1050},
	{1350, "B", 1200},
	{1500, "A", 1350},
}

// Category maps a rating to its letter+modifier label, e.g. "B-" or
// "C+". Ratings of 1500 and above are the fixed top label "A+".
func Category(ratingValue float64) string {
	for _, b := range categoryBrackets {
		if ratingValue < b.upper {
			diff := ratingValue - b.base
			switch {
			case diff < 50:
				return b.label + "-"
			case diff < 100:
				return b.label
			default:
				return b.label + "+"
			}
		}
	}
	return "A+"
}

// Letter strips the modifier from a category label; rank recomputation
// is scoped to the letters touched by a match.
func Letter(category string) string {
	if category == "" {
		return ""
	}
	return category[:1]
}
