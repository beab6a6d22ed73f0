package models

import (
	"fmt"
	"strconv"
	"strings"
)

// SetScore is one entry of a match score CSV, "p1-p2".
type SetScore struct {
	P1 int `json:"p1"`
	P2 int `json:"p2"`
}

// ParseScore parses a per-set score CSV like "6-4,3-6,7-5".
func ParseScore(score string) ([]SetScore, error) {
	trimmed := strings.TrimSpace(score)
	if trimmed == "" {
		return nil, fmt.Errorf("score is empty")
	}
	parts := strings.Split(trimmed, ",")
	sets := make([]SetScore, 0, len(parts))
	for i, part := range parts {
		pair := strings.SplitN(strings.TrimSpace(part), "-", 2)
		if len(pair) != 2 {
			return nil, fmt.Errorf("set %d: expected \"p1-p2\", got %q", i+1, part)
		}
		p1, err := strconv.Atoi(strings.TrimSpace(pair[0]))
		if err != nil {
			return nil, fmt.Errorf("set %d: invalid p1 score %q", i+1, pair[0])
		}
		p2, err := strconv.Atoi(strings.TrimSpace(pair[1]))
		if err != nil {
			return nil, fmt.Errorf("set %d: invalid p2 score %q", i+1, pair[1])
		}
		if p1 < 0 || p2 < 0 {
			return nil, fmt.Errorf("set %d: negative score", i+1)
		}
		sets = append(sets, SetScore{P1: p1, P2: p2})
	}
	return sets, nil
}

// SetsWon counts the sets each side took. Drawn sets count for neither.
func SetsWon(sets []SetScore) (p1, p2 int) {
	for _, s := range sets {
		switch {
		case s.P1 > s.P2:
			p1++
		case s.P2 > s.P1:
			p2++
		}
	}
	return p1, p2
}

// TotalPoints sums the raw points of each side across all sets.
func TotalPoints(sets []SetScore) (p1, p2 int) {
	for _, s := range sets {
		p1 += s.P1
		p2 += s.P2
	}
	return p1, p2
}
