package brackets

// Pairing is one round-robin fixture between two participants.
type Pairing struct {
	Round int
	P1    int
	P2    int
}

// RoundRobinPairings schedules every participant against every other
// exactly once using the circle method: one participant stays fixed
// while the rest rotate each round. An odd field gets a rotating bye
// (the participant paired with the hole simply rests that round).
func RoundRobinPairings(participantIDs []int) []Pairing {
	n := len(participantIDs)
	if n < 2 {
		return nil
	}

	const hole = 0 // participant ids are positive
	ring := make([]int, 0, n+1)
	ring = append(ring, participantIDs...)
	if n%2 != 0 {
		ring = append(ring, hole)
	}
	size := len(ring)
	rounds := size - 1

	pairings := make([]Pairing, 0, n*(n-1)/2)
	for r := 1; r <= rounds; r++ {
		for i := 0; i < size/2; i++ {
			p1 := ring[i]
			p2 := ring[size-1-i]
			if p1 == hole || p2 == hole {
				continue
			}
			pairings = append(pairings, Pairing{Round: r, P1: p1, P2: p2})
		}
		// Rotate all but the first position.
		last := ring[size-1]
		copy(ring[2:], ring[1:size-1])
		ring[1] = last
	}
	return pairings
}
