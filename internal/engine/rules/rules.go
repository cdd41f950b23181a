// Package rules holds the pure decision functions for table lifecycle:
// legal status transitions, status derivation from occupancy, seat
// assignment and join-criteria gating. Nothing here mutates state or
// touches the clock.
package rules

type Status string

const (
	StatusIdle     Status = "idle"
	StatusWaiting  Status = "waiting"
	StatusMatching Status = "matching"
	StatusPlaying  Status = "playing"
)

// legalTransitions is the full edge set. playing -> playing is the
// consecutive-round self-edge; everything absent is refused.
var legalTransitions = map[Status]map[Status]bool{
	StatusIdle: {
		StatusWaiting: true,
	},
	StatusWaiting: {
		StatusMatching: true,
		StatusIdle:     true,
	},
	StatusMatching: {
		StatusPlaying: true,
		StatusWaiting: true,
		StatusIdle:    true,
	},
	StatusPlaying: {
		StatusMatching: true,
		StatusIdle:     true,
		StatusPlaying:  true,
	},
}

func IsValidTransition(from, to Status) bool {
	return legalTransitions[from][to]
}

// Derive maps an occupant count onto the status a non-playing table must
// hold. Callers never assign status by hand; they go through this or one
// of the StateAfter helpers.
func Derive(count, max int) Status {
	switch {
	case count <= 0:
		return StatusIdle
	case count < max:
		return StatusWaiting
	default:
		return StatusMatching
	}
}

func StateAfterJoin(count, max int) Status {
	return Derive(count, max)
}

func StateAfterLeave(count, max int) Status {
	return Derive(count, max)
}

func StateAfterCancelReady(count, max int) Status {
	return Derive(count, max)
}

type SeatStrategy string

const SeatSequential SeatStrategy = "sequential"

// NoSeat is returned when every index in [0, max) is taken.
const NoSeat = -1

// AssignSeat returns the seat index for a new occupant. The sequential
// strategy picks the smallest unoccupied index.
func AssignSeat(strategy SeatStrategy, occupied []int, max int) int {
	if max <= 0 {
		return NoSeat
	}
	taken := make([]bool, max)
	for _, s := range occupied {
		if s >= 0 && s < max {
			taken[s] = true
		}
	}
	switch strategy {
	case SeatSequential:
		fallthrough
	default:
		for i := 0; i < max; i++ {
			if !taken[i] {
				return i
			}
		}
	}
	return NoSeat
}

// CompatibleRatings reports whether two ratings sit within gap of each
// other. Both matchmakers share this notion of compatibility.
func CompatibleRatings(a, b, gap int) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= gap
}
