package gesture

// Edge is the transition a Streak observed on the latest frame.
type Edge int

const (
	// EdgeNone means the condition did not hold and was not held before.
	EdgeNone Edge = iota
	// EdgeRise is the first frame of a hold.
	EdgeRise
	// EdgeHold is any later frame of the same hold.
	EdgeHold
	// EdgeFall is the first frame after a hold ended.
	EdgeFall
)

func (e Edge) String() string {
	switch e {
	case EdgeRise:
		return "rise"
	case EdgeHold:
		return "hold"
	case EdgeFall:
		return "fall"
	default:
		return "none"
	}
}

// Streak counts consecutive frames a condition has held. Zero means idle.
type Streak int

// Next advances the streak with this frame's condition.
func (s Streak) Next(holds bool) (Streak, Edge) {
	switch {
	case holds && s == 0:
		return 1, EdgeRise
	case holds:
		return s + 1, EdgeHold
	case s > 0:
		return 0, EdgeFall
	default:
		return 0, EdgeNone
	}
}

// Held reports whether the condition is currently held.
func (s Streak) Held() bool {
	return s > 0
}
