package gesture

import "github.com/ayusman/pinchglobe/internal/detector"

// RoleFromHandedness maps a landmarker label to the user's hand.
// The camera is front-facing, so labels are mirrored: "Right" is the
// user's left hand and "Left" is the user's right hand.
func RoleFromHandedness(h detector.Handedness) Role {
	switch h {
	case detector.HandednessRight:
		return RoleLeft
	case detector.HandednessLeft:
		return RoleRight
	default:
		return RoleNone
	}
}

// State is everything the interpreter carries from one frame to the next.
type State struct {
	PinchStreak     Streak `json:"pinch_streak"`
	BothPinchStreak Streak `json:"both_pinch_streak"`
	ActiveHand      Role   `json:"active_hand"`
	// DragEngaged follows the single-hand hold, so it stays set through
	// frames with no hands or two hands until a release is emitted.
	DragEngaged bool `json:"drag_engaged"`
	LastPointer     Point2 `json:"last_pointer"`
	// HeldRole is the role that pressed the current single-hand hold.
	HeldRole Role `json:"held_role"`
	// Spread is the last recorded two-hand pinch spread.
	Spread float64 `json:"spread"`

	LastTimestampMs int64 `json:"last_timestamp_ms"`
	seen            bool
}

// NewState returns the idle state.
func NewState() State {
	return State{ActiveHand: RoleNone, HeldRole: RoleNone}
}

// Stale reports whether a frame with this timestamp was already processed.
func (s State) Stale(timestampMs int64) bool {
	return s.seen && timestampMs == s.LastTimestampMs
}

// Config holds the interpreter tunables.
type Config struct {
	Pinch PinchDetector
}

// DefaultConfig returns the single-threshold pinch configuration.
func DefaultConfig() Config {
	return Config{Pinch: NewPinchDetector(DefaultPinchThreshold)}
}

// Step is the per-frame transition. It never fails; a frame whose
// timestamp has not advanced returns the state unchanged and no events.
func Step(cfg Config, s State, frame detector.FrameResult) (State, []Event) {
	if s.Stale(frame.TimestampMs) {
		return s, nil
	}
	s.LastTimestampMs = frame.TimestampMs
	s.seen = true

	var events []Event
	switch frame.NumHands() {
	case 0:
		// Nothing to interpret. Holds survive until a hand shows again.
		s.ActiveHand = RoleNone
	case 2:
		s.ActiveHand = RoleBoth
		s, events = stepBoth(cfg, s, &frame.Hands[0], &frame.Hands[1], frame.TimestampMs)
	default:
		s, events = stepSingle(cfg, s, &frame.Hands[0], frame.TimestampMs)
	}

	s.DragEngaged = s.PinchStreak.Held()
	return s, events
}

func stepSingle(cfg Config, s State, hand *detector.HandLandmarks, ts int64) (State, []Event) {
	role := RoleFromHandedness(hand.Handedness)
	s.ActiveHand = role

	holds := cfg.Pinch.Holding(hand, s.PinchStreak.Held())
	tip := hand.IndexTip()
	p := Point2{X: tip.X, Y: tip.Y}

	var (
		events []Event
		edge   Edge
	)
	s.PinchStreak, edge = s.PinchStreak.Next(holds)

	switch edge {
	case EdgeRise:
		events = append(events, press(p, role, ts))
		s.HeldRole = role
		s.LastPointer = p
	case EdgeHold:
		if role != s.HeldRole {
			// The tracker swapped hands mid-hold.
			events = append(events, release(s.LastPointer, s.HeldRole, ts), press(p, role, ts))
			s.HeldRole = role
		} else {
			events = append(events, move(p, role, ts))
		}
		s.LastPointer = p
	case EdgeFall:
		events = append(events, release(s.LastPointer, s.HeldRole, ts))
		s.HeldRole = RoleNone
	}

	return s, events
}

func stepBoth(cfg Config, s State, a, b *detector.HandLandmarks, ts int64) (State, []Event) {
	held := s.BothPinchStreak.Held()
	holds := cfg.Pinch.Holding(a, held) && cfg.Pinch.Holding(b, held)

	var edge Edge
	s.BothPinchStreak, edge = s.BothPinchStreak.Next(holds)
	if edge != EdgeRise {
		return s, nil
	}

	s.Spread = Spread(a, b)
	return s, []Event{bothPinchEdge(s.Spread, ts)}
}

// Interpreter owns a State and feeds frames through Step.
// It is not safe for concurrent use; the frame loop owns it.
type Interpreter struct {
	cfg   Config
	state State
}

// NewInterpreter creates an interpreter in the idle state.
func NewInterpreter(cfg Config) *Interpreter {
	return &Interpreter{cfg: cfg, state: NewState()}
}

// Process interprets one frame and returns the events it produced.
func (i *Interpreter) Process(frame detector.FrameResult) []Event {
	var events []Event
	i.state, events = Step(i.cfg, i.state, frame)
	return events
}

// Stale reports whether a frame with this timestamp would be skipped.
func (i *Interpreter) Stale(timestampMs int64) bool {
	return i.state.Stale(timestampMs)
}

// State returns a copy of the current state.
func (i *Interpreter) State() State {
	return i.state
}

// Config returns the interpreter configuration.
func (i *Interpreter) Config() Config {
	return i.cfg
}

// SetConfig swaps the tunables. The interaction state is kept, so a
// hold in progress continues under the new thresholds.
func (i *Interpreter) SetConfig(cfg Config) {
	i.cfg = cfg
}

// Reset returns the interpreter to idle. If a single-hand hold was in
// progress it is closed with a release at the last pointer position.
func (i *Interpreter) Reset() []Event {
	var events []Event
	if i.state.PinchStreak.Held() && i.state.HeldRole != RoleNone {
		events = append(events, release(i.state.LastPointer, i.state.HeldRole, i.state.LastTimestampMs))
	}
	i.state = NewState()
	return events
}
