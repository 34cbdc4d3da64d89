// Package gesture turns per-frame hand landmarks into debounced interaction events.
package gesture

import "fmt"

// Role identifies which of the user's hands owns an interaction.
type Role string

const (
	RoleNone  Role = "none"
	RoleLeft  Role = "left"
	RoleRight Role = "right"
	RoleBoth  Role = "both"
)

// EventKind is the type of an interaction event.
type EventKind string

const (
	// EventPress fires once on the rising edge of a single-hand pinch.
	EventPress EventKind = "press"
	// EventMove fires on every frame a single-hand pinch is held after the press.
	EventMove EventKind = "move"
	// EventRelease fires once when a held single-hand pinch stops.
	EventRelease EventKind = "release"
	// EventBothPinchEdge fires once on the rising edge of a two-hand pinch.
	EventBothPinchEdge EventKind = "both_pinch_edge"
)

// Point2 is a pointer position in normalized [0,1] landmark space.
type Point2 struct {
	X float64 `json:"x" cbor:"x"`
	Y float64 `json:"y" cbor:"y"`
}

// Event is a single interaction emitted by the interpreter.
//
// X and Y are the index fingertip in normalized landmark space for
// press and move; release repeats the last pointer position. Spread is
// only set for EventBothPinchEdge.
type Event struct {
	Kind        EventKind `json:"kind" cbor:"kind"`
	Role        Role      `json:"role" cbor:"role"`
	X           float64   `json:"x" cbor:"x"`
	Y           float64   `json:"y" cbor:"y"`
	Spread      float64   `json:"spread,omitempty" cbor:"spread,omitempty"`
	TimestampMs int64     `json:"timestamp_ms" cbor:"timestamp_ms"`
}

// Point returns the event position.
func (e Event) Point() Point2 {
	return Point2{X: e.X, Y: e.Y}
}

func (e Event) String() string {
	switch e.Kind {
	case EventBothPinchEdge:
		return fmt.Sprintf("%s(spread=%.3f)", e.Kind, e.Spread)
	case EventRelease:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Role)
	default:
		return fmt.Sprintf("%s(%.3f, %.3f, %s)", e.Kind, e.X, e.Y, e.Role)
	}
}

func press(p Point2, role Role, ts int64) Event {
	return Event{Kind: EventPress, Role: role, X: p.X, Y: p.Y, TimestampMs: ts}
}

func move(p Point2, role Role, ts int64) Event {
	return Event{Kind: EventMove, Role: role, X: p.X, Y: p.Y, TimestampMs: ts}
}

func release(p Point2, role Role, ts int64) Event {
	return Event{Kind: EventRelease, Role: role, X: p.X, Y: p.Y, TimestampMs: ts}
}

func bothPinchEdge(spread float64, ts int64) Event {
	return Event{Kind: EventBothPinchEdge, Role: RoleBoth, Spread: spread, TimestampMs: ts}
}
