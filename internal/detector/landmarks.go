// Package detector provides hand landmark detection interfaces and types for gesture interpretation.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Handedness is the left/right label the landmarker assigns to a hand.
// The camera faces the user, so the label is mirrored: "Right" is the
// user's left hand.
type Handedness string

const (
	HandednessLeft  Handedness = "Left"
	HandednessRight Handedness = "Right"
)

// Point3D represents a 3D point in normalized landmark space.
// X and Y are typically in [0,1]; Z is depth relative to the wrist.
type Point3D struct {
	X float64 `json:"x" cbor:"x"`
	Y float64 `json:"y" cbor:"y"`
	Z float64 `json:"z" cbor:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points" cbor:"points"`
	Handedness Handedness            `json:"handedness" cbor:"handedness"`
	Score      float64               `json:"score" cbor:"score"`
}

// ThumbTip returns the thumb tip landmark.
func (h *HandLandmarks) ThumbTip() Point3D { return h.Points[ThumbTip] }

// IndexTip returns the index finger tip landmark.
func (h *HandLandmarks) IndexTip() Point3D { return h.Points[IndexTip] }

// FrameResult holds the hands detected in a single video frame.
// It has no lifecycle beyond the frame it was produced for.
type FrameResult struct {
	Hands       []HandLandmarks `json:"hands" cbor:"hands"`
	TimestampMs int64           `json:"timestamp_ms" cbor:"timestamp_ms"`
}

// NumHands returns the number of hands in the frame.
func (r FrameResult) NumHands() int {
	return len(r.Hands)
}

// Distance calculates the Euclidean distance between two 3D points.
func Distance(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
