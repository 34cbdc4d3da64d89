package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns queued results first, in order, then the configured hands.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	queue [][]HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned once the queue is drained.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// Queue appends per-call results, one slice of hands per DetectForVideo call.
func (m *MockDetector) Queue(frames ...[]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, frames...)
}

// SetError sets the error that will be returned by DetectForVideo.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many times DetectForVideo has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// DetectForVideo returns the next queued hands, the configured hands, or the configured error.
func (m *MockDetector) DetectForVideo(frame *gocv.Mat, timestampMs int64) (FrameResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return FrameResult{}, m.err
	}

	hands := m.hands
	if len(m.queue) > 0 {
		hands = m.queue[0]
		m.queue = m.queue[1:]
	}
	return FrameResult{Hands: hands, TimestampMs: timestampMs}, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// PinchGap and OpenGap are the thumb-to-index distances used by the presets.
const (
	PinchGap = 0.03
	OpenGap  = 0.2
)

// PinchingHand returns a hand whose index tip sits at (x, y) with the
// thumb tip PinchGap away, well inside the pinch threshold.
func PinchingHand(handedness Handedness, x, y float64) HandLandmarks {
	return handWithGap(handedness, x, y, PinchGap)
}

// OpenHand returns a hand whose index tip sits at (x, y) with the thumb
// tip OpenGap away, well outside the pinch threshold.
func OpenHand(handedness Handedness, x, y float64) HandLandmarks {
	return handWithGap(handedness, x, y, OpenGap)
}

// handWithGap builds an upright open-palm skeleton and then places the
// thumb tip exactly gap away from the index tip along X.
func handWithGap(handedness Handedness, x, y, gap float64) HandLandmarks {
	hand := OpenPalmLandmarks()
	hand.Handedness = handedness

	// Shift the skeleton so the index tip lands on (x, y).
	dx := x - hand.Points[IndexTip].X
	dy := y - hand.Points[IndexTip].Y
	for i := range hand.Points {
		hand.Points[i].X += dx
		hand.Points[i].Y += dy
	}

	tip := hand.Points[IndexTip]
	hand.Points[ThumbTip] = Point3D{X: tip.X + gap, Y: tip.Y, Z: tip.Z}
	return hand
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm.
// All fingers are extended outward.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: HandednessRight,
		Score:      0.95,
	}

	// Wrist at base
	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	// Index finger extended upward
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	// Middle finger extended upward (slightly longer)
	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	// Ring finger extended upward
	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	// Pinky finger extended upward
	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}
