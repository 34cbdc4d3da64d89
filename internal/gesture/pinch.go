package gesture

import "github.com/ayusman/pinchglobe/internal/detector"

// DefaultPinchThreshold is the thumb-to-index distance, in normalized
// landmark units, below which a hand counts as pinching.
const DefaultPinchThreshold = 0.07

// PinchDetector classifies a hand as pinching from its thumb and index tips.
//
// With ReleaseThreshold equal to Threshold (the default) a single
// threshold is used for entering and leaving the pinch, so a distance
// hovering around it chatters between press and release. Setting
// ReleaseThreshold above Threshold adds a dead zone: an established
// pinch is kept until the distance reaches ReleaseThreshold.
//
// The fields are independent: lowering Threshold alone leaves a dead zone
// up to the old ReleaseThreshold. Use NewPinchDetector to move both.
type PinchDetector struct {
	Threshold        float64
	ReleaseThreshold float64
}

// NewPinchDetector returns a detector without hysteresis.
func NewPinchDetector(threshold float64) PinchDetector {
	return PinchDetector{Threshold: threshold, ReleaseThreshold: threshold}
}

// TipDistance returns the distance between the thumb tip and the index tip.
func TipDistance(hand *detector.HandLandmarks) float64 {
	return detector.Distance(hand.ThumbTip(), hand.IndexTip())
}

// IsPinching reports whether the tips are strictly closer than Threshold.
func (p PinchDetector) IsPinching(hand *detector.HandLandmarks) bool {
	return TipDistance(hand) < p.Threshold
}

// Holding reports whether the hand is pinching given whether it was
// pinching on the previous frame.
func (p PinchDetector) Holding(hand *detector.HandLandmarks, wasPinching bool) bool {
	if wasPinching && p.ReleaseThreshold > p.Threshold {
		return TipDistance(hand) < p.ReleaseThreshold
	}
	return p.IsPinching(hand)
}

// Spread returns the distance between two pinching hands: thumb to
// thumb, or index to index when the thumbs coincide.
func Spread(a, b *detector.HandLandmarks) float64 {
	if d := detector.Distance(a.ThumbTip(), b.ThumbTip()); d != 0 {
		return d
	}
	return detector.Distance(b.IndexTip(), a.IndexTip())
}
