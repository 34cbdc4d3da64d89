package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand landmark sources.
type Detector interface {
	// DetectForVideo analyzes a video frame captured at timestampMs and
	// returns the detected hands. A frame without hands yields an empty
	// FrameResult, not an error.
	DetectForVideo(frame *gocv.Mat, timestampMs int64) (FrameResult, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinDetectionConf is the minimum palm detection confidence (0.0-1.0).
	MinDetectionConf float64

	// MinPresenceConf is the minimum hand presence confidence (0.0-1.0).
	MinPresenceConf float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns the detection settings the globe was tuned with.
func DefaultConfig() Config {
	return Config{
		MaxHands:         2,
		MinDetectionConf: 0.9,
		MinPresenceConf:  0.9,
		MinTrackingConf:  0.9,
	}
}
