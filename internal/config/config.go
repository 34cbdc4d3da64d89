// Package config holds the runtime configuration assembled from flags
// and persisted settings.
package config

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ayusman/pinchglobe/internal/detector"
	"github.com/ayusman/pinchglobe/internal/gesture"
	"github.com/ayusman/pinchglobe/internal/logging"
	"github.com/ayusman/pinchglobe/internal/scene"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Setting keys accepted by ApplySettings and the settings API.
const (
	KeyPinchThreshold   = "pinch_threshold"
	KeyReleaseThreshold = "release_threshold"
	KeyCoordinateScale  = "coordinate_scale"
	KeyRotationScale    = "rotation_scale"
	KeyCameraID         = "camera_id"
	KeyMinConfidence    = "min_confidence"
)

// Keys lists every recognised setting key in the order ApplySettings
// applies them. The pinch threshold precedes the release threshold so a
// stored release value always wins over the linked one.
var Keys = []string{
	KeyPinchThreshold,
	KeyReleaseThreshold,
	KeyCoordinateScale,
	KeyRotationScale,
	KeyCameraID,
	KeyMinConfidence,
}

// AppConfig is the full runtime configuration of the process.
type AppConfig struct {
	Addr      string
	DataDir   string
	StaticDir string
	CameraID  int
	VideoFile string
	PluginDir string
	ZMQAddr   string
	Pointer   bool
	Tray      bool
	ForceMock bool
	MotionPct float64

	Log      logging.Config
	Detector detector.Config
	Gesture  gesture.Config
	Scene    scene.Config
}

// Default returns the configuration the interaction was tuned with.
func Default() AppConfig {
	return AppConfig{
		Addr:      ":8080",
		MotionPct: 1.0,
		Log:       logging.DefaultConfig(),
		Detector:  detector.DefaultConfig(),
		Gesture:   gesture.DefaultConfig(),
		Scene:     scene.DefaultConfig(),
	}
}

// ApplySettings overrides fields from persisted key/value settings in
// the order of Keys. Unknown keys are reported so a typo does not
// silently do nothing.
func (c *AppConfig) ApplySettings(settings map[string]string) error {
	for key := range settings {
		if !KnownKey(key) {
			return fmt.Errorf("%w: unknown setting %q", ErrInvalid, key)
		}
	}
	for _, key := range Keys {
		value, ok := settings[key]
		if !ok {
			continue
		}
		if err := c.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Set applies a single setting.
func (c *AppConfig) Set(key, value string) error {
	switch key {
	case KeyPinchThreshold:
		// Without hysteresis the release threshold tracks the pinch threshold.
		p := &c.Gesture.Pinch
		linked := p.ReleaseThreshold == p.Threshold
		if err := parseFloat(key, value, &p.Threshold); err != nil {
			return err
		}
		if linked {
			p.ReleaseThreshold = p.Threshold
		}
		return nil
	case KeyReleaseThreshold:
		return parseFloat(key, value, &c.Gesture.Pinch.ReleaseThreshold)
	case KeyCoordinateScale:
		return parseFloat(key, value, &c.Scene.CoordinateScale)
	case KeyRotationScale:
		return parseFloat(key, value, &c.Scene.RotationScale)
	case KeyCameraID:
		id, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, key, value)
		}
		c.CameraID = id
		return nil
	case KeyMinConfidence:
		var conf float64
		if err := parseFloat(key, value, &conf); err != nil {
			return err
		}
		c.Detector.MinDetectionConf = conf
		c.Detector.MinPresenceConf = conf
		c.Detector.MinTrackingConf = conf
		return nil
	default:
		return fmt.Errorf("%w: unknown setting %q", ErrInvalid, key)
	}
}

// KnownKey reports whether key is a recognised setting.
func KnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

func parseFloat(key, value string, dst *float64) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a number", ErrInvalid, key, value)
	}
	*dst = f
	return nil
}

// Validate checks ranges.
func (c AppConfig) Validate() error {
	p := c.Gesture.Pinch
	switch {
	case p.Threshold <= 0 || p.Threshold > 1:
		return fmt.Errorf("%w: pinch threshold %v outside (0, 1]", ErrInvalid, p.Threshold)
	case p.ReleaseThreshold != 0 && p.ReleaseThreshold < p.Threshold:
		return fmt.Errorf("%w: release threshold %v below pinch threshold %v", ErrInvalid, p.ReleaseThreshold, p.Threshold)
	case c.Scene.CoordinateScale <= 0:
		return fmt.Errorf("%w: coordinate scale must be positive", ErrInvalid)
	case c.Scene.RotationScale == 0:
		return fmt.Errorf("%w: rotation scale must be non-zero", ErrInvalid)
	case c.CameraID < 0:
		return fmt.Errorf("%w: camera id %d", ErrInvalid, c.CameraID)
	case c.Detector.MaxHands < 1:
		return fmt.Errorf("%w: max hands %d", ErrInvalid, c.Detector.MaxHands)
	case c.Detector.MinDetectionConf < 0 || c.Detector.MinDetectionConf > 1:
		return fmt.Errorf("%w: min confidence %v outside [0, 1]", ErrInvalid, c.Detector.MinDetectionConf)
	case c.MotionPct <= 0:
		return fmt.Errorf("%w: motion threshold must be positive", ErrInvalid)
	}
	return nil
}

// Resolve layers persisted settings over base and validates the result.
func Resolve(base AppConfig, settings map[string]string) (AppConfig, error) {
	if err := base.ApplySettings(settings); err != nil {
		return base, err
	}
	return base, base.Validate()
}

// Amend resolves settings with key set to value, leaving settings
// untouched. A write accepted by Amend resolves the same way on the next
// reload.
func Amend(base AppConfig, settings map[string]string, key, value string) (AppConfig, error) {
	next := make(map[string]string, len(settings)+1)
	for k, v := range settings {
		next[k] = v
	}
	next[key] = value
	return Resolve(base, next)
}
