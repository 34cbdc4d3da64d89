// Package app runs the capture, detection and interpretation loop and
// fans the resulting events out to the globe and the other sinks.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ayusman/pinchglobe/internal/capture"
	"github.com/ayusman/pinchglobe/internal/config"
	"github.com/ayusman/pinchglobe/internal/detector"
	"github.com/ayusman/pinchglobe/internal/gesture"
	"github.com/ayusman/pinchglobe/internal/scene"
	"github.com/ayusman/pinchglobe/internal/sink"
)

const (
	// IdleAfterFrames is how many quiet frames drop the camera to IdleFPS.
	IdleAfterFrames = 60
	// MaxReadErrors consecutive read failures end the pipeline.
	MaxReadErrors = 30
)

// ErrAlreadyRunning is returned by Start on a running app.
var ErrAlreadyRunning = errors.New("pipeline already running")

// Options carries the pieces New would otherwise build itself.
type Options struct {
	Config   config.AppConfig
	Log      *zap.Logger
	Camera   capture.Camera
	Detector detector.Detector
}

// Stats are pipeline counters.
type Stats struct {
	Frames    uint64 `json:"frames"`
	Stale     uint64 `json:"stale"`
	Events    uint64 `json:"events"`
	Dropped   uint64 `json:"dropped"`
	DetectErr uint64 `json:"detect_errors"`
}

// App orchestrates the frame loop.
type App struct {
	log          *zap.Logger
	camera       capture.Camera
	motion       *capture.MotionDetector
	governor     *capture.RateGovernor
	detector     detector.Detector
	detectorName string
	interpreter  *gesture.Interpreter
	bus          *sink.Bus
	globe        *scene.Globe
	preview      *capture.Preview

	enabled atomic.Bool
	pending atomic.Pointer[config.AppConfig]

	frames    atomic.Uint64
	stale     atomic.Uint64
	events    atomic.Uint64
	detectErr atomic.Uint64

	mu     sync.Mutex
	cfg    config.AppConfig
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// New builds an app. Unless overridden in opts, the camera is the
// configured video file or device, and the detector is MediaPipe with a
// mock fallback when it cannot be started.
func New(opts Options) *App {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	cfg := opts.Config

	a := &App{
		log:         log.With(zap.String("component", "app")),
		camera:      opts.Camera,
		detector:    opts.Detector,
		interpreter: gesture.NewInterpreter(cfg.Gesture),
		bus:         sink.NewBus(log),
		globe:       scene.NewGlobe(cfg.Scene),
		preview:     capture.NewPreview(),
		motion:      capture.NewMotionDetector(cfg.MotionPct),
		cfg:         cfg,
	}
	a.enabled.Store(true)

	if a.camera == nil {
		if cfg.VideoFile != "" {
			a.camera = capture.NewFileCamera(cfg.VideoFile)
		} else {
			a.camera = capture.NewCamera(cfg.CameraID)
		}
	}
	a.governor = capture.NewRateGovernor(a.camera, a.motion, capture.DefaultFPS, capture.IdleFPS, IdleAfterFrames, log)

	switch {
	case a.detector != nil:
		a.detectorName = "custom"
	case cfg.ForceMock:
		a.detector = detector.NewMockDetector()
		a.detectorName = "mock"
	default:
		if mp, err := detector.NewMediaPipeDetector(cfg.Detector, log); err == nil {
			a.detector = mp
			a.detectorName = "mediapipe"
		} else {
			a.log.Warn("MediaPipe not available, using mock detector", zap.Error(err))
			a.detector = detector.NewMockDetector()
			a.detectorName = "mock"
		}
	}

	// The globe is the primary consumer and is updated in the frame loop.
	a.bus.Attach(a.globe)

	return a
}

// Start opens the camera and launches the frame loop. A camera that
// cannot be opened is returned as an error and nothing is started.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return ErrAlreadyRunning
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(capture.DefaultFPS)

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.err = nil

	go func(done chan struct{}) {
		err := a.runPipeline(ctx)
		a.mu.Lock()
		a.err = err
		a.mu.Unlock()
		close(done)
	}(a.done)

	a.log.Info("pipeline started", zap.String("detector", a.detectorName))
	return nil
}

// Stop ends the frame loop, waits for it, and releases the camera and
// detector.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	if err := a.camera.Close(); err != nil {
		a.log.Warn("close camera", zap.Error(err))
	}
	a.motion.Close()
	if err := a.detector.Close(); err != nil {
		a.log.Warn("close detector", zap.Error(err))
	}

	a.log.Info("pipeline stopped", zap.Any("stats", a.Stats()))
}

// Done is closed when the frame loop exits, either from Stop or on its own.
func (a *App) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return a.done
}

// Err returns why the frame loop ended, nil after a clean stop or the
// end of a recording.
func (a *App) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// SetEnabled pauses or resumes interpretation. Pausing mid-drag releases it.
func (a *App) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
}

// IsEnabled reports whether frames are being interpreted.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// Reconfigure applies new tunables. The scene mapping changes at once;
// the interpreter picks its change up on the next frame.
func (a *App) Reconfigure(cfg config.AppConfig) {
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	a.globe.SetConfig(cfg.Scene)
	a.pending.Store(&cfg)
	a.log.Info("configuration updated",
		zap.Float64("pinch_threshold", cfg.Gesture.Pinch.Threshold),
		zap.Float64("release_threshold", cfg.Gesture.Pinch.ReleaseThreshold),
		zap.Float64("coordinate_scale", cfg.Scene.CoordinateScale),
		zap.Float64("rotation_scale", cfg.Scene.RotationScale),
	)
}

// Config returns the active configuration.
func (a *App) Config() config.AppConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Bus returns the event bus sinks attach to.
func (a *App) Bus() *sink.Bus { return a.bus }

// Globe returns the scene driven by the events.
func (a *App) Globe() *scene.Globe { return a.globe }

// Preview returns the live camera preview.
func (a *App) Preview() *capture.Preview { return a.preview }

// DetectorName reports which detector backend is in use.
func (a *App) DetectorName() string { return a.detectorName }

// Stats returns a snapshot of the pipeline counters.
func (a *App) Stats() Stats {
	return Stats{
		Frames:    a.frames.Load(),
		Stale:     a.stale.Load(),
		Events:    a.events.Load(),
		Dropped:   a.bus.Dropped(),
		DetectErr: a.detectErr.Load(),
	}
}

// Status is the health payload for the HTTP server.
func (a *App) Status() map[string]any {
	return map[string]any{
		"detector": a.detectorName,
		"enabled":  a.IsEnabled(),
		"pipeline": a.Stats(),
	}
}
