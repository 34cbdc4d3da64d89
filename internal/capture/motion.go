package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
	"go.uber.org/zap"
)

const (
	blurKernel    = 21
	diffThreshold = 25
)

// MotionDetector measures the share of pixels that changed between
// consecutive frames.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prevGray  gocv.Mat
	primed    bool
}

// NewMotionDetector returns a detector that reports motion when more than
// threshold percent of pixels change.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect compares frame with the previous one. The first frame only
// primes the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	if !m.primed || m.prevGray.Rows() != blurred.Rows() || m.prevGray.Cols() != blurred.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, diffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100

	blurred.CopyTo(&m.prevGray)

	return changed > m.threshold, changed
}

// Reset drops the baseline.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases the baseline Mat. The detector stays usable.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.primed = false
}

// SetThreshold updates the percentage threshold. Values <= 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// RateGovernor lowers the capture rate while the scene is still and no
// hands are tracked, and restores it as soon as either changes.
//
// It only ever changes the camera rate. Every captured frame is still
// handed to the detector, so a pinch held perfectly still keeps
// producing move events.
type RateGovernor struct {
	camera Camera
	motion *MotionDetector
	log    *zap.Logger

	activeFPS   int
	idleFPS     int
	idleAfter   int
	quietFrames int
	idle        bool
}

// NewRateGovernor builds a governor switching camera between activeFPS
// and idleFPS after idleAfter consecutive quiet frames.
func NewRateGovernor(camera Camera, motion *MotionDetector, activeFPS, idleFPS, idleAfter int, log *zap.Logger) *RateGovernor {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateGovernor{
		camera:    camera,
		motion:    motion,
		log:       log.With(zap.String("component", "rate")),
		activeFPS: activeFPS,
		idleFPS:   idleFPS,
		idleAfter: idleAfter,
	}
}

// Observe records one frame and whether any hand was tracked in it.
func (g *RateGovernor) Observe(frame *gocv.Mat, handsTracked bool) {
	moving, changed := g.motion.Detect(frame)

	if moving || handsTracked {
		g.quietFrames = 0
		if g.idle {
			g.idle = false
			g.camera.SetFPS(g.activeFPS)
			g.log.Debug("activity resumed", zap.Float64("changed_pct", changed), zap.Bool("hands", handsTracked))
		}
		return
	}

	g.quietFrames++
	if !g.idle && g.quietFrames >= g.idleAfter {
		g.idle = true
		g.camera.SetFPS(g.idleFPS)
		g.log.Debug("scene idle, lowering capture rate", zap.Int("fps", g.idleFPS))
	}
}

// Idle reports whether the governor is at the idle rate.
func (g *RateGovernor) Idle() bool {
	return g.idle
}
