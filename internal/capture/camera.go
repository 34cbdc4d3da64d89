// Package capture reads timestamped video frames from a webcam or a recording.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	DefaultFPS    = 30
	IdleFPS       = 5
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a source that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEndOfStream is returned once a finite source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
)

// Frame is a captured image and its presentation timestamp.
//
// TimestampMs is monotonic per source. Two frames carrying the same
// timestamp are the same video frame and are processed once.
type Frame struct {
	Mat         *gocv.Mat
	TimestampMs int64
}

// Close releases the frame's image.
func (f Frame) Close() {
	if f.Mat != nil {
		f.Mat.Close()
	}
}

// Camera is a source of frames.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (Frame, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

type deviceCamera struct {
	deviceID int
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
	fps      int
	opened   time.Time
	lastTs   int64
}

// NewCamera returns a Camera for the given video device.
func NewCamera(deviceID int) Camera {
	return &deviceCamera{
		deviceID: deviceID,
		fps:      DefaultFPS,
	}
}

// Open starts capture at 640x480.
func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.deviceID, err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return fmt.Errorf("open camera %d: device unavailable", c.deviceID)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.running = true
	c.opened = time.Now()
	c.lastTs = -1

	return nil
}

func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame grabs the next frame. The timestamp is milliseconds since
// Open; the caller owns the returned Mat.
func (c *deviceCamera) ReadFrame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return Frame{}, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return Frame{}, fmt.Errorf("read camera %d: device stopped delivering frames", c.deviceID)
	}
	if mat.Empty() {
		mat.Close()
		return Frame{}, fmt.Errorf("read camera %d: empty frame", c.deviceID)
	}

	// Read blocks until the device delivers a new frame, so at camera
	// rates every frame gets a later millisecond than the one before.
	// The pipeline's stale skip depends on that.
	ts := time.Since(c.opened).Milliseconds()
	if ts < c.lastTs {
		ts = c.lastTs
	}
	c.lastTs = ts

	return Frame{Mat: &mat, TimestampMs: ts}, nil
}

// SetFPS changes the requested capture rate. Values <= 0 are ignored.
func (c *deviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *deviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
