package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back in-memory frames. Timestamps advance by Interval
// per frame unless set explicitly with SetTimestamps.
type MockCamera struct {
	mu         sync.Mutex
	frames     []*gocv.Mat
	timestamps []int64
	index      int
	reads      int64
	loop       bool
	running    bool

	Interval int64
}

// NewMockCamera creates a mock camera at roughly 30fps.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames:   frames,
		loop:     loop,
		Interval: 33,
	}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	c.reads = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// ReadFrame returns a clone of the next frame.
func (c *MockCamera) ReadFrame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return Frame{}, ErrCameraNotOpen
	}
	if len(c.frames) == 0 {
		return Frame{}, ErrEndOfStream
	}
	if c.index >= len(c.frames) {
		if !c.loop {
			return Frame{}, ErrEndOfStream
		}
		c.index = 0
	}

	ts := c.reads * c.Interval
	if c.reads < int64(len(c.timestamps)) {
		ts = c.timestamps[c.reads]
	}

	mat := c.frames[c.index].Clone()
	c.index++
	c.reads++

	return Frame{Mat: &mat, TimestampMs: ts}, nil
}

func (c *MockCamera) SetFPS(int) {}
func (c *MockCamera) FPS() int  { return DefaultFPS }

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetTimestamps fixes the timestamps of the next reads, in order.
// Repeating a value simulates a stalled video clock.
func (c *MockCamera) SetTimestamps(ts ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timestamps = ts
}

// SetFrames replaces the frame sequence and restarts playback.
func (c *MockCamera) SetFrames(frames []*gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
	c.reads = 0
}

// Reads returns how many frames were delivered since Open.
func (c *MockCamera) Reads() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
