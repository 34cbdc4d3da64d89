package capture

import (
	"fmt"
	"sync"

	vidio "github.com/AlexEidt/Vidio"
	"gocv.io/x/gocv"
)

// FileCamera replays a recorded video as if it were a live camera.
// Timestamps come from the frame index and the file's frame rate, so a
// recording always produces the same event stream.
type FileCamera struct {
	path string

	mu      sync.Mutex
	video   *vidio.Video
	index   int64
	fps     float64
	running bool
}

// NewFileCamera returns a camera reading from the video at path.
func NewFileCamera(path string) *FileCamera {
	return &FileCamera{path: path}
}

func (c *FileCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	video, err := vidio.NewVideo(c.path)
	if err != nil {
		return fmt.Errorf("open video %s: %w", c.path, err)
	}

	c.video = video
	c.fps = video.FPS()
	if c.fps <= 0 {
		c.fps = DefaultFPS
	}
	c.index = 0
	c.running = true

	return nil
}

func (c *FileCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.video != nil {
		c.video.Close()
		c.video = nil
	}
	c.running = false
	return nil
}

// ReadFrame decodes the next frame into a BGR Mat.
func (c *FileCamera) ReadFrame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.video == nil {
		return Frame{}, ErrCameraNotOpen
	}
	if !c.video.Read() {
		return Frame{}, ErrEndOfStream
	}

	mat, err := bufferToMat(c.video.FrameBuffer(), c.video.Width(), c.video.Height())
	if err != nil {
		return Frame{}, fmt.Errorf("frame %d of %s: %w", c.index, c.path, err)
	}

	ts := FrameTimestamp(c.index, c.fps)
	c.index++

	return Frame{Mat: mat, TimestampMs: ts}, nil
}

// SetFPS is a no-op; playback runs at the caller's pace.
func (c *FileCamera) SetFPS(int) {}

func (c *FileCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fps <= 0 {
		return DefaultFPS
	}
	return int(c.fps + 0.5)
}

func (c *FileCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// FrameTimestamp is the presentation time of frame index at fps.
func FrameTimestamp(index int64, fps float64) int64 {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return int64(float64(index) * 1000 / fps)
}

// bufferToMat converts a packed RGB or RGBA buffer to a BGR Mat.
func bufferToMat(buf []byte, width, height int) (*gocv.Mat, error) {
	pixels := width * height
	if pixels <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	var (
		matType gocv.MatType
		code    gocv.ColorConversionCode
	)
	switch len(buf) / pixels {
	case 4:
		matType, code = gocv.MatTypeCV8UC4, gocv.ColorRGBAToBGR
	case 3:
		matType, code = gocv.MatTypeCV8UC3, gocv.ColorRGBToBGR
	default:
		return nil, fmt.Errorf("unsupported buffer of %d bytes for %dx%d", len(buf), width, height)
	}

	src, err := gocv.NewMatFromBytes(height, width, matType, buf)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	gocv.CvtColor(src, &dst, code)
	return &dst, nil
}
