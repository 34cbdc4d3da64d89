package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// idleShutdown is how long the landmarker process may sit unused before it is stopped.
const idleShutdown = 30 * time.Second

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Each request is a 4 byte big-endian payload length, an 8 byte
// big-endian frame timestamp in milliseconds, and the JPEG encoded
// frame. The service answers with one JSON line per request.
type MediaPipeDetector struct {
	config    Config
	log       *zap.Logger
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config, log *zap.Logger) (*MediaPipeDetector, error) {
	scriptPath := findMediaPipeScript()
	if scriptPath == "" {
		return nil, fmt.Errorf("mediapipe_service.py not found")
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &MediaPipeDetector{
		config: config,
		log:    log.With(zap.String("component", "mediapipe")),
	}, nil
}

// DetectForVideo sends a frame to the landmarker and returns the detected hands.
func (d *MediaPipeDetector) DetectForVideo(frame *gocv.Mat, timestampMs int64) (FrameResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return FrameResult{}, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return FrameResult{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	hands, err := exchange(d.stdin, d.stdout, buf.GetBytes(), timestampMs)
	if err != nil {
		return FrameResult{}, err
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	return FrameResult{Hands: limitHands(hands, d.config.MaxHands), TimestampMs: timestampMs}, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

// exchange writes one framed request and reads the matching JSON line.
func exchange(w io.Writer, r *bufio.Reader, jpeg []byte, timestampMs int64) ([]HandLandmarks, error) {
	header := make([]byte, 12)
	binary.BigEndian.PutUint32(header[:4], uint32(len(jpeg)))
	binary.BigEndian.PutUint64(header[4:], uint64(timestampMs))

	if _, err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(jpeg); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var response struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := json.Unmarshal([]byte(line), &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	result := make([]HandLandmarks, 0, len(response.Hands))
	for _, h := range response.Hands {
		result = append(result, h.toHandLandmarks())
	}
	return result, nil
}

func limitHands(hands []HandLandmarks, max int) []HandLandmarks {
	if max > 0 && len(hands) > max {
		return hands[:max]
	}
	return hands
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	scriptPath := findMediaPipeScript()
	if scriptPath == "" {
		return fmt.Errorf("mediapipe_service.py not found")
	}

	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, append([]string{scriptPath}, d.config.args()...)...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.lastUsed = time.Now()

	d.log.Info("landmarker started",
		zap.String("python", pythonPath),
		zap.Int("max_hands", d.config.MaxHands),
	)
	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	d.log.Info("landmarker stopped")
	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.shutdown(); err != nil {
			d.log.Warn("idle shutdown", zap.Error(err))
		}
	})
}

// args renders the detection options as service command line flags.
func (c Config) args() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		"--num-hands", strconv.Itoa(c.MaxHands),
		"--min-hand-detection-confidence", f(c.MinDetectionConf),
		"--min-hand-presence-confidence", f(c.MinPresenceConf),
		"--min-tracking-confidence", f(c.MinTrackingConf),
	}
}

// searchDirs are the places the landmarker script and its virtualenv are
// looked up, in order: the working directory, its parent, next to the
// binary, and the per-user data directory.
func searchDirs() []string {
	dirs := []string{".", ".."}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".pinchglobe"))
	}
	return dirs
}

func findMediaPipeScript() string {
	return firstExisting(searchDirs(), filepath.Join("scripts", "mediapipe_service.py"))
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	return firstExisting(append(searchDirs(), filepath.Join("..", "..")), filepath.Join("venv", "bin", "python"))
}

// firstExisting returns the absolute path of rel under the first dir
// that has it, or "".
func firstExisting(dirs []string, rel string) string {
	for _, dir := range dirs {
		path := filepath.Join(dir, rel)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// jsonHand is one hand in a service response.
type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: Handedness(h.Handedness),
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = h.Points[i]
	}

	return lm
}
