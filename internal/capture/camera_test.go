package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestNewCamera_Defaults(t *testing.T) {
	for _, id := range []int{0, 1, 2} {
		cam := NewCamera(id)
		if cam == nil {
			t.Fatalf("NewCamera(%d) returned nil", id)
		}
		if got := cam.FPS(); got != DefaultFPS {
			t.Errorf("device %d: FPS() = %d, want %d", id, got, DefaultFPS)
		}
		if cam.IsOpen() {
			t.Errorf("device %d: camera should not be open initially", id)
		}
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(0)

	tests := []struct {
		name    string
		fps     int
		wantFPS int
	}{
		{"idle rate", IdleFPS, IdleFPS},
		{"full rate", 30, 30},
		{"zero keeps previous", 0, 30},
		{"negative keeps previous", -5, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam.SetFPS(tt.fps)
			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
		})
	}
}

func TestCamera_ReadFrame_NotOpened(t *testing.T) {
	cam := NewCamera(0)

	_, err := cam.ReadFrame()
	if !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
	if err := cam.Close(); err != nil {
		t.Errorf("Close() on unopened camera = %v, want nil", err)
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(0)
	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}

	first, err := cam.ReadFrame()
	if err != nil {
		cam.Close()
		t.Fatalf("ReadFrame() failed: %v", err)
	}
	first.Close()

	second, err := cam.ReadFrame()
	if err != nil {
		cam.Close()
		t.Fatalf("ReadFrame() failed: %v", err)
	}
	second.Close()

	if second.TimestampMs < first.TimestampMs {
		t.Errorf("timestamps went backwards: %d then %d", first.TimestampMs, second.TimestampMs)
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}

func TestMockCamera_PlaybackAndTimestamps(t *testing.T) {
	frame1 := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame1, &frame2}, false)
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("read before open: err = %v, want ErrCameraNotOpen", err)
	}

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	for i, want := range []int64{0, 33} {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		if f.TimestampMs != want {
			t.Errorf("frame %d timestamp = %d, want %d", i, f.TimestampMs, want)
		}
		f.Close()
	}

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream after all frames, got %v", err)
	}
}

func TestMockCamera_RepeatedTimestamps(t *testing.T) {
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.SetTimestamps(100, 100, 133)
	cam.Open()
	defer cam.Close()

	var got []int64
	for i := 0; i < 4; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		got = append(got, f.TimestampMs)
		f.Close()
	}

	want := []int64{100, 100, 133, 99}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("timestamp %d = %d, want %d", i, got[i], want[i])
		}
	}
	if cam.Reads() != 4 {
		t.Errorf("Reads() = %d, want 4", cam.Reads())
	}
}

func TestFrameTimestamp(t *testing.T) {
	tests := []struct {
		index int64
		fps   float64
		want  int64
	}{
		{0, 30, 0},
		{1, 30, 33},
		{30, 30, 1000},
		{3, 25, 120},
		{2, 0, 66},
	}

	for _, tt := range tests {
		if got := FrameTimestamp(tt.index, tt.fps); got != tt.want {
			t.Errorf("FrameTimestamp(%d, %v) = %d, want %d", tt.index, tt.fps, got, tt.want)
		}
	}
}

func TestBufferToMat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	rgba := make([]byte, 4*3*2)
	for i := 0; i < len(rgba); i += 4 {
		rgba[i] = 200 // R
		rgba[i+3] = 255
	}

	mat, err := bufferToMat(rgba, 3, 2)
	if err != nil {
		t.Fatalf("bufferToMat failed: %v", err)
	}
	defer mat.Close()

	if mat.Cols() != 3 || mat.Rows() != 2 || mat.Channels() != 3 {
		t.Fatalf("got %dx%d with %d channels, want 3x2 BGR", mat.Cols(), mat.Rows(), mat.Channels())
	}
	px := mat.GetVecbAt(0, 0)
	if px[0] != 0 || px[2] != 200 {
		t.Errorf("pixel = %v, want red in the last channel", px)
	}

	if _, err := bufferToMat(make([]byte, 5), 3, 2); err == nil {
		t.Error("expected error for a short buffer")
	}
	if _, err := bufferToMat(nil, 0, 0); err == nil {
		t.Error("expected error for an empty frame")
	}
}

func TestFileCamera_MissingFile(t *testing.T) {
	cam := NewFileCamera("does-not-exist.mp4")
	if err := cam.Open(); err == nil {
		cam.Close()
		t.Fatal("expected error opening a missing file")
	}
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestPreview_NextWaitsForNewFrame(t *testing.T) {
	p := NewPreview()
	if p.Watching() {
		t.Fatal("no viewers registered yet")
	}
	stop := p.Watch()
	if !p.Watching() {
		t.Fatal("Watch should register a viewer")
	}

	got := make(chan uint64, 1)
	go func() {
		_, seq, err := p.Next(context.Background(), 0)
		if err == nil {
			got <- seq
		}
	}()

	p.Publish([]byte{0xff, 0xd8})

	select {
	case seq := <-got:
		if seq != 1 {
			t.Errorf("seq = %d, want 1", seq)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Publish")
	}

	stop()
	stop()
	if p.Watching() {
		t.Error("viewer should be released exactly once")
	}
}

func TestPreview_NextHonoursContext(t *testing.T) {
	p := NewPreview()
	p.Publish([]byte{1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, _, err := p.Next(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next error = %v, want deadline exceeded", err)
	}
}
