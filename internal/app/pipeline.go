package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/pinchglobe/internal/capture"
)

// runPipeline is the frame loop. Each tick runs one sequential pass:
// read a frame, skip it if its timestamp was already processed, detect
// hands, interpret, publish. It returns nil when ctx ends or a recording
// runs out, and an error when the camera stops delivering frames.
func (a *App) runPipeline(ctx context.Context) error {
	fps := a.camera.FPS()
	ticker := time.NewTicker(frameInterval(fps))
	defer ticker.Stop()

	wasEnabled := true
	readErrors := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if cur := a.camera.FPS(); cur != fps {
			fps = cur
			ticker.Reset(frameInterval(fps))
		}

		enabled := a.IsEnabled()
		if !enabled {
			if wasEnabled {
				a.bus.Publish(a.interpreter.Reset()...)
				a.log.Info("interpretation paused")
			}
			wasEnabled = false
			continue
		}
		wasEnabled = true

		frame, err := a.camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) {
				a.bus.Publish(a.interpreter.Reset()...)
				a.log.Info("video source finished")
				return nil
			}
			readErrors++
			a.log.Warn("read frame", zap.Error(err), zap.Int("consecutive", readErrors))
			if readErrors >= MaxReadErrors {
				return fmt.Errorf("camera stopped delivering frames: %w", err)
			}
			continue
		}
		readErrors = 0

		a.processFrame(frame)
	}
}

// processFrame runs one interpretation pass and closes the frame.
func (a *App) processFrame(frame capture.Frame) {
	defer frame.Close()

	if a.interpreter.Stale(frame.TimestampMs) {
		a.stale.Add(1)
		return
	}
	a.frames.Add(1)

	if a.preview.Watching() {
		if err := a.preview.Update(frame.Mat); err != nil {
			a.log.Debug("preview", zap.Error(err))
		}
	}

	result, err := a.detector.DetectForVideo(frame.Mat, frame.TimestampMs)
	a.governor.Observe(frame.Mat, err == nil && result.NumHands() > 0)
	if err != nil {
		a.detectErr.Add(1)
		a.log.Warn("detect hands", zap.Error(err), zap.Int64("timestamp_ms", frame.TimestampMs))
		return
	}

	if cfg := a.pending.Swap(nil); cfg != nil {
		a.interpreter.SetConfig(cfg.Gesture)
	}

	events := a.interpreter.Process(result)
	if len(events) == 0 {
		return
	}
	a.events.Add(uint64(len(events)))
	a.bus.Publish(events...)

	for _, e := range events {
		if ce := a.log.Check(zap.DebugLevel, "event"); ce != nil {
			ce.Write(zap.Stringer("event", e))
		}
	}
}

func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	return time.Second / time.Duration(fps)
}
