package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Preview holds the most recent frame as JPEG for live viewers. The
// frame loop publishes into it; stream handlers wait on it. Frames are
// only encoded while someone is watching.
type Preview struct {
	mu     sync.Mutex
	jpeg   []byte
	seq    uint64
	notify chan struct{}

	viewers atomic.Int32
}

// NewPreview returns an empty preview.
func NewPreview() *Preview {
	return &Preview{notify: make(chan struct{})}
}

// Watch registers a viewer. Call the returned func when done.
func (p *Preview) Watch() func() {
	p.viewers.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { p.viewers.Add(-1) })
	}
}

// Watching reports whether any viewer is registered.
func (p *Preview) Watching() bool {
	return p.viewers.Load() > 0
}

// Update encodes frame as JPEG and publishes it.
func (p *Preview) Update(frame *gocv.Mat) error {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	p.Publish(data)
	return nil
}

// Publish stores an already encoded JPEG and wakes waiting viewers.
func (p *Preview) Publish(jpeg []byte) {
	p.mu.Lock()
	p.jpeg = jpeg
	p.seq++
	close(p.notify)
	p.notify = make(chan struct{})
	p.mu.Unlock()
}

// Next blocks until a frame newer than after is available and returns
// it with its sequence number.
func (p *Preview) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		p.mu.Lock()
		if p.seq > after && p.jpeg != nil {
			jpeg, seq := p.jpeg, p.seq
			p.mu.Unlock()
			return jpeg, seq, nil
		}
		wait := p.notify
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, after, ctx.Err()
		case <-wait:
		}
	}
}
