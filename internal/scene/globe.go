// Package scene keeps the authoritative globe orientation and UI marker
// state driven by interaction events.
package scene

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ayusman/pinchglobe/internal/gesture"
)

// Config holds the consumer-side mapping from normalized pointer space
// to the viewport.
type Config struct {
	// CoordinateScale converts normalized [0,1] coordinates to viewport
	// pixels. The globe was tuned against a 1000x1000 surface.
	CoordinateScale float64
	// RotationScale is radians of rotation per pixel of drag, per axis.
	RotationScale float64
	// MarkerOffset centers the marker on the pointer, in pixels.
	MarkerOffset float64
}

// DefaultConfig returns the mapping the globe was tuned with.
func DefaultConfig() Config {
	return Config{
		CoordinateScale: 1000,
		RotationScale:   0.0009,
		MarkerOffset:    10,
	}
}

// Marker is the secondary UI marker dragged by the user's left hand.
type Marker struct {
	X       float64 `json:"x" cbor:"x"`
	Y       float64 `json:"y" cbor:"y"`
	Visible bool    `json:"visible" cbor:"visible"`
}

// Snapshot is a point-in-time copy of the globe state for renderers.
type Snapshot struct {
	Yaw        float64      `json:"yaw" cbor:"yaw"`
	Pitch      float64      `json:"pitch" cbor:"pitch"`
	Quaternion [4]float64   `json:"quaternion" cbor:"quaternion"` // w, x, y, z
	Model      [16]float64  `json:"model" cbor:"model"`           // column-major
	Marker     Marker       `json:"marker" cbor:"marker"`
	Indicator  bool         `json:"indicator" cbor:"indicator"`
	Engaged    bool         `json:"engaged" cbor:"engaged"`
	DragRole   gesture.Role `json:"drag_role" cbor:"drag_role"`
	LastSpread float64      `json:"last_spread" cbor:"last_spread"`
	Revision   uint64       `json:"revision" cbor:"revision"`
}

// Globe applies interaction events to the globe rotation and the marker.
// The right hand rotates the globe; the left hand drags the marker.
type Globe struct {
	cfg Config
	mu  sync.RWMutex

	yaw, pitch float64
	engaged    bool
	dragRole   gesture.Role
	lastMove   mgl64.Vec2
	marker     Marker
	indicator  bool
	lastSpread float64
	revision   uint64
}

// NewGlobe creates a globe at rest.
func NewGlobe(cfg Config) *Globe {
	return &Globe{cfg: cfg, dragRole: gesture.RoleNone}
}

// Handle applies a single event.
func (g *Globe) Handle(e gesture.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pos := g.toViewport(e.Point())

	switch e.Kind {
	case gesture.EventPress:
		g.indicator = true
		if !g.engaged {
			g.engaged = true
			g.dragRole = e.Role
		}
		switch e.Role {
		case gesture.RoleRight:
			g.lastMove = pos
		case gesture.RoleLeft:
			g.marker.Visible = true
		}

	case gesture.EventMove:
		switch e.Role {
		case gesture.RoleRight:
			if g.engaged {
				delta := pos.Sub(g.lastMove)
				g.yaw -= delta.X() * g.cfg.RotationScale
				g.pitch += delta.Y() * g.cfg.RotationScale
			}
			g.lastMove = pos
		case gesture.RoleLeft:
			if g.engaged {
				g.marker.X = pos.X() - g.cfg.MarkerOffset
				g.marker.Y = pos.Y() - g.cfg.MarkerOffset
			}
		}

	case gesture.EventRelease:
		g.indicator = false
		g.engaged = false
		g.dragRole = gesture.RoleNone
		g.marker.Visible = false

	case gesture.EventBothPinchEdge:
		g.indicator = false
		// Recorded for a future zoom gesture; nothing consumes it yet.
		g.lastSpread = e.Spread
	}

	g.revision++
}

func (g *Globe) toViewport(p gesture.Point2) mgl64.Vec2 {
	return mgl64.Vec2{p.X * g.cfg.CoordinateScale, p.Y * g.cfg.CoordinateScale}
}

// Orientation returns the globe rotation as a quaternion, applying
// pitch about X and then yaw about Y.
func (g *Globe) Orientation() mgl64.Quat {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return orientation(g.pitch, g.yaw)
}

func orientation(pitch, yaw float64) mgl64.Quat {
	return mgl64.AnglesToQuat(pitch, yaw, 0, mgl64.XYZ)
}

// Snapshot returns a copy of the current state.
func (g *Globe) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	q := orientation(g.pitch, g.yaw)
	return Snapshot{
		Yaw:        g.yaw,
		Pitch:      g.pitch,
		Quaternion: [4]float64{q.W, q.V.X(), q.V.Y(), q.V.Z()},
		Model:      [16]float64(q.Mat4()),
		Marker:     g.marker,
		Indicator:  g.indicator,
		Engaged:    g.engaged,
		DragRole:   g.dragRole,
		LastSpread: g.lastSpread,
		Revision:   g.revision,
	}
}

// Reset returns the globe to rest.
func (g *Globe) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.yaw, g.pitch = 0, 0
	g.engaged = false
	g.dragRole = gesture.RoleNone
	g.lastMove = mgl64.Vec2{}
	g.marker = Marker{}
	g.indicator = false
	g.lastSpread = 0
	g.revision++
}

// SetConfig changes the viewport mapping for subsequent events.
func (g *Globe) SetConfig(cfg Config) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg = cfg
}
