package sink

import (
	"github.com/go-vgo/robotgo"
	"go.uber.org/zap"

	"github.com/ayusman/pinchglobe/internal/gesture"
)

// PointerDriver moves and clicks the host pointer.
type PointerDriver interface {
	ScreenSize() (int, int)
	Move(x, y int)
	Down() error
	Up() error
}

// RobotDriver drives the real OS pointer.
type RobotDriver struct{}

func (RobotDriver) ScreenSize() (int, int) { return robotgo.GetScreenSize() }
func (RobotDriver) Move(x, y int)          { robotgo.Move(x, y) }
func (RobotDriver) Down() error            { return robotgo.Toggle("left") }
func (RobotDriver) Up() error              { return robotgo.Toggle("left", "up") }

// PointerSink mirrors one hand's pinch drag onto the host pointer:
// press holds the left button, move drags, release lets go.
type PointerSink struct {
	role   gesture.Role
	driver PointerDriver
	log    *zap.Logger

	width, height int
	down          bool
}

// NewPointerSink creates a sink following the given role.
func NewPointerSink(role gesture.Role, driver PointerDriver, log *zap.Logger) *PointerSink {
	if driver == nil {
		driver = RobotDriver{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	w, h := driver.ScreenSize()
	return &PointerSink{
		role:   role,
		driver: driver,
		log:    log.With(zap.String("component", "pointer")),
		width:  w,
		height: h,
	}
}

// Handle applies an event to the pointer.
func (p *PointerSink) Handle(e gesture.Event) {
	switch e.Kind {
	case gesture.EventPress:
		if e.Role != p.role {
			return
		}
		p.driver.Move(p.toScreen(e.X, e.Y))
		if err := p.driver.Down(); err != nil {
			p.log.Warn("pointer down", zap.Error(err))
			return
		}
		p.down = true

	case gesture.EventMove:
		if e.Role != p.role || !p.down {
			return
		}
		p.driver.Move(p.toScreen(e.X, e.Y))

	case gesture.EventRelease:
		if !p.down {
			return
		}
		if err := p.driver.Up(); err != nil {
			p.log.Warn("pointer up", zap.Error(err))
		}
		p.down = false
	}
}

// Down reports whether the pointer button is held.
func (p *PointerSink) Down() bool {
	return p.down
}

func (p *PointerSink) toScreen(x, y float64) (int, int) {
	sx := int(clamp01(x) * float64(p.width-1))
	sy := int(clamp01(y) * float64(p.height-1))
	return sx, sy
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
