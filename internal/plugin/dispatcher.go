package plugin

import (
	"context"

	"go.uber.org/zap"

	"github.com/ayusman/pinchglobe/internal/gesture"
)

// Dispatcher runs every subscribed plugin for each event it handles.
// Plugins run one after another on the caller's goroutine, so it is
// meant to be fed from a bus subscription, not attached synchronously.
type Dispatcher struct {
	ctx      context.Context
	manager  *Manager
	executor *Executor
	log      *zap.Logger
}

// NewDispatcher creates a Dispatcher. Invocations are cancelled with ctx.
func NewDispatcher(ctx context.Context, manager *Manager, executor *Executor, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		ctx:      ctx,
		manager:  manager,
		executor: executor,
		log:      log.With(zap.String("component", "plugins")),
	}
}

// Handle implements sink.Sink.
func (d *Dispatcher) Handle(e gesture.Event) {
	for _, p := range d.manager.Subscribed(e.Kind) {
		resp, err := d.executor.Execute(d.ctx, p, &Request{Event: e, Config: p.Manifest.Config})
		switch {
		case err != nil:
			d.log.Warn("plugin failed", zap.String("plugin", p.Manifest.Name), zap.Error(err))
		case !resp.Success:
			d.log.Warn("plugin reported an error", zap.String("plugin", p.Manifest.Name), zap.String("error", resp.Error))
		default:
			d.log.Debug("plugin ran", zap.String("plugin", p.Manifest.Name), zap.Stringer("event", e))
		}
	}
}
