package sink

import (
	"fmt"

	"github.com/pebbe/zmq4"
	"go.uber.org/zap"

	"github.com/ayusman/pinchglobe/internal/gesture"
)

// ZMQPublisher publishes every event on a PUB socket as a two-part
// message: the event kind as topic, then the CBOR encoded envelope.
//
// The socket is not safe for concurrent use; feed the publisher from a
// single goroutine (Bus.Forward does that).
type ZMQPublisher struct {
	socket   *zmq4.Socket
	endpoint string
	log      *zap.Logger
	errors   int
}

// NewZMQPublisher binds a PUB socket on endpoint, e.g. "tcp://*:5556".
func NewZMQPublisher(endpoint string, log *zap.Logger) (*ZMQPublisher, error) {
	if log == nil {
		log = zap.NewNop()
	}

	socket, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("create pub socket: %w", err)
	}
	if err := socket.Bind(endpoint); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("bind %s: %w", endpoint, err)
	}

	log = log.With(zap.String("component", "zmq"), zap.String("endpoint", endpoint))
	log.Info("publishing interaction events")

	return &ZMQPublisher{socket: socket, endpoint: endpoint, log: log}, nil
}

// Handle publishes one event. Send failures are logged, never returned,
// so a missing subscriber cannot stall the pipeline.
func (p *ZMQPublisher) Handle(e gesture.Event) {
	payload, err := Encode(FormatCBOR, EventMessage(e))
	if err != nil {
		p.log.Error("encode event", zap.Error(err))
		return
	}
	if _, err := p.socket.SendMessage(string(e.Kind), payload); err != nil {
		p.errors++
		if p.errors%100 == 1 {
			p.log.Warn("send event", zap.Error(err), zap.Int("errors_total", p.errors))
		}
	}
}

// Endpoint returns the bound endpoint.
func (p *ZMQPublisher) Endpoint() string {
	return p.endpoint
}

// Close closes the socket.
func (p *ZMQPublisher) Close() error {
	return p.socket.Close()
}
