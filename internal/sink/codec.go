package sink

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/ayusman/pinchglobe/internal/gesture"
	"github.com/ayusman/pinchglobe/internal/scene"
)

// Format is a wire encoding for outbound messages.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// ParseFormat maps a query value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCBOR:
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// Message types.
const (
	MessageEvent = "event"
	MessageScene = "scene"
)

// Message is the envelope sent to remote consumers.
type Message struct {
	Type  string          `json:"type" cbor:"type"`
	Event *gesture.Event  `json:"event,omitempty" cbor:"event,omitempty"`
	Scene *scene.Snapshot `json:"scene,omitempty" cbor:"scene,omitempty"`
}

// EventMessage wraps an interaction event.
func EventMessage(e gesture.Event) Message {
	return Message{Type: MessageEvent, Event: &e}
}

// SceneMessage wraps a globe snapshot.
func SceneMessage(s scene.Snapshot) Message {
	return Message{Type: MessageScene, Scene: &s}
}

// Encode serializes a message in the given format.
func Encode(format Format, m Message) ([]byte, error) {
	switch format {
	case FormatCBOR:
		data, err := cbor.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encode cbor: %w", err)
		}
		return data, nil
	default:
		data, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return data, nil
	}
}

// Decode parses a message in the given format.
func Decode(format Format, data []byte) (Message, error) {
	var m Message
	var err error
	switch format {
	case FormatCBOR:
		err = cbor.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return Message{}, fmt.Errorf("decode %s: %w", format, err)
	}
	return m, nil
}
