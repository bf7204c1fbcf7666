// Package event carries clock actions from a session to anything that
// wants to watch a game: loggers, metrics, tests.
package event

import (
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
)

// Event is the envelope for one clock event.
type Event struct {
	// ID is unique per event
	ID string `json:"id"`

	// Type is one of the clock.* constants
	Type string `json:"type"`

	// Source is the session that emitted the event
	Source string `json:"source"`

	// Timestamp is the wall-clock time the event was created
	Timestamp time.Time `json:"timestamp"`

	// Data is the encoded payload
	Data []byte `json:"data,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Codec encodes and decodes event payloads.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec implements Codec with JSON.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewEvent creates an event with a fresh ID and the current time.
func NewEvent(eventType, source string, payload any, codec Codec) (Event, error) {
	data, err := codec.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
		Metadata:  make(map[string]string),
	}, nil
}

// WithMetadata sets one metadata entry and returns the event.
func (e Event) WithMetadata(key, value string) Event {
	md := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	e.Metadata = md
	return e
}

// DecodePayload decodes the event data into v. Empty data leaves v untouched.
func (e Event) DecodePayload(v any, codec Codec) error {
	if len(e.Data) == 0 {
		return nil
	}
	return codec.Unmarshal(e.Data, v)
}
