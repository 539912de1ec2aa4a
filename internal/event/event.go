// Package event defines the facts reported while msrv runs. Every fact is a
// Message wrapped in an Event, which is the only type handed to a reporter.
package event

import (
	"encoding/json"
	"fmt"
)

// Message is one reportable fact. The set of implementations is closed.
type Message interface {
	// Kind is the snake_case tag used in the serialized form.
	Kind() string
	isMessage()
}

// Event is the envelope delivered to reporter sinks. Events are values and
// must not be modified after they are published.
type Event struct {
	Message Message
}

func New(m Message) Event {
	return Event{Message: m}
}

// MarshalJSON flattens the message fields next to a "type" tag, for example
// {"source":"rust_changelog","type":"fetch_index"}.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Message == nil {
		return nil, fmt.Errorf("event: marshal: no message")
	}

	body, err := json.Marshal(e.Message)
	if err != nil {
		return nil, fmt.Errorf("event: marshal %s: %w", e.Message.Kind(), err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("event: marshal %s: message is not an object: %w", e.Message.Kind(), err)
	}
	tag, err := json.Marshal(e.Message.Kind())
	if err != nil {
		return nil, err
	}
	fields["type"] = tag

	// encoding/json sorts map keys, which keeps the output stable.
	return json.Marshal(fields)
}
