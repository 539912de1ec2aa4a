package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/bayleafwalker/msrv/internal/event"
)

// HumanPrinter writes one sentence per event.
type HumanPrinter struct {
	w io.Writer
}

func NewHumanPrinter(w io.Writer) *HumanPrinter {
	return &HumanPrinter{w: w}
}

func (p *HumanPrinter) Handle(ev event.Event) error {
	_, err := fmt.Fprintln(p.w, Describe(ev))
	return err
}

// Describe renders ev as a short human readable sentence.
func Describe(ev event.Event) string {
	switch m := ev.Message.(type) {
	case event.FetchIndex:
		return fmt.Sprintf("Fetching release index from %s", m.Source)
	case event.AuxiliaryOutput:
		return describeAuxiliary(m)
	case event.SetOutput:
		return fmt.Sprintf("Set minimum supported Rust version %s in %s", m.Version, m.ManifestPath)
	case nil:
		return "(empty event)"
	default:
		return m.Kind()
	}
}

func describeAuxiliary(m event.AuxiliaryOutput) string {
	where := "<unknown destination>"
	if f, ok := m.Destination.(event.FileDestination); ok {
		where = f.Path
	}
	switch item := m.Item.(type) {
	case event.MsrvItem:
		return fmt.Sprintf("Wrote MSRV (%s) to %s", item.Kind, where)
	case event.ToolchainFileItem:
		return fmt.Sprintf("Found toolchain file (%s) at %s", item.Kind, where)
	default:
		return fmt.Sprintf("Auxiliary output at %s", where)
	}
}

// JSONPrinter writes every event as one line of JSON.
type JSONPrinter struct {
	enc *json.Encoder
}

func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{enc: json.NewEncoder(w)}
}

func (p *JSONPrinter) Handle(ev event.Event) error {
	return p.enc.Encode(ev)
}

// Publisher is the subset of *nats.Conn used by NATSSink.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes the JSON form of every event to "<prefix>.<type>".
type NATSSink struct {
	pub    Publisher
	prefix string
}

func NewNATSSink(pub Publisher, prefix string) *NATSSink {
	return &NATSSink{pub: pub, prefix: prefix}
}

func (s *NATSSink) Handle(ev event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	subject := s.prefix + "." + ev.Message.Kind()
	if err := s.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Recorder keeps every event it receives, for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Handle(ev event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events. The result is never nil.
func (r *Recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Event, len(r.events))
	copy(out, r.events)
	return out
}
