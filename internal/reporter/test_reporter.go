package reporter

import (
	"context"

	"github.com/bayleafwalker/msrv/internal/event"
)

// TestReporter is a Reporter with a Recorder subscribed, for code that needs
// to assert on the events it emits.
type TestReporter struct {
	reporter *Reporter
	recorder *Recorder
}

func NewTestReporter() *TestReporter {
	r := New()
	rec := NewRecorder()
	// A fresh reporter has no sinks, so this cannot collide or be closed.
	_ = r.Subscribe("recorder", rec)
	return &TestReporter{reporter: r, recorder: rec}
}

func (t *TestReporter) Reporter() *Reporter {
	return t.reporter
}

// WaitForEvents waits for everything published so far to be recorded and
// returns the recorded events.
func (t *TestReporter) WaitForEvents() []event.Event {
	_ = t.reporter.Flush(context.Background())
	return t.recorder.Events()
}
