// Package reporter delivers events to sinks.
//
// Every sink gets its own goroutine and a bounded queue. Publish enqueues an
// event for all sinks while holding one lock, so each sink observes the same
// total order of events. Flush waits until every sink has handled everything
// published before the call.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/bayleafwalker/msrv/internal/event"
)

// DefaultQueueSize is the number of events a sink may lag behind before
// Publish blocks.
const DefaultQueueSize = 64

var (
	// ErrClosed is returned when publishing to or subscribing on a closed reporter.
	ErrClosed = errors.New("reporter closed")
	// ErrSinkUnavailable is returned by Publish for a sink that failed to handle an earlier event.
	ErrSinkUnavailable = errors.New("sink unavailable")
	// ErrDuplicateSink is returned when two sinks are subscribed under one name.
	ErrDuplicateSink = errors.New("sink already subscribed")
	// ErrEmptyEvent is returned when publishing an event without a message.
	ErrEmptyEvent = errors.New("event has no message")
)

// Sink receives events one at a time, in publication order.
type Sink interface {
	Handle(ev event.Event) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ev event.Event) error

func (f SinkFunc) Handle(ev event.Event) error {
	return f(ev)
}

type Option func(*Reporter)

func WithQueueSize(n int) Option {
	return func(r *Reporter) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

func WithLogger(logger logr.Logger) Option {
	return func(r *Reporter) {
		r.logger = logger
	}
}

type Reporter struct {
	queueSize int
	logger    logr.Logger

	mu     sync.Mutex
	subs   []*subscription
	closed bool
}

func New(opts ...Option) *Reporter {
	r := &Reporter{
		queueSize: DefaultQueueSize,
		logger:    logr.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers sink under name. The sink only receives events
// published after it was subscribed.
func (r *Reporter) Subscribe(name string, sink Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	for _, s := range r.subs {
		if s.name == name {
			return fmt.Errorf("%w: %s", ErrDuplicateSink, name)
		}
	}

	s := &subscription{
		name:   name,
		sink:   sink,
		queue:  make(chan item, r.queueSize),
		done:   make(chan struct{}),
		logger: r.logger.WithValues("sink", name),
	}
	r.subs = append(r.subs, s)
	go s.run()

	r.logger.V(1).Info("sink subscribed", "sink", name)
	return nil
}

// Publish hands ev to every subscribed sink. It blocks only while a sink
// queue is full.
//
// Sinks that failed on an earlier event are skipped and reported through the
// returned error (matching ErrSinkUnavailable); healthy sinks still receive
// the event.
func (r *Reporter) Publish(ev event.Event) error {
	if ev.Message == nil {
		return ErrEmptyEvent
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	eventsPublishedTotal.WithLabelValues(ev.Message.Kind()).Inc()

	var errs []error
	for _, s := range r.subs {
		if err := s.failure(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrSinkUnavailable, s.name, err))
			continue
		}
		s.queue <- item{ev: ev}
	}
	return utilerrors.NewAggregate(errs)
}

// Flush blocks until every sink has handled all events published before the
// call, or ctx is done. It returns immediately when nothing is pending, when
// no sink is subscribed and after Close.
func (r *Reporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	barriers := make([]chan struct{}, 0, len(r.subs))
	if !r.closed {
		for _, s := range r.subs {
			b := make(chan struct{})
			s.queue <- item{barrier: b}
			barriers = append(barriers, b)
		}
	}
	r.mu.Unlock()

	for _, b := range barriers {
		select {
		case <-b:
		case <-ctx.Done():
			return fmt.Errorf("reporter: flush: %w", ctx.Err())
		}
	}
	return nil
}

// Close stops accepting events, waits for the sinks to drain their queues and
// returns the errors the sinks reported.
func (r *Reporter) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	subs := r.subs
	r.mu.Unlock()

	for _, s := range subs {
		close(s.queue)
	}

	var errs []error
	for _, s := range subs {
		select {
		case <-s.done:
		case <-ctx.Done():
			return fmt.Errorf("reporter: close: %w", ctx.Err())
		}
		if err := s.failure(); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.name, err))
		}
	}
	return utilerrors.NewAggregate(errs)
}

type item struct {
	ev event.Event
	// barrier is set for flush markers instead of ev.
	barrier chan struct{}
}

type subscription struct {
	name   string
	sink   Sink
	queue  chan item
	done   chan struct{}
	logger logr.Logger

	mu  sync.Mutex
	err error
}

func (s *subscription) run() {
	defer close(s.done)

	for it := range s.queue {
		if it.barrier != nil {
			close(it.barrier)
			continue
		}
		if s.failure() != nil {
			eventsDroppedTotal.WithLabelValues(s.name).Inc()
			continue
		}
		if err := s.sink.Handle(it.ev); err != nil {
			s.logger.Error(err, "sink failed to handle event", "type", it.ev.Message.Kind())
			eventsFailedTotal.WithLabelValues(s.name).Inc()
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			continue
		}
		eventsDeliveredTotal.WithLabelValues(s.name).Inc()
	}
}

func (s *subscription) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
