package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrStreamClosed = errors.New("stream is closed")

// EventType is the type of event emitted by an Engine.
type EventType string

const (
	EventStarted    EventType = "execution.started"
	EventRouting    EventType = "execution.routing"
	EventSuspended  EventType = "execution.suspended"
	EventResumed    EventType = "execution.resumed"
	EventTerminated EventType = "execution.terminated"
	EventFailed     EventType = "execution.failed"
	EventError      EventType = "error"
)

func (t EventType) String() string {
	return string(t)
}

// Event describes a transition of one execution.
type Event struct {
	Type        EventType `json:"type"`
	ExecutionID string    `json:"execution_id"`

	// Participant is the participant about to run for routing and resumed
	// events, the requester for suspended events, and the participant whose
	// decision was rejected for failed events.
	Participant string `json:"participant,omitempty"`

	// From is the participant that made the routing decision.
	From string `json:"from,omitempty"`

	Iteration int `json:"iteration"`

	// Request is set on suspended events.
	Request *InformationRequest `json:"request,omitempty"`

	// Output and Reason are set on terminated events.
	Output string            `json:"output,omitempty"`
	Reason TerminationReason `json:"reason,omitempty"`

	// Error is set on failed and error events.
	Error error `json:"-"`
}

// Terminal reports whether no further events follow for the execution. An
// error event is not terminal: the execution may still be continued.
func (e *Event) Terminal() bool {
	switch e.Type {
	case EventTerminated, EventFailed:
		return true
	}
	return false
}

// EventPublisher sends events to an EventStream. Its methods are safe to
// call concurrently.
type EventPublisher struct {
	stream    *EventStream
	mu        sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// EventStream is the consumer side of an execution's events.
type EventStream struct {
	ch   chan *Event
	curr *Event
	err  error
	pub  *EventPublisher
}

// NewEventStream returns a new event stream and a publisher for the stream.
func NewEventStream() (*EventStream, *EventPublisher) {
	s := &EventStream{ch: make(chan *Event, 16)}
	p := &EventPublisher{
		stream: s,
		done:   make(chan struct{}),
	}
	s.pub = p
	return s, p
}

// Next waits for the next event. It returns false when the stream is closed
// or ctx is done.
func (s *EventStream) Next(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		s.err = ctx.Err()
		return false
	case event, ok := <-s.ch:
		if !ok {
			return false
		}
		s.curr = event
		return true
	}
}

// Event returns the event read by the last call to Next.
func (s *EventStream) Event() *Event {
	return s.curr
}

// Err returns the error that stopped Next, if any.
func (s *EventStream) Err() error {
	return s.err
}

// Close stops the stream. Pending and future sends fail with
// ErrStreamClosed.
func (s *EventStream) Close() error {
	s.pub.Close()
	return nil
}

// Send delivers event to the stream, blocking while the buffer is full.
func (p *EventPublisher) Send(ctx context.Context, event *Event) error {
	// Hold the lock so Close cannot close the channel mid-send. A full
	// buffer releases it through the done case.
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.done:
		return ErrStreamClosed
	default:
	}
	select {
	case <-p.done:
		return ErrStreamClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.stream.ch <- event:
		return nil
	}
}

// Close closes the publisher and the stream. Consumers see the end of the
// stream after draining buffered events.
func (p *EventPublisher) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.mu.Lock()
		defer p.mu.Unlock()
		close(p.stream.ch)
	})
}

// Collect reads events until the stream ends and returns them. It stops at
// the first error event and returns its error.
func Collect(ctx context.Context, stream *EventStream) ([]*Event, error) {
	var events []*Event
	for stream.Next(ctx) {
		event := stream.Event()
		if event == nil {
			return events, fmt.Errorf("received nil event from stream")
		}
		events = append(events, event)
		if event.Type == EventError {
			return events, fmt.Errorf("received error event from stream: %w", event.Error)
		}
	}
	if err := stream.Err(); err != nil {
		return events, err
	}
	return events, nil
}

// WaitFor reads events until one of type t arrives and returns it.
func WaitFor(ctx context.Context, stream *EventStream, t EventType) (*Event, error) {
	for stream.Next(ctx) {
		event := stream.Event()
		if event != nil && event.Type == t {
			return event, nil
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("stream ended before a %s event", t)
}
