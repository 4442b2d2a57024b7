package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deepnoodle-ai/relay/checkpoint"
	"github.com/deepnoodle-ai/relay/metrics"
	"github.com/deepnoodle-ai/relay/slogger"
	"github.com/deepnoodle-ai/relay/tracing"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// DefaultCacheTTL is how long an idle execution stays in an Engine.
const DefaultCacheTTL = time.Hour

// EngineOptions configures an Engine.
type EngineOptions struct {
	Workflow *Workflow

	// Store persists checkpoints. Use a durable store to resume executions
	// in another process. Defaults to a new checkpoint.MemoryStore.
	Store checkpoint.Store

	Logger  slogger.Logger
	Metrics *metrics.Metrics
	Tracer  *tracing.Tracer

	// Clock stamps checkpoints. Defaults to time.Now.
	Clock func() time.Time

	// CacheTTL is how long an execution is kept after its last transition.
	// Defaults to DefaultCacheTTL.
	CacheTTL time.Duration
}

// RunOptions configures one execution.
type RunOptions struct {
	// ExecutionID names the execution. A random id is used when empty.
	ExecutionID string
}

// Engine drives executions of one workflow. Executions are independent and
// may run in parallel; each is driven by at most one goroutine at a time.
type Engine struct {
	workflow     *Workflow
	router       *Router
	logger       slogger.Logger
	executions   *cache.Cache
	correlations *cache.Cache
	ttl          time.Duration
}

type execution struct {
	// run serializes transitions and guards announced.
	run       sync.Mutex
	announced bool

	mu        sync.RWMutex
	input     string
	state     ExecutionState
	publisher *EventPublisher
}

func (x *execution) snapshot() ExecutionState {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.state.Clone()
}

func (x *execution) set(state ExecutionState) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.state = state
}

func (x *execution) detach() *EventPublisher {
	x.mu.Lock()
	defer x.mu.Unlock()
	pub := x.publisher
	x.publisher = nil
	return pub
}

// NewEngine returns an Engine for opts.Workflow.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Workflow == nil {
		return nil, errors.New("engine requires a workflow")
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	logger := slogger.OrDefault(opts.Logger).With("workflow", opts.Workflow.Name())
	router, err := NewRouter(RouterOptions{
		Workflow: opts.Workflow,
		Store:    opts.Store,
		Clock:    opts.Clock,
		Logger:   logger,
		Metrics:  opts.Metrics,
		Tracer:   opts.Tracer,
	})
	if err != nil {
		return nil, err
	}
	e := &Engine{
		workflow:     opts.Workflow,
		router:       router,
		logger:       logger,
		executions:   cache.New(opts.CacheTTL, opts.CacheTTL/2),
		correlations: cache.New(opts.CacheTTL, opts.CacheTTL/2),
		ttl:          opts.CacheTTL,
	}
	e.executions.OnEvicted(func(id string, v any) {
		if x, ok := v.(*execution); ok {
			if pub := x.detach(); pub != nil {
				pub.Close()
			}
		}
	})
	return e, nil
}

// Workflow returns the engine's workflow.
func (e *Engine) Workflow() *Workflow {
	return e.workflow
}

// Router returns the engine's router.
func (e *Engine) Router() *Router {
	return e.router
}

// Start runs a new execution until it suspends, terminates or fails.
func (e *Engine) Start(ctx context.Context, input string, opts RunOptions) (ExecutionState, error) {
	x, err := e.register(opts, input, nil)
	if err != nil {
		return ExecutionState{}, err
	}
	return e.drive(ctx, x, StartWith(input))
}

// Run starts a new execution in the background and returns its event
// stream. The stream stays open while the execution is suspended and
// receives the events of later SubmitResponse calls. It closes when the
// execution terminates or fails, or when the stream is closed by the
// caller.
func (e *Engine) Run(ctx context.Context, input string, opts RunOptions) (*EventStream, error) {
	stream, pub := NewEventStream()
	x, err := e.register(opts, input, pub)
	if err != nil {
		pub.Close()
		return nil, err
	}
	go e.drive(ctx, x, StartWith(input))
	return stream, nil
}

// SubmitResponse answers the information request correlationID and drives
// the execution until it suspends again or finishes. If the execution is not
// live in this engine it is restored from the checkpoint store.
func (e *Engine) SubmitResponse(ctx context.Context, correlationID, text string) (ExecutionState, error) {
	x, err := e.lookup(ctx, correlationID)
	if err != nil {
		return ExecutionState{}, err
	}
	return e.drive(ctx, x, Response(correlationID, text))
}

// Continue retries a running execution after a participant error. Decision
// errors are final and cannot be continued.
func (e *Engine) Continue(ctx context.Context, executionID string) (ExecutionState, error) {
	v, ok := e.executions.Get(executionID)
	if !ok {
		return ExecutionState{}, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}
	x := v.(*execution)
	in := Continue()
	if state := x.snapshot(); state.Status == StatusRunning && state.Conversation.Len() == 0 {
		in = StartWith(x.input)
	}
	return e.drive(ctx, x, in)
}

// Execution returns a copy of the current state of a live execution.
func (e *Engine) Execution(id string) (ExecutionState, bool) {
	v, ok := e.executions.Get(id)
	if !ok {
		return ExecutionState{}, false
	}
	return v.(*execution).snapshot(), true
}

// Release drops a finished execution. Executions that are still running or
// suspended cannot be released.
func (e *Engine) Release(id string) error {
	v, ok := e.executions.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutionNotFound, id)
	}
	if !v.(*execution).snapshot().Done() {
		return fmt.Errorf("%w: %s", ErrExecutionActive, id)
	}
	e.executions.Delete(id)
	return nil
}

func (e *Engine) register(opts RunOptions, input string, pub *EventPublisher) (*execution, error) {
	id := opts.ExecutionID
	if id == "" {
		id = uuid.NewString()
	}
	x := &execution{input: input, state: e.workflow.NewExecution(id), publisher: pub}
	if err := e.executions.Add(id, x, cache.DefaultExpiration); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrExecutionExists, id)
	}
	return x, nil
}

// lookup finds the execution waiting on correlationID, restoring it from
// the store when it is not live.
func (e *Engine) lookup(ctx context.Context, correlationID string) (*execution, error) {
	if v, ok := e.correlations.Get(correlationID); ok {
		if x, ok := e.executions.Get(v.(string)); ok {
			return x.(*execution), nil
		}
	}
	state, err := e.router.Suspensions().Restore(ctx, correlationID)
	if err != nil {
		return nil, err
	}
	if state.Workflow != "" && state.Workflow != e.workflow.Name() {
		return nil, fmt.Errorf("%w: %s belongs to %q", ErrWorkflowMismatch, correlationID, state.Workflow)
	}
	state.Workflow = e.workflow.Name()
	x := &execution{state: state}
	if err := e.executions.Add(state.ExecutionID, x, cache.DefaultExpiration); err != nil {
		// Lost a race with another restore of the same execution.
		v, ok := e.executions.Get(state.ExecutionID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, state.ExecutionID)
		}
		return v.(*execution), nil
	}
	e.logger.Info("restored execution from checkpoint",
		"execution_id", state.ExecutionID,
		"correlation_id", correlationID,
		"participant", state.ActiveParticipant)
	return x, nil
}

// drive applies transitions starting with in until the execution stops
// needing hops.
func (e *Engine) drive(ctx context.Context, x *execution, in Incoming) (ExecutionState, error) {
	x.run.Lock()
	defer x.run.Unlock()

	state := x.snapshot()
	if in.Kind == IncomingStart && !x.announced {
		x.announced = true
		e.emit(ctx, x, &Event{Type: EventStarted, ExecutionID: state.ExecutionID, Participant: state.ActiveParticipant})
	}
	for {
		from := state.ActiveParticipant
		next, action, err := e.router.Advance(ctx, state, in)
		x.set(next)
		e.executions.Set(next.ExecutionID, x, cache.DefaultExpiration)

		if err != nil && action.Kind != ActionFail {
			if errors.Is(err, ErrUnknownCorrelation) || errors.Is(err, ErrInvalidTransition) {
				// Rejected calls leave the execution and its stream as they were.
				return next, err
			}
			// The execution is still running. Its stream stays open for
			// Continue unless the caller is gone.
			event := &Event{Type: EventError, ExecutionID: next.ExecutionID, Participant: from, Iteration: next.IterationCount, Error: err}
			if ctx.Err() != nil {
				e.finish(ctx, x, event)
			} else {
				e.emit(ctx, x, event)
			}
			return next, err
		}
		if in.Kind == IncomingResponse {
			e.correlations.Delete(in.CorrelationID)
		}

		switch action.Kind {
		case ActionInvoke:
			if in.Kind == IncomingResponse {
				e.emit(ctx, x, &Event{Type: EventResumed, ExecutionID: next.ExecutionID, Participant: action.Participant, Iteration: next.IterationCount})
			} else {
				e.emit(ctx, x, &Event{Type: EventRouting, ExecutionID: next.ExecutionID, From: from, Participant: action.Participant, Iteration: next.IterationCount})
			}
			state = next
			in = Continue()

		case ActionSuspend:
			e.correlations.Set(action.Request.CorrelationID, next.ExecutionID, cache.DefaultExpiration)
			e.emit(ctx, x, &Event{Type: EventSuspended, ExecutionID: next.ExecutionID, Participant: action.Participant, Iteration: next.IterationCount, Request: action.Request})
			return next, nil

		case ActionTerminate:
			e.finish(ctx, x, &Event{Type: EventTerminated, ExecutionID: next.ExecutionID, Participant: action.Participant, Iteration: next.IterationCount, Output: next.Output, Reason: next.TerminationReason})
			return next, nil

		case ActionFail:
			e.finish(ctx, x, &Event{Type: EventFailed, ExecutionID: next.ExecutionID, Participant: action.Participant, Iteration: next.IterationCount, Error: err})
			return next, err

		default:
			return next, fmt.Errorf("unexpected action %q", action.Kind)
		}
	}
}

func (e *Engine) emit(ctx context.Context, x *execution, event *Event) {
	x.mu.RLock()
	pub := x.publisher
	x.mu.RUnlock()
	if pub == nil {
		return
	}
	if err := pub.Send(ctx, event); err != nil {
		if errors.Is(err, ErrStreamClosed) {
			x.detach()
			return
		}
		e.logger.Warn("dropped event", "type", event.Type, "execution_id", event.ExecutionID, "error", err)
	}
}

func (e *Engine) finish(ctx context.Context, x *execution, event *Event) {
	e.emit(ctx, x, event)
	if pub := x.detach(); pub != nil {
		pub.Close()
	}
}
