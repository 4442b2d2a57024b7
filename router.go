package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deepnoodle-ai/relay/checkpoint"
	"github.com/deepnoodle-ai/relay/conversation"
	"github.com/deepnoodle-ai/relay/coordinator"
	"github.com/deepnoodle-ai/relay/metrics"
	"github.com/deepnoodle-ai/relay/participant"
	"github.com/deepnoodle-ai/relay/routing"
	"github.com/deepnoodle-ai/relay/slogger"
	"github.com/deepnoodle-ai/relay/tracing"
)

// IncomingKind identifies what drives a transition.
type IncomingKind string

const (
	// IncomingStart delivers the initial request and invokes the start node.
	IncomingStart IncomingKind = "start"

	// IncomingContinue invokes the active participant of a running
	// execution.
	IncomingContinue IncomingKind = "continue"

	// IncomingResponse answers a pending information request.
	IncomingResponse IncomingKind = "response"
)

// Incoming is the event a transition reacts to.
type Incoming struct {
	Kind          IncomingKind
	Input         string
	CorrelationID string
	Text          string
}

// StartWith returns the Incoming that starts an execution with input.
func StartWith(input string) Incoming {
	return Incoming{Kind: IncomingStart, Input: input}
}

// Continue returns the Incoming that runs the next hop.
func Continue() Incoming {
	return Incoming{Kind: IncomingContinue}
}

// Response returns the Incoming that answers the request correlationID.
func Response(correlationID, text string) Incoming {
	return Incoming{Kind: IncomingResponse, CorrelationID: correlationID, Text: text}
}

// ActionKind is what the caller should do after a transition.
type ActionKind string

const (
	// ActionInvoke asks for another hop with the named participant.
	ActionInvoke ActionKind = "invoke"

	// ActionSuspend means the execution waits for a response to Request.
	ActionSuspend ActionKind = "suspend"

	// ActionTerminate means the execution finished with Output.
	ActionTerminate ActionKind = "terminate"

	// ActionFail means the execution failed.
	ActionFail ActionKind = "fail"
)

// Action is the outcome of one transition.
type Action struct {
	Kind        ActionKind
	Participant string
	Request     *InformationRequest
	Output      string
}

// RouterOptions configures a Router.
type RouterOptions struct {
	Workflow *Workflow

	// Store persists checkpoints. Defaults to a new checkpoint.MemoryStore.
	Store checkpoint.Store

	// Clock stamps checkpoints. Defaults to time.Now.
	Clock func() time.Time

	Logger  slogger.Logger
	Metrics *metrics.Metrics
	Tracer  *tracing.Tracer
}

// Router applies transitions to execution states. It holds no per-execution
// data and may be shared between executions.
type Router struct {
	workflow    *Workflow
	suspensions *SuspensionManager
	logger      slogger.Logger
	metrics     *metrics.Metrics
	tracer      *tracing.Tracer
}

// NewRouter returns a Router for opts.Workflow.
func NewRouter(opts RouterOptions) (*Router, error) {
	if opts.Workflow == nil {
		return nil, errors.New("router requires a workflow")
	}
	if opts.Store == nil {
		opts.Store = checkpoint.NewMemoryStore()
	}
	logger := opts.Logger
	if logger == nil {
		logger = opts.Workflow.logger
	}
	return &Router{
		workflow:    opts.Workflow,
		suspensions: NewSuspensionManager(opts.Store, opts.Clock),
		logger:      slogger.OrDefault(logger),
		metrics:     opts.Metrics,
		tracer:      opts.Tracer,
	}, nil
}

// Workflow returns the workflow the router drives.
func (r *Router) Workflow() *Workflow {
	return r.workflow
}

// Suspensions returns the router's suspension manager.
func (r *Router) Suspensions() *SuspensionManager {
	return r.suspensions
}

// Advance applies one transition to state. The given state is never
// modified.
//
// A start or continue runs one hop: the active participant is invoked over
// the sanitized conversation, its messages are appended, and its decision
// is parsed and acted on. A response consumes the pending checkpoint and
// returns an invoke action for the requesting participant.
//
// Decision errors return a failed state, a fail action and the error.
// Participant errors return the input state, a zero Action and an
// *InvocationError.
func (r *Router) Advance(ctx context.Context, state ExecutionState, in Incoming) (ExecutionState, Action, error) {
	if err := ctx.Err(); err != nil {
		return state, Action{}, err
	}
	switch in.Kind {
	case IncomingStart:
		if state.Status != StatusRunning || state.Conversation.Len() != 0 || state.IterationCount != 0 {
			return state, Action{}, fmt.Errorf("%w: cannot start execution %s in status %s",
				ErrInvalidTransition, state.ExecutionID, state.Status)
		}
		started := state.Clone()
		started.Conversation = conversation.Append(state.Conversation, conversation.NewUserMessage(in.Input))
		return r.hop(ctx, state, started)

	case IncomingContinue:
		if state.Status != StatusRunning {
			return state, Action{}, fmt.Errorf("%w: cannot continue execution %s in status %s",
				ErrInvalidTransition, state.ExecutionID, state.Status)
		}
		return r.hop(ctx, state, state)

	case IncomingResponse:
		return r.resume(ctx, state, in)

	default:
		return state, Action{}, fmt.Errorf("%w: unknown incoming kind %q", ErrInvalidTransition, in.Kind)
	}
}

func (r *Router) resume(ctx context.Context, state ExecutionState, in Incoming) (ExecutionState, Action, error) {
	wf := r.workflow
	ctx, span := r.tracer.StartResume(ctx, wf.name, in.CorrelationID)
	next, err := r.suspensions.Resume(ctx, state, in.CorrelationID, in.Text)
	tracing.End(span, err)
	if err != nil {
		return state, Action{}, err
	}
	r.metrics.RecordResumption(wf.name)
	// Re-invoking the requester is a hop of its own.
	next.IterationCount++
	if next.IterationCount > wf.maxHops {
		next = r.terminateAtLimit(next)
		r.logger.Warn("hop limit exceeded",
			"execution_id", next.ExecutionID,
			"participant", next.ActiveParticipant,
			"max_hops", wf.maxHops,
			"status", next.Status)
		return next, Action{Kind: ActionTerminate, Output: next.Output}, nil
	}
	r.logger.Info("resumed execution",
		"execution_id", next.ExecutionID,
		"participant", next.ActiveParticipant,
		"iteration", next.IterationCount,
		"status", next.Status)
	return next, Action{Kind: ActionInvoke, Participant: next.ActiveParticipant}, nil
}

// hop invokes the active participant of current. On participant errors it
// returns original, which differs from current only for a start.
func (r *Router) hop(ctx context.Context, original, current ExecutionState) (ExecutionState, Action, error) {
	wf := r.workflow
	active := current.ActiveParticipant
	logger := r.logger.With(
		"execution_id", current.ExecutionID,
		"participant", active,
		"iteration", current.IterationCount)

	if current.IterationCount > wf.maxHops {
		next := r.terminateAtLimit(current)
		logger.Warn("hop limit exceeded", "max_hops", wf.maxHops, "status", next.Status)
		return next, Action{Kind: ActionTerminate, Output: next.Output}, nil
	}

	desc, err := wf.registry.Get(active)
	if err != nil {
		return original, Action{}, fmt.Errorf("active participant %q: %w", active, err)
	}

	contextID := fmt.Sprintf("%s/%d", current.ExecutionID, current.IterationCount)
	ctx, span := r.tracer.StartHop(ctx, wf.name, current.ExecutionID, active, current.IterationCount)
	started := time.Now()
	result, err := desc.Participant.Invoke(ctx, &participant.Invocation{
		ContextID: contextID,
		Snapshot:  conversation.Sanitize(current.Conversation),
		Phase:     participant.PhaseRoute,
	})
	r.metrics.RecordHop(wf.name, active, time.Since(started))
	if err != nil {
		tracing.End(span, err)
		r.metrics.RecordFailure(wf.name, "invocation")
		logger.Error("participant invocation failed", "error", err)
		return original, Action{}, &InvocationError{Participant: active, Phase: participant.PhaseRoute, Err: err}
	}

	next := current.Clone()
	if result != nil {
		next.Conversation = conversation.Append(current.Conversation, stamp(result.Messages, active, contextID)...)
	}
	raw := result.DecisionText()
	decision, err := wf.parser.Parse(raw)
	if err != nil {
		tracing.End(span, err)
		next.Status = StatusFailed
		next.Failure = &Failure{Err: err, RawPayload: raw, Participant: active}
		r.metrics.RecordFailure(wf.name, failureKind(err))
		logger.Error("routing decision rejected", "error", err, "raw", raw, "status", next.Status)
		return next, Action{Kind: ActionFail, Participant: active}, err
	}
	tracing.End(span, nil)

	switch {
	case decision.UserInputNeeded:
		suspended, req, err := r.suspensions.Suspend(ctx, next, active, decision.UserPrompt)
		if err != nil {
			if errors.Is(err, ErrConcurrentSuspension) {
				r.metrics.RecordFailure(wf.name, "concurrent_suspension")
			}
			return original, Action{}, err
		}
		r.metrics.RecordSuspension(wf.name)
		logger.Info("suspended for input",
			"correlation_id", req.CorrelationID,
			"status", suspended.Status)
		return suspended, Action{Kind: ActionSuspend, Participant: active, Request: req}, nil

	case !decision.Terminal():
		next.IterationCount++
		if next.IterationCount > wf.maxHops {
			next = r.terminateAtLimit(next)
			logger.Warn("hop limit exceeded", "max_hops", wf.maxHops, "status", next.Status)
			return next, Action{Kind: ActionTerminate, Output: next.Output}, nil
		}
		next.ActiveParticipant = decision.NextParticipant
		logger.Info("routing",
			"next", decision.NextParticipant,
			"summary", decision.Summary,
			"status", next.Status)
		return next, Action{Kind: ActionInvoke, Participant: decision.NextParticipant}, nil

	default:
		return r.synthesize(ctx, original, next, logger)
	}
}

func (r *Router) synthesize(ctx context.Context, original, current ExecutionState, logger slogger.Logger) (ExecutionState, Action, error) {
	wf := r.workflow
	coord := wf.coordinator
	contextID := fmt.Sprintf("%s/%d/synthesis", current.ExecutionID, current.IterationCount)

	ctx, span := r.tracer.StartSynthesis(ctx, wf.name, current.ExecutionID, coord.ID)
	synthesis, err := coordinator.Synthesize(ctx, coord, current.Conversation, contextID)
	tracing.End(span, err)
	if err != nil {
		r.metrics.RecordFailure(wf.name, "synthesis")
		logger.Error("final synthesis failed", "coordinator", coord.ID, "error", err)
		return original, Action{}, &InvocationError{Participant: coord.ID, Phase: participant.PhaseSynthesize, Err: err}
	}

	next := current.Clone()
	next.Conversation = conversation.Append(current.Conversation, stamp(synthesis.Messages, coord.ID, contextID)...)
	next.ActiveParticipant = coord.ID
	next.Status = StatusTerminated
	next.TerminationReason = ReasonCompleted
	next.Output = synthesis.Output
	r.metrics.RecordTermination(wf.name, string(ReasonCompleted))
	logger.Info("execution completed", "coordinator", coord.ID, "status", next.Status)
	return next, Action{Kind: ActionTerminate, Participant: coord.ID, Output: next.Output}, nil
}

func (r *Router) terminateAtLimit(state ExecutionState) ExecutionState {
	next := state.Clone()
	next.Status = StatusTerminated
	next.TerminationReason = ReasonIterationLimit
	next.Output, _ = state.Conversation.LastText("")
	r.metrics.RecordTermination(r.workflow.name, string(ReasonIterationLimit))
	return next
}

// stamp attributes messages produced in contextID to author where they do
// not say otherwise.
func stamp(msgs []conversation.Message, author, contextID string) []conversation.Message {
	out := make([]conversation.Message, len(msgs))
	for i, m := range msgs {
		if m.Author == "" {
			m.Author = author
		}
		if m.OriginContextID == "" {
			m = m.WithOrigin(contextID)
		}
		out[i] = m
	}
	return out
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, routing.ErrParse):
		return "parse"
	case errors.Is(err, routing.ErrRouting):
		return "routing"
	case errors.Is(err, routing.ErrValidation):
		return "validation"
	default:
		return "unknown"
	}
}
