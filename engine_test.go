package relay

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/deepnoodle-ai/relay/checkpoint"
	"github.com/deepnoodle-ai/relay/metrics"
	"github.com/deepnoodle-ai/wonton/assert"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestEngine(t *testing.T, wf *Workflow, store checkpoint.Store) *Engine {
	t.Helper()
	e, err := NewEngine(EngineOptions{Workflow: wf, Store: store, Clock: fixedClock})
	assert.NoError(t, err)
	return e
}

func TestEngineStartToCompletion(t *testing.T) {
	a, b := newScripted("a", routeTo("b")), newScripted("b", finish())
	wf := buildWorkflow(t, "a", 0, a, b)
	e := newTestEngine(t, wf, nil)

	state, err := e.Start(context.Background(), "hello", RunOptions{ExecutionID: "e1"})
	assert.NoError(t, err)
	assert.Equal(t, StatusTerminated, state.Status)
	assert.Equal(t, "final answer from a", state.Output)

	live, ok := e.Execution("e1")
	assert.True(t, ok)
	assert.Equal(t, state.Output, live.Output)

	_, err = e.Start(context.Background(), "again", RunOptions{ExecutionID: "e1"})
	assert.ErrorIs(t, err, ErrExecutionExists)

	assert.NoError(t, e.Release("e1"))
	_, ok = e.Execution("e1")
	assert.False(t, ok)
	assert.ErrorIs(t, e.Release("e1"), ErrExecutionNotFound)
}

func TestEngineSuspendAndSubmit(t *testing.T) {
	a := newScripted("a", askUser("Pick X or Y"), finish())
	wf := buildWorkflow(t, "a", 0, a)
	e := newTestEngine(t, wf, nil)
	ctx := context.Background()

	state, err := e.Start(ctx, "choose", RunOptions{})
	assert.NoError(t, err)
	assert.Equal(t, StatusSuspended, state.Status)
	assert.NotEmpty(t, state.ExecutionID)
	assert.ErrorIs(t, e.Release(state.ExecutionID), ErrExecutionActive)

	id := state.PendingCheckpoint.CorrelationID
	final, err := e.SubmitResponse(ctx, id, "Y")
	assert.NoError(t, err)
	assert.Equal(t, StatusTerminated, final.Status)
	assert.Equal(t, ReasonCompleted, final.TerminationReason)
	assert.Len(t, a.Synths(), 1)

	_, err = e.SubmitResponse(ctx, id, "Y again")
	assert.ErrorIs(t, err, ErrUnknownCorrelation)

	_, err = e.SubmitResponse(ctx, "never-issued", "x")
	assert.ErrorIs(t, err, ErrUnknownCorrelation)
}

func TestEngineRunStream(t *testing.T) {
	a := newScripted("a", routeTo("b"), finish())
	b := newScripted("b", askUser("Which year?"), routeTo("a"))
	wf := buildWorkflow(t, "a", 0, a, b)
	e := newTestEngine(t, wf, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := e.Run(ctx, "plan a trip", RunOptions{ExecutionID: "run-1"})
	assert.NoError(t, err)
	defer stream.Close()

	suspended, err := WaitFor(ctx, stream, EventSuspended)
	assert.NoError(t, err)
	assert.Equal(t, "b", suspended.Participant)
	assert.Equal(t, "Which year?", suspended.Request.Prompt)

	go func() {
		e.SubmitResponse(ctx, suspended.Request.CorrelationID, "2026")
	}()

	events, err := Collect(ctx, stream)
	assert.NoError(t, err)
	var types []EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []EventType{EventResumed, EventRouting, EventTerminated}, types)
	last := events[len(events)-1]
	assert.Equal(t, ReasonCompleted, last.Reason)
	assert.Equal(t, "final answer from a", last.Output)
	assert.True(t, last.Terminal())
}

func TestEngineRunEmitsFailure(t *testing.T) {
	a := newScripted("a", routeTo("ghost"))
	wf := buildWorkflow(t, "a", 0, a)
	e := newTestEngine(t, wf, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := e.Run(ctx, "go", RunOptions{})
	assert.NoError(t, err)

	events, err := Collect(ctx, stream)
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, EventStarted, events[0].Type)
	assert.Equal(t, EventFailed, events[1].Type)
	assert.Error(t, events[1].Error)
}

func TestEngineContinueAfterInvocationError(t *testing.T) {
	a := newScripted("a", finish())
	a.errs = []error{errUnavailable}
	wf := buildWorkflow(t, "a", 0, a)
	e := newTestEngine(t, wf, nil)
	ctx := context.Background()

	state, err := e.Start(ctx, "go", RunOptions{ExecutionID: "flaky"})
	assert.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, StatusRunning, state.Status)

	state, err = e.Continue(ctx, "flaky")
	assert.NoError(t, err)
	assert.Equal(t, StatusTerminated, state.Status)
	first := state.Conversation.At(0)
	assert.Equal(t, "go", first.Text)

	_, err = e.Continue(ctx, "missing")
	assert.ErrorIs(t, err, ErrExecutionNotFound)
}

func TestEngineRunStreamOutlivesInvocationError(t *testing.T) {
	a := newScripted("a", finish())
	a.errs = []error{errUnavailable}
	wf := buildWorkflow(t, "a", 0, a)
	e := newTestEngine(t, wf, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := e.Run(ctx, "go", RunOptions{ExecutionID: "flaky"})
	assert.NoError(t, err)
	defer stream.Close()

	errEvent, err := WaitFor(ctx, stream, EventError)
	assert.NoError(t, err)
	assert.ErrorIs(t, errEvent.Error, errUnavailable)
	assert.False(t, errEvent.Terminal())

	go func() {
		e.Continue(ctx, "flaky")
	}()

	var types []EventType
	for stream.Next(ctx) {
		types = append(types, stream.Event().Type)
	}
	assert.NoError(t, stream.Err())
	assert.Equal(t, []EventType{EventTerminated}, types)

	state, ok := e.Execution("flaky")
	assert.True(t, ok)
	assert.Equal(t, StatusTerminated, state.Status)
	assert.Equal(t, "final answer from a", state.Output)
}

func TestEngineResumeInAnotherProcess(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	newEngine := func(a *scripted) *Engine {
		store, err := checkpoint.NewFileStore(filepath.Join(dir, "checkpoints"))
		assert.NoError(t, err)
		return newTestEngine(t, buildWorkflow(t, "a", 0, a), store)
	}

	first := newScripted("a", askUser("Approve?"), finish())
	state, err := newEngine(first).Start(ctx, "deploy", RunOptions{ExecutionID: "deploy-1"})
	assert.NoError(t, err)
	assert.Equal(t, StatusSuspended, state.Status)
	id := state.PendingCheckpoint.CorrelationID

	// A fresh engine with no live executions resumes from disk. Its
	// participant has not yet asked anything.
	second := newScripted("a", finish())
	resumer := newEngine(second)
	final, err := resumer.SubmitResponse(ctx, id, "approved")
	assert.NoError(t, err)
	assert.Equal(t, "deploy-1", final.ExecutionID)
	assert.Equal(t, StatusTerminated, final.Status)

	calls := second.Calls()
	assert.Len(t, calls, 1)
	assert.Equal(t, []string{"user", "a", "human"}, authors(calls[0].Snapshot))

	_, err = resumer.SubmitResponse(ctx, id, "approved")
	assert.ErrorIs(t, err, ErrUnknownCorrelation)
}

func TestEngineRejectsForeignCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	ctx := context.Background()
	assert.NoError(t, store.Save(ctx, &checkpoint.Checkpoint{
		CorrelationID:         "foreign",
		ExecutionID:           "x",
		Workflow:              "other",
		RequestingParticipant: "a",
		Prompt:                "?",
	}))

	e := newTestEngine(t, buildWorkflow(t, "a", 0, newScripted("a", finish())), store)
	_, err := e.SubmitResponse(ctx, "foreign", "hi")
	assert.ErrorIs(t, err, ErrWorkflowMismatch)

	_, err = store.Load(ctx, "foreign")
	assert.NoError(t, err, "checkpoint is left for its own workflow")
}

func TestEngineParallelExecutions(t *testing.T) {
	a, b := newScripted("a", routeTo("b")), newScripted("b", finish())
	wf := buildWorkflow(t, "a", 0, a, b)
	e := newTestEngine(t, wf, nil)

	var wg sync.WaitGroup
	results := make([]ExecutionState, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			state, err := e.Start(context.Background(), "go", RunOptions{})
			if err == nil {
				results[i] = state
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, state := range results {
		assert.Equal(t, StatusTerminated, state.Status)
		assert.False(t, seen[state.ExecutionID])
		seen[state.ExecutionID] = true
	}
}

func TestEngineMetrics(t *testing.T) {
	a := newScripted("a", askUser("Sure?"), routeTo("ghost"))
	wf := buildWorkflow(t, "a", 0, a)
	m := metrics.New(prometheus.NewRegistry())
	e, err := NewEngine(EngineOptions{Workflow: wf, Metrics: m})
	assert.NoError(t, err)
	ctx := context.Background()

	state, err := e.Start(ctx, "go", RunOptions{})
	assert.NoError(t, err)
	_, err = e.SubmitResponse(ctx, state.PendingCheckpoint.CorrelationID, "yes")
	assert.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Hops.WithLabelValues("test", "a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Suspensions.WithLabelValues("test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resumptions.WithLabelValues("test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("test", "routing")))
}
