package relay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/deepnoodle-ai/relay/checkpoint"
	"github.com/deepnoodle-ai/relay/conversation"
	"github.com/deepnoodle-ai/wonton/assert"
)

func TestSuspendAndResume(t *testing.T) {
	a := newScripted("a", askUser("Pick X or Y"), finish())
	wf := buildWorkflow(t, "a", 0, a)
	store := checkpoint.NewMemoryStore()
	r, err := NewRouter(RouterOptions{Workflow: wf, Store: store, Clock: fixedClock})
	assert.NoError(t, err)
	ctx := context.Background()

	suspended, action, err := r.Advance(ctx, wf.NewExecution("exec-b"), StartWith("choose for me"))
	assert.NoError(t, err)
	assert.Equal(t, ActionSuspend, action.Kind)
	assert.Equal(t, StatusSuspended, suspended.Status)
	assert.NotNil(t, action.Request)
	assert.Equal(t, "Pick X or Y", action.Request.Prompt)
	assert.Equal(t, "a", action.Request.RequestingParticipant)

	cp := suspended.PendingCheckpoint
	assert.NotNil(t, cp)
	assert.Equal(t, action.Request.CorrelationID, cp.CorrelationID)
	assert.Equal(t, CorrelationID("exec-b", 0, 2), cp.CorrelationID)
	assert.Equal(t, fixedTime, cp.CreatedAt)
	assert.True(t, cp.PreservedSnapshot.Equal(suspended.Conversation))

	stored, err := store.Load(ctx, cp.CorrelationID)
	assert.NoError(t, err)
	assert.Equal(t, "exec-b", stored.ExecutionID)
	assert.Equal(t, "test", stored.Workflow)

	// No routing happens while suspended.
	_, _, err = r.Advance(ctx, suspended, Continue())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, a.Calls(), 1)

	resumed, action, err := r.Advance(ctx, suspended, Response(cp.CorrelationID, "Y"))
	assert.NoError(t, err)
	assert.Equal(t, ActionInvoke, action.Kind)
	assert.Equal(t, "a", action.Participant)
	assert.Equal(t, StatusRunning, resumed.Status)
	assert.Nil(t, resumed.PendingCheckpoint)

	// The resumed conversation is the preserved snapshot plus exactly one
	// message from the external actor.
	assert.Equal(t, cp.PreservedSnapshot.Len()+1, resumed.Conversation.Len())
	assert.True(t, resumed.Conversation.HasPrefix(cp.PreservedSnapshot))
	last, _ := resumed.Conversation.Last()
	assert.Equal(t, conversation.RoleUser, last.Role)
	assert.Equal(t, conversation.ExternalAuthor, last.Author)
	assert.Equal(t, "Y", last.Text)

	_, err = store.Load(ctx, cp.CorrelationID)
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	final, action, err := r.Advance(ctx, resumed, Continue())
	assert.NoError(t, err)
	assert.Equal(t, ActionTerminate, action.Kind)
	assert.Equal(t, StatusTerminated, final.Status)

	calls := a.Calls()
	assert.Len(t, calls, 2)
	lastSeen, _ := calls[1].Snapshot.Last()
	assert.Equal(t, "Y", lastSeen.Text)
	assert.Len(t, a.Synths(), 1)
}

func TestResumeUnknownCorrelation(t *testing.T) {
	a := newScripted("a", askUser("Which?"), finish())
	wf := buildWorkflow(t, "a", 0, a)
	r := newTestRouter(t, wf)
	ctx := context.Background()

	suspended, _, err := r.Advance(ctx, wf.NewExecution("e"), StartWith("go"))
	assert.NoError(t, err)

	for _, id := range []string{"", "nope", "../escape"} {
		next, action, err := r.Advance(ctx, suspended, Response(id, "x"))
		assert.ErrorIs(t, err, ErrUnknownCorrelation)
		var unknown *UnknownCorrelationError
		assert.True(t, errors.As(err, &unknown))
		assert.Equal(t, id, unknown.CorrelationID)
		assert.Equal(t, suspended, next)
		assert.Equal(t, Action{}, action)
	}

	// A response to a running execution is also unknown.
	running := wf.NewExecution("other")
	_, _, err = r.Advance(ctx, running, Response(suspended.PendingCheckpoint.CorrelationID, "x"))
	assert.ErrorIs(t, err, ErrUnknownCorrelation)
}

func TestResumeConsumesOnce(t *testing.T) {
	a := newScripted("a", askUser("Which?"), finish())
	wf := buildWorkflow(t, "a", 0, a)
	r := newTestRouter(t, wf)
	ctx := context.Background()

	suspended, action, err := r.Advance(ctx, wf.NewExecution("e"), StartWith("go"))
	assert.NoError(t, err)
	id := action.Request.CorrelationID

	_, _, err = r.Advance(ctx, suspended, Response(id, "first"))
	assert.NoError(t, err)

	// Replaying the same suspended state cannot consume the checkpoint twice.
	next, _, err := r.Advance(ctx, suspended, Response(id, "second"))
	assert.ErrorIs(t, err, ErrUnknownCorrelation)
	assert.Equal(t, suspended, next)
}

func TestConcurrentResumeAcrossManagers(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	ctx := context.Background()
	m := NewSuspensionManager(store, fixedClock)

	state := ExecutionState{
		ExecutionID:       "e",
		Workflow:          "test",
		ActiveParticipant: "a",
		Conversation:      conversation.NewSnapshot(conversation.NewUserMessage("hi")),
		Status:            StatusRunning,
	}
	suspended, req, err := m.Suspend(ctx, state, "a", "Which?")
	assert.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each goroutine acts as a separate process holding its own
			// copy of the state.
			other := NewSuspensionManager(store, fixedClock)
			restored, err := other.Restore(ctx, req.CorrelationID)
			if err != nil {
				return
			}
			if _, err := other.Resume(ctx, restored, req.CorrelationID, "answer"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	_, err = m.Resume(ctx, suspended, req.CorrelationID, "late")
	assert.ErrorIs(t, err, ErrUnknownCorrelation)
}

func TestSecondSuspensionIsRejected(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	m := NewSuspensionManager(store, fixedClock)
	ctx := context.Background()

	state := ExecutionState{
		ExecutionID:  "e",
		Conversation: conversation.NewSnapshot(conversation.NewUserMessage("hi")),
		Status:       StatusRunning,
	}
	suspended, first, err := m.Suspend(ctx, state, "a", "First?")
	assert.NoError(t, err)

	next, req, err := m.Suspend(ctx, suspended, "b", "Second?")
	assert.ErrorIs(t, err, ErrConcurrentSuspension)
	var concurrent *ConcurrentSuspensionError
	assert.True(t, errors.As(err, &concurrent))
	assert.Equal(t, first.CorrelationID, concurrent.Pending)
	assert.Equal(t, "b", concurrent.Requester)
	assert.Nil(t, req)
	assert.Equal(t, suspended, next)

	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRouterRejectsSuspensionWhilePending(t *testing.T) {
	a := newScripted("a", askUser("Again?"))
	wf := buildWorkflow(t, "a", 0, a)
	r := newTestRouter(t, wf)

	// A running state that still carries a checkpoint, as a corrupted
	// caller might hand in.
	state := wf.NewExecution("e")
	state.Conversation = conversation.NewSnapshot(conversation.NewUserMessage("hi"))
	state.PendingCheckpoint = &checkpoint.Checkpoint{CorrelationID: "pending", RequestingParticipant: "a", Prompt: "First?"}

	next, action, err := r.Advance(context.Background(), state, Continue())
	assert.ErrorIs(t, err, ErrConcurrentSuspension)
	assert.Equal(t, Action{}, action)
	assert.Equal(t, state, next)
}

func TestCorrelationIDIsDeterministic(t *testing.T) {
	assert.Equal(t, CorrelationID("e", 1, 4), CorrelationID("e", 1, 4))
	assert.NotEqual(t, CorrelationID("e", 1, 4), CorrelationID("e", 1, 5))
	assert.NotEqual(t, CorrelationID("e", 1, 4), CorrelationID("f", 1, 4))
	assert.NoError(t, checkpoint.ValidateID(CorrelationID("e", 0, 0)))
}

func TestRestoreRebuildsState(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	m := NewSuspensionManager(store, fixedClock)
	ctx := context.Background()

	state := ExecutionState{
		ExecutionID:       "e",
		Workflow:          "test",
		ActiveParticipant: "b",
		IterationCount:    3,
		Conversation:      conversation.NewSnapshot(conversation.NewUserMessage("hi")),
		Status:            StatusRunning,
	}
	suspended, req, err := m.Suspend(ctx, state, "b", "Sure?")
	assert.NoError(t, err)

	restored, err := NewSuspensionManager(store, nil).Restore(ctx, req.CorrelationID)
	assert.NoError(t, err)
	assert.Equal(t, suspended.ExecutionID, restored.ExecutionID)
	assert.Equal(t, suspended.IterationCount, restored.IterationCount)
	assert.Equal(t, "b", restored.ActiveParticipant)
	assert.Equal(t, StatusSuspended, restored.Status)
	assert.True(t, restored.Conversation.Equal(suspended.Conversation))

	_, err = m.Restore(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownCorrelation)
}
