package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deepnoodle-ai/relay/checkpoint"
	"github.com/deepnoodle-ai/relay/conversation"
	"github.com/google/uuid"
)

var correlationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/deepnoodle-ai/relay/correlation"))

// CorrelationID derives the id of a checkpoint from the position of the
// execution that creates it. Equal inputs always produce the same id.
func CorrelationID(executionID string, iteration, snapshotLen int) string {
	name := fmt.Sprintf("%s|%d|%d", executionID, iteration, snapshotLen)
	return uuid.NewSHA1(correlationNamespace, []byte(name)).String()
}

// InformationRequest is emitted when an execution suspends for external
// input.
type InformationRequest struct {
	CorrelationID         string `json:"correlation_id"`
	RequestingParticipant string `json:"requesting_participant"`
	Prompt                string `json:"prompt"`
}

// SuspensionManager creates checkpoints when a participant asks for input
// and consumes them when the answer arrives.
type SuspensionManager struct {
	store checkpoint.Store
	clock func() time.Time
}

// NewSuspensionManager returns a manager persisting to store. A nil clock
// selects time.Now.
func NewSuspensionManager(store checkpoint.Store, clock func() time.Time) *SuspensionManager {
	if clock == nil {
		clock = time.Now
	}
	return &SuspensionManager{store: store, clock: clock}
}

// Store returns the checkpoint store.
func (m *SuspensionManager) Store() checkpoint.Store {
	return m.store
}

// Suspend persists a checkpoint of state and returns the suspended state. It
// fails with *ConcurrentSuspensionError, leaving state untouched, if a
// checkpoint is already pending.
func (m *SuspensionManager) Suspend(ctx context.Context, state ExecutionState, requester, prompt string) (ExecutionState, *InformationRequest, error) {
	if state.PendingCheckpoint != nil {
		return state, nil, &ConcurrentSuspensionError{
			ExecutionID: state.ExecutionID,
			Pending:     state.PendingCheckpoint.CorrelationID,
			Requester:   requester,
		}
	}
	cp := &checkpoint.Checkpoint{
		CorrelationID:         CorrelationID(state.ExecutionID, state.IterationCount, state.Conversation.Len()),
		ExecutionID:           state.ExecutionID,
		Workflow:              state.Workflow,
		RequestingParticipant: requester,
		Prompt:                prompt,
		PreservedSnapshot:     state.Conversation,
		IterationCount:        state.IterationCount,
		CreatedAt:             m.clock().UTC(),
	}
	if err := m.store.Save(ctx, cp); err != nil {
		return state, nil, fmt.Errorf("failed to save checkpoint: %w", err)
	}
	next := state.Clone()
	next.ActiveParticipant = requester
	next.PendingCheckpoint = cp
	next.Status = StatusSuspended
	return next, &InformationRequest{
		CorrelationID:         cp.CorrelationID,
		RequestingParticipant: requester,
		Prompt:                prompt,
	}, nil
}

// Resume consumes the checkpoint named by correlationID and returns a
// running state whose conversation is the preserved snapshot plus one
// message from the external actor. The requesting participant becomes
// active again. If the checkpoint is missing, already consumed, or does not
// belong to state, it fails with *UnknownCorrelationError and state is
// returned untouched.
func (m *SuspensionManager) Resume(ctx context.Context, state ExecutionState, correlationID, text string) (ExecutionState, error) {
	if state.Status != StatusSuspended || state.PendingCheckpoint == nil ||
		state.PendingCheckpoint.CorrelationID != correlationID {
		return state, &UnknownCorrelationError{CorrelationID: correlationID}
	}
	cp, err := m.load(ctx, correlationID)
	if err != nil {
		return state, err
	}
	if cp.ExecutionID != state.ExecutionID {
		return state, &UnknownCorrelationError{CorrelationID: correlationID}
	}
	if err := m.store.Delete(ctx, correlationID); err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			// Another consumer won the race.
			return state, &UnknownCorrelationError{CorrelationID: correlationID}
		}
		return state, fmt.Errorf("failed to consume checkpoint: %w", err)
	}
	next := state.Clone()
	next.Conversation = conversation.Append(cp.PreservedSnapshot, conversation.NewExternalMessage(text))
	next.ActiveParticipant = cp.RequestingParticipant
	next.IterationCount = cp.IterationCount
	next.PendingCheckpoint = nil
	next.Status = StatusRunning
	return next, nil
}

// Restore rebuilds the suspended state of an execution from its durable
// checkpoint alone. The checkpoint is not consumed.
func (m *SuspensionManager) Restore(ctx context.Context, correlationID string) (ExecutionState, error) {
	cp, err := m.load(ctx, correlationID)
	if err != nil {
		return ExecutionState{}, err
	}
	return ExecutionState{
		ExecutionID:       cp.ExecutionID,
		Workflow:          cp.Workflow,
		ActiveParticipant: cp.RequestingParticipant,
		IterationCount:    cp.IterationCount,
		Conversation:      cp.PreservedSnapshot,
		PendingCheckpoint: cp,
		Status:            StatusSuspended,
	}, nil
}

func (m *SuspensionManager) load(ctx context.Context, correlationID string) (*checkpoint.Checkpoint, error) {
	if err := checkpoint.ValidateID(correlationID); err != nil {
		return nil, &UnknownCorrelationError{CorrelationID: correlationID}
	}
	cp, err := m.store.Load(ctx, correlationID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil, &UnknownCorrelationError{CorrelationID: correlationID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return cp, nil
}
