package relay

import (
	"github.com/deepnoodle-ai/relay/checkpoint"
	"github.com/deepnoodle-ai/relay/conversation"
)

// Status is the lifecycle status of an execution.
type Status string

const (
	// StatusRunning means the execution has hops left to take, including
	// one that failed and may be continued.
	StatusRunning Status = "running"

	// StatusSuspended means a participant is waiting for an answer to its
	// pending checkpoint.
	StatusSuspended Status = "suspended"

	// StatusTerminated means the execution finished with an output. See
	// TerminationReason.
	StatusTerminated Status = "terminated"

	// StatusFailed means a routing decision was rejected. Failure says why.
	StatusFailed Status = "failed"
)

func (s Status) String() string {
	return string(s)
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusTerminated || s == StatusFailed
}

// TerminationReason records why an execution terminated.
type TerminationReason string

const (
	// ReasonCompleted means a participant made a terminal decision and the
	// coordinator synthesized the output.
	ReasonCompleted TerminationReason = "completed"

	// ReasonIterationLimit means the hop bound was exceeded. It is not an
	// error.
	ReasonIterationLimit TerminationReason = "iteration_limit"
)

// Failure describes why an execution failed.
type Failure struct {
	Err         error
	RawPayload  string
	Participant string
}

// ExecutionState is the state of one run of a workflow. It is a value: the
// Router returns a new state for every transition and never modifies the one
// it was given.
type ExecutionState struct {
	ExecutionID       string
	Workflow          string
	ActiveParticipant string
	IterationCount    int
	Conversation      conversation.Snapshot
	PendingCheckpoint *checkpoint.Checkpoint
	Status            Status
	TerminationReason TerminationReason
	Output            string
	Failure           *Failure
}

// Clone returns a copy that shares no pointers with s.
func (s ExecutionState) Clone() ExecutionState {
	out := s
	out.PendingCheckpoint = s.PendingCheckpoint.Clone()
	if s.Failure != nil {
		f := *s.Failure
		out.Failure = &f
	}
	return out
}

// Done reports whether the execution reached a terminal status.
func (s ExecutionState) Done() bool {
	return s.Status.Terminal()
}
