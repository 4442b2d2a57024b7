// Package participant defines the invocation contract for workflow
// participants and the registry that owns them.
package participant

import (
	"context"

	"github.com/deepnoodle-ai/relay/conversation"
	"github.com/deepnoodle-ai/wonton/schema"
)

// Phase tells a participant why it is being invoked.
type Phase string

const (
	// PhaseRoute is a normal hop. The participant is expected to do its work
	// and end with a routing decision.
	PhaseRoute Phase = "route"

	// PhaseSynthesize asks the coordinator for the final consolidated result.
	PhaseSynthesize Phase = "synthesize"
)

// Tool describes a capability offered to a participant for one invocation.
// The engine never executes tools; it only forwards their descriptions.
type Tool struct {
	Name        string
	Description string
	Schema      *schema.Schema
}

// Invocation is the input to a single participant call.
type Invocation struct {
	// ContextID identifies the execution context of this call. Messages the
	// participant produces should be stamped with it.
	ContextID string

	// Snapshot is the sanitized conversation visible to the participant.
	Snapshot conversation.Snapshot

	// Tools optionally extends what the participant may call.
	Tools []Tool

	// Instruction is an extra instruction for this call, if any.
	Instruction string

	Phase Phase
}

// Result is the output of a participant call.
type Result struct {
	// Messages are appended to the conversation in order.
	Messages []conversation.Message

	// RawDecision is the raw decision payload. When empty, the text of the
	// last participant message is parsed instead.
	RawDecision string
}

// DecisionText returns the text the routing parser should read.
func (r *Result) DecisionText() string {
	if r == nil {
		return ""
	}
	if r.RawDecision != "" {
		return r.RawDecision
	}
	for i := len(r.Messages) - 1; i >= 0; i-- {
		m := r.Messages[i]
		if m.Role == conversation.RoleParticipant && m.Text != "" {
			return m.Text
		}
	}
	return ""
}

// Participant is a routable unit of work.
type Participant interface {
	Invoke(ctx context.Context, inv *Invocation) (*Result, error)
}

// Func adapts an ordinary function to the Participant interface.
type Func func(ctx context.Context, inv *Invocation) (*Result, error)

func (f Func) Invoke(ctx context.Context, inv *Invocation) (*Result, error) {
	return f(ctx, inv)
}

// Descriptor binds a Participant to its stable id and description.
type Descriptor struct {
	ID          string
	DisplayName string
	Description string
	Participant Participant
}

// Description is the public metadata of a registered participant.
type Description struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

// Describe returns the descriptor's public metadata.
func (d Descriptor) Describe() Description {
	name := d.DisplayName
	if name == "" {
		name = d.ID
	}
	return Description{ID: d.ID, DisplayName: name, Description: d.Description}
}
