// Package coordinator builds the entry and exit participant of a workflow.
// When a workflow names no coordinator, one is derived from the registry:
// a directory of the registered participants is rendered into a fixed
// instruction template and handed to a Backend together with one synthetic
// routing action per participant. The same coordinator later consolidates
// the conversation into the workflow's final output.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/relay/conversation"
	"github.com/deepnoodle-ai/relay/participant"
	"github.com/deepnoodle-ai/relay/routing"
)

// DefaultID is the id given to a derived coordinator.
const DefaultID = "coordinator"

var (
	// ErrNoBackend is returned when a coordinator must be derived but no
	// backend is available to construct one.
	ErrNoBackend = errors.New("no backend available to derive a coordinator")

	// ErrEmptyRegistry is returned when deriving from a registry with no
	// participants.
	ErrEmptyRegistry = errors.New("cannot derive a coordinator from an empty registry")
)

// Spec describes a participant a Backend should construct.
type Spec struct {
	ID           string
	DisplayName  string
	Description  string
	Instructions string
	Actions      []Action
}

// Backend constructs new participants from instructions. LLM providers
// implement it.
type Backend interface {
	NewParticipant(ctx context.Context, spec *Spec) (participant.Participant, error)
}

// Options configures Derive.
type Options struct {
	ID          string
	DisplayName string
	Workflow    string
}

// RenderDirectory renders one line per participant in registration order.
// The output depends only on the descriptions.
func RenderDirectory(descriptions []participant.Description) string {
	lines := make([]string, 0, len(descriptions))
	for _, d := range descriptions {
		name := d.DisplayName
		if name == "" {
			name = d.ID
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", d.ID, name, d.Description))
	}
	return strings.Join(lines, "\n")
}

// Instructions renders the coordinator instructions for the given
// participants.
func Instructions(name, workflow string, descriptions []participant.Description) (string, error) {
	return executeTemplate(instructionsTemplate, instructionsData{
		Name:          name,
		Workflow:      workflow,
		Directory:     RenderDirectory(descriptions),
		DecisionRules: routing.FormatInstructions,
	})
}

// BuildSpec returns the Spec of a coordinator derived from descriptions.
func BuildSpec(descriptions []participant.Description, opts Options) (*Spec, error) {
	if len(descriptions) == 0 {
		return nil, ErrEmptyRegistry
	}
	if opts.ID == "" {
		opts.ID = DefaultID
	}
	if opts.DisplayName == "" {
		opts.DisplayName = "Coordinator"
	}
	instructions, err := Instructions(opts.DisplayName, opts.Workflow, descriptions)
	if err != nil {
		return nil, err
	}
	return &Spec{
		ID:           opts.ID,
		DisplayName:  opts.DisplayName,
		Description:  "Triages requests, routes work between participants and writes the final result",
		Instructions: instructions,
		Actions:      RoutingActions(descriptions),
	}, nil
}

// Derive constructs a coordinator for the participants in registry. The
// returned descriptor is not registered; the caller registers it and marks it
// as the start node.
func Derive(ctx context.Context, registry *participant.Registry, backend Backend, opts Options) (participant.Descriptor, error) {
	if registry == nil || registry.Len() == 0 {
		return participant.Descriptor{}, ErrEmptyRegistry
	}
	if backend == nil {
		return participant.Descriptor{}, ErrNoBackend
	}
	spec, err := BuildSpec(registry.DescribeAll(), opts)
	if err != nil {
		return participant.Descriptor{}, err
	}
	if registry.Has(spec.ID) {
		return participant.Descriptor{}, &participant.DuplicateIDError{ID: spec.ID}
	}
	p, err := backend.NewParticipant(ctx, spec)
	if err != nil {
		return participant.Descriptor{}, fmt.Errorf("backend failed to construct coordinator: %w", err)
	}
	if p == nil {
		return participant.Descriptor{}, fmt.Errorf("backend returned no coordinator")
	}
	return participant.Descriptor{
		ID:          spec.ID,
		DisplayName: spec.DisplayName,
		Description: spec.Description,
		Participant: p,
	}, nil
}

// Synthesis is the outcome of a final synthesis call.
type Synthesis struct {
	Output   string
	Messages []conversation.Message
}

// Synthesize invokes the coordinator once over the fully sanitized
// conversation and returns its consolidated output.
func Synthesize(ctx context.Context, coordinator participant.Descriptor, snapshot conversation.Snapshot, contextID string) (*Synthesis, error) {
	result, err := coordinator.Participant.Invoke(ctx, &participant.Invocation{
		ContextID:   contextID,
		Snapshot:    conversation.Sanitize(snapshot),
		Instruction: FinalSynthesisInstruction,
		Phase:       participant.PhaseSynthesize,
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &Synthesis{}, nil
	}
	out := &Synthesis{Messages: result.Messages}
	for i := len(result.Messages) - 1; i >= 0; i-- {
		m := result.Messages[i]
		if m.Role == conversation.RoleParticipant && m.Text != "" {
			out.Output = m.Text
			break
		}
	}
	if out.Output == "" {
		out.Output = result.RawDecision
	}
	return out, nil
}
