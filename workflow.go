package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/deepnoodle-ai/relay/coordinator"
	"github.com/deepnoodle-ai/relay/participant"
	"github.com/deepnoodle-ai/relay/routing"
	"github.com/deepnoodle-ai/relay/slogger"
)

// DefaultMaxHops bounds the number of re-targets of one execution when
// BuildOptions.MaxHops is zero.
const DefaultMaxHops = 10

// BuildOptions configures Build.
type BuildOptions struct {
	// Name identifies the workflow in logs, metrics and checkpoints.
	Name string

	// Participants are registered in order.
	Participants []participant.Descriptor

	// Coordinator optionally names the participant used as start node and
	// for final synthesis. When empty, a coordinator is derived with Backend.
	Coordinator string

	// Backend constructs the derived coordinator.
	Backend coordinator.Backend

	// MaxHops bounds re-targets. Zero selects DefaultMaxHops.
	MaxHops int

	Logger slogger.Logger
}

// Workflow is a built, read-only workflow definition. It is safe to share
// between executions.
type Workflow struct {
	name        string
	registry    *participant.Registry
	coordinator participant.Descriptor
	derived     bool
	maxHops     int
	parser      *routing.Parser
	logger      slogger.Logger
}

// Build validates opts and returns a frozen Workflow. Every failure is a
// *ConfigurationError.
func Build(ctx context.Context, opts BuildOptions) (*Workflow, error) {
	if len(opts.Participants) == 0 {
		return nil, &ConfigurationError{Reason: "workflow has no participants"}
	}
	if opts.MaxHops < 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("max hops must not be negative, got %d", opts.MaxHops)}
	}
	if opts.MaxHops == 0 {
		opts.MaxHops = DefaultMaxHops
	}
	if opts.Name == "" {
		opts.Name = "workflow"
	}
	logger := slogger.OrDefault(opts.Logger).With("workflow", opts.Name)

	registry := participant.NewRegistry()
	for _, d := range opts.Participants {
		if err := registry.Register(d); err != nil {
			return nil, &ConfigurationError{Reason: "invalid participant", Err: err}
		}
	}

	wf := &Workflow{
		name:     opts.Name,
		registry: registry,
		maxHops:  opts.MaxHops,
		logger:   logger,
	}

	if opts.Coordinator != "" {
		d, err := registry.Get(opts.Coordinator)
		if err != nil {
			return nil, &ConfigurationError{
				Reason: fmt.Sprintf("coordinator %q is not a registered participant", opts.Coordinator),
				Err:    err,
			}
		}
		wf.coordinator = d
	} else {
		d, err := coordinator.Derive(ctx, registry, opts.Backend, coordinator.Options{Workflow: opts.Name})
		if err != nil {
			reason := "cannot derive coordinator"
			if errors.Is(err, coordinator.ErrNoBackend) {
				reason = "no coordinator given and no backend to derive one"
			}
			return nil, &ConfigurationError{Reason: reason, Err: err}
		}
		if err := registry.Register(d); err != nil {
			return nil, &ConfigurationError{Reason: "cannot register derived coordinator", Err: err}
		}
		wf.coordinator = d
		wf.derived = true
	}

	registry.Freeze()
	wf.parser = routing.NewParser(registry)

	logger.Debug("built workflow",
		"participants", registry.IDs(),
		"coordinator", wf.coordinator.ID,
		"derived", wf.derived,
		"max_hops", wf.maxHops)
	return wf, nil
}

// Name returns the workflow name.
func (w *Workflow) Name() string {
	return w.name
}

// Registry returns the frozen participant registry. It includes a derived
// coordinator.
func (w *Workflow) Registry() *participant.Registry {
	return w.registry
}

// Coordinator returns the start and synthesis participant.
func (w *Workflow) Coordinator() participant.Descriptor {
	return w.coordinator
}

// Derived reports whether the coordinator was derived rather than supplied.
func (w *Workflow) Derived() bool {
	return w.derived
}

// MaxHops returns the re-target bound.
func (w *Workflow) MaxHops() int {
	return w.maxHops
}

// Parser returns the routing decision parser bound to the registry.
func (w *Workflow) Parser() *routing.Parser {
	return w.parser
}

// NewExecution returns the initial state of an execution.
func (w *Workflow) NewExecution(executionID string) ExecutionState {
	return ExecutionState{
		ExecutionID:       executionID,
		Workflow:          w.name,
		ActiveParticipant: w.coordinator.ID,
		Status:            StatusRunning,
	}
}
