package config

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/relay"
	"github.com/deepnoodle-ai/relay/coordinator"
	"github.com/deepnoodle-ai/relay/participant"
	"github.com/deepnoodle-ai/relay/providers"
	"github.com/deepnoodle-ai/relay/routing"
	"github.com/deepnoodle-ai/relay/slogger"
)

// BackendFunc returns the backend for a provider and model.
type BackendFunc func(provider, model string) (coordinator.Backend, error)

type BuildOptions struct {
	Logger slogger.Logger

	// GetBackend overrides GetBackend.
	GetBackend BackendFunc
}

// Build validates the config and constructs the workflow it describes.
// Every participant gets its resolved instructions followed by the routing
// decision format.
func Build(ctx context.Context, cfg *Config, opts BuildOptions) (*relay.Workflow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	getBackend := opts.GetBackend
	if getBackend == nil {
		getBackend = GetBackend
	}
	logger := slogger.OrDefault(opts.Logger)

	descriptors := make([]participant.Descriptor, 0, len(cfg.Participants))
	for _, pc := range cfg.Participants {
		d, err := buildParticipant(ctx, cfg, pc, getBackend)
		if err != nil {
			return nil, fmt.Errorf("participant %s: %w", pc.ID, err)
		}
		descriptors = append(descriptors, d)
	}

	var backend coordinator.Backend
	if cfg.Coordinator == "" {
		var err error
		backend, err = getBackend(cfg.Backend.Provider, cfg.Backend.Model)
		if err != nil {
			return nil, fmt.Errorf("coordinator backend: %w", err)
		}
	}
	logger.Debug("building workflow", "name", cfg.Name, "participants", len(descriptors))

	return relay.Build(ctx, relay.BuildOptions{
		Name:         cfg.Name,
		Participants: descriptors,
		Coordinator:  cfg.Coordinator,
		Backend:      backend,
		MaxHops:      cfg.MaxHops,
		Logger:       logger,
	})
}

func buildParticipant(ctx context.Context, cfg *Config, pc Participant, getBackend BackendFunc) (participant.Descriptor, error) {
	provider, model := pc.backend(cfg.Backend)
	backend, err := getBackend(provider, model)
	if err != nil {
		return participant.Descriptor{}, err
	}
	instructions, err := pc.ResolveInstructions(cfg.BasePath())
	if err != nil {
		return participant.Descriptor{}, err
	}
	p, err := backend.NewParticipant(ctx, &coordinator.Spec{
		ID:           pc.ID,
		DisplayName:  pc.DisplayName,
		Description:  pc.Description,
		Instructions: providers.JoinInstructions(instructions, routing.FormatInstructions),
	})
	if err != nil {
		return participant.Descriptor{}, err
	}
	if pc.Retry != nil {
		retryOpts, err := pc.Retry.Options()
		if err != nil {
			return participant.Descriptor{}, err
		}
		p = participant.WithRetry(p, retryOpts)
	}
	return participant.Descriptor{
		ID:          pc.ID,
		DisplayName: pc.DisplayName,
		Description: pc.Description,
		Participant: p,
	}, nil
}

// backend returns the provider and model of the participant. A participant
// naming its own provider does not inherit the workflow model.
func (p Participant) backend(defaults Backend) (string, string) {
	if p.Provider != "" {
		return p.Provider, p.Model
	}
	model := p.Model
	if model == "" {
		model = defaults.Model
	}
	return defaults.Provider, model
}
