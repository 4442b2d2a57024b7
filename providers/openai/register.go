package openai

import (
	"github.com/deepnoodle-ai/relay/coordinator"
	"github.com/deepnoodle-ai/relay/providers"
)

func init() {
	providers.Register(providers.ProviderEntry{
		Name:    "openai",
		Match:   providers.PrefixesMatcher("gpt-", "o1", "o3", "o4", "chatgpt-"),
		Factory: newBackend,
	})
	// Unrecognized model names are assumed to be served by an
	// OpenAI-compatible endpoint.
	providers.SetFallback(newBackend)
}

func newBackend(model, endpoint string) coordinator.Backend {
	opts := make([]Option, 0, 2)
	if model != "" {
		opts = append(opts, WithModel(model))
	}
	if endpoint != "" {
		opts = append(opts, WithEndpoint(endpoint))
	}
	return New(opts...)
}
