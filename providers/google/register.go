package google

import (
	"github.com/deepnoodle-ai/relay/coordinator"
	"github.com/deepnoodle-ai/relay/providers"
)

func init() {
	providers.Register(providers.ProviderEntry{
		Name:    ProviderName,
		Match:   providers.PrefixMatcher("gemini-"),
		Factory: newBackend,
	})
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
