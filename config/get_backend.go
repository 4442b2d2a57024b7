package config

import (
	"github.com/deepnoodle-ai/relay/coordinator"
	"github.com/deepnoodle-ai/relay/providers"

	// Register the built-in providers.
	_ "github.com/deepnoodle-ai/relay/providers/google"
	_ "github.com/deepnoodle-ai/relay/providers/openai"
)

// GetBackend returns the backend for a provider and model. With no provider
// the model name selects one from the provider registry.
func GetBackend(providerName, modelName string) (coordinator.Backend, error) {
	return providers.CreateBackend(providerName, modelName, "")
}
