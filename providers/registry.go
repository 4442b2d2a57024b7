package providers

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/deepnoodle-ai/relay/coordinator"
)

// ErrUnknownProvider is returned when no registered provider serves a
// request.
var ErrUnknownProvider = errors.New("unknown provider")

// ProviderFactory creates a backend for a given model name and optional
// endpoint. An empty model selects the provider's default.
type ProviderFactory func(model, endpoint string) coordinator.Backend

// ModelMatcher reports whether a provider serves a model.
type ModelMatcher func(model string) bool

// ProviderEntry describes one provider. Match may be nil for providers
// that are only selected by name.
type ProviderEntry struct {
	Name    string
	Match   ModelMatcher
	Factory ProviderFactory
}

// Registry resolves provider and model names to backends. Provider
// packages add themselves to the default registry from init.
type Registry struct {
	mu       sync.RWMutex
	entries  []ProviderEntry
	fallback ProviderFactory
}

// Register adds a provider. Matchers are tried in registration order.
func (r *Registry) Register(entry ProviderEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// SetFallback sets the factory used for models no matcher accepts.
func (r *Registry) SetFallback(factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = factory
}

// CreateBackend returns a backend for the named provider. When provider is
// empty the model name is matched against the registered entries in order,
// and the fallback is used if none match.
func (r *Registry) CreateBackend(provider, model, endpoint string) (coordinator.Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if provider != "" {
		for _, entry := range r.entries {
			if strings.EqualFold(entry.Name, provider) {
				return entry.Factory(model, endpoint), nil
			}
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	for _, entry := range r.entries {
		if entry.Match != nil && entry.Match(model) {
			return entry.Factory(model, endpoint), nil
		}
	}
	if r.fallback != nil {
		return r.fallback(model, endpoint), nil
	}
	return nil, fmt.Errorf("%w for model %q", ErrUnknownProvider, model)
}

// Names returns the registered provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		names = append(names, entry.Name)
	}
	return names
}

// PrefixMatcher matches models starting with prefix, ignoring case.
func PrefixMatcher(prefix string) ModelMatcher {
	return PrefixesMatcher(prefix)
}

// PrefixesMatcher matches models starting with any of prefixes, ignoring
// case.
func PrefixesMatcher(prefixes ...string) ModelMatcher {
	lowered := make([]string, len(prefixes))
	for i, p := range prefixes {
		lowered[i] = strings.ToLower(p)
	}
	return func(model string) bool {
		lower := strings.ToLower(model)
		for _, prefix := range lowered {
			if strings.HasPrefix(lower, prefix) {
				return true
			}
		}
		return false
	}
}

var defaultRegistry = &Registry{}

// Register adds a provider to the default registry.
func Register(entry ProviderEntry) {
	defaultRegistry.Register(entry)
}

// SetFallback sets the fallback of the default registry.
func SetFallback(factory ProviderFactory) {
	defaultRegistry.SetFallback(factory)
}

// CreateBackend resolves a backend from the default registry.
func CreateBackend(provider, model, endpoint string) (coordinator.Backend, error) {
	return defaultRegistry.CreateBackend(provider, model, endpoint)
}

// DefaultRegistry returns the registry provider packages register with.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
