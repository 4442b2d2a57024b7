package participant

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrRegistryFrozen is returned when registering into a registry that
	// has been attached to a workflow.
	ErrRegistryFrozen = errors.New("participant registry is frozen")

	// ErrInvalidDescriptor is returned for descriptors missing an id or an
	// implementation.
	ErrInvalidDescriptor = errors.New("invalid participant descriptor")

	// ErrNotFound is returned when looking up an unknown participant.
	ErrNotFound = errors.New("participant not found")
)

// DuplicateIDError is returned when a participant id is registered twice.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("participant %q is already registered", e.ID)
}

// Registry holds participant descriptors in registration order. It is built
// once per workflow definition and is read-only after Freeze.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byID   map[string]Descriptor
	frozen bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Descriptor)}
}

// Register adds a descriptor.
func (r *Registry) Register(d Descriptor) error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDescriptor)
	}
	if d.Participant == nil {
		return fmt.Errorf("%w: participant %q has no implementation", ErrInvalidDescriptor, d.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrRegistryFrozen
	}
	if _, exists := r.byID[d.ID]; exists {
		return &DuplicateIDError{ID: d.ID}
	}
	r.byID[d.ID] = d
	r.order = append(r.order, d.ID)
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Get returns the descriptor registered under id.
func (r *Registry) Get(id string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return d, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// Len returns the number of registered participants.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// DescribeAll returns the metadata of every participant in registration
// order.
func (r *Registry) DescribeAll() []Description {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Description, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Describe())
	}
	return out
}
