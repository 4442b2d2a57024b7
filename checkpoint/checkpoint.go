// Package checkpoint defines the durable record of a suspended execution and
// the store contract used to persist it.
//
// A checkpoint is created when a participant asks for external input and is
// consumed exactly once when the matching response arrives. Implementations
// must make Delete atomic: of two concurrent Deletes for the same id, exactly
// one succeeds and the other returns ErrNotFound.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deepnoodle-ai/relay/conversation"
)

var (
	// ErrNotFound is returned when no checkpoint exists for a correlation id.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrInvalidID is returned for correlation ids that are empty or could
	// escape a store's namespace.
	ErrInvalidID = errors.New("invalid checkpoint id")
)

// Checkpoint preserves everything needed to resume a suspended execution.
type Checkpoint struct {
	CorrelationID         string                `json:"correlation_id"`
	ExecutionID           string                `json:"execution_id"`
	Workflow              string                `json:"workflow,omitempty"`
	RequestingParticipant string                `json:"requesting_participant"`
	Prompt                string                `json:"prompt"`
	PreservedSnapshot     conversation.Snapshot `json:"preserved_snapshot"`
	IterationCount        int                   `json:"iteration_count"`
	CreatedAt             time.Time             `json:"created_at"`
}

// Store persists checkpoints.
type Store interface {
	// Save persists a checkpoint, replacing any existing one with the same id.
	Save(ctx context.Context, cp *Checkpoint) error

	// Load returns the checkpoint for id or ErrNotFound.
	Load(ctx context.Context, id string) (*Checkpoint, error)

	// Delete removes the checkpoint for id. It returns ErrNotFound if the
	// checkpoint does not exist or was already consumed.
	Delete(ctx context.Context, id string) error
}

// Lister is implemented by stores that can enumerate pending checkpoints.
type Lister interface {
	List(ctx context.Context) ([]*Checkpoint, error)
}

// ValidateID rejects ids that are empty or contain path separators or
// relative path components.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." ||
		strings.ContainsAny(id, "/\\") ||
		strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Clone returns a deep copy of the checkpoint.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	cp := *c
	cp.PreservedSnapshot = conversation.NewSnapshot(c.PreservedSnapshot.Messages()...)
	return &cp
}

// Validate checks the fields required to resume.
func (c *Checkpoint) Validate() error {
	if err := ValidateID(c.CorrelationID); err != nil {
		return err
	}
	if c.RequestingParticipant == "" {
		return fmt.Errorf("checkpoint %s: missing requesting participant", c.CorrelationID)
	}
	if strings.TrimSpace(c.Prompt) == "" {
		return fmt.Errorf("checkpoint %s: missing prompt", c.CorrelationID)
	}
	return nil
}
