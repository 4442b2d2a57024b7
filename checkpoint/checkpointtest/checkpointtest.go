// Package checkpointtest provides a conformance suite for checkpoint.Store
// implementations.
package checkpointtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deepnoodle-ai/relay/checkpoint"
	"github.com/deepnoodle-ai/relay/conversation"
	"github.com/deepnoodle-ai/wonton/assert"
)

// NewCheckpoint returns a populated checkpoint for tests.
func NewCheckpoint(id string) *checkpoint.Checkpoint {
	return &checkpoint.Checkpoint{
		CorrelationID:         id,
		ExecutionID:           "exec-" + id,
		Workflow:              "test",
		RequestingParticipant: "researcher",
		Prompt:                "Pick X or Y",
		PreservedSnapshot: conversation.NewSnapshot(
			conversation.NewUserMessage("compare X and Y"),
			conversation.NewToolCallMessage("researcher", conversation.ToolCallPayload{
				ID: "call_1", Name: "search", Input: []byte(`{"q":"x vs y"}`),
			}),
			conversation.NewParticipantMessage("researcher", "Both look fine."),
		),
		IterationCount: 2,
		CreatedAt:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// RunStoreTests exercises the checkpoint.Store contract against stores
// returned by newStore. Each subtest receives a fresh store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) checkpoint.Store) {
	ctx := context.Background()

	t.Run("SaveLoad", func(t *testing.T) {
		store := newStore(t)
		in := NewCheckpoint("corr-1")
		assert.NoError(t, store.Save(ctx, in))

		out, err := store.Load(ctx, "corr-1")
		assert.NoError(t, err)
		assert.Equal(t, in.CorrelationID, out.CorrelationID)
		assert.Equal(t, in.ExecutionID, out.ExecutionID)
		assert.Equal(t, in.Workflow, out.Workflow)
		assert.Equal(t, in.RequestingParticipant, out.RequestingParticipant)
		assert.Equal(t, in.Prompt, out.Prompt)
		assert.Equal(t, in.IterationCount, out.IterationCount)
		assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
		assert.True(t, in.PreservedSnapshot.Equal(out.PreservedSnapshot), "preserved snapshot must round trip")
	})

	t.Run("LoadMissing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Load(ctx, "missing")
		assert.ErrorIs(t, err, checkpoint.ErrNotFound)
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		store := newStore(t)
		cp := NewCheckpoint("corr-2")
		assert.NoError(t, store.Save(ctx, cp))
		cp.Prompt = "Pick Z"
		assert.NoError(t, store.Save(ctx, cp))

		out, err := store.Load(ctx, "corr-2")
		assert.NoError(t, err)
		assert.Equal(t, "Pick Z", out.Prompt)
	})

	t.Run("DeleteConsumesOnce", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.Save(ctx, NewCheckpoint("corr-3")))
		assert.NoError(t, store.Delete(ctx, "corr-3"))
		assert.ErrorIs(t, store.Delete(ctx, "corr-3"), checkpoint.ErrNotFound)
		_, err := store.Load(ctx, "corr-3")
		assert.ErrorIs(t, err, checkpoint.ErrNotFound)
	})

	t.Run("ConcurrentDelete", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.Save(ctx, NewCheckpoint("corr-4")))

		var wins, losses atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.Delete(ctx, "corr-4")
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, checkpoint.ErrNotFound):
					losses.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
		assert.Equal(t, int32(7), losses.Load())
	})

	t.Run("RejectsInvalid", func(t *testing.T) {
		store := newStore(t)
		bad := NewCheckpoint("corr-5")
		bad.RequestingParticipant = ""
		assert.Error(t, store.Save(ctx, bad))

		bad = NewCheckpoint("")
		assert.ErrorIs(t, store.Save(ctx, bad), checkpoint.ErrInvalidID)
	})

	t.Run("List", func(t *testing.T) {
		store := newStore(t)
		lister, ok := store.(checkpoint.Lister)
		if !ok {
			t.Skip("store does not implement checkpoint.Lister")
		}
		for i := 3; i > 0; i-- {
			cp := NewCheckpoint(fmt.Sprintf("list-%d", i))
			cp.CreatedAt = cp.CreatedAt.Add(time.Duration(i) * time.Minute)
			assert.NoError(t, store.Save(ctx, cp))
		}
		list, err := lister.List(ctx)
		assert.NoError(t, err)
		assert.Len(t, list, 3)
		assert.Equal(t, "list-1", list[0].CorrelationID)
		assert.Equal(t, "list-3", list[2].CorrelationID)
	})
}
