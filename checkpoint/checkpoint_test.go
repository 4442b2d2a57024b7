package checkpoint_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/deepnoodle-ai/relay/checkpoint"
	"github.com/deepnoodle-ai/relay/checkpoint/checkpointtest"
	"github.com/deepnoodle-ai/wonton/assert"
)

func TestMemoryStore(t *testing.T) {
	checkpointtest.RunStoreTests(t, func(t *testing.T) checkpoint.Store {
		return checkpoint.NewMemoryStore()
	})
}

func TestFileStore(t *testing.T) {
	checkpointtest.RunStoreTests(t, func(t *testing.T) checkpoint.Store {
		store, err := checkpoint.NewFileStore(t.TempDir())
		assert.NoError(t, err)
		return store
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()
	cp := checkpointtest.NewCheckpoint("c1")
	assert.NoError(t, store.Save(ctx, cp))

	cp.Prompt = "mutated after save"
	loaded, err := store.Load(ctx, "c1")
	assert.NoError(t, err)
	assert.Equal(t, "Pick X or Y", loaded.Prompt)
}

func TestFileStorePathTraversal(t *testing.T) {
	ctx := context.Background()
	store, err := checkpoint.NewFileStore(t.TempDir())
	assert.NoError(t, err)

	for _, id := range []string{"../escape", "a/b", `a\b`, "..", "."} {
		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, checkpoint.ErrInvalidID, id)
		assert.ErrorIs(t, store.Delete(ctx, id), checkpoint.ErrInvalidID, id)
	}
}

func TestFileStoreLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := checkpoint.NewFileStore(dir)
	assert.NoError(t, err)
	assert.NoError(t, store.Save(ctx, checkpointtest.NewCheckpoint("c7")))

	data, err := os.ReadFile(filepath.Join(dir, "c7.json"))
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"correlation_id": "c7"`)
	assert.Contains(t, string(data), `"requesting_participant": "researcher"`)

	// Temp files never linger.
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestClone(t *testing.T) {
	var nilCheckpoint *checkpoint.Checkpoint
	assert.Nil(t, nilCheckpoint.Clone())

	cp := checkpointtest.NewCheckpoint("c8")
	clone := cp.Clone()
	assert.True(t, cp.PreservedSnapshot.Equal(clone.PreservedSnapshot))
	clone.Prompt = "other"
	assert.Equal(t, "Pick X or Y", cp.Prompt)
}
