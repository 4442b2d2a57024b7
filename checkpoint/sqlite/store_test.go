package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/deepnoodle-ai/relay/checkpoint"
	"github.com/deepnoodle-ai/relay/checkpoint/checkpointtest"
	"github.com/deepnoodle-ai/relay/checkpoint/sqlite/migrations"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreContract(t *testing.T) {
	checkpointtest.RunStoreTests(t, func(t *testing.T) checkpoint.Store {
		return openTestStore(t)
	})
}

func TestOpenCreatesSchema(t *testing.T) {
	store := openTestStore(t)

	var name string
	err := store.DB().Get(&name, `SELECT name FROM sqlite_master WHERE type='table' AND name='checkpoints'`)
	require.NoError(t, err)
	require.Equal(t, "checkpoints", name)
}

func TestMigrationsIdempotent(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, migrations.Run(store.DB().DB), "second run should be a no-op")
}

func TestReopenKeepsCheckpoints(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "relay.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, checkpointtest.NewCheckpoint("durable")))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	cp, err := reopened.Load(ctx, "durable")
	require.NoError(t, err)
	require.Equal(t, "researcher", cp.RequestingParticipant)
	require.Equal(t, 3, cp.PreservedSnapshot.Len())
}
