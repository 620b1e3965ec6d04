package conversation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/vibed/internal/logging"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), logging.NewTestLogger().Logger)
	require.NoError(t, err)
	return store
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state := New("/home/dev/project", "main", "waterfall", "requirements", "/home/dev/project/.vibed/plan.md")
	state.RequireReviews = true
	state.GitCommit = &GitCommitConfig{Enabled: true, CommitOnPhase: true}

	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, state.ID, loaded.ID)
	assert.Equal(t, "waterfall", loaded.WorkflowName)
	assert.Equal(t, "requirements", loaded.CurrentPhase)
	assert.True(t, loaded.RequireReviews)
	require.NotNil(t, loaded.GitCommit)
	assert.True(t, loaded.GitCommit.CommitOnPhase)
}

func TestFileStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load(context.Background(), ID("/nowhere", "main"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_InvalidID(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load(context.Background(), "../escape")
	assert.ErrorIs(t, err, ErrInvalidID)

	err = store.Save(context.Background(), &State{ID: "not-a-uuid"})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestFileStore_SaveReplacesWholeRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state := New("/p", "main", "epcc", "explore", "/p/.vibed/plan.md")
	require.NoError(t, store.Save(ctx, state))

	state.CurrentPhase = "plan"
	state.Touch()
	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, "plan", loaded.CurrentPhase)
}

func TestFileStore_CorruptRecordQuarantined(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state := New("/p", "main", "epcc", "explore", "/p/.vibed/plan.md")
	require.NoError(t, store.Save(ctx, state))

	path := filepath.Join(store.dir, state.ID+".json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := store.Load(ctx, state.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The damaged file is preserved for diagnosis.
	_, statErr := os.Stat(path + ".corrupt")
	assert.NoError(t, statErr)
	// And the original slot is free for recreation.
	_, statErr = os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileStore_IncompleteRecordQuarantined(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := ID("/p", "main")
	path := filepath.Join(store.dir, id+".json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"`+id+`"}`), 0o600))

	_, err := store.Load(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, statErr := os.Stat(path + ".corrupt")
	assert.NoError(t, statErr)
}

func TestFileStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state := New("/p", "main", "epcc", "explore", "/p/.vibed/plan.md")
	require.NoError(t, store.Save(ctx, state))
	require.NoError(t, store.Delete(ctx, state.ID))

	_, err := store.Load(ctx, state.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is fine.
	require.NoError(t, store.Delete(ctx, state.ID))
}

func TestFileStore_DeleteRemovesQuarantine(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := ID("/p", "main")
	path := filepath.Join(store.dir, id+".json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	_, err := store.Load(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, id))
	_, statErr := os.Stat(path + ".corrupt")
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileStore_RefusesIncompleteSave(t *testing.T) {
	store := newTestStore(t)

	state := New("/p", "main", "epcc", "explore", "/p/.vibed/plan.md")
	state.WorkflowName = ""

	err := store.Save(context.Background(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete conversation state")
}
