package engine_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/tidy/pkg/engine"
)

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "state", "state.json")

	s := engine.NewStore(path)
	require.NoError(t, s.Load(ctx))

	require.NoError(t, s.SetMatches(ctx, "Inbox/a.md", []string{"rs1", "rs2"}))

	stamp := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetLastRun(ctx, "rs1", stamp))

	loaded := engine.NewStore(path)
	require.NoError(t, loaded.Load(ctx))

	assert.Equal(t, []string{"rs1", "rs2"}, loaded.Matches("Inbox/a.md"))
	assert.True(t, loaded.MatchedBefore("Inbox/a.md", "rs2"))
	assert.False(t, loaded.MatchedBefore("Inbox/a.md", "rs3"))
	assert.False(t, loaded.MatchedBefore("Inbox/b.md", "rs1"))

	lastRun, ok := loaded.LastRun("rs1")
	require.True(t, ok)
	assert.True(t, stamp.Equal(lastRun))

	_, ok = loaded.LastRun("rs2")
	assert.False(t, ok)
}

func TestStore_Load(t *testing.T) {
	t.Parallel()

	t.Run("missing file is an empty store", func(t *testing.T) {
		t.Parallel()

		s := engine.NewStore(filepath.Join(t.TempDir(), "missing.json"))
		require.NoError(t, s.Load(t.Context()))
		assert.Nil(t, s.Matches("anything.md"))
	})

	t.Run("corrupt file starts empty", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))

		s := engine.NewStore(path)
		require.NoError(t, s.Load(t.Context()))
		assert.Nil(t, s.Matches("anything.md"))
	})
}

func TestStore_SetMatches(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "state.json")
	s := engine.NewStore(path)

	require.NoError(t, s.SetMatches(ctx, "a.md", []string{"rs1"}))
	assert.Equal(t, []string{"rs1"}, s.Matches("a.md"))

	// Wholesale replacement.
	require.NoError(t, s.SetMatches(ctx, "a.md", []string{"rs2"}))
	assert.Equal(t, []string{"rs2"}, s.Matches("a.md"))
	assert.False(t, s.MatchedBefore("a.md", "rs1"))

	// Empty set removes the record.
	require.NoError(t, s.SetMatches(ctx, "a.md", nil))
	assert.Nil(t, s.Matches("a.md"))

	loaded := engine.NewStore(path)
	require.NoError(t, loaded.Load(t.Context()))
	assert.Nil(t, loaded.Matches("a.md"))
}
