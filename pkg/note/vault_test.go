package note_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/tidy/pkg/note"
)

func writeNote(t *testing.T, root, relPath, content string) {
	t.Helper()

	absPath := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(absPath), 0o750))
	require.NoError(t, os.WriteFile(absPath, []byte(content), 0o600))
}

func newTestVault(t *testing.T) (*note.Vault, string) {
	t.Helper()

	root := t.TempDir()

	writeNote(t, root, "Inbox/a.md", "#todo\n")
	writeNote(t, root, "Projects/roadmap.md", "---\nstatus: active\n---\nbody\n")
	writeNote(t, root, "readme.md", "hello\n")
	writeNote(t, root, "notes.txt", "not a note\n")
	writeNote(t, root, ".obsidian/workspace.md", "ignored\n")

	v, err := note.NewVault(root)
	require.NoError(t, err)
	require.NoError(t, v.Load(t.Context()))

	return v, root
}

func TestNewVault(t *testing.T) {
	t.Parallel()

	t.Run("missing root", func(t *testing.T) {
		t.Parallel()

		_, err := note.NewVault(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})

	t.Run("root is a file", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		path := filepath.Join(root, "file")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

		_, err := note.NewVault(path)
		require.ErrorContains(t, err, "not a directory")
	})

	t.Run("ready only after load", func(t *testing.T) {
		t.Parallel()

		v, err := note.NewVault(t.TempDir())
		require.NoError(t, err)
		assert.False(t, v.Ready())

		require.NoError(t, v.Load(t.Context()))
		assert.True(t, v.Ready())
	})
}

func TestVault_Load(t *testing.T) {
	t.Parallel()

	v, _ := newTestVault(t)

	all := v.All()
	paths := make([]string, 0, len(all))
	for _, n := range all {
		paths = append(paths, n.Path)
	}

	// Sorted by path; non-markdown files and hidden directories excluded.
	assert.Equal(t, []string{"Inbox/a.md", "Projects/roadmap.md", "readme.md"}, paths)
}

func TestVault_Get(t *testing.T) {
	t.Parallel()

	v, _ := newTestVault(t)

	n := v.Get("Inbox/a.md")
	require.NotNil(t, n)
	assert.Equal(t, []string{"todo"}, n.Tags)

	assert.Nil(t, v.Get("missing.md"))
}

func TestVault_Refresh(t *testing.T) {
	t.Parallel()

	t.Run("picks up new content", func(t *testing.T) {
		t.Parallel()

		v, root := newTestVault(t)

		writeNote(t, root, "Inbox/a.md", "#done\n")

		n, err := v.Refresh(t.Context(), "Inbox/a.md")
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, []string{"done"}, n.Tags)
		assert.Equal(t, []string{"done"}, v.Get("Inbox/a.md").Tags)
	})

	t.Run("deleted note is dropped from the index", func(t *testing.T) {
		t.Parallel()

		v, root := newTestVault(t)

		require.NoError(t, os.Remove(filepath.Join(root, "readme.md")))

		n, err := v.Refresh(t.Context(), "readme.md")
		require.NoError(t, err)
		assert.Nil(t, n)
		assert.Nil(t, v.Get("readme.md"))
	})
}

func TestVault_Move(t *testing.T) {
	t.Parallel()

	t.Run("moves into a new folder", func(t *testing.T) {
		t.Parallel()

		v, root := newTestVault(t)

		require.NoError(t, v.Move(t.Context(), v.Get("Inbox/a.md"), "Archive/2026"))

		assert.Nil(t, v.Get("Inbox/a.md"))
		require.NotNil(t, v.Get("Archive/2026/a.md"))
		assert.FileExists(t, filepath.Join(root, "Archive", "2026", "a.md"))
	})

	t.Run("same folder is a no-op", func(t *testing.T) {
		t.Parallel()

		v, _ := newTestVault(t)

		require.NoError(t, v.Move(t.Context(), v.Get("Inbox/a.md"), "Inbox"))
		require.NotNil(t, v.Get("Inbox/a.md"))
	})

	t.Run("moves to the vault root", func(t *testing.T) {
		t.Parallel()

		v, root := newTestVault(t)

		require.NoError(t, v.Move(t.Context(), v.Get("Inbox/a.md"), ""))

		require.NotNil(t, v.Get("a.md"))
		assert.FileExists(t, filepath.Join(root, "a.md"))
	})
}

func TestVault_SetProperty(t *testing.T) {
	t.Parallel()

	t.Run("updates existing property", func(t *testing.T) {
		t.Parallel()

		v, _ := newTestVault(t)

		n := v.Get("Projects/roadmap.md")
		require.NoError(t, v.SetProperty(t.Context(), n, "status", "done"))

		assert.Equal(t, "done", v.Get("Projects/roadmap.md").Props["status"])
	})

	t.Run("creates frontmatter when missing", func(t *testing.T) {
		t.Parallel()

		v, root := newTestVault(t)

		n := v.Get("readme.md")
		require.NoError(t, v.SetProperty(t.Context(), n, "reviewed", true))

		assert.Equal(t, true, v.Get("readme.md").Props["reviewed"])

		content, err := os.ReadFile(filepath.Join(root, "readme.md"))
		require.NoError(t, err)
		assert.Contains(t, string(content), "reviewed: true")
		assert.Contains(t, string(content), "hello")
	})
}

func TestVault_Rel(t *testing.T) {
	t.Parallel()

	v, root := newTestVault(t)

	relPath, err := v.Rel(filepath.Join(root, "Inbox", "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "Inbox/a.md", relPath)

	_, err = v.Rel(filepath.Join(root, "..", "outside.md"))
	require.ErrorIs(t, err, note.ErrNotInVault)
}
