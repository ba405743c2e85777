package note

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/macropower/tidy/pkg/log"
)

// ErrNotInVault is returned for paths outside the vault root.
var ErrNotInVault = errors.New("path is outside the vault")

// Vault is an indexed directory of markdown notes. The index is built by
// [Vault.Load]; until that completes, [Vault.Ready] reports false and reads
// return empty results.
type Vault struct {
	notes map[string]*Note
	root  string
	mu    sync.RWMutex
	ready atomic.Bool
}

// NewVault creates a [Vault] rooted at the given directory.
func NewVault(root string) (*Vault, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve vault root: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat vault root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: vault root is not a directory", absRoot)
	}

	return &Vault{
		root:  absRoot,
		notes: make(map[string]*Note),
	}, nil
}

// Root returns the absolute vault root path.
func (v *Vault) Root() string {
	return v.root
}

// Ready reports whether the initial index has been built.
func (v *Vault) Ready() bool {
	return v.ready.Load()
}

// Load walks the vault and indexes every markdown note. Hidden directories
// (dot-prefixed) are skipped.
func (v *Vault) Load(ctx context.Context) error {
	logger := log.WithContext(ctx)
	notes := make(map[string]*Note)

	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.IsDir() {
			if path != v.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}

			return nil
		}
		if filepath.Ext(path) != Extension {
			return nil
		}

		relPath, err := filepath.Rel(v.root, path)
		if err != nil {
			return fmt.Errorf("relativize %q: %w", path, err)
		}

		content, err := os.ReadFile(path) //nolint:gosec // G304: Path is inside the vault.
		if err != nil {
			logger.WarnContext(ctx, "skipping unreadable note",
				slog.String("path", relPath),
				slog.Any("error", err),
			)

			return nil
		}

		n := Parse(relPath, content)
		notes[n.Path] = n

		return nil
	})
	if err != nil {
		return fmt.Errorf("walk vault %q: %w", v.root, err)
	}

	v.mu.Lock()
	v.notes = notes
	v.mu.Unlock()

	v.ready.Store(true)

	logger.DebugContext(ctx, "indexed vault",
		slog.String("root", v.root),
		slog.Int("notes", len(notes)),
	)

	return nil
}

// All returns every indexed note, sorted by path.
func (v *Vault) All() []*Note {
	v.mu.RLock()
	defer v.mu.RUnlock()

	all := make([]*Note, 0, len(v.notes))
	for _, n := range v.notes {
		all = append(all, n)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Path < all[j].Path })

	return all
}

// Get returns the indexed note at the given relative path, or nil.
func (v *Vault) Get(relPath string) *Note {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.notes[filepath.ToSlash(relPath)]
}

// Refresh re-reads a single note from disk and updates the index. If the
// file no longer exists, the note is dropped from the index and nil is
// returned with no error.
func (v *Vault) Refresh(ctx context.Context, relPath string) (*Note, error) {
	relPath = filepath.ToSlash(relPath)

	content, err := os.ReadFile(v.abs(relPath)) //nolint:gosec // G304: Path is inside the vault.
	if errors.Is(err, os.ErrNotExist) {
		v.mu.Lock()
		delete(v.notes, relPath)
		v.mu.Unlock()

		log.WithContext(ctx).DebugContext(ctx, "note removed from index",
			slog.String("path", relPath),
		)

		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read note %q: %w", relPath, err)
	}

	n := Parse(relPath, content)

	v.mu.Lock()
	v.notes[n.Path] = n
	v.mu.Unlock()

	return n, nil
}

// Rel converts an absolute path to a vault-relative slash path.
func (v *Vault) Rel(absPath string) (string, error) {
	relPath, err := filepath.Rel(v.root, absPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return "", fmt.Errorf("%w: %s", ErrNotInVault, absPath)
	}

	return filepath.ToSlash(relPath), nil
}

// Move relocates a note into targetFolder (vault-relative), creating the
// folder if needed. Moving a note to the folder it is already in is a no-op.
func (v *Vault) Move(ctx context.Context, n *Note, targetFolder string) error {
	targetFolder = strings.Trim(filepath.ToSlash(filepath.Clean(targetFolder)), "/")
	if targetFolder == "." {
		targetFolder = ""
	}

	newPath := filepath.Base(n.Path)
	if targetFolder != "" {
		newPath = targetFolder + "/" + newPath
	}

	if newPath == n.Path {
		return nil
	}

	if targetFolder != "" {
		err := os.MkdirAll(filepath.Join(v.root, filepath.FromSlash(targetFolder)), 0o750)
		if err != nil {
			return fmt.Errorf("create folder %q: %w", targetFolder, err)
		}
	}

	err := os.Rename(v.abs(n.Path), v.abs(newPath))
	if err != nil {
		return fmt.Errorf("move note %q: %w", n.Path, err)
	}

	log.WithContext(ctx).InfoContext(ctx, "moved note",
		slog.String("from", n.Path),
		slog.String("to", newPath),
	)

	v.mu.Lock()
	delete(v.notes, n.Path)
	v.mu.Unlock()

	_, err = v.Refresh(ctx, newPath)

	return err
}

// SetProperty upserts a frontmatter property on a note, creating the
// frontmatter block if the note has none.
func (v *Vault) SetProperty(ctx context.Context, n *Note, key string, value any) error {
	absPath := v.abs(n.Path)

	content, err := os.ReadFile(absPath) //nolint:gosec // G304: Path is inside the vault.
	if err != nil {
		return fmt.Errorf("read note %q: %w", n.Path, err)
	}

	updated, err := upsertProperty(content, key, value)
	if err != nil {
		return fmt.Errorf("update property %q on %q: %w", key, n.Path, err)
	}

	err = os.WriteFile(absPath, updated, 0o600)
	if err != nil {
		return fmt.Errorf("write note %q: %w", n.Path, err)
	}

	log.WithContext(ctx).InfoContext(ctx, "updated property",
		slog.String("path", n.Path),
		slog.String("key", key),
		slog.Any("value", value),
	)

	_, err = v.Refresh(ctx, n.Path)

	return err
}

func (v *Vault) abs(relPath string) string {
	return filepath.Join(v.root, filepath.FromSlash(relPath))
}
