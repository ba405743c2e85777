package engine

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/macropower/tidy/pkg/log"
	"github.com/macropower/tidy/pkg/note"
)

// Watcher feeds filesystem events into the runner's note-change path. It
// watches every directory under the vault root, adding new directories as
// they appear.
//
// It also keeps the most recently changed note as session state: when a
// change arrives for a different note, the previous one is re-evaluated
// first, so a note that was edited out of a scope is caught even if its
// last write event raced the evaluation.
type Watcher struct {
	watcher    *fsnotify.Watcher
	vault      *note.Vault
	runner     *Runner
	lastActive string
	dryRun     bool
}

// NewWatcher creates a [Watcher] over the runner's vault.
func NewWatcher(vault *note.Vault, runner *Runner, dryRun bool) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher: fsWatcher,
		vault:   vault,
		runner:  runner,
		dryRun:  dryRun,
	}

	err = w.addDirs(vault.Root())
	if err != nil {
		w.watcher.Close()

		return nil, err
	}

	return w, nil
}

// Watch processes filesystem events until ctx is canceled or the watcher
// is closed.
func (w *Watcher) Watch(ctx context.Context) error {
	logger := log.WithContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case evt, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			w.handleEvent(ctx, evt)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}

			logger.WarnContext(ctx, "watch error", slog.Any("error", err))
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	if err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}

	return nil
}

func (w *Watcher) handleEvent(ctx context.Context, evt fsnotify.Event) {
	logger := log.WithContext(ctx)

	// Watch directories as they are created so notes in new folders are
	// still observed.
	if evt.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			if err := w.addDirs(evt.Name); err != nil {
				logger.WarnContext(ctx, "failed to watch new directory",
					slog.String("path", evt.Name),
					slog.Any("error", err),
				)
			}

			return
		}
	}

	if filepath.Ext(evt.Name) != note.Extension {
		return
	}
	if !evt.Op.Has(fsnotify.Create | fsnotify.Write | fsnotify.Rename | fsnotify.Remove) {
		return
	}

	relPath, err := w.vault.Rel(evt.Name)
	if err != nil {
		return
	}
	if strings.HasPrefix(relPath, ".") {
		return
	}

	logger.DebugContext(ctx, "note changed",
		slog.String("path", relPath),
		slog.String("op", evt.Op.String()),
	)

	// Changing focus to a different note re-evaluates the previous one.
	if w.lastActive != "" && w.lastActive != relPath {
		w.runner.NoteChanged(ctx, w.lastActive, w.dryRun)
	}

	w.lastActive = relPath
	w.runner.NoteChanged(ctx, relPath, w.dryRun)
}

// addDirs watches dir and every directory below it, skipping hidden ones.
func (w *Watcher) addDirs(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.vault.Root() && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %q: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("watch directories under %q: %w", dir, err)
	}

	return nil
}
