package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/tidy/pkg/execs"
	"github.com/macropower/tidy/pkg/log"
	"github.com/macropower/tidy/pkg/note"
	"github.com/macropower/tidy/pkg/query"
	"github.com/macropower/tidy/pkg/ruleset"
)

// ErrUnknownRuleset is returned when a named ruleset does not exist.
var ErrUnknownRuleset = errors.New("unknown ruleset")

// Runner executes rulesets against a vault. It owns the on-load, note-change,
// and manual trigger paths, delayed executions, the match-state store, and
// the activity log.
//
// A bad rule, scope, or action never aborts the rest of a run: failures are
// logged, recorded in the activity log, and broadcast as events.
type Runner struct {
	tracer    trace.Tracer
	vault     *note.Vault
	provider  query.Provider
	store     *Store
	activity  *log.Activity
	timers    map[*time.Timer]struct{}
	exclude   string
	baseEnv   []string
	rulesets  []*ruleset.Ruleset
	listeners []chan<- Event
	mu        sync.Mutex
	closed    bool
}

// RunnerOpt configures a [Runner].
type RunnerOpt func(*Runner)

// WithExclude sets a global exclusion scope. Notes matching it are never
// acted on.
func WithExclude(scope string) RunnerOpt {
	return func(r *Runner) {
		r.exclude = scope
	}
}

// WithActivity sets the activity log to record into.
func WithActivity(a *log.Activity) RunnerOpt {
	return func(r *Runner) {
		r.activity = a
	}
}

// WithBaseEnv sets the base environment for Run Command actions.
func WithBaseEnv(env []string) RunnerOpt {
	return func(r *Runner) {
		r.baseEnv = env
	}
}

// NewRunner creates a [Runner] over the given vault, query provider, state
// store, and rulesets.
func NewRunner(
	vault *note.Vault,
	provider query.Provider,
	store *Store,
	rulesets []*ruleset.Ruleset,
	opts ...RunnerOpt,
) *Runner {
	r := &Runner{
		tracer:   otel.Tracer("runner"),
		vault:    vault,
		provider: provider,
		store:    store,
		activity: log.NewActivity(0),
		baseEnv:  os.Environ(),
		timers:   map[*time.Timer]struct{}{},
		rulesets: rulesets,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Rulesets returns the configured rulesets.
func (r *Runner) Rulesets() []*ruleset.Ruleset {
	return r.rulesets
}

// Activity returns the activity log.
func (r *Runner) Activity() *log.Activity {
	return r.activity
}

// Subscribe registers a channel to receive runner events. Delivery is
// non-blocking: an event is dropped for a subscriber whose buffer is full.
func (r *Runner) Subscribe(ch chan<- Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.listeners = append(r.listeners, ch)
}

func (r *Runner) broadcast(evt Event) {
	r.mu.Lock()
	listeners := r.listeners
	r.mu.Unlock()

	for _, ch := range listeners {
		select {
		case ch <- evt:
		default:
			// A stalled subscriber must not stall rule execution.
		}
	}
}

// Close stops all pending delayed executions.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	for t := range r.timers {
		t.Stop()
	}

	clear(r.timers)
}

// RunManual runs manual-trigger rulesets in batch mode. An empty name runs
// every enabled manual ruleset; otherwise the name must match a manual
// ruleset's name or ID.
func (r *Runner) RunManual(ctx context.Context, name string, dryRun bool) error {
	ctx, span := r.tracer.Start(ctx, "run_manual", trace.WithAttributes(
		attribute.String("ruleset", name),
		attribute.Bool("dry_run", dryRun),
	))
	defer span.End()

	found := false

	for _, rs := range r.rulesets {
		if rs.Trigger.Type != ruleset.TriggerManual {
			continue
		}
		if name != "" && rs.Name != name && rs.ID != name {
			continue
		}

		found = true

		if !rs.IsEnabled() {
			log.WithContext(ctx).DebugContext(ctx, "ruleset is disabled, skipping",
				slog.String("ruleset", rs.DisplayName()),
			)

			continue
		}

		r.runBatch(ctx, rs, dryRun)
	}

	if name != "" && !found {
		return fmt.Errorf("%w: %q", ErrUnknownRuleset, name)
	}

	return nil
}

// RunOnLoad runs every enabled on-load ruleset: wait for the query provider
// to index, gate on frequency and schedule window, honor the trigger delay,
// run in batch mode, then stamp the last-run time.
func (r *Runner) RunOnLoad(ctx context.Context, dryRun bool) error {
	err := r.provider.WaitReady(ctx)
	if err != nil {
		return fmt.Errorf("on-load: %w", err)
	}

	logger := log.WithContext(ctx)

	for _, rs := range r.rulesets {
		if rs.Trigger.Type != ruleset.TriggerOnLoad || !rs.IsEnabled() {
			continue
		}

		opts := rs.Trigger.OnLoad()

		// Run-once: any recorded last-run disables the ruleset.
		if opts.Frequency == ruleset.FrequencyOnceEvery {
			if _, ran := r.store.LastRun(rs.ID); ran {
				logger.DebugContext(ctx, "ruleset already ran once, skipping",
					slog.String("ruleset", rs.DisplayName()),
				)

				continue
			}
		}

		if !Admit(time.Now(), opts) {
			logger.DebugContext(ctx, "outside schedule window, skipping",
				slog.String("ruleset", rs.DisplayName()),
			)

			continue
		}

		run := func(ctx context.Context) {
			r.runBatch(ctx, rs, dryRun)

			err := r.store.SetLastRun(ctx, rs.ID, time.Now())
			if err != nil {
				log.WithContext(ctx).WarnContext(ctx, "failed to stamp last run",
					slog.String("ruleset", rs.DisplayName()),
					slog.Any("error", err),
				)
			}
		}

		if opts.Delay > 0 {
			r.schedule(ctx, opts.Delay, func(ctx context.Context) {
				if !rs.IsEnabled() {
					return
				}

				run(ctx)
			})

			continue
		}

		run(ctx)
	}

	return nil
}

// NoteChanged handles one note-change event: detect scope-membership
// transitions against the match-state store, replace the note's stored
// membership, and run the rulesets whose match type fires on the observed
// transition.
func (r *Runner) NoteChanged(ctx context.Context, relPath string, dryRun bool) {
	ctx, span := r.tracer.Start(ctx, "note_changed", trace.WithAttributes(
		attribute.String("path", relPath),
	))
	defer span.End()

	logger := log.WithContext(ctx)

	n, err := r.vault.Refresh(ctx, relPath)
	if err != nil {
		logger.WarnContext(ctx, "failed to refresh note",
			slog.String("path", relPath),
			slog.Any("error", err),
		)

		return
	}
	if n == nil {
		// Deleted. Its match-state record stays until overwritten.
		return
	}

	var (
		matchedNow []string
		toRun      []*ruleset.Ruleset
	)

	for _, rs := range r.rulesets {
		if rs.Trigger.Type != ruleset.TriggerNoteChange || !rs.IsEnabled() {
			continue
		}

		opts := rs.Trigger.NoteChange()
		matchesNow := r.provider.Matches(ctx, n, opts.Scope)
		matchedBefore := r.store.MatchedBefore(n.Path, rs.ID)

		if matchesNow {
			matchedNow = append(matchedNow, rs.ID)
		}

		var shouldRun bool

		switch opts.MatchType {
		case ruleset.MatchTo:
			shouldRun = matchesNow && !matchedBefore
		case ruleset.MatchFrom:
			shouldRun = !matchesNow && matchedBefore
		case ruleset.MatchBoth:
			shouldRun = matchesNow != matchedBefore
		}

		if shouldRun {
			toRun = append(toRun, rs)
		}
	}

	// Replace the stored membership before executing, so a repeated event
	// with no intervening change observes no transition.
	err = r.store.SetMatches(ctx, n.Path, matchedNow)
	if err != nil {
		logger.WarnContext(ctx, "failed to save match state",
			slog.String("path", n.Path),
			slog.Any("error", err),
		)
	}

	for _, rs := range toRun {
		delay := rs.Trigger.NoteChange().Delay
		if delay > 0 {
			notePath := n.Path

			r.schedule(ctx, delay, func(ctx context.Context) {
				// Re-check liveness: the note may be gone and the ruleset
				// disabled by the time the delay elapses.
				current := r.vault.Get(notePath)
				if current == nil || !rs.IsEnabled() {
					return
				}

				r.runSingle(ctx, rs, current, dryRun)
			})

			continue
		}

		r.runSingle(ctx, rs, n, dryRun)
	}
}

// runSingle evaluates one ruleset's groups against one note.
func (r *Runner) runSingle(ctx context.Context, rs *ruleset.Ruleset, n *note.Note, dryRun bool) {
	if r.exclude != "" && r.provider.Matches(ctx, n, r.exclude) {
		log.WithContext(ctx).DebugContext(ctx, "note is excluded, skipping",
			slog.String("path", n.Path),
			slog.String("ruleset", rs.DisplayName()),
		)

		return
	}

	r.broadcast(EventRunStart{Ruleset: rs.DisplayName(), Trigger: rs.Trigger.Type, DryRun: dryRun})

	fired := 0

	res := singleResolver{provider: r.provider, note: n}
	for _, exec := range evaluateGroups(ctx, rs.NormalizedRules(), res) {
		for _, execNote := range exec.Notes {
			r.executeActions(ctx, rs, exec.Rule, execNote, dryRun)

			fired++
		}
	}

	r.broadcast(EventRunEnd{Ruleset: rs.DisplayName(), Fired: fired})
}

// runBatch evaluates one ruleset's groups against the whole vault.
func (r *Runner) runBatch(ctx context.Context, rs *ruleset.Ruleset, dryRun bool) {
	ctx, span := r.tracer.Start(ctx, "run_batch", trace.WithAttributes(
		attribute.String("ruleset", rs.DisplayName()),
		attribute.Bool("dry_run", dryRun),
	))
	defer span.End()

	r.broadcast(EventRunStart{Ruleset: rs.DisplayName(), Trigger: rs.Trigger.Type, DryRun: dryRun})

	excluded := map[string]struct{}{}
	if r.exclude != "" {
		for _, n := range r.provider.All(ctx, r.exclude) {
			excluded[n.Path] = struct{}{}
		}
	}

	res := batchResolver{
		provider: r.provider,
		excluded: excluded,
		onReject: func(rule *ruleset.Rule) {
			msg := fmt.Sprintf("rule %q: catch-all else is not allowed in batch runs", rule.DisplayName())
			r.activity.Record(log.Entry{
				Level:   slog.LevelWarn,
				Message: msg,
				Ruleset: rs.DisplayName(),
			})
			r.broadcast(EventWarning{Ruleset: rs.DisplayName(), Message: msg})
		},
	}

	fired := 0

	for _, exec := range evaluateGroups(ctx, rs.NormalizedRules(), res) {
		for _, execNote := range exec.Notes {
			r.executeActions(ctx, rs, exec.Rule, execNote, dryRun)

			fired++
		}
	}

	r.broadcast(EventRunEnd{Ruleset: rs.DisplayName(), Fired: fired})
}

// executeActions fires a rule's actions against a note in order. Errors are
// isolated per action and never abort siblings.
func (r *Runner) executeActions(ctx context.Context, rs *ruleset.Ruleset, rule *ruleset.Rule, n *note.Note, dryRun bool) {
	logger := log.WithContext(ctx)

	for _, action := range rule.Actions {
		err := r.executeAction(ctx, n, action, dryRun)

		evt := EventAction{
			Ruleset: rs.DisplayName(),
			Rule:    rule.DisplayName(),
			Note:    n.Path,
			Action:  action.Type,
			DryRun:  dryRun,
			Err:     err,
		}
		r.broadcast(evt)

		entry := log.Entry{
			Level:   slog.LevelInfo,
			Ruleset: rs.DisplayName(),
			Note:    n.Path,
		}

		switch {
		case err != nil:
			entry.Level = slog.LevelError
			entry.Message = fmt.Sprintf("%s failed on %s: %v", action.Type, n.Path, err)

			logger.ErrorContext(ctx, "action failed",
				slog.String("ruleset", rs.DisplayName()),
				slog.String("action", action.Type),
				slog.String("path", n.Path),
				slog.Any("error", err),
			)

		case dryRun:
			entry.Message = fmt.Sprintf("would run %s on %s", action.Type, n.Path)

			logger.InfoContext(ctx, "dry run",
				slog.String("ruleset", rs.DisplayName()),
				slog.String("action", action.Type),
				slog.String("path", n.Path),
				slog.Any("options", action.Options),
			)

		default:
			entry.Message = fmt.Sprintf("ran %s on %s", action.Type, n.Path)
		}

		r.activity.Record(entry)

		// A successful move changes the note's path; pick up the new
		// location for any following actions.
		if err == nil && !dryRun && action.Type == ruleset.ActionMoveNote {
			if folder, ferr := action.FolderOption(); ferr == nil {
				moved := r.vault.Get(path.Join(folder, path.Base(n.Path)))
				if moved != nil {
					n = moved
				}
			}
		}
	}
}

// executeAction performs one action. Dry-run returns nil without touching
// the vault. Unknown action types are skipped.
func (r *Runner) executeAction(ctx context.Context, n *note.Note, action *ruleset.Action, dryRun bool) error {
	switch action.Type {
	case ruleset.ActionMoveNote:
		folder, err := action.FolderOption()
		if err != nil {
			return err
		}

		if dryRun {
			return nil
		}

		return r.vault.Move(ctx, n, folder)

	case ruleset.ActionUpdateProperty:
		key, value, err := action.PropertyOptions()
		if err != nil {
			return err
		}

		if dryRun {
			return nil
		}

		return r.vault.SetProperty(ctx, n, key, value)

	case ruleset.ActionRunCommand:
		line, err := action.CommandOption()
		if err != nil {
			return err
		}

		if dryRun {
			return nil
		}

		cmd, err := execs.ParseCommand(r.baseEnv, line)
		if err != nil {
			return err
		}

		cmd.AddEnvVar(execs.EnvVar{Name: "TIDY_VAULT", Value: r.vault.Root()})
		cmd.AddEnvVar(execs.EnvVar{Name: "TIDY_NOTE_PATH", Value: n.Path})
		cmd.AddEnvVar(execs.EnvVar{Name: "TIDY_NOTE_NAME", Value: n.Name})

		_, err = execs.NewExecutor(cmd).Exec(ctx, r.vault.Root())

		return err

	default:
		log.WithContext(ctx).WarnContext(ctx, "unknown action type, skipping",
			slog.String("action", action.Type),
			slog.String("path", n.Path),
		)

		return nil
	}
}

// schedule queues fn after d. The runner's Close stops pending timers; fn
// does not fire after Close.
func (r *Runner) schedule(ctx context.Context, d time.Duration, fn func(ctx context.Context)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	// The triggering context is likely done by the time the timer fires;
	// keep its values but drop its cancellation.
	ctx = context.WithoutCancel(ctx)

	var t *time.Timer

	t = time.AfterFunc(d, func() {
		r.mu.Lock()
		closed := r.closed
		delete(r.timers, t)
		r.mu.Unlock()

		if closed {
			return
		}

		fn(ctx)
	})

	r.timers[t] = struct{}{}
}
