package engine

import (
	"context"
	"log/slog"

	"github.com/macropower/tidy/pkg/log"
	"github.com/macropower/tidy/pkg/note"
	"github.com/macropower/tidy/pkg/query"
	"github.com/macropower/tidy/pkg/ruleset"
)

// Execution is one fired rule with the notes it fired for, in evaluation
// order.
type Execution struct {
	Rule  *ruleset.Rule
	Notes []*note.Note
}

// scopeResolver supplies a rule's candidate notes during group evaluation.
// The single-note and whole-vault strategies share one evaluation loop; the
// resolver is the only place they differ.
type scopeResolver interface {
	// resolve returns the notes matching the rule's scope, exclusions
	// already applied.
	resolve(ctx context.Context, r *ruleset.Rule) []*note.Note

	// catchAll returns the candidates for an empty-scope else rule, or
	// ok=false if the mode disallows it.
	catchAll(ctx context.Context, r *ruleset.Rule) (notes []*note.Note, ok bool)
}

// evaluateGroups walks rules in order and returns the executions to fire.
//
// A new group opens at every `if` rule. Within a group, a note that matched
// an earlier rule is satisfied and skipped by later rules, so at most one
// rule per group fires per note. Callers pass normalized rules (first rule
// forced to `if`).
func evaluateGroups(ctx context.Context, rules []*ruleset.Rule, res scopeResolver) []Execution {
	var out []Execution

	// Paths satisfied in the current group.
	satisfied := map[string]struct{}{}

	for _, r := range rules {
		if r.Role == ruleset.RoleIf {
			clear(satisfied)
		}

		var candidates []*note.Note

		if r.IsCatchAll() {
			notes, ok := res.catchAll(ctx, r)
			if !ok {
				continue
			}

			candidates = notes
		} else {
			candidates = res.resolve(ctx, r)
		}

		var fired []*note.Note

		for _, n := range candidates {
			if _, done := satisfied[n.Path]; done {
				continue
			}

			satisfied[n.Path] = struct{}{}
			fired = append(fired, n)
		}

		if len(fired) > 0 {
			out = append(out, Execution{Rule: r, Notes: fired})
		}
	}

	return out
}

// singleResolver evaluates rules against one note. A catch-all else is
// allowed and matches the note unconditionally.
type singleResolver struct {
	provider query.Provider
	note     *note.Note
}

func (s singleResolver) resolve(ctx context.Context, r *ruleset.Rule) []*note.Note {
	if s.provider.Matches(ctx, s.note, r.Scope) {
		return []*note.Note{s.note}
	}

	return nil
}

func (s singleResolver) catchAll(_ context.Context, _ *ruleset.Rule) ([]*note.Note, bool) {
	return []*note.Note{s.note}, true
}

// batchResolver evaluates rules against the whole vault. A catch-all else
// is disallowed, since "all unmatched notes" would mean firing on every
// note outside the group's scopes; it is skipped with a warning.
type batchResolver struct {
	provider query.Provider
	onReject func(r *ruleset.Rule)
	excluded map[string]struct{}
}

func (b batchResolver) resolve(ctx context.Context, r *ruleset.Rule) []*note.Note {
	notes := b.provider.All(ctx, r.Scope)
	if len(b.excluded) == 0 {
		return notes
	}

	kept := notes[:0]
	for _, n := range notes {
		if _, skip := b.excluded[n.Path]; !skip {
			kept = append(kept, n)
		}
	}

	return kept
}

func (b batchResolver) catchAll(ctx context.Context, r *ruleset.Rule) ([]*note.Note, bool) {
	log.WithContext(ctx).WarnContext(ctx, "catch-all else is not allowed in batch evaluation, skipping rule",
		slog.String("rule", r.DisplayName()),
	)

	if b.onReject != nil {
		b.onReject(r)
	}

	return nil, false
}
