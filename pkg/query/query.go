// Package query evaluates scope expressions against the notes in a vault.
//
// Scopes are CEL expressions over a single note's variables (path, name,
// folder, tags, props). Evaluation is fail-soft: a scope that does not
// compile, or errors at runtime, matches nothing and is logged as a
// warning rather than aborting the caller.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/macropower/tidy/pkg/expr"
	"github.com/macropower/tidy/pkg/log"
	"github.com/macropower/tidy/pkg/note"
)

const (
	// ReadyPollInterval is how often [Provider.WaitReady] re-checks the index.
	ReadyPollInterval = 500 * time.Millisecond

	// ReadyTimeout caps the readiness wait. After it elapses, callers
	// proceed optimistically against a possibly partial index.
	ReadyTimeout = 10 * time.Second
)

// Provider answers scope queries against a document universe.
type Provider interface {
	// All returns every note matching the scope. An empty scope matches
	// every note.
	All(ctx context.Context, scope string) []*note.Note

	// Matches reports whether a single note matches the scope. An empty
	// scope matches any note.
	Matches(ctx context.Context, n *note.Note, scope string) bool

	// WaitReady blocks until the universe is indexed, the timeout elapses,
	// or ctx is canceled. Timeout is not an error.
	WaitReady(ctx context.Context) error
}

// CELProvider is a [Provider] over a [note.Vault], with compiled scope
// programs cached per expression.
type CELProvider struct {
	env      *expr.Environment
	vault    *note.Vault
	programs map[string]*compiledScope
	mu       sync.RWMutex
}

type compiledScope struct {
	program cel.Program
	err     error
}

var _ Provider = (*CELProvider)(nil)

// NewCELProvider creates a [CELProvider] over the given vault.
func NewCELProvider(vault *note.Vault) (*CELProvider, error) {
	env, err := expr.NewNoteEnvironment()
	if err != nil {
		return nil, fmt.Errorf("create note environment: %w", err)
	}

	return &CELProvider{
		env:      env,
		vault:    vault,
		programs: make(map[string]*compiledScope),
	}, nil
}

// Check compiles a scope expression and returns any compile error. Used for
// validation; normal evaluation is fail-soft instead.
func (p *CELProvider) Check(scope string) error {
	if scope == "" {
		return nil
	}

	cs := p.compile(scope)

	return cs.err
}

// All returns every note in the vault matching the scope, sorted by path.
func (p *CELProvider) All(ctx context.Context, scope string) []*note.Note {
	notes := p.vault.All()
	if scope == "" {
		return notes
	}

	cs := p.compile(scope)
	if cs.err != nil {
		p.warnScope(ctx, scope, cs.err)

		return nil
	}

	matched := make([]*note.Note, 0, len(notes))
	for _, n := range notes {
		ok, err := p.eval(cs.program, n)
		if err != nil {
			p.warnScope(ctx, scope, err)

			continue
		}
		if ok {
			matched = append(matched, n)
		}
	}

	return matched
}

// Matches reports whether a single note matches the scope.
func (p *CELProvider) Matches(ctx context.Context, n *note.Note, scope string) bool {
	if scope == "" {
		return true
	}

	cs := p.compile(scope)
	if cs.err != nil {
		p.warnScope(ctx, scope, cs.err)

		return false
	}

	ok, err := p.eval(cs.program, n)
	if err != nil {
		p.warnScope(ctx, scope, err)

		return false
	}

	return ok
}

// WaitReady polls the vault index until it is ready. Timeout is treated as
// ready so that startup work proceeds against whatever has been indexed.
func (p *CELProvider) WaitReady(ctx context.Context) error {
	if p.vault.Ready() {
		return nil
	}

	deadline := time.NewTimer(ReadyTimeout)
	defer deadline.Stop()

	ticker := time.NewTicker(ReadyPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for vault index: %w", ctx.Err())

		case <-deadline.C:
			log.WithContext(ctx).WarnContext(ctx, "vault index not ready, proceeding anyway",
				slog.Duration("waited", ReadyTimeout),
			)

			return nil

		case <-ticker.C:
			if p.vault.Ready() {
				return nil
			}
		}
	}
}

func (p *CELProvider) compile(scope string) *compiledScope {
	p.mu.RLock()
	cs, ok := p.programs[scope]
	p.mu.RUnlock()

	if ok {
		return cs
	}

	program, err := p.env.Compile(scope)
	cs = &compiledScope{program: program, err: err}

	p.mu.Lock()
	p.programs[scope] = cs
	p.mu.Unlock()

	return cs
}

func (p *CELProvider) eval(program cel.Program, n *note.Note) (bool, error) {
	out, _, err := program.Eval(n.Activation())
	if err != nil {
		return false, fmt.Errorf("evaluate scope: %w", err)
	}

	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("scope returned %T, want bool", out.Value())
	}

	return ok, nil
}

func (p *CELProvider) warnScope(ctx context.Context, scope string, err error) {
	log.WithContext(ctx).WarnContext(ctx, "scope matches nothing",
		slog.String("scope", scope),
		slog.Any("error", err),
	)
}
