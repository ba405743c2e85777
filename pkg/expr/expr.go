package expr

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Protect CEL environment creation and compilation from concurrent access.
var celMutex sync.Mutex

// Environment provides a thread-safe wrapper around a [*cel.Env].
type Environment struct {
	env *cel.Env
}

// NewEnvironment creates a new [Environment].
func NewEnvironment(opts ...cel.EnvOption) (*Environment, error) {
	env, err := createEnvironment(opts...)
	if err != nil {
		return nil, err
	}

	return &Environment{env: env}, nil
}

// MustNewEnvironment creates a new [Environment] and panics on error.
func MustNewEnvironment(opts ...cel.EnvOption) *Environment {
	env, err := NewEnvironment(opts...)
	if err != nil {
		panic(err)
	}

	return env
}

// NewNoteEnvironment creates an [Environment] with the note variables
// declared. Scope expressions compiled in it have access to:
//   - `path` (string): The note path, relative to the vault root
//   - `name` (string): The note file name without extension
//   - `folder` (string): The note's parent folder, "" at the vault root
//   - `tags` (list<string>): Frontmatter tags plus inline #tags, no "#"
//   - `props` (map<string, dyn>): The note's frontmatter
func NewNoteEnvironment() (*Environment, error) {
	return NewEnvironment(
		cel.Variable("path", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("folder", cel.StringType),
		cel.Variable("tags", cel.ListType(cel.StringType)),
		cel.Variable("props", cel.MapType(cel.StringType, cel.DynType)),
	)
}

// MustNewNoteEnvironment creates a note [Environment] and panics on error.
func MustNewNoteEnvironment() *Environment {
	env, err := NewNoteEnvironment()
	if err != nil {
		panic(err)
	}

	return env
}

func createEnvironment(opts ...cel.EnvOption) (*cel.Env, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	opts = append(opts, cel.Lib(&lib{}))

	celEnv, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return celEnv, nil
}

// Compile compiles a CEL expression and returns a program.
//
//nolint:ireturn // Following CEL's function signature.
func (e *Environment) Compile(expression string) (cel.Program, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile expression: %w", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}

	return program, nil
}
