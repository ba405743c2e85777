package ruleset

import (
	"errors"
	"fmt"
	"strings"
)

// Recognized action types. The type tag is an open string: unknown types
// pass validation and are logged and skipped at run time.
const (
	ActionMoveNote       = "Move Note"
	ActionUpdateProperty = "Update Property"
	ActionRunCommand     = "Run Command"
)

// ErrMissingOption is returned when an action lacks a required option.
var ErrMissingOption = errors.New("missing action option")

// Action is one side effect fired by a matching rule: a type tag plus an
// options record specific to the type.
type Action struct {
	// Options carries the per-type action options.
	Options map[string]any `json:"options,omitempty" jsonschema:"title=Options"`
	// Type names the action, e.g. "Move Note".
	Type string `json:"type" jsonschema:"title=Type"`
}

// Validate checks required options for recognized action types.
func (a *Action) Validate() error {
	switch a.Type {
	case ActionMoveNote:
		_, err := a.FolderOption()

		return err

	case ActionUpdateProperty:
		_, _, err := a.PropertyOptions()

		return err

	case ActionRunCommand:
		_, err := a.CommandOption()

		return err
	}

	return nil
}

// FolderOption returns the target folder for a Move Note action. An empty
// string is valid and means the vault root.
func (a *Action) FolderOption() (string, error) {
	v, ok := a.Options["folder"]
	if !ok {
		return "", fmt.Errorf("%w: %q requires %q", ErrMissingOption, a.Type, "folder")
	}

	folder, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option %q: want string, got %T", "folder", v)
	}

	return folder, nil
}

// PropertyOptions returns the key and value for an Update Property action.
func (a *Action) PropertyOptions() (string, any, error) {
	v, ok := a.Options["key"]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q requires %q", ErrMissingOption, a.Type, "key")
	}

	key, ok := v.(string)
	if !ok || strings.TrimSpace(key) == "" {
		return "", nil, fmt.Errorf("option %q: want non-empty string, got %v", "key", v)
	}

	// A missing value is valid and clears to null.
	return key, a.Options["value"], nil
}

// CommandOption returns the command line for a Run Command action.
func (a *Action) CommandOption() (string, error) {
	v, ok := a.Options["command"]
	if !ok {
		return "", fmt.Errorf("%w: %q requires %q", ErrMissingOption, a.Type, "command")
	}

	command, ok := v.(string)
	if !ok || strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("option %q: want non-empty string, got %v", "command", v)
	}

	return command, nil
}
