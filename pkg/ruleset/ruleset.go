package ruleset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRole is returned for an unrecognized rule role.
	ErrInvalidRole = errors.New("invalid rule role")

	// ErrMissingScope is returned when a non-else rule has no scope.
	ErrMissingScope = errors.New("rule requires a scope")
)

// RuleRole places a rule within an if/else-if/else group. A new group starts
// at every `if` rule; following `else-if`/`else` rules belong to that group
// until the next `if`.
type RuleRole string

// Rule roles.
const (
	RoleIf     RuleRole = "if"
	RoleElseIf RuleRole = "else-if"
	RoleElse   RuleRole = "else"
)

// Valid reports whether the role is one of the recognized values.
func (r RuleRole) Valid() bool {
	switch r {
	case RoleIf, RoleElseIf, RoleElse:
		return true
	default:
		return false
	}
}

// Ruleset is one named automation: a trigger plus an ordered rule list.
type Ruleset struct {
	// Enabled toggles the ruleset. Omitted means enabled.
	Enabled *bool `json:"enabled,omitempty" jsonschema:"title=Enabled,default=true"`
	// ID uniquely identifies the ruleset. It keys match state and last-run
	// records, so changing it resets both.
	ID string `json:"id" jsonschema:"title=ID"`
	// Name is the display name, used in commands and logs.
	Name string `json:"name,omitempty" jsonschema:"title=Name"`
	// Trigger determines when the ruleset runs.
	Trigger Trigger `json:"trigger" jsonschema:"title=Trigger"`
	// Rules is the ordered if/else-if/else rule list.
	Rules []*Rule `json:"rules,omitempty" jsonschema:"title=Rules"`
}

// IsEnabled reports whether the ruleset should run. Unset means enabled.
func (rs *Ruleset) IsEnabled() bool {
	return rs.Enabled == nil || *rs.Enabled
}

// DisplayName returns the name, falling back to the ID.
func (rs *Ruleset) DisplayName() string {
	if rs.Name != "" {
		return rs.Name
	}

	return rs.ID
}

// Validate checks the ruleset, its trigger, and its rules.
func (rs *Ruleset) Validate() error {
	if rs.ID == "" {
		return errors.New("ruleset requires an id")
	}

	err := rs.Trigger.Validate()
	if err != nil {
		return fmt.Errorf("ruleset %q: %w", rs.ID, err)
	}

	for i, r := range rs.Rules {
		err := r.Validate()
		if err != nil {
			return fmt.Errorf("ruleset %q: rule %d: %w", rs.ID, i, err)
		}
	}

	return nil
}

// NormalizedRules returns the rule list with the first rule's role forced to
// `if`, so the group state machine always starts on a group boundary. The
// stored rules are not modified.
func (rs *Ruleset) NormalizedRules() []*Rule {
	if len(rs.Rules) == 0 {
		return nil
	}

	rules := make([]*Rule, len(rs.Rules))
	copy(rules, rs.Rules)

	if rules[0].Role != RoleIf {
		first := *rules[0]
		first.Role = RoleIf
		rules[0] = &first
	}

	return rules
}

// Rule is one conditional step in a ruleset.
type Rule struct {
	// ID uniquely identifies the rule within its ruleset.
	ID string `json:"id,omitempty" jsonschema:"title=ID"`
	// Name is the display name, used in logs.
	Name string `json:"name,omitempty" jsonschema:"title=Name"`
	// Role places the rule in an if/else-if/else group.
	Role RuleRole `json:"role" jsonschema:"title=Role,enum=if,enum=else-if,enum=else"`
	// Scope is a CEL expression over note variables. An `else` rule may
	// leave it empty to act as a catch-all.
	Scope string `json:"scope,omitempty" jsonschema:"title=Scope Expression"`
	// Actions fire in order when the rule matches.
	Actions []*Action `json:"actions,omitempty" jsonschema:"title=Actions"`
}

// Validate checks the rule's role, scope, and actions.
func (r *Rule) Validate() error {
	if !r.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, r.Role)
	}

	if r.Role != RoleElse && strings.TrimSpace(r.Scope) == "" {
		return fmt.Errorf("%w: role %q", ErrMissingScope, r.Role)
	}

	for i, a := range r.Actions {
		err := a.Validate()
		if err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}

	return nil
}

// IsCatchAll reports whether the rule is an `else` with an empty scope,
// which matches any note that no earlier rule in its group matched.
func (r *Rule) IsCatchAll() bool {
	return r.Role == RoleElse && strings.TrimSpace(r.Scope) == ""
}

// DisplayName returns the rule name, falling back to the ID, then the role.
func (r *Rule) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.ID != "" {
		return r.ID
	}

	return string(r.Role)
}
