// Package engine runs rulesets against a vault: group evaluation with
// if/else-if/else short-circuit semantics, schedule-window admission for
// on-load triggers, match-state transition detection for note-change
// triggers, and the runner that orchestrates them.
package engine
