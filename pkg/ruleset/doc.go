// Package ruleset defines the user-facing automation model: rulesets with a
// trigger, ordered if/else-if/else rules with scope expressions, and the
// actions a matching rule fires.
package ruleset
