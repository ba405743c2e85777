// Package expr provides the CEL environment used to evaluate scope
// expressions against notes.
package expr
