// Package execs executes external commands for the Run Command action.
// Commands run in the vault root with a minimal environment plus variables
// describing the triggering note.
package execs
