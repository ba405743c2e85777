package engine

import "github.com/macropower/tidy/pkg/ruleset"

// Event is a runner notification delivered to subscribed channels.
type Event interface {
	isEvent()
}

// EventRunStart signals the start of a ruleset run.
type EventRunStart struct {
	Ruleset string
	Trigger ruleset.TriggerType
	DryRun  bool
}

// EventRunEnd signals the end of a ruleset run, with the number of notes
// acted on.
type EventRunEnd struct {
	Ruleset string
	Fired   int
}

// EventAction signals one executed (or dry-run previewed) action.
type EventAction struct {
	Err     error
	Ruleset string
	Rule    string
	Note    string
	Action  string
	DryRun  bool
}

// EventWarning signals a non-fatal problem during a run.
type EventWarning struct {
	Ruleset string
	Message string
}

func (EventRunStart) isEvent() {}
func (EventRunEnd) isEvent()   {}
func (EventAction) isEvent()   {}
func (EventWarning) isEvent()  {}
