package ruleset

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTrigger is returned for an unrecognized trigger type.
	ErrInvalidTrigger = errors.New("invalid trigger type")

	// ErrInvalidFrequency is returned for an unrecognized on-load frequency.
	ErrInvalidFrequency = errors.New("invalid frequency")

	// ErrInvalidMatchType is returned for an unrecognized match type.
	ErrInvalidMatchType = errors.New("invalid match type")
)

// TriggerType selects when a ruleset runs.
type TriggerType string

// Trigger types.
const (
	TriggerOnLoad     TriggerType = "on-load"
	TriggerNoteChange TriggerType = "note-change"
	TriggerManual     TriggerType = "manual"
)

// Frequency gates re-admission of an on-load ruleset.
type Frequency string

// On-load frequencies. FrequencyOnceEvery is run-once: any recorded
// last-run disables the ruleset until the record is cleared.
const (
	FrequencyEvery     Frequency = "every"
	FrequencyOnceEvery Frequency = "once-every"
)

// MatchType selects which scope-membership transitions fire a note-change
// ruleset.
type MatchType string

// Match types: `to` fires when a note starts matching the scope, `from`
// when it stops, `both` on either transition.
const (
	MatchTo   MatchType = "to"
	MatchFrom MatchType = "from"
	MatchBoth MatchType = "both"
)

// Trigger is the flat wire form of a ruleset trigger. Which fields apply
// depends on Type; use [Trigger.OnLoad] and [Trigger.NoteChange] for typed
// views.
type Trigger struct {
	// Type selects the trigger variant.
	Type TriggerType `json:"type" jsonschema:"title=Type,enum=on-load,enum=note-change,enum=manual"`
	// Frequency applies to on-load triggers. Defaults to `every`.
	Frequency Frequency `json:"frequency,omitempty" jsonschema:"title=Frequency,enum=every,enum=once-every"`
	// MatchType applies to note-change triggers. Defaults to `to`.
	MatchType MatchType `json:"matchType,omitempty" jsonschema:"title=Match Type,enum=to,enum=from,enum=both"`
	// Scope applies to note-change triggers: the CEL expression whose
	// membership transitions are watched.
	Scope string `json:"scope,omitempty" jsonschema:"title=Scope Expression"`
	// DaysOfWeek is a comma-separated list of 1-7 (Monday=1). Empty means
	// unconstrained. On-load only.
	DaysOfWeek string `json:"daysOfWeek,omitempty" jsonschema:"title=Days of Week"`
	// HoursOfDay is a comma-separated list of hours or start-end ranges,
	// e.g. "8,12-14". Empty means unconstrained. On-load only.
	HoursOfDay string `json:"hoursOfDay,omitempty" jsonschema:"title=Hours of Day"`
	// WeeksOfMonth is a comma-separated list of 1-5. Empty means
	// unconstrained. On-load only.
	WeeksOfMonth string `json:"weeksOfMonth,omitempty" jsonschema:"title=Weeks of Month"`
	// MonthsOfYear is a comma-separated list of 1-12. Empty means
	// unconstrained. On-load only.
	MonthsOfYear string `json:"monthsOfYear,omitempty" jsonschema:"title=Months of Year"`
	// DelaySeconds postpones execution after the trigger fires.
	DelaySeconds int `json:"delay,omitempty" jsonschema:"title=Delay Seconds"`
}

// OnLoadOptions is the typed view of an on-load trigger.
type OnLoadOptions struct {
	Frequency    Frequency
	DaysOfWeek   string
	HoursOfDay   string
	WeeksOfMonth string
	MonthsOfYear string
	Delay        time.Duration
}

// NoteChangeOptions is the typed view of a note-change trigger.
type NoteChangeOptions struct {
	MatchType MatchType
	Scope     string
	Delay     time.Duration
}

// OnLoad returns the on-load options with defaults applied.
func (t Trigger) OnLoad() OnLoadOptions {
	frequency := t.Frequency
	if frequency == "" {
		frequency = FrequencyEvery
	}

	return OnLoadOptions{
		Frequency:    frequency,
		DaysOfWeek:   t.DaysOfWeek,
		HoursOfDay:   t.HoursOfDay,
		WeeksOfMonth: t.WeeksOfMonth,
		MonthsOfYear: t.MonthsOfYear,
		Delay:        t.Delay(),
	}
}

// NoteChange returns the note-change options with defaults applied.
func (t Trigger) NoteChange() NoteChangeOptions {
	matchType := t.MatchType
	if matchType == "" {
		matchType = MatchTo
	}

	return NoteChangeOptions{
		MatchType: matchType,
		Scope:     t.Scope,
		Delay:     t.Delay(),
	}
}

// Delay returns the trigger delay as a duration. Negative values clamp to
// zero.
func (t Trigger) Delay() time.Duration {
	if t.DelaySeconds <= 0 {
		return 0
	}

	return time.Duration(t.DelaySeconds) * time.Second
}

// Validate checks the trigger type and its per-type options.
func (t Trigger) Validate() error {
	switch t.Type {
	case TriggerOnLoad:
		switch t.Frequency {
		case "", FrequencyEvery, FrequencyOnceEvery:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidFrequency, t.Frequency)
		}

	case TriggerNoteChange:
		switch t.MatchType {
		case "", MatchTo, MatchFrom, MatchBoth:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidMatchType, t.MatchType)
		}

	case TriggerManual:

	default:
		return fmt.Errorf("%w: %q", ErrInvalidTrigger, t.Type)
	}

	return nil
}
