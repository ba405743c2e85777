package ruleset_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/tidy/pkg/ruleset"
)

func TestTrigger_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		wantErr string
		trigger ruleset.Trigger
	}{
		{
			name:    "manual",
			trigger: ruleset.Trigger{Type: ruleset.TriggerManual},
		},
		{
			name:    "on-load defaults",
			trigger: ruleset.Trigger{Type: ruleset.TriggerOnLoad},
		},
		{
			name: "on-load with schedule",
			trigger: ruleset.Trigger{
				Type:       ruleset.TriggerOnLoad,
				Frequency:  ruleset.FrequencyOnceEvery,
				DaysOfWeek: "1,2,3",
				HoursOfDay: "8-12",
			},
		},
		{
			name: "note-change",
			trigger: ruleset.Trigger{
				Type:      ruleset.TriggerNoteChange,
				MatchType: ruleset.MatchBoth,
				Scope:     `"draft" in tags`,
			},
		},
		{
			name:    "unknown type",
			trigger: ruleset.Trigger{Type: "hourly"},
			wantErr: "invalid trigger type",
		},
		{
			name:    "bad frequency",
			trigger: ruleset.Trigger{Type: ruleset.TriggerOnLoad, Frequency: "weekly"},
			wantErr: "invalid frequency",
		},
		{
			name:    "bad match type",
			trigger: ruleset.Trigger{Type: ruleset.TriggerNoteChange, MatchType: "into"},
			wantErr: "invalid match type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.trigger.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestTrigger_OnLoad(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		opts := ruleset.Trigger{Type: ruleset.TriggerOnLoad}.OnLoad()
		assert.Equal(t, ruleset.FrequencyEvery, opts.Frequency)
		assert.Zero(t, opts.Delay)
	})

	t.Run("explicit", func(t *testing.T) {
		t.Parallel()

		opts := ruleset.Trigger{
			Type:         ruleset.TriggerOnLoad,
			Frequency:    ruleset.FrequencyOnceEvery,
			DaysOfWeek:   "6,7",
			MonthsOfYear: "1",
			DelaySeconds: 30,
		}.OnLoad()

		assert.Equal(t, ruleset.FrequencyOnceEvery, opts.Frequency)
		assert.Equal(t, "6,7", opts.DaysOfWeek)
		assert.Equal(t, "1", opts.MonthsOfYear)
		assert.Equal(t, 30*time.Second, opts.Delay)
	})
}

func TestTrigger_NoteChange(t *testing.T) {
	t.Parallel()

	opts := ruleset.Trigger{Type: ruleset.TriggerNoteChange, Scope: "true"}.NoteChange()
	assert.Equal(t, ruleset.MatchTo, opts.MatchType)
	assert.Equal(t, "true", opts.Scope)

	opts = ruleset.Trigger{
		Type:      ruleset.TriggerNoteChange,
		MatchType: ruleset.MatchFrom,
	}.NoteChange()
	assert.Equal(t, ruleset.MatchFrom, opts.MatchType)
}

func TestTrigger_Delay(t *testing.T) {
	t.Parallel()

	assert.Zero(t, ruleset.Trigger{}.Delay())
	assert.Zero(t, ruleset.Trigger{DelaySeconds: -5}.Delay())
	assert.Equal(t, 2*time.Second, ruleset.Trigger{DelaySeconds: 2}.Delay())
}

func TestAction_Options(t *testing.T) {
	t.Parallel()

	t.Run("folder", func(t *testing.T) {
		t.Parallel()

		a := &ruleset.Action{
			Type:    ruleset.ActionMoveNote,
			Options: map[string]any{"folder": "Archive"},
		}

		folder, err := a.FolderOption()
		require.NoError(t, err)
		assert.Equal(t, "Archive", folder)

		a.Options = map[string]any{"folder": 7}
		_, err = a.FolderOption()
		require.ErrorContains(t, err, "want string")
	})

	t.Run("property value may be absent", func(t *testing.T) {
		t.Parallel()

		a := &ruleset.Action{
			Type:    ruleset.ActionUpdateProperty,
			Options: map[string]any{"key": "status"},
		}

		key, value, err := a.PropertyOptions()
		require.NoError(t, err)
		assert.Equal(t, "status", key)
		assert.Nil(t, value)
	})

	t.Run("command", func(t *testing.T) {
		t.Parallel()

		a := &ruleset.Action{
			Type:    ruleset.ActionRunCommand,
			Options: map[string]any{"command": `echo "hello"`},
		}

		command, err := a.CommandOption()
		require.NoError(t, err)
		assert.Equal(t, `echo "hello"`, command)

		a.Options = map[string]any{"command": "  "}
		_, err = a.CommandOption()
		require.Error(t, err)
	})

	t.Run("unknown type passes validation", func(t *testing.T) {
		t.Parallel()

		a := &ruleset.Action{Type: "Ring Bell"}
		require.NoError(t, a.Validate())
	})
}
