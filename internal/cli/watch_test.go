package cli

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/macropower/tidy/pkg/engine"
)

func TestConsumeEvents(t *testing.T) {
	var buf bytes.Buffer

	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	events := make(chan engine.Event, 8)
	events <- engine.EventAction{Ruleset: "Triage", Rule: "if", Action: "Move Note", Note: "Inbox/a.md"}
	events <- engine.EventAction{Ruleset: "Triage", Rule: "if", Action: "Move Note", Note: "Inbox/b.md", DryRun: true}
	events <- engine.EventAction{Ruleset: "Triage", Rule: "if", Action: "Move Note", Note: "Inbox/c.md", Err: errors.New("boom")}
	events <- engine.EventWarning{Ruleset: "Triage", Message: "catch-all else is not allowed in batch runs"}
	events <- engine.EventRunEnd{Ruleset: "Triage", Fired: 2}
	close(events)

	consumeEvents(t.Context(), events)

	out := buf.String()
	assert.Contains(t, out, "ran action")
	assert.Contains(t, out, "would run action")
	assert.Contains(t, out, "catch-all else")
	assert.Contains(t, out, "ruleset finished")

	// Failed actions are logged by the runner, not repeated here.
	assert.NotContains(t, out, "Inbox/c.md")
}
