package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/macropower/tidy/pkg/engine"
)

type WatchArgs struct {
	*RootArgs

	ConfigPath string
	Vault      string
	DryRun     bool
}

func NewWatchArgs(rootArgs *RootArgs) *WatchArgs {
	return &WatchArgs{
		RootArgs: rootArgs,
	}
}

func (wa *WatchArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&wa.ConfigPath, "config", "", "Path to the tidy configuration file")
	cmd.Flags().StringVar(&wa.Vault, "vault", "", "Path to the note vault, overrides the config")
	cmd.Flags().BoolVar(&wa.DryRun, "dry-run", false, "Log actions without performing them")

	err := cmd.MarkFlagFilename("config", "yaml", "yml")
	if err != nil {
		panic(fmt.Errorf("mark config flag: %w", err))
	}

	err = cmd.MarkFlagDirname("vault")
	if err != nil {
		panic(fmt.Errorf("mark vault flag: %w", err))
	}
}

func NewWatchCmd(wa *WatchArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the vault, running rulesets on load and on note changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return watch(cmd, wa)
		},
	}

	wa.AddFlags(cmd)
	bindEnvVars(cmd)

	return cmd
}

func watch(cmd *cobra.Command, wa *WatchArgs) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(wa.ConfigPath)
	if err != nil {
		return err
	}

	s, err := newSession(ctx, cfg, wa.Vault)
	if err != nil {
		return err
	}
	defer s.runner.Close()

	// Index in the background; the on-load pipeline waits for readiness.
	go func() {
		err := s.vault.Load(ctx)
		if err != nil {
			slog.Error("index vault", slog.Any("error", err))
		}
	}()

	events := make(chan engine.Event, 64)
	s.runner.Subscribe(events)

	go consumeEvents(ctx, events)

	watcher, err := engine.NewWatcher(s.vault, s.runner, wa.DryRun)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	go func() {
		err := s.runner.RunOnLoad(ctx, wa.DryRun)
		if err != nil {
			slog.Error("on-load run", slog.Any("error", err))
		}
	}()

	slog.Info("watching vault", slog.String("path", s.vault.Root()))

	err = watcher.Watch(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch: %w", err)
	}

	return nil
}

// consumeEvents surfaces runner events in the daemon's log. Action failures
// are logged by the runner itself and skipped here. Returns when ctx is
// done or the channel closes.
func consumeEvents(ctx context.Context, events <-chan engine.Event) {
	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-events:
			if !ok {
				return
			}

			switch e := evt.(type) {
			case engine.EventAction:
				if e.Err != nil {
					continue
				}

				msg := "ran action"
				if e.DryRun {
					msg = "would run action"
				}

				slog.Info(msg,
					slog.String("ruleset", e.Ruleset),
					slog.String("rule", e.Rule),
					slog.String("action", e.Action),
					slog.String("note", e.Note),
				)

			case engine.EventWarning:
				slog.Warn(e.Message, slog.String("ruleset", e.Ruleset))

			case engine.EventRunEnd:
				if e.Fired > 0 {
					slog.Info("ruleset finished",
						slog.String("ruleset", e.Ruleset),
						slog.Int("fired", e.Fired),
					)
				}
			}
		}
	}
}
