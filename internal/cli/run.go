package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/macropower/tidy/pkg/config"
	"github.com/macropower/tidy/pkg/log"
	"github.com/macropower/tidy/pkg/ruleset"
)

const (
	cmdExamples = `  # Run all enabled manual rulesets:
  tidy run

  # Run one manual ruleset by name or id:
  tidy run "Inbox Triage"

  # Preview without changing anything:
  tidy run --dry-run

  # Watch a vault and react to note changes:
  tidy watch --vault ~/notes

  # Check the config without running anything:
  tidy validate --config ./config.yaml`
)

type RunArgs struct {
	*RootArgs

	ConfigPath string
	Vault      string
	Ruleset    string
	DryRun     bool
}

func NewRunArgs(rootArgs *RootArgs) *RunArgs {
	return &RunArgs{
		RootArgs: rootArgs,
	}
}

func (ra *RunArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ra.ConfigPath, "config", "", "Path to the tidy configuration file")
	cmd.Flags().StringVar(&ra.Vault, "vault", "", "Path to the note vault, overrides the config")
	cmd.Flags().BoolVar(&ra.DryRun, "dry-run", false, "Log actions without performing them")

	err := cmd.MarkFlagFilename("config", "yaml", "yml")
	if err != nil {
		panic(fmt.Errorf("mark config flag: %w", err))
	}

	err = cmd.MarkFlagDirname("vault")
	if err != nil {
		panic(fmt.Errorf("mark vault flag: %w", err))
	}
}

func NewRunCmd(ra *RunArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "run [ruleset]",
		Short:             "Run manual rulesets against the vault",
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: rulesetCompletion(ra),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				ra.Ruleset = args[0]
			}

			return run(cmd, ra)
		},
	}

	ra.AddFlags(cmd)
	bindEnvVars(cmd)

	return cmd
}

// Try to load config to get available manual rulesets.
func tryGetRulesetNames(configPath string) []cobra.Completion {
	if configPath == "" {
		configPath = config.GetPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil
	}

	var completions []cobra.Completion

	for _, rs := range cfg.Rulesets {
		if rs.Trigger.Type != ruleset.TriggerManual {
			continue
		}

		completions = append(completions, cobra.CompletionWithDesc(rs.DisplayName(), rs.ID))
	}

	return completions
}

func rulesetCompletion(ra *RunArgs) func(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, args []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(args) > 0 {
			// Only one ruleset per invocation.
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		return tryGetRulesetNames(ra.ConfigPath), cobra.ShellCompDirectiveNoFileComp
	}
}

func run(cmd *cobra.Command, ra *RunArgs) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ra.ConfigPath)
	if err != nil {
		return err
	}

	s, err := newSession(ctx, cfg, ra.Vault)
	if err != nil {
		return err
	}
	defer s.runner.Close()

	err = s.vault.Load(ctx)
	if err != nil {
		return fmt.Errorf("index vault: %w", err)
	}

	err = s.runner.RunManual(ctx, ra.Ruleset, ra.DryRun)
	if err != nil {
		return err
	}

	return writeActivity(cmd.OutOrStdout(), s.runner.Activity())
}

// writeActivity prints recorded activity oldest first. Color is only used
// when the writer is a terminal.
func writeActivity(w io.Writer, activity *log.Activity) error {
	entries := activity.Entries()
	slices.Reverse(entries)

	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}

	for _, e := range entries {
		line := e.Message
		if styled {
			line = levelStyle(e.Level).Render(line)
		}

		_, err := fmt.Fprintln(w, line)
		if err != nil {
			return fmt.Errorf("write activity: %w", err)
		}
	}

	return nil
}

func levelStyle(level slog.Level) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	case level >= slog.LevelWarn:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	default:
		return lipgloss.NewStyle()
	}
}
