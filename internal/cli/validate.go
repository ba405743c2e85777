package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/macropower/tidy/pkg/config"
	"github.com/macropower/tidy/pkg/expr"
)

type ValidateArgs struct {
	*RootArgs

	ConfigPath string
}

func NewValidateArgs(rootArgs *RootArgs) *ValidateArgs {
	return &ValidateArgs{
		RootArgs: rootArgs,
	}
}

func (va *ValidateArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&va.ConfigPath, "config", "", "Path to the tidy configuration file")

	err := cmd.MarkFlagFilename("config", "yaml", "yml")
	if err != nil {
		panic(fmt.Errorf("mark config flag: %w", err))
	}
}

func NewValidateCmd(va *ValidateArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate the configuration and compile every scope expression",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				va.ConfigPath = args[0]
			}

			return validate(cmd, va)
		},
	}

	va.AddFlags(cmd)
	bindEnvVars(cmd)

	return cmd
}

func validate(cmd *cobra.Command, va *ValidateArgs) error {
	configPath := va.ConfigPath
	if configPath == "" {
		configPath = config.GetPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	env, err := expr.NewNoteEnvironment()
	if err != nil {
		return fmt.Errorf("create environment: %w", err)
	}

	check := func(what, scope string) error {
		if strings.TrimSpace(scope) == "" {
			return nil
		}

		_, err := env.Compile(scope)
		if err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}

		return nil
	}

	err = check("exclude scope", cfg.Exclude)
	if err != nil {
		return err
	}

	for _, rs := range cfg.Rulesets {
		err = check(fmt.Sprintf("ruleset %q: trigger scope", rs.ID), rs.Trigger.Scope)
		if err != nil {
			return err
		}

		for i, r := range rs.Rules {
			err = check(fmt.Sprintf("ruleset %q: rule %d scope", rs.ID, i), r.Scope)
			if err != nil {
				return err
			}
		}
	}

	mustN(fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", configPath))

	return nil
}
