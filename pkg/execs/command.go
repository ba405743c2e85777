package execs

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mattn/go-shellwords"
)

var (
	// ErrCommandExecution is returned when command execution fails.
	ErrCommandExecution = errors.New("run")

	// ErrEmptyCommand is returned when a command is empty.
	ErrEmptyCommand = errors.New("empty command")
)

// Result represents the result of a command execution.
type Result struct {
	Stdout string
	Stderr string
}

// EnvVar is an environment variable definition.
type EnvVar struct {
	// Name is the environment variable name.
	Name string `json:"name" jsonschema:"title=Name"`
	// Value is the environment variable value.
	Value string `json:"value,omitempty" jsonschema:"title=Value"`
}

// Command manages common command execution properties.
type Command struct {
	baseEnv map[string]string
	// Command is the command to execute.
	Command string `json:"command" jsonschema:"title=Command,pattern=^\\S+$"`
	// Args contains the command line arguments.
	Args []string `json:"args,omitempty" jsonschema:"title=Arguments" yaml:"args,flow,omitempty"`
	// Env contains environment variable definitions.
	Env []EnvVar `json:"env,omitempty" jsonschema:"title=Environment Variables"`
}

// NewCommand creates a new [Command].
// It accepts a base environment, which usually will be from [os.Environ].
func NewCommand(baseEnv []string) Command {
	c := Command{Env: []EnvVar{}}
	c.SetBaseEnv(baseEnv)

	return c
}

// ParseCommand splits a shell-style command line into a [Command]. Quoting
// follows shell word rules; the command is not run through a shell.
func ParseCommand(baseEnv []string, line string) (Command, error) {
	words, err := shellwords.Parse(line)
	if err != nil {
		return Command{}, fmt.Errorf("parse command %q: %w", line, err)
	}

	if len(words) == 0 {
		return Command{}, ErrEmptyCommand
	}

	c := NewCommand(baseEnv)
	c.Command = words[0]
	c.Args = words[1:]

	return c, nil
}

// SetBaseEnv replaces the base environment.
func (c *Command) SetBaseEnv(baseEnv []string) {
	c.baseEnv = make(map[string]string)

	for _, envVar := range baseEnv {
		if eqIdx := strings.Index(envVar, "="); eqIdx != -1 {
			c.baseEnv[envVar[:eqIdx]] = envVar[eqIdx+1:]
		}
	}
}

// AddEnvVar adds a single environment variable.
func (c *Command) AddEnvVar(envVar EnvVar) {
	c.Env = append(c.Env, envVar)
}

// GetEnv constructs environment variables for command execution. Only a
// small set of essential variables is inherited from the base environment.
func (c *Command) GetEnv() []string {
	envMap := make(map[string]string)

	essentialVars := []string{"PATH", "HOME", "USER", "TERM", "SHELL"}
	for key, value := range c.baseEnv {
		if slices.Contains(essentialVars, key) {
			envMap[key] = value
		}
	}

	for _, envVar := range c.Env {
		if envVar.Name == "" {
			continue
		}

		envMap[envVar.Name] = envVar.Value
	}

	env := []string{}
	for key, value := range envMap {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}

	return env
}

func (c *Command) String() string {
	if len(c.Args) == 0 {
		return c.Command
	}

	return fmt.Sprintf("%s %s", c.Command, strings.Join(c.Args, " "))
}
