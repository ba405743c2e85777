package config

import (
	"fmt"
	"path/filepath"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/macropower/tidy/api"
	"github.com/macropower/tidy/api/v1beta1"
	"github.com/macropower/tidy/pkg/ruleset"
	"github.com/macropower/tidy/pkg/yaml"
)

//go:generate go run ../../internal/schemagen/main.go -o config.v1beta1.json

var (
	//go:embed config.yaml
	defaultConfigYAML []byte

	//go:embed config.v1beta1.json
	schemaJSON []byte

	// ValidKinds contains all valid kinds for this configuration.
	ValidKinds = []string{"Configuration"}

	// DefaultValidator validates against the embedded JSON schema.
	DefaultValidator = yaml.MustNewValidator("/config.v1beta1.json", schemaJSON)
)

// Config is the tidy Configuration kind: the vault to operate on, an
// optional global exclusion scope, and the rulesets to run.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Config struct {
	v1beta1.TypeMeta `json:",inline"`

	// Vault is the path to the note vault. Relative paths resolve against
	// the working directory.
	Vault string `json:"vault,omitempty" jsonschema:"title=Vault Path"`
	// Exclude is a scope expression; matching notes are never acted on.
	Exclude string `json:"exclude,omitempty" jsonschema:"title=Exclude Scope"`
	// Rulesets are the automations to run.
	Rulesets []*ruleset.Ruleset `json:"rulesets,omitempty" jsonschema:"title=Rulesets"`
}

// New creates a [Config] with defaults applied.
func New() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults fills in unset fields.
func (c *Config) EnsureDefaults() {
	if c.APIVersion == "" {
		c.APIVersion = v1beta1.APIVersion
	}
	if c.Kind == "" {
		c.Kind = "Configuration"
	}
	if c.Vault == "" {
		c.Vault = "."
	}
}

// Validate checks the rulesets for requirements the schema cannot express.
func (c *Config) Validate() error {
	seen := map[string]struct{}{}

	for _, rs := range c.Rulesets {
		err := rs.Validate()
		if err != nil {
			return err
		}

		if _, dup := seen[rs.ID]; dup {
			return fmt.Errorf("duplicate ruleset id %q", rs.ID)
		}

		seen[rs.ID] = struct{}{}
	}

	return nil
}

// StatePath returns the location of the runner state file for this config's
// vault.
func (c *Config) StatePath() string {
	return filepath.Join(c.Vault, ".tidy", "state.json")
}

func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// MarshalYAML renders the config as YAML.
func (c *Config) MarshalYAML() ([]byte, error) {
	// Encode the value, not the pointer, so the encoder does not call back
	// into this method.
	return api.MarshalYAML(*c)
}

// Load reads, schema-validates, and parses a config file.
func Load(path string) (*Config, error) {
	loader, err := NewLoaderFromFile(path, New, DefaultValidator)
	if err != nil {
		return nil, err
	}

	err = loader.Validate()
	if err != nil {
		return nil, err
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// GetPath returns the config file path, honoring XDG_CONFIG_HOME.
func GetPath() string {
	return api.GetConfigPath("config.yaml")
}

// WriteDefault writes the embedded default config.yaml and its JSON schema
// next to it, unless a config already exists.
func WriteDefault(path string) error {
	err := api.WriteIfNotExists(path, defaultConfigYAML)
	if err != nil {
		return fmt.Errorf("write default config: %w", err)
	}

	schemaPath := filepath.Join(filepath.Dir(path), "config.v1beta1.json")

	err = api.WriteIfNotExists(schemaPath, schemaJSON)
	if err != nil {
		return fmt.Errorf("write schema: %w", err)
	}

	return nil
}
