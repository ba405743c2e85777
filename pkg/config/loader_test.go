package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/tidy/pkg/config"
	"github.com/macropower/tidy/pkg/ruleset"
)

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	data := []byte(`apiVersion: tidy.jacobcolvin.com/v1beta1
kind: Configuration
vault: /vaults/main
exclude: inFolder(path, "Templates")
rulesets:
  - id: triage
    name: Triage
    trigger:
      type: manual
    rules:
      - role: if
        scope: '"todo" in tags'
        actions:
          - type: Move Note
            options:
              folder: Todo
`)

	loader := config.NewLoaderFromBytes(data, config.New, config.DefaultValidator)
	require.NoError(t, loader.Validate())

	c, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "/vaults/main", c.Vault)
	assert.Equal(t, `inFolder(path, "Templates")`, c.Exclude)
	require.Len(t, c.Rulesets, 1)
	assert.Equal(t, ruleset.TriggerManual, c.Rulesets[0].Trigger.Type)
}

func TestLoader_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name: "unknown field",
			data: `apiVersion: tidy.jacobcolvin.com/v1beta1
kind: Configuration
vaultt: /oops
`,
			wantErr: "vaultt",
		},
		{
			name: "wrong api version",
			data: `apiVersion: nope/v1
kind: Configuration
`,
			wantErr: "apiVersion",
		},
		{
			name: "bad trigger type enum",
			data: `apiVersion: tidy.jacobcolvin.com/v1beta1
kind: Configuration
rulesets:
  - id: a
    trigger:
      type: whenever
`,
			wantErr: "type",
		},
		{
			name:    "not yaml",
			data:    "rulesets: [\n",
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			loader := config.NewLoaderFromBytes([]byte(tt.data), config.New, config.DefaultValidator)

			err := loader.Validate()
			require.Error(t, err)

			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	loader := config.NewLoaderFromBytes([]byte(`apiVersion: tidy.jacobcolvin.com/v1beta1
kind: Configuration
`), config.New, config.DefaultValidator)

	c, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, ".", c.Vault)
}
