package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/tidy/pkg/expr"
)

func noteActivation(path string, tags []string, props map[string]any) map[string]any {
	name := path
	if idx := len(path) - len(".md"); idx > 0 && path[idx:] == ".md" {
		name = path[:idx]
	}

	return map[string]any{
		"path":   path,
		"name":   name,
		"folder": "",
		"tags":   tags,
		"props":  props,
	}
}

func TestNoteEnvironment_Compile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		expression string
		wantErr    bool
	}{
		{
			name:       "tag membership",
			expression: `"todo" in tags`,
			wantErr:    false,
		},
		{
			name:       "path helpers",
			expression: `pathExt(path) == ".md" && pathBase(path).startsWith("daily-")`,
			wantErr:    false,
		},
		{
			name:       "folder helper",
			expression: `inFolder(path, "Projects")`,
			wantErr:    false,
		},
		{
			name:       "property access",
			expression: `"status" in props && props["status"] == "done"`,
			wantErr:    false,
		},
		{
			name:       "unknown variable",
			expression: `folderz == "x"`,
			wantErr:    true,
		},
		{
			name:       "unknown function",
			expression: `path.invalidFunction()`,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, err := expr.NewNoteEnvironment()
			require.NoError(t, err)

			_, err = env.Compile(tt.expression)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNoteEnvironment_Eval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		props      map[string]any
		name       string
		expression string
		path       string
		tags       []string
		want       bool
	}{
		{
			name:       "matching tag",
			expression: `"todo" in tags`,
			path:       "Inbox/a.md",
			tags:       []string{"todo", "work"},
			want:       true,
		},
		{
			name:       "missing tag",
			expression: `"todo" in tags`,
			path:       "Inbox/a.md",
			tags:       []string{"work"},
			want:       false,
		},
		{
			name:       "folder match",
			expression: `inFolder(path, "Inbox")`,
			path:       "Inbox/a.md",
			want:       true,
		},
		{
			name:       "folder mismatch",
			expression: `inFolder(path, "Archive")`,
			path:       "Inbox/a.md",
			want:       false,
		},
		{
			name:       "empty folder matches everything",
			expression: `inFolder(path, "")`,
			path:       "Inbox/a.md",
			want:       true,
		},
		{
			name:       "property equality",
			expression: `"status" in props && props["status"] == "done"`,
			path:       "a.md",
			props:      map[string]any{"status": "done"},
			want:       true,
		},
		{
			name:       "path extension",
			expression: `pathExt(path) == ".md"`,
			path:       "Inbox/a.md",
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := expr.MustNewNoteEnvironment()

			prg, err := env.Compile(tt.expression)
			require.NoError(t, err)

			tags := tt.tags
			if tags == nil {
				tags = []string{}
			}

			props := tt.props
			if props == nil {
				props = map[string]any{}
			}

			out, _, err := prg.Eval(noteActivation(tt.path, tags, props))
			require.NoError(t, err)

			got, ok := out.Value().(bool)
			require.True(t, ok, "expression must return a boolean")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertToCELValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(5), expr.ConvertToCELValue(5).Value())
	assert.Equal(t, "x", expr.ConvertToCELValue("x").Value())
	assert.Equal(t, true, expr.ConvertToCELValue(true).Value())
	assert.NotNil(t, expr.ConvertToCELValue([]any{"a", 1}))
	assert.NotNil(t, expr.ConvertToCELValue(map[string]any{"k": "v"}))
	assert.NotNil(t, expr.ConvertToCELValue(struct{}{}))
}
