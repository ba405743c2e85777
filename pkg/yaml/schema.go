package yaml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
)

// SchemaGenerator reflects a JSON schema from a configuration object,
// pulling field descriptions from Go doc comments.
type SchemaGenerator struct {
	obj         any
	basePackage string
}

// NewSchemaGenerator creates a generator for obj. basePackage is the module
// import path, used to resolve doc comments for reflected types.
func NewSchemaGenerator(obj any, basePackage string) *SchemaGenerator {
	return &SchemaGenerator{
		obj:         obj,
		basePackage: basePackage,
	}
}

// Generate reflects the schema and renders it as indented JSON.
func (g *SchemaGenerator) Generate() ([]byte, error) {
	r := new(jsonschema.Reflector)

	root, err := findModuleRoot()
	if err != nil {
		return nil, err
	}

	err = r.AddGoComments(g.basePackage, root)
	if err != nil {
		return nil, fmt.Errorf("add go comments: %w", err)
	}

	js := r.Reflect(g.obj)

	jsData, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return append(jsData, '\n'), nil
}

// findModuleRoot walks up from the working directory to the nearest go.mod.
func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		_, err := os.Stat(filepath.Join(dir, "go.mod"))
		if err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found")
		}

		dir = parent
	}
}
