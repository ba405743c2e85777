package note

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-yaml"
)

var frontmatterDelimiter = []byte("---")

// splitFrontmatter splits content into the raw frontmatter block (without
// delimiters) and the body. ok is false if no frontmatter block exists.
func splitFrontmatter(content []byte) (fm, body []byte, ok bool) {
	if !bytes.HasPrefix(content, frontmatterDelimiter) {
		return nil, content, false
	}

	rest, found := bytes.CutPrefix(content, frontmatterDelimiter)
	if !found {
		return nil, content, false
	}

	rest = bytes.TrimPrefix(rest, []byte("\r"))
	if len(rest) == 0 || rest[0] != '\n' {
		// "---" must be a line of its own.
		return nil, content, false
	}

	rest = rest[1:]

	end := bytes.Index(rest, []byte("\n---"))
	if end == -1 {
		return nil, content, false
	}

	fm = rest[:end]

	body = rest[end+len("\n---"):]
	if idx := bytes.IndexByte(body, '\n'); idx >= 0 {
		body = body[idx+1:]
	} else {
		body = nil
	}

	return fm, body, true
}

// parseProps decodes a frontmatter block into a property map.
func parseProps(fm []byte) (map[string]any, error) {
	props := map[string]any{}

	err := yaml.Unmarshal(fm, &props)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	return props, nil
}

// upsertProperty sets key to value in the content's frontmatter, creating
// the frontmatter block if the note has none. Key order of existing
// properties is preserved.
func upsertProperty(content []byte, key string, value any) ([]byte, error) {
	fm, body, ok := splitFrontmatter(content)
	if !ok {
		body = content
	}

	var props yaml.MapSlice

	if ok && len(bytes.TrimSpace(fm)) > 0 {
		err := yaml.UnmarshalWithOptions(fm, &props, yaml.UseOrderedMap())
		if err != nil {
			return nil, fmt.Errorf("parse frontmatter: %w", err)
		}
	}

	found := false

	for i, item := range props {
		k, isStr := item.Key.(string)
		if isStr && k == key {
			props[i].Value = value
			found = true

			break
		}
	}

	if !found {
		props = append(props, yaml.MapItem{Key: key, Value: value})
	}

	out, err := yaml.MarshalWithOptions(props, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}

	b := &bytes.Buffer{}
	b.WriteString("---\n")
	b.Write(out)
	b.WriteString("---\n")
	b.Write(body)

	return b.Bytes(), nil
}
