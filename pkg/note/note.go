// Package note models markdown notes and the vault directory that holds
// them. The vault is both the document universe for scope queries and the
// mutation surface (move, frontmatter updates).
package note

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Extension is the file extension for notes.
const Extension = ".md"

var inlineTagPattern = regexp.MustCompile(`(?:^|\s)#([\p{L}\p{N}/_-]+)`)

// Note is a single markdown note. Paths are relative to the vault root and
// use forward slashes.
type Note struct {
	Props  map[string]any // Frontmatter properties.
	Path   string         // e.g. "Projects/roadmap.md".
	Name   string         // File name without extension.
	Folder string         // Parent folder, "" at the vault root.
	Tags   []string       // Frontmatter tags plus inline #tags, without "#".
}

// Parse builds a [Note] from a relative path and raw file content.
func Parse(relPath string, content []byte) *Note {
	relPath = filepath.ToSlash(relPath)

	folder := filepath.ToSlash(filepath.Dir(relPath))
	if folder == "." {
		folder = ""
	}

	n := &Note{
		Path:   relPath,
		Name:   strings.TrimSuffix(filepath.Base(relPath), Extension),
		Folder: folder,
		Props:  map[string]any{},
	}

	fm, body, ok := splitFrontmatter(content)
	if ok {
		props, err := parseProps(fm)
		if err == nil {
			n.Props = props
		}
	}

	n.Tags = collectTags(n.Props, body)

	return n
}

// Activation returns the CEL variable bindings for this note.
func (n *Note) Activation() map[string]any {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}

	props := n.Props
	if props == nil {
		props = map[string]any{}
	}

	return map[string]any{
		"path":   n.Path,
		"name":   n.Name,
		"folder": n.Folder,
		"tags":   tags,
		"props":  props,
	}
}

// HasTag reports whether the note carries the given tag (without "#").
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

// collectTags merges frontmatter tags and inline #tags, deduplicated in
// order of first appearance.
func collectTags(props map[string]any, body []byte) []string {
	var tags []string

	seen := map[string]struct{}{}

	add := func(tag string) {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag == "" {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}

		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	switch v := props["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}

	case string:
		// Some notes keep tags as a comma-separated scalar.
		for _, s := range strings.Split(v, ",") {
			add(s)
		}
	}

	for _, m := range inlineTagPattern.FindAllSubmatch(body, -1) {
		add(string(m[1]))
	}

	return tags
}
