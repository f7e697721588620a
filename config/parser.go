// Package config implements a hand-rolled TOML-like configuration
// format: [section] and [[section]] tables, key = value
// scalars, and named overlays applied over a base document to produce an
// immutable machine graph. No general-purpose TOML library appears
// anywhere in the example corpus for a format this close to TOML but with
// simpler quoting/array rules, so this parser is written by hand the way
// the corpus's own configuration loaders are (every retro-emulator
// example reads its own bespoke text format rather than pulling in a
// parser library) -- see DESIGN.md's stdlib justification entry for
// "config".
package config

import (
	"fmt"
	"strconv"
	"strings"
)

// table is a generic parsed section: scalar keys plus nested/array
// sub-tables, used as the intermediate form before decoding into the
// typed Machine struct (schema.go).
type table struct {
	values map[string]interface{}
}

func newTable() *table {
	return &table{values: make(map[string]interface{})}
}

// document is the full parse result: a root table plus every array-table
// path encountered, keyed by its dotted section name.
type document struct {
	root   *table
	arrays map[string][]*table
}

func newDocument() *document {
	return &document{root: newTable(), arrays: make(map[string][]*table)}
}

// Parse reads the given text as a configuration document.
func parse(text string) (*document, error) {
	doc := newDocument()
	current := doc.root
	currentPath := ""

	lines := strings.Split(text, "\n")
	for lineNo, raw := range lines {
		line := stripComment(raw)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[[") && strings.HasSuffix(line, "]]") {
			path := strings.TrimSpace(line[2 : len(line)-2])
			t := newTable()
			doc.arrays[path] = append(doc.arrays[path], t)
			current = t
			currentPath = path
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			path := strings.TrimSpace(line[1 : len(line)-1])
			t := newTable()
			setPath(doc.root, path, t)
			current = t
			currentPath = path
			continue
		}

		eq := strings.Index(line, "=")
		if eq < 0 {
			return nil, fmt.Errorf("config: line %d: expected key = value, got %q", lineNo+1, raw)
		}
		key := strings.TrimSpace(line[:eq])
		valText := strings.TrimSpace(line[eq+1:])
		v, err := parseValue(valText)
		if err != nil {
			return nil, fmt.Errorf("config: line %d (in [%s]): %w", lineNo+1, currentPath, err)
		}
		current.values[key] = v
	}

	return doc, nil
}

func stripComment(line string) string {
	inString := false
	for i, c := range line {
		if c == '"' {
			inString = !inString
		}
		if c == '#' && !inString {
			return line[:i]
		}
	}
	return line
}

// setPath installs t at a dotted path under root (e.g. "machine.memory"),
// creating intermediate sub-tables as needed.
func setPath(root *table, path string, t *table) {
	parts := strings.Split(path, ".")
	cur := root
	for _, p := range parts[:len(parts)-1] {
		existing, ok := cur.values[p].(*table)
		if !ok {
			existing = newTable()
			cur.values[p] = existing
		}
		cur = existing
	}
	cur.values[parts[len(parts)-1]] = t
}

func parseValue(text string) (interface{}, error) {
	switch {
	case text == "true":
		return true, nil
	case text == "false":
		return false, nil
	case strings.HasPrefix(text, "\""):
		return parseString(text)
	case strings.HasPrefix(text, "["):
		return parseArray(text)
	default:
		if i, err := strconv.Atoi(text); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f, nil
		}
		return nil, fmt.Errorf("unrecognized value %q", text)
	}
}

func parseString(text string) (string, error) {
	if !strings.HasSuffix(text, "\"") || len(text) < 2 {
		return "", fmt.Errorf("unterminated string %q", text)
	}
	return text[1 : len(text)-1], nil
}

func parseArray(text string) ([]string, error) {
	if !strings.HasSuffix(text, "]") {
		return nil, fmt.Errorf("unterminated array %q", text)
	}
	inner := strings.TrimSpace(text[1 : len(text)-1])
	if inner == "" {
		return []string{}, nil
	}
	parts := strings.Split(inner, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		s, err := parseString(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// get reads a dotted path from the root table, returning nil if absent.
func get(root *table, path string) interface{} {
	parts := strings.Split(path, ".")
	cur := root
	for i, p := range parts {
		v, ok := cur.values[p]
		if !ok {
			return nil
		}
		if i == len(parts)-1 {
			return v
		}
		sub, ok := v.(*table)
		if !ok {
			return nil
		}
		cur = sub
	}
	return nil
}

func getString(root *table, path, def string) string {
	if v, ok := get(root, path).(string); ok {
		return v
	}
	return def
}

func getInt(root *table, path string, def int) int {
	if v, ok := get(root, path).(int); ok {
		return v
	}
	return def
}

func getBool(root *table, path string, def bool) bool {
	if v, ok := get(root, path).(bool); ok {
		return v
	}
	return def
}

func getStringArray(root *table, path string) []string {
	if v, ok := get(root, path).([]string); ok {
		return v
	}
	return nil
}
