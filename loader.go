// FILE: lixenwraith/settings/loader.go
package settings

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// File formats understood by the loader
const (
	FormatRC   = "rc"
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// Section names shared by all formats
const (
	sectionGeneral = "general"
	sectionLogfile = "logfile"
)

// document is the parse result of one config file
type document struct {
	directives []directive
	logRules   []LogRule
	skipped    []error // per-line or per-directive problems, never fatal
	hasContent bool
}

// empty reports whether the file held nothing but blanks and comments
func (d *document) empty() bool {
	return !d.hasContent
}

// readFile reads and parses the config file. Only I/O and whole-document
// syntax errors are returned; line-level problems land in document.skipped.
func (s *Store) readFile(path string) (*document, error) {
	file, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: '%s' exceeds %d bytes", ErrFileTooLarge, path, MaxFileSize)
	}

	return parseDocument(detectFileFormat(path), data)
}

// parseDocument dispatches on format
func parseDocument(format string, data []byte) (*document, error) {
	switch format {
	case FormatTOML:
		tree := make(map[string]any)
		if err := toml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
		return documentFromTree(tree), nil
	case FormatYAML:
		tree := make(map[string]any)
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
		return documentFromTree(tree), nil
	default:
		return parseRC(data), nil
	}
}

// detectFileFormat determines format from file extension.
// Anything that is not TOML or YAML is read as an rc file.
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatRC
	}
}

// documentFromTree converts a decoded TOML/YAML tree:
//
//	default_num_threads = 4        # top level counts as general
//	[general]
//	system_cache_size = 2048
//	[logfile]
//	console = ["debug = settings"]
//
// Top-level directives come first and [general] ones after them, each group
// in key order, so a setting named at both levels takes the [general] value.
func documentFromTree(tree map[string]any) *document {
	doc := &document{hasContent: len(tree) > 0}

	topLevel := make(map[string]any)
	var generalTables []map[string]any
	for _, key := range sortedKeys(tree) {
		value := tree[key]
		switch strings.ToLower(key) {
		case sectionGeneral:
			if table, ok := value.(map[string]any); ok {
				generalTables = append(generalTables, table)
			} else {
				doc.skipped = append(doc.skipped, fmt.Errorf("%w: section %q is not a table", ErrMalformedLine, key))
			}
		case sectionLogfile:
			doc.addLogTable(key, value)
		default:
			topLevel[key] = value
		}
	}

	doc.addDirectives(topLevel)
	for _, table := range generalTables {
		doc.addDirectives(table)
	}

	return doc
}

// addDirectives decodes a table of general keys in key order
func (d *document) addDirectives(table map[string]any) {
	for _, k := range sortedKeys(table) {
		d.addDirective(k, table[k])
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// addLogTable collects target -> rule(s) pairs from a logfile table
func (d *document) addLogTable(key string, value any) {
	table, ok := value.(map[string]any)
	if !ok {
		d.skipped = append(d.skipped, fmt.Errorf("%w: section %q is not a table", ErrMalformedLine, key))
		return
	}

	for _, target := range sortedKeys(table) {
		switch rules := table[target].(type) {
		case string:
			d.logRules = append(d.logRules, LogRule{Target: target, Rule: rules})
		case []any:
			for _, r := range rules {
				if text, ok := r.(string); ok {
					d.logRules = append(d.logRules, LogRule{Target: target, Rule: text})
				} else {
					d.skipped = append(d.skipped, fmt.Errorf("%w: log rule for %q is %T, not a string", ErrMalformedLine, target, r))
				}
			}
		default:
			d.skipped = append(d.skipped, fmt.Errorf("%w: log rules for %q are %T", ErrMalformedLine, target, rules))
		}
	}
}

// addDirective decodes one general key; unknown keys are recorded as skipped
func (d *document) addDirective(key string, value any) {
	dir, err := decodeDirective(key, value)
	if err != nil {
		d.skipped = append(d.skipped, err)
		return
	}
	d.directives = append(d.directives, dir)
}
