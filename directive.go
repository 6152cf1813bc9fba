// FILE: lixenwraith/settings/directive.go
package settings

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/docker/go-units"
	"github.com/go-viper/mapstructure/v2"
)

// directiveKind identifies a setting owned by the store
type directiveKind int

const (
	directiveNumThreads directiveKind = iota + 1
	directiveCacheSize
)

// Canonical directive keys, as written back by WriteDirective
const (
	KeyNumThreads = "default_num_threads"
	KeyCacheSize  = "system_cache_size"
)

var directiveKeys = map[string]directiveKind{
	KeyNumThreads: directiveNumThreads,
	"num_threads": directiveNumThreads,
	"threads":     directiveNumThreads,
	KeyCacheSize:  directiveCacheSize,
	"cache_size":  directiveCacheSize,
}

// directive is one decoded, validated setting assignment
type directive struct {
	kind       directiveKind
	numThreads int
	cacheSize  uint64 // megabytes
}

// lookupDirective resolves a key or alias, case-insensitively
func lookupDirective(key string) (directiveKind, bool) {
	kind, ok := directiveKeys[strings.ToLower(strings.TrimSpace(key))]
	return kind, ok
}

// canonicalKey returns the key WriteDirective uses for a kind
func canonicalKey(kind directiveKind) string {
	if kind == directiveNumThreads {
		return KeyNumThreads
	}
	return KeyCacheSize
}

// decodeDirective validates a raw value for a recognised key
func decodeDirective(key string, raw any) (directive, error) {
	kind, ok := lookupDirective(key)
	if !ok {
		return directive{}, fmt.Errorf("%w: %q", ErrUnknownDirective, key)
	}

	switch kind {
	case directiveNumThreads:
		var n int64
		if err := decodeValue(raw, &n, nil); err != nil {
			return directive{}, fmt.Errorf("%w: %s: %w", ErrInvalidValue, key, err)
		}
		if n <= 0 || n > math.MaxInt32 {
			return directive{}, fmt.Errorf("%w: %s must be a positive thread count, got %d", ErrInvalidValue, key, n)
		}
		return directive{kind: kind, numThreads: int(n)}, nil

	default:
		var mb int64
		if err := decodeValue(raw, &mb, stringToMegabytesHookFunc()); err != nil {
			return directive{}, fmt.Errorf("%w: %s: %w", ErrInvalidValue, key, err)
		}
		if mb < 0 {
			return directive{}, fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidValue, key, mb)
		}
		return directive{kind: kind, cacheSize: uint64(mb)}, nil
	}
}

// decodeValue decodes one scalar with weak typing, so "8" and 8 both work
func decodeValue(input any, target any, hook mapstructure.DecodeHookFunc) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook:       hook,
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}
	return decoder.Decode(input)
}

// stringToMegabytesHookFunc turns size strings into megabytes.
// Bare numbers ("2048", "08", "2048.0") are already megabytes, rounded to the
// nearest whole one; "2GiB", "512m", "1.5g" are binary sizes. A size with a
// unit that is below 1 MiB is rejected rather than truncated to zero.
func stringToMegabytesHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}

		str := strings.TrimSpace(data.(string))
		if mb, err := strconv.ParseFloat(str, 64); err == nil {
			if math.IsNaN(mb) || math.IsInf(mb, 0) || math.Abs(mb) >= math.MaxInt64 {
				return nil, fmt.Errorf("size %q out of range", str)
			}
			return int64(math.Round(mb)), nil
		}

		size, err := units.RAMInBytes(str)
		if err != nil {
			return nil, fmt.Errorf("invalid size %q: %w", str, err)
		}
		if size > 0 && size < units.MiB {
			return nil, fmt.Errorf("size %q is below 1 MiB", str)
		}
		return size / units.MiB, nil
	}
}

// parseRC parses the line-oriented format. Every line stands alone: a
// malformed line is recorded and skipped, the rest of the file still applies.
//
//	# comment
//	default_num_threads = 8
//	[general]
//	cache_size = "2GiB"
//	[logfile console]
//	debug = settings
func parseRC(data []byte) *document {
	doc := &document{}

	section := sectionGeneral
	target := ""

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 4096), MaxFileSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if isBlankOrComment(line) {
			continue
		}
		doc.hasContent = true

		if strings.HasPrefix(line, "[") {
			name, arg, err := parseSectionHeader(line)
			if err != nil {
				doc.skipped = append(doc.skipped, fmt.Errorf("line %d: %w", lineNo, err))
				section = "" // ignore the body of a broken section
				continue
			}
			section, target = name, arg
			continue
		}

		switch section {
		case sectionGeneral:
			doc.parseGeneralLine(lineNo, line)
		case sectionLogfile:
			doc.logRules = append(doc.logRules, LogRule{Target: target, Rule: line})
		default:
			// Sections owned by someone else
		}
	}
	if err := scanner.Err(); err != nil {
		doc.skipped = append(doc.skipped, fmt.Errorf("%w: line %d: %w", ErrMalformedLine, lineNo+1, err))
	}

	return doc
}

// parseGeneralLine decodes a single key = value line as TOML
func (d *document) parseGeneralLine(lineNo int, line string) {
	tree := make(map[string]any)
	if err := toml.Unmarshal([]byte(line), &tree); err != nil {
		d.skipped = append(d.skipped, fmt.Errorf("%w: line %d: %w", ErrMalformedLine, lineNo, err))
		return
	}

	for key, value := range tree {
		dir, err := decodeDirective(key, value)
		if err != nil {
			d.skipped = append(d.skipped, fmt.Errorf("line %d: %w", lineNo, err))
			continue
		}
		d.directives = append(d.directives, dir)
	}
}

// parseSectionHeader splits "[name arg...]" into its section and argument
func parseSectionHeader(line string) (string, string, error) {
	if !strings.HasSuffix(line, "]") {
		return "", "", fmt.Errorf("%w: unterminated section header %q", ErrMalformedLine, line)
	}

	fields := strings.Fields(strings.TrimSuffix(strings.TrimPrefix(line, "["), "]"))
	if len(fields) == 0 {
		return "", "", fmt.Errorf("%w: empty section header", ErrMalformedLine)
	}

	name := strings.ToLower(fields[0])
	arg := strings.Join(fields[1:], " ")
	switch name {
	case sectionGeneral:
		return name, "", nil
	case sectionLogfile:
		if arg == "" {
			return "", "", fmt.Errorf("%w: logfile section needs a target", ErrMalformedLine)
		}
		return name, arg, nil
	default:
		return name, arg, nil
	}
}

func isBlankOrComment(line string) bool {
	return line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";")
}
