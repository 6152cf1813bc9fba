// File: lixenwraith/settings/io.go
package settings

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// WriteDirective sets key = value in an rc-format config file, keeping every
// other line as is. An existing assignment of the same setting (under any
// alias) is replaced in place; otherwise the line is added to the general
// section. The file is created if missing and always replaced atomically.
func WriteDirective(fs afero.Fs, path, key, value string) error {
	kind, ok := lookupDirective(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDirective, key)
	}

	newLine := formatDirectiveLine(canonicalKey(kind), value)

	// Validate through the same path a reload takes
	check := parseRC([]byte(newLine))
	if len(check.skipped) > 0 {
		return check.skipped[0]
	}

	perm := os.FileMode(0644)
	var existing []byte
	if info, err := fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
		if existing, err = afero.ReadFile(fs, path); err != nil {
			return fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat config file '%s': %w", path, err)
	}

	lines := spliceDirective(splitLines(existing), kind, newLine)
	return atomicWriteFile(fs, path, []byte(strings.Join(lines, "\n")+"\n"), perm)
}

// formatDirectiveLine quotes anything that is not a plain integer
func formatDirectiveLine(key, value string) string {
	value = strings.TrimSpace(value)
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return key + " = " + value
	}
	return key + " = " + strconv.Quote(value)
}

// spliceDirective replaces the first general-section assignment of kind,
// drops later duplicates, or inserts after the last general line.
func spliceDirective(lines []string, kind directiveKind, newLine string) []string {
	out := make([]string, 0, len(lines)+1)
	section := sectionGeneral
	replaced := false
	insertAt := 0

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, "[") {
			if name, _, err := parseSectionHeader(line); err == nil {
				section = name
			} else {
				section = ""
			}
			out = append(out, raw)
			continue
		}

		if section == sectionGeneral && !isBlankOrComment(line) {
			if k, _, found := strings.Cut(line, "="); found {
				if lineKind, ok := lookupDirective(k); ok && lineKind == kind {
					if replaced {
						continue
					}
					raw = newLine
					replaced = true
				}
			}
			out = append(out, raw)
			insertAt = len(out)
			continue
		}

		out = append(out, raw)
	}

	if replaced {
		return out
	}

	out = append(out, "")
	copy(out[insertAt+1:], out[insertAt:])
	out[insertAt] = newLine
	return out
}

// splitLines splits file content, dropping the final newline
func splitLines(data []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 4096), MaxFileSize)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// atomicWriteFile performs atomic file write
func atomicWriteFile(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := afero.TempFile(fs, dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	removed := false
	defer func() {
		if !removed {
			fs.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := fs.Chmod(tempPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := fs.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	removed = true

	return nil
}
