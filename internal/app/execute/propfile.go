// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadPropertyFiles reads dotenv-style property files in order and merges
// them, later files winning. Relative paths are resolved against baseDir.
// A path ending in '?' is optional and skipped when missing.
func LoadPropertyFiles(baseDir string, paths []string) (map[string]any, error) {
	props := make(map[string]any)
	for _, path := range paths {
		path, optional := strings.CutSuffix(path, "?")

		full := filepath.FromSlash(path)
		if !filepath.IsAbs(full) {
			full = filepath.Join(baseDir, full)
		}

		content, err := os.ReadFile(full)
		if err != nil {
			if optional && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read property file '%s': %w", path, err)
		}
		if err := parseProperties(props, string(content), path); err != nil {
			return nil, err
		}
	}
	return props, nil
}

// parseProperties merges KEY=value lines into props. Blank lines and '#'
// comments are skipped and an "export " prefix is ignored. Double-quoted
// values process \n \r \t \\ \" \$ escapes; single-quoted values are literal;
// unquoted values drop a trailing " #" comment.
func parseProperties(props map[string]any, content, filename string) error {
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, raw, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("%s:%d: invalid format (missing '=')", filename, i+1)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("%s:%d: empty property name", filename, i+1)
		}

		value, err := propertyValue(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s:%d: %w", filename, i+1, err)
		}
		props[key] = value
	}
	return nil
}

func propertyValue(raw string) (string, error) {
	switch {
	case raw == "":
		return "", nil
	case raw[0] == '"':
		if len(raw) < 2 || raw[len(raw)-1] != '"' {
			return "", errors.New("unterminated double quote")
		}
		return unescape(raw[1 : len(raw)-1]), nil
	case raw[0] == '\'':
		if len(raw) < 2 || raw[len(raw)-1] != '\'' {
			return "", errors.New("unterminated single quote")
		}
		return raw[1 : len(raw)-1], nil
	}
	if before, _, found := strings.Cut(raw, " #"); found {
		return strings.TrimSpace(before), nil
	}
	return raw, nil
}

func unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\', '"', '$':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
