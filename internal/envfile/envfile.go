// Package envfile loads environment sources for descriptor rendering.
//
// A source is a flat NAME=value mapping, read from dotenv files or from
// SOPS-encrypted files (decrypted in-process). Sources are loaded once per
// render and treated as immutable afterwards.
package envfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is an immutable variable mapping for one render.
type Source map[string]string

// Load reads one environment source file. Files with ".sops." in their name
// are decrypted first; the cleartext format follows the final extension
// (.env, .yaml/.yml, .json).
func Load(path string) (Source, error) {
	if IsEncrypted(path) {
		return loadEncrypted(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read env file: %w", err)
	}
	src, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// LoadAll loads several sources in order; later files override earlier ones.
func LoadAll(paths []string) (Source, error) {
	merged := make(Source)
	for _, path := range paths {
		src, err := Load(path)
		if err != nil {
			return nil, err
		}
		for k, v := range src {
			merged[k] = v
		}
	}
	return merged, nil
}

// IsEncrypted reports whether a path names a SOPS-encrypted source.
func IsEncrypted(path string) bool {
	return strings.Contains(filepath.Base(path), ".sops.")
}

// Parse reads dotenv text: NAME=value lines, # comments, blank lines, an
// optional "export " prefix, and single or double quotes around values.
func Parse(data []byte) (Source, error) {
	src := make(Source)

	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected NAME=value, got %q", i+1, line)
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("line %d: empty variable name", i+1)
		}

		src[key] = unquote(strings.TrimSpace(value))
	}

	return src, nil
}

// unquote strips one matching pair of single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// fromMapping flattens a decoded YAML/JSON mapping into a Source. Values
// must be scalars; an environment source has no nesting.
func fromMapping(data map[string]any, path string) (Source, error) {
	src := make(Source, len(data))
	for key, value := range data {
		switch v := value.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("%s: %q is not a scalar; environment sources must be flat", path, key)
		case nil:
			src[key] = ""
		default:
			src[key] = fmt.Sprintf("%v", v)
		}
	}
	return src, nil
}

// parseMapping decodes cleartext YAML/JSON into a flat Source.
func parseMapping(data []byte, path string) (Source, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return fromMapping(raw, path)
}
