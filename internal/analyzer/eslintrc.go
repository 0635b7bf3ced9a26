package analyzer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Default limits used when a rule is enabled without explicit options.
const (
	defaultMaxLen     = 80
	defaultComplexity = 20
)

// ESLintRC is the subset of an ESLint configuration the built-in analyzer understands.
// JSON configs are read through the YAML parser since JSON is valid YAML.
type ESLintRC struct {
	Path           string         `yaml:"-"`
	Rules          map[string]any `yaml:"rules"`
	IgnorePatterns []string       `yaml:"ignorePatterns"`
}

// LoadESLintRC reads a .eslintrc (JSON or YAML). JavaScript configs cannot be
// evaluated, so they produce an empty rule set that only the exec analyzer
// can make use of.
func LoadESLintRC(path string) (*ESLintRC, error) {
	rc := &ESLintRC{Path: path}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".cjs", ".mjs":
		return rc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read eslintrc: %w", err)
	}
	if err := yaml.Unmarshal(data, rc); err != nil {
		return nil, fmt.Errorf("failed to parse eslintrc %s: %w", path, err)
	}
	return rc, nil
}

// Ignored reports whether a slash-separated relative path matches an ignorePatterns entry.
func (rc *ESLintRC) Ignored(rel string) bool {
	if rc == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range rc.IgnorePatterns {
		pattern = strings.TrimSpace(pattern)
		anchored := strings.Contains(strings.TrimSuffix(pattern, "/"), "/")
		pattern = strings.TrimPrefix(pattern, "/")
		if pattern == "" {
			continue
		}
		if strings.HasSuffix(pattern, "/") {
			pattern += "**"
		}
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		// Patterns without a slash match at any depth, as in .gitignore.
		if anchored {
			continue
		}
		if ok, _ := doublestar.Match("**/"+pattern, rel); ok {
			return true
		}
	}
	return false
}

// lintRules is the resolved set of checks the built-in analyzer runs.
type lintRules struct {
	noDebugger bool
	noConsole  bool
	maxLen     int // 0 disables
	complexity int // 0 disables
}

func (rc *ESLintRC) lintRules() lintRules {
	var lr lintRules
	if rc == nil {
		return lr
	}
	if on, _ := rc.rule("no-debugger"); on {
		lr.noDebugger = true
	}
	if on, _ := rc.rule("no-console"); on {
		lr.noConsole = true
	}
	if on, opts := rc.rule("max-len"); on {
		lr.maxLen = intOption(opts, "code", defaultMaxLen)
	}
	if on, opts := rc.rule("complexity"); on {
		lr.complexity = intOption(opts, "max", defaultComplexity)
	}
	return lr
}

// rule reports whether a rule is enabled and returns its options.
// Severity may be "off"/"warn"/"error", 0/1/2, or the first element of an array.
func (rc *ESLintRC) rule(name string) (bool, []any) {
	raw, ok := rc.Rules[name]
	if !ok {
		return false, nil
	}
	var opts []any
	if list, isList := raw.([]any); isList {
		if len(list) == 0 {
			return false, nil
		}
		raw, opts = list[0], list[1:]
	}

	switch sev := raw.(type) {
	case string:
		return sev == "warn" || sev == "error" || sev == "1" || sev == "2", opts
	case int:
		return sev > 0, opts
	case float64:
		return sev > 0, opts
	}
	return false, nil
}

// intOption reads either a bare number or an object field from rule options.
func intOption(opts []any, key string, fallback int) int {
	if len(opts) == 0 {
		return fallback
	}
	switch v := opts[0].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case map[string]any:
		if n, ok := v[key].(int); ok {
			return n
		}
		if n, ok := v[key].(float64); ok {
			return int(n)
		}
	}
	return fallback
}
