package templator

import (
	"path/filepath"
	"slices"
	"strings"
)

// Excluded returns the rules that match path. A rule matches when it equals
// one of the path elements or, after removing a leading '*', the file suffix.
// "*.md" and ".md" are therefore equivalent.
func Excluded(path string, rules []string) []string {
	if len(rules) == 0 {
		return nil
	}

	parts := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
	suffix := pathSuffix(path)

	var matched []string
	for _, rule := range rules {
		if rule == "" {
			continue
		}

		if slices.Contains(parts, rule) || (suffix != "" && strings.TrimLeft(rule, "*") == suffix) {
			matched = append(matched, rule)
		}
	}

	return matched
}

// pathSuffix returns the extension of the last path element. A leading dot
// does not start an extension, so ".env" has none while "prod.env" has ".env".
func pathSuffix(path string) string {
	base := filepath.Base(path)
	trimmed := strings.TrimLeft(base, ".")
	if trimmed == "" {
		return ""
	}

	return filepath.Ext(trimmed)
}
