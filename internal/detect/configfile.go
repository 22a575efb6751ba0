package detect

import (
	"fmt"
	"strings"
)

// DetectConfig scans a configuration file for duplicated keys. Config
// findings carry no weight and never enter the density score; they are
// reported for cleanup only.
//
// The scan is line-oriented rather than format-aware: a key is the text
// before the first ':' or '=' on a line, scoped by its indentation and
// by any [section] header above it. Later occurrences of a key already
// seen in the same scope are flagged.
func DetectConfig(path string, lines []string) []*Finding {
	var out []*Finding
	seen := map[string]uint32{} // scope+key -> first line
	section := ""
	indentOf := func(l string) int { return len(l) - len(strings.TrimLeft(l, " \t")) }

	for i, raw := range lines {
		line := uint32(i + 1)
		t := strings.TrimSpace(raw)
		if t == "" || strings.HasPrefix(t, "#") || strings.HasPrefix(t, ";") || strings.HasPrefix(t, "//") {
			continue
		}
		if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") {
			section = t
			continue
		}
		if strings.HasPrefix(t, "- ") || t == "-" {
			continue // list items repeat keys legitimately
		}
		key := configKey(t)
		if key == "" {
			continue
		}
		scoped := fmt.Sprintf("%s|%d|%s", section, indentOf(raw), key)
		if first, dup := seen[scoped]; dup {
			fd := &Finding{
				ID:        fmt.Sprintf("%s:%d:duplicate-config-key:%s", path, line, key),
				Pattern:   "duplicate-config-key",
				Category:  CategoryConfig,
				File:      path,
				StartLine: line,
				EndLine:   line,
				Excerpt:   raw,
				Outcome: &Outcome{
					Confirmed: true,
					Technique: TechniqueStructural,
					Reason:    fmt.Sprintf("key %q already set on line %d", key, first),
				},
				LinesSaved: 1,
			}
			out = append(out, fd)
		} else {
			seen[scoped] = line
		}
	}
	return out
}

// configKey extracts the key of a `key: value`, `key = value`, or JSON
// `"key": value` line. Lines without a separator have no key.
func configKey(t string) string {
	sep := strings.IndexAny(t, ":=")
	if sep <= 0 {
		return ""
	}
	key := strings.TrimSpace(t[:sep])
	key = strings.Trim(key, `"'`)
	if key == "" || strings.ContainsAny(key, " \t{}[]") {
		return ""
	}
	return key
}
