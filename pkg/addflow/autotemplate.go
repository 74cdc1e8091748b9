package addflow

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// templateVariable is a leaf string value found in the variables tree,
// named by its dotted path (e.g. "user.email").
type templateVariable struct {
	path  string
	value string
}

// extractVariables walks value (as produced by a TOML/YAML decode --
// nested map[string]any, leaf strings, everything else ignored) and
// collects every leaf string under its dotted path, mirroring add.rs's
// extract_variables over a serde_json::Value tree.
func extractVariables(value any, prefix string) []templateVariable {
	var out []templateVariable

	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			if s, ok := v[k].(string); ok {
				out = append(out, templateVariable{path: path, value: s})
			}
			out = append(out, extractVariables(v[k], path)...)
		}
	case string:
		if prefix != "" {
			out = append(out, templateVariable{path: prefix, value: v})
		}
	}

	return out
}

// sortForSubstitution orders candidates by SPEC_FULL.md's fixed
// autotemplate sort key (open question decision 2): value length
// descending, then path depth ascending, then path lexicographic
// ascending. The longest values are substituted first so a short
// variable never pre-empts a longer one that contains it.
func sortForSubstitution(vars []templateVariable) {
	sort.SliceStable(vars, func(i, j int) bool {
		a, b := vars[i], vars[j]
		if len(a.value) != len(b.value) {
			return len(a.value) > len(b.value)
		}
		da, db := strings.Count(a.path, "."), strings.Count(b.path, ".")
		if da != db {
			return da < db
		}
		return a.path < b.path
	})
}

type replacement struct {
	start, end int
	text       string
}

func overlaps(existing []replacement, start, end int) bool {
	for _, r := range existing {
		if (start >= r.start && start < r.end) || (end > r.start && end <= r.end) {
			return true
		}
	}
	return false
}

// AutoTemplateContent replaces every occurrence of a known variable
// value in content with its `{{ path }}` template reference (spec.md
// §4.5.6), using sortForSubstitution's ordering and rejecting
// overlapping replacements so a partially-consumed match is never
// substituted twice. Binary content and values shorter than 3 bytes are
// left untouched, matching the original's minimum-length guard against
// false-positive matches.
func AutoTemplateContent(content []byte, variables map[string]any) ([]byte, bool) {
	sniff := content
	if len(sniff) > binarySniffLimit {
		sniff = sniff[:binarySniffLimit]
	}
	if bytes.Contains(sniff, []byte{0}) || !utf8.Valid(content) {
		return content, false
	}

	text := string(content)

	vars := extractVariables(variables, "")
	sortForSubstitution(vars)

	var replacements []replacement
	for _, v := range vars {
		if len(v.value) < 3 {
			continue
		}
		pos := 0
		for {
			idx := strings.Index(text[pos:], v.value)
			if idx < 0 {
				break
			}
			start := pos + idx
			end := start + len(v.value)
			if !overlaps(replacements, start, end) {
				replacements = append(replacements, replacement{start: start, end: end, text: fmt.Sprintf("{{ %s }}", v.path)})
			}
			pos = end
		}
	}

	if len(replacements) == 0 {
		return content, false
	}

	sort.Slice(replacements, func(i, j int) bool { return replacements[i].start < replacements[j].start })

	var buf strings.Builder
	buf.Grow(len(text))
	lastEnd := 0
	for _, r := range replacements {
		buf.WriteString(text[lastEnd:r.start])
		buf.WriteString(r.text)
		lastEnd = r.end
	}
	buf.WriteString(text[lastEnd:])

	return []byte(buf.String()), true
}
