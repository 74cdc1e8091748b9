package gtemplate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"
)

// maxRegexPatternLen bounds how large a regexMatch/regexReplaceAll
// pattern may be. original_source additionally caps the compiled
// program/DFA size to guard against ReDoS in its backtracking regex
// crate; Go's regexp package compiles to RE2 automata with a linear-time
// matching guarantee, so no equivalent program-size cap is needed here --
// only the same pattern-length sanity check is kept, for parity and to
// reject obviously-abusive input early.
const maxRegexPatternLen = 200

// stringFilters are the codec/string/regex pipeline filters that need no
// Engine state (spec.md §4.2's function table): quote, toJson/fromJson,
// toToml/fromToml, trim family, split/join, regexMatch/regexReplaceAll.
func stringFilters() template.FuncMap {
	return template.FuncMap{
		"quote":           quoteFilter,
		"toJson":          toJSONFilter,
		"fromJson":        fromJSONFilter,
		"toToml":          toTOMLFilter,
		"fromToml":        fromTOMLFilter,
		"trim":            strings.TrimSpace,
		"trimStart":       func(s string) string { return strings.TrimLeft(s, " \t\r\n") },
		"trimEnd":         func(s string) string { return strings.TrimRight(s, " \t\r\n") },
		"split":           func(text, delimiter string) []string { return strings.Split(text, delimiter) },
		"join":            joinFilter,
		"regexMatch":      regexMatchFilter,
		"regexReplaceAll": regexReplaceAllFilter,
	}
}

func quoteFilter(value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	return `"` + escaped + `"`
}

func toJSONFilter(value any) (string, error) {
	out, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("gtemplate: toJson: %w", err)
	}
	return string(out), nil
}

func fromJSONFilter(value string) (any, error) {
	var decoded any
	if err := json.Unmarshal([]byte(value), &decoded); err != nil {
		return nil, fmt.Errorf("gtemplate: fromJson: %w", err)
	}
	return decoded, nil
}

func toTOMLFilter(value any) (string, error) {
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(value); err != nil {
		return "", fmt.Errorf("gtemplate: toToml: %w", err)
	}
	return buf.String(), nil
}

func fromTOMLFilter(value string) (any, error) {
	var decoded any
	if _, err := toml.Decode(value, &decoded); err != nil {
		return nil, fmt.Errorf("gtemplate: fromToml: %w", err)
	}
	return decoded, nil
}

func joinFilter(items []string, delimiter string) string {
	return strings.Join(items, delimiter)
}

func checkPatternLen(pattern string) error {
	if len(pattern) > maxRegexPatternLen {
		return fmt.Errorf("gtemplate: regex pattern too long (%d chars, max %d)", len(pattern), maxRegexPatternLen)
	}
	return nil
}

func regexMatchFilter(text, pattern string) (bool, error) {
	if err := checkPatternLen(pattern); err != nil {
		return false, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("gtemplate: invalid regex pattern: %w", err)
	}
	return re.MatchString(text), nil
}

func regexReplaceAllFilter(text, pattern, replacement string) (string, error) {
	if err := checkPatternLen(pattern); err != nil {
		return "", err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("gtemplate: invalid regex pattern: %w", err)
	}
	return re.ReplaceAllString(text, replacement), nil
}
