// Package ignore wraps go-git's gitignore matcher to implement the
// source-tree ignore filter (spec.md §4.3.1, §6.1's .guisu/ignores.toml
// per-platform sections), rather than reimplementing gitignore pattern
// syntax.
package ignore

import (
	"runtime"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Config holds the raw pattern lists loaded from .guisu/ignores.toml
// (spec.md §6.1), keyed by section name.
type Config struct {
	Global  []string
	Darwin  []string
	Linux   []string
	Windows []string
}

// Matcher evaluates a relative path against the combined global + current
// platform pattern set.
type Matcher struct {
	m gitignore.Matcher
}

// New builds a Matcher from cfg, combining the global patterns with
// whichever platform section matches runtime.GOOS. Patterns are parsed
// in order, so later patterns (including re-inclusion "!" patterns) can
// override earlier ones exactly as git itself resolves .gitignore.
func New(cfg Config) *Matcher {
	return NewForOS(cfg, runtime.GOOS)
}

// NewForOS is New with an explicit OS name, for testing platform-specific
// sections without faking runtime.GOOS.
func NewForOS(cfg Config, goos string) *Matcher {
	var raw []string
	raw = append(raw, cfg.Global...)
	switch goos {
	case "darwin":
		raw = append(raw, cfg.Darwin...)
	case "windows":
		raw = append(raw, cfg.Windows...)
	default:
		raw = append(raw, cfg.Linux...)
	}

	patterns := make([]gitignore.Pattern, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	return &Matcher{m: gitignore.NewMatcher(patterns)}
}

// Match reports whether relPath (slash-separated, relative to the
// source tree root) is ignored. isDir must reflect whether the path
// names a directory, since gitignore's trailing-slash patterns only
// match directories.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	if relPath == "" {
		return false
	}
	return m.m.Match(strings.Split(relPath, "/"), isDir)
}
