// Package hooks implements the pre/post hook subsystem that brackets
// the apply loop (spec.md §4.5.4): TOML-defined hook records, grouped
// by order and run in parallel within a group, with Always/Once/
// OnChange skip semantics, shell-word command tokenization, and
// shebang/extension interpreter inference for scripts.
package hooks

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode controls when a hook should run relative to its execution
// history (spec.md §4.5.4).
type Mode string

const (
	ModeAlways   Mode = "always"
	ModeOnce     Mode = "once"
	ModeOnChange Mode = "onchange"
)

// Stage is one of the two points in the apply loop a hook brackets.
type Stage string

const (
	StagePre  Stage = "pre"
	StagePost Stage = "post"
)

// Hook is a single user-defined command or script (spec.md §4.5.4).
type Hook struct {
	Name      string            `toml:"name"`
	Order     int32             `toml:"order"`
	Platforms []string          `toml:"platforms"`
	Cmd       string            `toml:"cmd"`
	Script    string            `toml:"script"`
	Env       map[string]string `toml:"env"`
	Failfast  *bool             `toml:"failfast"` // nil means unset; ApplyDefaults fills in true
	Mode      Mode              `toml:"mode"`
	Timeout   uint64            `toml:"timeout"`

	// ScriptContent is the script file's own content, captured outside
	// TOML decoding for OnChange hashing (spec.md §4.5.4); a script's
	// own bytes, not its path, are what content-change detection must
	// observe.
	ScriptContent string `toml:"-"`
}

// DefaultOrder is applied to a Hook whose TOML omitted "order".
const DefaultOrder int32 = 100

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Content returns the string a OnChange hook's hash is computed over:
// the command, else the captured script content, else the script path.
func (h Hook) Content() string {
	switch {
	case h.Cmd != "":
		return h.Cmd
	case h.ScriptContent != "":
		return h.ScriptContent
	default:
		return h.Script
	}
}

// Validate checks spec.md §4.5.4's constraints: non-empty name, exactly
// one of cmd/script, and well-formed env names. An unknown platform
// name is warn-only and is not a Validate error (the caller logs it).
func (h Hook) Validate() error {
	if h.Name == "" {
		return fmt.Errorf("hooks: hook name cannot be empty")
	}
	if h.Cmd == "" && h.Script == "" {
		return fmt.Errorf("hooks: hook %q must have either cmd or script", h.Name)
	}
	if h.Cmd != "" && h.Script != "" {
		return fmt.Errorf("hooks: hook %q cannot have both cmd and script", h.Name)
	}
	if strings.TrimSpace(h.Cmd) == "" && h.Cmd != "" {
		return fmt.Errorf("hooks: hook %q has an empty cmd field", h.Name)
	}
	if strings.TrimSpace(h.Script) == "" && h.Script != "" {
		return fmt.Errorf("hooks: hook %q has an empty script field", h.Name)
	}
	for name := range h.Env {
		if !envNamePattern.MatchString(name) {
			return fmt.Errorf("hooks: hook %q has an invalid environment variable name %q", h.Name, name)
		}
	}
	return nil
}

// UnknownPlatforms returns any platform names in h.Platforms outside
// the recognized set, for the caller to warn-log (spec.md §4.5.4:
// unknown platform is warn-only, never a validation error).
func (h Hook) UnknownPlatforms() []string {
	var unknown []string
	for _, p := range h.Platforms {
		if !isValidPlatform(p) {
			unknown = append(unknown, p)
		}
	}
	return unknown
}

func isValidPlatform(p string) bool {
	switch p {
	case "darwin", "linux", "windows":
		return true
	default:
		return false
	}
}

// ShouldRunOn reports whether h applies to platform ("" Platforms means
// every platform).
func (h Hook) ShouldRunOn(platform string) bool {
	if len(h.Platforms) == 0 {
		return true
	}
	for _, p := range h.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

// Collections holds a source tree's full set of hooks, split by stage.
type Collections struct {
	Pre  []Hook `toml:"pre"`
	Post []Hook `toml:"post"`
}

// Stage returns the hooks for stage.
func (c Collections) Stage(stage Stage) []Hook {
	if stage == StagePre {
		return c.Pre
	}
	return c.Post
}

// ApplyDefaults fills in Order/Failfast/Mode defaults left unset by
// TOML decoding (decoders leave zero values, which for Order/Mode would
// otherwise mean "0" / "" rather than the spec's documented defaults).
func ApplyDefaults(h Hook) Hook {
	if h.Order == 0 {
		h.Order = DefaultOrder
	}
	if h.Mode == "" {
		h.Mode = ModeAlways
	}
	if h.Failfast == nil {
		t := true
		h.Failfast = &t
	}
	return h
}

// IsFailfast reports h's effective failfast setting, defaulting to true
// per spec.md §4.5.4 when unset.
func (h Hook) IsFailfast() bool {
	return h.Failfast == nil || *h.Failfast
}
