// Package gpath implements the three distinct path kinds used throughout
// the engine -- AbsPath, RelPath, SourceRelPath -- with traversal-safe
// construction and joining (spec.md §3.1/§4.1).
package gpath

import (
	"fmt"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// AbsPath is a rooted, slash-normalized absolute path. Construction fails
// on non-absolute input.
type AbsPath struct{ p string }

// RelPath is a relative path with no leading ".." component and no root.
type RelPath struct{ p string }

// SourceRelPath is a RelPath rooted at the source tree, carrying the
// on-disk filename with attribute suffixes still present.
type SourceRelPath struct{ RelPath }

// NewAbsPath constructs an AbsPath, failing if p is not absolute.
func NewAbsPath(p string) (AbsPath, error) {
	if !filepath.IsAbs(p) {
		return AbsPath{}, fmt.Errorf("gpath: %q is not an absolute path", p)
	}
	return AbsPath{p: filepath.Clean(p)}, nil
}

// MustAbsPath panics on error; for use with compile-time-known paths.
func MustAbsPath(p string) AbsPath {
	a, err := NewAbsPath(p)
	if err != nil {
		panic(err)
	}
	return a
}

func (a AbsPath) String() string { return a.p }
func (a AbsPath) IsZero() bool   { return a.p == "" }

// NewRelPath constructs a RelPath, failing if p is absolute or contains a
// parent-directory ".." component once cleaned.
func NewRelPath(p string) (RelPath, error) {
	if filepath.IsAbs(p) {
		return RelPath{}, fmt.Errorf("gpath: %q is absolute, want relative", p)
	}
	clean := filepath.Clean(filepath.ToSlash(p))
	if clean == "." {
		clean = ""
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return RelPath{}, fmt.Errorf("gpath: %q escapes its base (contains ..)", p)
	}
	return RelPath{p: clean}, nil
}

func (r RelPath) String() string { return r.p }
func (r RelPath) IsZero() bool   { return r.p == "" }

// Join returns a new AbsPath joining the base with rel. Symlinks met
// along rel are resolved as if base were the filesystem root, so the
// result always lies inside base: a path that would leave base through
// a symlink is confined to base, not rejected. An error is returned only
// when a component cannot be resolved (for example, a symlink loop).
// This is the one load-bearing traversal-safety boundary named in
// spec.md §4.1/§8 invariant 6.
func (a AbsPath) Join(rel RelPath) (AbsPath, error) {
	joined, err := securejoin.SecureJoin(a.p, rel.p)
	if err != nil {
		return AbsPath{}, fmt.Errorf("gpath: join %q with %q: %w", a.p, rel.p, err)
	}
	return AbsPath{p: joined}, nil
}

// JoinUnsafe joins lexically, without confining symlinks to base.
// pkg/apply uses it for destination writes, whose target may not exist
// yet; symlinked directories along the way are then followed by the
// filesystem as usual. Reads of the source and destination trees go
// through Join.
func (a AbsPath) JoinUnsafe(rel RelPath) AbsPath {
	return AbsPath{p: filepath.Join(a.p, rel.p)}
}

// StripPrefix returns self relative to base, or an error if self is not
// a descendant of base.
func (a AbsPath) StripPrefix(base AbsPath) (RelPath, error) {
	rel, err := filepath.Rel(base.p, a.p)
	if err != nil {
		return RelPath{}, fmt.Errorf("gpath: %q is not relative to %q: %w", a.p, base.p, err)
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return RelPath{}, fmt.Errorf("gpath: %q is not a descendant of %q", a.p, base.p)
	}
	if rel == "." {
		rel = ""
	}
	return RelPath{p: filepath.ToSlash(rel)}, nil
}

func (a AbsPath) Dir() AbsPath { return AbsPath{p: filepath.Dir(a.p)} }
func (a AbsPath) Base() string { return filepath.Base(a.p) }

// NewSourceRelPath wraps a RelPath as rooted at the source tree.
func NewSourceRelPath(p string) (SourceRelPath, error) {
	r, err := NewRelPath(p)
	if err != nil {
		return SourceRelPath{}, err
	}
	return SourceRelPath{RelPath: r}, nil
}
