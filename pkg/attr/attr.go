// Package attr parses and encodes the filename-and-mode-bit attribute
// language used by the source tree: trailing .age/.j2 suffixes and Unix
// permission bits each map to a boolean flag on FileAttributes.
package attr

import "strings"

// FileAttributes is a set of independent boolean flags describing how a
// source entry should be classified and materialized. It is kept as a
// small bitset internally for cheap equality and hashing, but every
// serialization or API boundary exposes it as six named booleans (see
// ToFields/FromFields) rather than the raw bits.
type FileAttributes uint8

const (
	Dot FileAttributes = 1 << iota
	Private
	Readonly
	Executable
	Template
	Encrypted
)

// Unix permission constants used by the parse/encode table.
const (
	modePrivateFile  = 0o600
	modePrivateDir   = 0o700
	modeOwnerExecute = 0o100
	modeAllWrite     = 0o222
	modeReadonly     = 0o444
	modeReadonlyExec = 0o555
	modeStandardExec = 0o755
	modeMask         = 0o777
)

func (a FileAttributes) has(f FileAttributes) bool { return a&f != 0 }

func (a FileAttributes) IsDot() bool        { return a.has(Dot) }
func (a FileAttributes) IsPrivate() bool    { return a.has(Private) }
func (a FileAttributes) IsReadonly() bool   { return a.has(Readonly) }
func (a FileAttributes) IsExecutable() bool { return a.has(Executable) }
func (a FileAttributes) IsTemplate() bool   { return a.has(Template) }
func (a FileAttributes) IsEncrypted() bool  { return a.has(Encrypted) }

func (a FileAttributes) with(f FileAttributes, v bool) FileAttributes {
	if v {
		return a | f
	}
	return a &^ f
}

func (a FileAttributes) WithDot(v bool) FileAttributes        { return a.with(Dot, v) }
func (a FileAttributes) WithPrivate(v bool) FileAttributes    { return a.with(Private, v) }
func (a FileAttributes) WithReadonly(v bool) FileAttributes   { return a.with(Readonly, v) }
func (a FileAttributes) WithExecutable(v bool) FileAttributes { return a.with(Executable, v) }
func (a FileAttributes) WithTemplate(v bool) FileAttributes   { return a.with(Template, v) }
func (a FileAttributes) WithEncrypted(v bool) FileAttributes  { return a.with(Encrypted, v) }

// ParseFromSource strips the .age then .j2 suffixes (case-insensitive,
// order significant: .age is checked first so "config.j2.age" resolves
// the encrypted flag before the template flag is considered against the
// now-shorter name) and, if mode is non-nil, derives private/readonly/
// executable from the Unix permission bits. It returns the resulting
// flag set and the target filename with suffixes removed.
func ParseFromSource(filename string, mode *uint32) (FileAttributes, string) {
	var a FileAttributes
	target := filename

	if hasSuffixFold(target, ".age") {
		a = a.WithEncrypted(true)
		target = target[:len(target)-len(".age")]
	}
	if hasSuffixFold(target, ".j2") {
		a = a.WithTemplate(true)
		target = target[:len(target)-len(".j2")]
	}
	if mode != nil {
		a = a.parsePermissions(*mode)
	}
	if strings.HasPrefix(target, ".") {
		a = a.WithDot(true)
	}
	return a, target
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	return strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func (a FileAttributes) parsePermissions(mode uint32) FileAttributes {
	perms := mode & modeMask
	if perms == modePrivateFile || perms == modePrivateDir {
		a = a.WithPrivate(true)
	}
	if perms&modeOwnerExecute != 0 {
		a = a.WithExecutable(true)
	}
	if perms&modeAllWrite == 0 {
		a = a.WithReadonly(true)
	}
	return a
}

// Mode returns the inverse permission table of ParseFromSource: the Unix
// mode implied by the private/readonly/executable flags, or (0, false)
// when no specific mode is implied (the caller should inherit a default).
func (a FileAttributes) Mode() (uint32, bool) {
	switch {
	case a.IsPrivate() && !a.IsReadonly() && a.IsExecutable():
		return modePrivateDir, true
	case a.IsPrivate() && !a.IsReadonly() && !a.IsExecutable():
		return modePrivateFile, true
	case !a.IsPrivate() && a.IsReadonly() && a.IsExecutable():
		return modeReadonlyExec, true
	case !a.IsPrivate() && a.IsReadonly() && !a.IsExecutable():
		return modeReadonly, true
	case !a.IsPrivate() && !a.IsReadonly() && a.IsExecutable():
		return modeStandardExec, true
	default:
		return 0, false
	}
}

// Fields is the user-facing, serialization-stable view of FileAttributes:
// six named booleans, never the opaque bitset (spec.md §3.2/§9).
type Fields struct {
	IsDot        bool `toml:"is_dot" json:"is_dot" yaml:"is_dot"`
	IsPrivate    bool `toml:"is_private" json:"is_private" yaml:"is_private"`
	IsReadonly   bool `toml:"is_readonly" json:"is_readonly" yaml:"is_readonly"`
	IsExecutable bool `toml:"is_executable" json:"is_executable" yaml:"is_executable"`
	IsTemplate   bool `toml:"is_template" json:"is_template" yaml:"is_template"`
	IsEncrypted  bool `toml:"is_encrypted" json:"is_encrypted" yaml:"is_encrypted"`
}

func (a FileAttributes) ToFields() Fields {
	return Fields{
		IsDot:        a.IsDot(),
		IsPrivate:    a.IsPrivate(),
		IsReadonly:   a.IsReadonly(),
		IsExecutable: a.IsExecutable(),
		IsTemplate:   a.IsTemplate(),
		IsEncrypted:  a.IsEncrypted(),
	}
}

func FromFields(f Fields) FileAttributes {
	var a FileAttributes
	a = a.WithDot(f.IsDot)
	a = a.WithPrivate(f.IsPrivate)
	a = a.WithReadonly(f.IsReadonly)
	a = a.WithExecutable(f.IsExecutable)
	a = a.WithTemplate(f.IsTemplate)
	a = a.WithEncrypted(f.IsEncrypted)
	return a
}

// EncodeSuffixes returns the filename suffixes (".j2", ".age", or both,
// in that order) that ParseFromSource would strip back off for this
// attribute set -- used by the add flow (§4.5.6) to name a new source
// entry.
func EncodeSuffixes(a FileAttributes) string {
	var sb strings.Builder
	if a.IsTemplate() {
		sb.WriteString(".j2")
	}
	if a.IsEncrypted() {
		sb.WriteString(".age")
	}
	return sb.String()
}
