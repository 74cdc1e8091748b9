// Package entry defines the three tagged-sum entry types that flow
// through the pipeline (spec.md §3.2, §9's design note): SourceEntry,
// TargetEntry, DestEntry. Each is a closed set of variants
// (File/Directory/Symlink, plus Remove for TargetEntry) represented as
// one struct carrying a Kind tag and only the fields that variant uses,
// rather than an interface with per-variant concrete types -- the
// struct-plus-tag shape is the direct translation of the original's
// Rust enum, and keeps construction and field access ordinary Go
// instead of a type-switch-heavy dispatch layer.
package entry

import (
	"github.com/PaulYuuu/guisu/pkg/attr"
	"github.com/PaulYuuu/guisu/pkg/gpath"
)

// Kind discriminates which variant a tagged entry holds.
type Kind uint8

const (
	KindFile Kind = iota
	KindDirectory
	KindSymlink
	// KindRemove marks a TargetEntry that should cause its destination
	// counterpart to be deleted (spec.md §3.2's fourth TargetEntry variant).
	KindRemove
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	case KindRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// SourceEntry is the classified view of one path in the source tree
// (spec.md §3.2), produced by the walk in pkg/sourcestate and immutable
// for the duration of one command.
type SourceEntry struct {
	Kind       Kind
	SourcePath gpath.SourceRelPath
	TargetPath gpath.RelPath
	Attributes attr.FileAttributes
	LinkTarget gpath.RelPath // set only when Kind == KindSymlink
}

// TargetEntry is the post-decrypt, post-render view of what should
// exist at TargetPath once applied (spec.md §3.2); it lives only for
// the duration of one command.
type TargetEntry struct {
	Kind       Kind
	TargetPath gpath.RelPath
	Content    []byte // set only when Kind == KindFile
	Mode       *uint32
	LinkTarget gpath.RelPath // set only when Kind == KindSymlink
}

// DestKind mirrors Kind but adds Missing, since a destination path may
// simply not exist yet.
type DestKind uint8

const (
	DestMissing DestKind = iota
	DestFile
	DestDirectory
	DestSymlink
)

func (k DestKind) String() string {
	switch k {
	case DestMissing:
		return "missing"
	case DestFile:
		return "file"
	case DestDirectory:
		return "directory"
	case DestSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// DestEntry is the live filesystem's view of one destination path
// (spec.md §3.2), read lazily and cached per path for one command.
type DestEntry struct {
	Kind       DestKind
	Path       gpath.RelPath
	Content    []byte // set only when Kind == DestFile
	Mode       *uint32
	LinkTarget gpath.RelPath // set only when Kind == DestSymlink
}

// NewSourceFile builds a File-kind SourceEntry.
func NewSourceFile(sourcePath gpath.SourceRelPath, targetPath gpath.RelPath, attrs attr.FileAttributes) SourceEntry {
	return SourceEntry{Kind: KindFile, SourcePath: sourcePath, TargetPath: targetPath, Attributes: attrs}
}

// NewSourceDirectory builds a Directory-kind SourceEntry.
func NewSourceDirectory(sourcePath gpath.SourceRelPath, targetPath gpath.RelPath, attrs attr.FileAttributes) SourceEntry {
	return SourceEntry{Kind: KindDirectory, SourcePath: sourcePath, TargetPath: targetPath, Attributes: attrs}
}

// NewSourceSymlink builds a Symlink-kind SourceEntry.
func NewSourceSymlink(sourcePath gpath.SourceRelPath, targetPath, linkTarget gpath.RelPath, attrs attr.FileAttributes) SourceEntry {
	return SourceEntry{Kind: KindSymlink, SourcePath: sourcePath, TargetPath: targetPath, Attributes: attrs, LinkTarget: linkTarget}
}

// NewTargetFile builds a File-kind TargetEntry.
func NewTargetFile(targetPath gpath.RelPath, content []byte, mode *uint32) TargetEntry {
	return TargetEntry{Kind: KindFile, TargetPath: targetPath, Content: content, Mode: mode}
}

// NewTargetDirectory builds a Directory-kind TargetEntry.
func NewTargetDirectory(targetPath gpath.RelPath, mode *uint32) TargetEntry {
	return TargetEntry{Kind: KindDirectory, TargetPath: targetPath, Mode: mode}
}

// NewTargetSymlink builds a Symlink-kind TargetEntry.
func NewTargetSymlink(targetPath, linkTarget gpath.RelPath) TargetEntry {
	return TargetEntry{Kind: KindSymlink, TargetPath: targetPath, LinkTarget: linkTarget}
}

// NewTargetRemove builds a Remove-kind TargetEntry: the entry at
// targetPath should be deleted from the destination.
func NewTargetRemove(targetPath gpath.RelPath) TargetEntry {
	return TargetEntry{Kind: KindRemove, TargetPath: targetPath}
}
