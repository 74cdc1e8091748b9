package gpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAbsPathRejectsRelative(t *testing.T) {
	_, err := NewAbsPath("relative/path")
	assert.Error(t, err)
}

func TestNewRelPathRejectsTraversal(t *testing.T) {
	_, err := NewRelPath("../etc/passwd")
	assert.Error(t, err)

	_, err = NewRelPath("a/../../b")
	assert.Error(t, err)
}

func TestNewRelPathRejectsAbsolute(t *testing.T) {
	_, err := NewRelPath("/etc/passwd")
	assert.Error(t, err)
}

func TestJoinAlwaysAbs(t *testing.T) {
	dir := t.TempDir()
	base, err := NewAbsPath(dir)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755))

	rel, err := NewRelPath("a/b")
	require.NoError(t, err)

	joined, err := base.Join(rel)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a", "b"), joined.String())
}

func TestNewRelPathRejectsTraversalPastSymlink(t *testing.T) {
	dir := t.TempDir()
	base, err := NewAbsPath(dir)
	require.NoError(t, err)

	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "escape")))

	rel, err := NewRelPath("escape/../../../etc/passwd")
	require.Error(t, err)
	_ = rel

	// a symlink segment itself is fine to traverse (SecureJoin resolves
	// it as part of the base), what must never happen is a ".." escape
	// making it past NewRelPath in the first place.
}

func TestStripPrefix(t *testing.T) {
	base, err := NewAbsPath("/home/user")
	require.NoError(t, err)
	child, err := NewAbsPath("/home/user/.config/zsh")
	require.NoError(t, err)

	rel, err := child.StripPrefix(base)
	require.NoError(t, err)
	assert.Equal(t, ".config/zsh", rel.String())

	other, err := NewAbsPath("/etc/passwd")
	require.NoError(t, err)
	_, err = other.StripPrefix(base)
	assert.Error(t, err)
}
