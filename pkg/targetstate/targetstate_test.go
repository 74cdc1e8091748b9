package targetstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulYuuu/guisu/pkg/attr"
	"github.com/PaulYuuu/guisu/pkg/content"
	"github.com/PaulYuuu/guisu/pkg/entry"
	"github.com/PaulYuuu/guisu/pkg/gpath"
	"github.com/PaulYuuu/guisu/pkg/gtemplate"
)

// fixtureState is a fixed set of SourceEntry values rooted at a temp
// directory, standing in for pkg/sourcestate.State in these tests.
type fixtureState struct {
	root    gpath.AbsPath
	entries []entry.SourceEntry
}

func (f *fixtureState) Entries() []entry.SourceEntry { return f.entries }

func (f *fixtureState) SourceFilePath(sourcePath gpath.SourceRelPath) (gpath.AbsPath, error) {
	return f.root.Join(sourcePath.RelPath)
}

func mustRel(t *testing.T, p string) gpath.RelPath {
	t.Helper()
	r, err := gpath.NewRelPath(p)
	require.NoError(t, err)
	return r
}

func mustSourceRel(t *testing.T, p string) gpath.SourceRelPath {
	t.Helper()
	r, err := gpath.NewSourceRelPath(p)
	require.NoError(t, err)
	return r
}

func newFixture(t *testing.T) *fixtureState {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmpl.txt.j2"), []byte("hi {{.Name}}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.txt.j2"), []byte("{{.Unclosed"), 0o644))

	abs, err := gpath.NewAbsPath(dir)
	require.NoError(t, err)

	entries := []entry.SourceEntry{
		entry.NewSourceDirectory(mustSourceRel(t, "sub"), mustRel(t, "sub"), attr.FileAttributes(0)),
		entry.NewSourceFile(mustSourceRel(t, "plain.txt"), mustRel(t, "plain.txt"), attr.FileAttributes(0)),
		entry.NewSourceFile(mustSourceRel(t, "tmpl.txt.j2"), mustRel(t, "tmpl.txt"), attr.FileAttributes(0).WithTemplate(true)),
		entry.NewSourceFile(mustSourceRel(t, "broken.txt.j2"), mustRel(t, "broken.txt"), attr.FileAttributes(0).WithTemplate(true)),
		entry.NewSourceSymlink(mustSourceRel(t, "link"), mustRel(t, "link"), mustRel(t, "plain.txt"), attr.FileAttributes(0)),
	}
	return &fixtureState{root: abs, entries: entries}
}

func newProcessor(t *testing.T, root gpath.AbsPath) *content.Processor {
	t.Helper()
	engine := gtemplate.New(root, nil, nil, nil)
	return content.New(nil, engine, true, nil)
}

func TestBuildProducesOneTargetEntryPerKind(t *testing.T) {
	fx := newFixture(t)
	proc := newProcessor(t, fx.root)

	state, err := Build(fx, proc, map[string]any{"Name": "guisu"})
	require.NoError(t, err)

	dir, ok := state.Get("sub")
	require.True(t, ok)
	assert.Equal(t, entry.KindDirectory, dir.Kind)

	plain, ok := state.Get("plain.txt")
	require.True(t, ok)
	assert.Equal(t, "hello", string(plain.Content))

	tmpl, ok := state.Get("tmpl.txt")
	require.True(t, ok)
	assert.Equal(t, "hi guisu", string(tmpl.Content))

	link, ok := state.Get("link")
	require.True(t, ok)
	assert.Equal(t, entry.KindSymlink, link.Kind)
	assert.Equal(t, "plain.txt", link.LinkTarget.String())
}

func TestBuildIsolatesPerEntryErrors(t *testing.T) {
	fx := newFixture(t)
	proc := newProcessor(t, fx.root)

	state, err := Build(fx, proc, nil)
	require.NoError(t, err)

	require.Len(t, state.Errors, 1)
	assert.Equal(t, "broken.txt", state.Errors[0].TargetPath)

	_, ok := state.Get("plain.txt")
	assert.True(t, ok, "a failing entry must not prevent the others from building")
}

func TestEntriesAreSortedByTargetPath(t *testing.T) {
	fx := newFixture(t)
	proc := newProcessor(t, fx.root)

	state, err := Build(fx, proc, map[string]any{"Name": "guisu"})
	require.NoError(t, err)

	entries := state.Entries()
	for i := 1; i < len(entries); i++ {
		assert.LessOrEqual(t, entries[i-1].TargetPath.String(), entries[i].TargetPath.String())
	}
}
