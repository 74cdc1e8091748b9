package apply

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulYuuu/guisu/pkg/content"
	"github.com/PaulYuuu/guisu/pkg/deststate"
	"github.com/PaulYuuu/guisu/pkg/diffengine"
	"github.com/PaulYuuu/guisu/pkg/entry"
	"github.com/PaulYuuu/guisu/pkg/gpath"
	"github.com/PaulYuuu/guisu/pkg/hash"
	"github.com/PaulYuuu/guisu/pkg/journal"
	"github.com/PaulYuuu/guisu/pkg/targetstate"
)

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

type realSourceState struct {
	root    gpath.AbsPath
	entries []entry.SourceEntry
}

func (s realSourceState) Entries() []entry.SourceEntry { return s.entries }
func (s realSourceState) SourceFilePath(p gpath.SourceRelPath) (gpath.AbsPath, error) {
	return s.root.Join(p.RelPath)
}

// buildTargetState writes files to a real temp source tree and runs the
// actual content pipeline over them, so plan-level tests exercise real
// TargetEntry content rather than a hand-built fixture.
func buildTargetState(t *testing.T, files map[string]string) *targetstate.State {
	t.Helper()
	dir := t.TempDir()
	root := gpath.MustAbsPath(dir)

	var entries []entry.SourceEntry
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
		entries = append(entries, entry.NewSourceFile(mustSourceRel(t, name), mustRel(t, name), 0))
	}

	src := realSourceState{root: root, entries: entries}
	processor := content.New(nil, nil, false, nil)
	state, err := targetstate.Build(src, processor, nil)
	require.NoError(t, err)
	require.Empty(t, state.Errors)
	return state
}

func newDestState(t *testing.T, root gpath.AbsPath, fs afero.Fs) *deststate.State {
	t.Helper()
	return deststate.New(root, deststate.NewAferoSystem(fs))
}

func TestBuildClassifiesNewFileAsLatent(t *testing.T) {
	root := gpath.MustAbsPath("/dest")
	fs := afero.NewMemMapFs()
	dest := newDestState(t, root, fs)
	store := journal.NewMemStore()

	target := buildTargetState(t, map[string]string{".bashrc": "A\n"})

	plan, err := Build(target, dest, store, Options{})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, diffengine.Latent, plan[0].Classification)
}

func TestBuildAppliesCreateOnceRule(t *testing.T) {
	root := gpath.MustAbsPath("/dest")
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/dest/.bashrc", []byte("X\n"), 0o644))
	dest := newDestState(t, root, fs)
	store := journal.NewMemStore()

	target := buildTargetState(t, map[string]string{".bashrc": "A\n"})

	plan, err := Build(target, dest, store, Options{CreateOnce: map[string]bool{".bashrc": true}})
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestBuildAppliesPathFilter(t *testing.T) {
	root := gpath.MustAbsPath("/dest")
	fs := afero.NewMemMapFs()
	dest := newDestState(t, root, fs)
	store := journal.NewMemStore()

	target := buildTargetState(t, map[string]string{".bashrc": "A\n", ".zshrc": "B\n"})

	plan, err := Build(target, dest, store, Options{PathFilters: []string{".zshrc"}})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, ".zshrc", plan[0].Target.TargetPath.String())
}

func TestBuildClassifiesNoChangeWhenContentMatches(t *testing.T) {
	root := gpath.MustAbsPath("/dest")
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/dest/.bashrc", []byte("A\n"), 0o644))
	dest := newDestState(t, root, fs)
	store := journal.NewMemStore()

	target := buildTargetState(t, map[string]string{".bashrc": "A\n"})

	plan, err := Build(target, dest, store, Options{})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, diffengine.NoChange, plan[0].Classification)
}

func TestBuildClassifiesTrueConflict(t *testing.T) {
	root := gpath.MustAbsPath("/dest")
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/dest/.bashrc", []byte("X\n"), 0o644))
	dest := newDestState(t, root, fs)
	store := journal.NewMemStore()

	baseRec := journal.EntryRecord{ContentHash: hash.Of([]byte("Z\n")).String()}
	raw, err := journal.EncodeEntryRecord(baseRec)
	require.NoError(t, err)
	require.NoError(t, store.Set(journal.BucketEntryState, ".bashrc", raw))

	target := buildTargetState(t, map[string]string{".bashrc": "Y\n"})

	plan, err := Build(target, dest, store, Options{})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, diffengine.TrueConflict, plan[0].Classification)
}

func TestMatchesFilterRequiresSlashBoundary(t *testing.T) {
	assert.True(t, MatchesFilter(".config/zsh", ".config/zsh"))
	assert.True(t, MatchesFilter(".config/zsh", ".config/zsh/rc"))
	assert.False(t, MatchesFilter(".config/zsh", ".config/zsh-backup"))
}

func TestCommitSequentialWritesLatentFileAndUpdatesJournal(t *testing.T) {
	root := gpath.MustAbsPath("/dest")
	fs := afero.NewMemMapFs()
	dest := newDestState(t, root, fs)
	store := journal.NewMemStore()
	w := NewAferoWriter(fs)

	te := entry.NewTargetFile(mustRel(t, ".bashrc"), []byte("A\n"), nil)
	plan := []PlanEntry{{Target: te, Dest: entry.DestEntry{Kind: entry.DestMissing}, Classification: diffengine.Latent}}

	stats, err := CommitSequential(root, plan, w, dest, nil, store, noPrompt{}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{".bashrc"}, stats.Written)
	assert.Empty(t, stats.Errors)

	written, err := afero.ReadFile(fs, "/dest/.bashrc")
	require.NoError(t, err)
	assert.Equal(t, "A\n", string(written))

	raw, found, err := store.Get(journal.BucketEntryState, ".bashrc")
	require.NoError(t, err)
	require.True(t, found)
	rec, ok := journal.DecodeEntryRecord(raw, nil)
	require.True(t, ok)
	assert.Equal(t, hash.Of([]byte("A\n")).String(), rec.ContentHash)
}

func TestCommitSequentialDryRunWritesNothing(t *testing.T) {
	root := gpath.MustAbsPath("/dest")
	fs := afero.NewMemMapFs()
	dest := newDestState(t, root, fs)
	store := journal.NewMemStore()
	w := NewAferoWriter(fs)

	te := entry.NewTargetFile(mustRel(t, ".bashrc"), []byte("A\n"), nil)
	plan := []PlanEntry{{Target: te, Dest: entry.DestEntry{Kind: entry.DestMissing}, Classification: diffengine.Latent}}

	stats, err := CommitSequential(root, plan, w, dest, nil, store, noPrompt{}, true, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{".bashrc"}, stats.Written)

	exists, err := afero.Exists(fs, "/dest/.bashrc")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCommitSequentialSkipsOnUserSkipDecision(t *testing.T) {
	root := gpath.MustAbsPath("/dest")
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/dest/.bashrc", []byte("X\n"), 0o644))
	dest := newDestState(t, root, fs)
	store := journal.NewMemStore()
	w := NewAferoWriter(fs)

	te := entry.NewTargetFile(mustRel(t, ".bashrc"), []byte("Y\n"), nil)
	plan := []PlanEntry{{
		Target:         te,
		Dest:           entry.DestEntry{Kind: entry.DestFile, Content: []byte("X\n")},
		Classification: diffengine.LocalModification,
	}}

	stats, err := CommitSequential(root, plan, w, dest, nil, store, fixedPrompt{decision: DecisionSkip}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{".bashrc"}, stats.Skipped)
	assert.Empty(t, stats.Written)

	written, err := afero.ReadFile(fs, "/dest/.bashrc")
	require.NoError(t, err)
	assert.Equal(t, "X\n", string(written))
}

func TestCommitSequentialQuitStopsRemainingEntries(t *testing.T) {
	root := gpath.MustAbsPath("/dest")
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/dest/.bashrc", []byte("X\n"), 0o644))
	dest := newDestState(t, root, fs)
	store := journal.NewMemStore()
	w := NewAferoWriter(fs)

	conflict := entry.NewTargetFile(mustRel(t, ".bashrc"), []byte("Y\n"), nil)
	latent := entry.NewTargetFile(mustRel(t, ".zshrc"), []byte("Z\n"), nil)
	plan := []PlanEntry{
		{Target: conflict, Dest: entry.DestEntry{Kind: entry.DestFile, Content: []byte("X\n")}, Classification: diffengine.LocalModification},
		{Target: latent, Dest: entry.DestEntry{Kind: entry.DestMissing}, Classification: diffengine.Latent},
	}

	stats, err := CommitSequential(root, plan, w, dest, nil, store, fixedPrompt{decision: DecisionQuit}, false, nil)
	require.NoError(t, err)
	assert.True(t, stats.Quit)
	assert.Empty(t, stats.Written)

	exists, err := afero.Exists(fs, "/dest/.zshrc")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCommitParallelWritesAllConfirmedEntries(t *testing.T) {
	root := gpath.MustAbsPath("/dest")
	fs := afero.NewMemMapFs()
	dest := newDestState(t, root, fs)
	store := journal.NewMemStore()
	w := NewAferoWriter(fs)

	a := entry.NewTargetFile(mustRel(t, "a"), []byte("A\n"), nil)
	b := entry.NewTargetFile(mustRel(t, "b"), []byte("B\n"), nil)
	plan := []PlanEntry{
		{Target: a, Dest: entry.DestEntry{Kind: entry.DestMissing}, Classification: diffengine.Latent},
		{Target: b, Dest: entry.DestEntry{Kind: entry.DestMissing}, Classification: diffengine.Latent},
	}

	stats, err := CommitParallel(root, plan, w, dest, nil, store, noPrompt{}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, stats.Written)

	ca, err := afero.ReadFile(fs, "/dest/a")
	require.NoError(t, err)
	assert.Equal(t, "A\n", string(ca))
}

func TestEffectiveFileModePreservesExistingModeWhenNoExplicitMode(t *testing.T) {
	mode := effectiveFileMode(nil, uint32Ptr(0o644))
	assert.Equal(t, uint32(0o644), mode)
}

func TestEffectiveFileModePrefersExplicitMode(t *testing.T) {
	mode := effectiveFileMode(uint32Ptr(0o755), uint32Ptr(0o644))
	assert.Equal(t, uint32(0o755), mode)
}

func TestEffectiveFileModeDefaultsToPrivateMode(t *testing.T) {
	mode := effectiveFileMode(nil, nil)
	assert.Equal(t, uint32(0o600), mode)
}

func uint32Ptr(v uint32) *uint32 { return &v }

type noPrompt struct{}

func (noPrompt) Prompt(PlanEntry) (Decision, error) { return DecisionOverride, nil }

type fixedPrompt struct{ decision Decision }

func (f fixedPrompt) Prompt(PlanEntry) (Decision, error) { return f.decision, nil }
