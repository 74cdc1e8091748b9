// Package sourcestate implements reading the source tree into a map of
// classified SourceEntry values (spec.md §4.3.1): a sequential
// filesystem walk (required by the walk itself, which cannot be
// parallelized without losing deterministic ignore-matching order),
// followed by parallel per-path classification.
package sourcestate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/PaulYuuu/guisu/pkg/attr"
	"github.com/PaulYuuu/guisu/pkg/entry"
	"github.com/PaulYuuu/guisu/pkg/gpath"
	"github.com/PaulYuuu/guisu/pkg/ignore"
)

// State is the read-only result of walking a source tree: an immutable
// map of SourceEntry keyed by its target path, for the duration of one
// command invocation.
type State struct {
	root    gpath.AbsPath
	entries map[string]entry.SourceEntry
}

// Root returns the source tree's root directory.
func (s *State) Root() gpath.AbsPath { return s.root }

// Get returns the SourceEntry whose TargetPath equals targetPath.
func (s *State) Get(targetPath string) (entry.SourceEntry, bool) {
	e, ok := s.entries[targetPath]
	return e, ok
}

// Entries returns every classified SourceEntry, in no particular order.
func (s *State) Entries() []entry.SourceEntry {
	out := make([]entry.SourceEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// Len returns the number of entries read.
func (s *State) Len() int { return len(s.entries) }

// SourceFilePath returns the absolute path of a SourceEntry's on-disk
// file, as stored (attribute suffixes still present).
func (s *State) SourceFilePath(sourcePath gpath.SourceRelPath) (gpath.AbsPath, error) {
	return s.root.Join(sourcePath.RelPath)
}

type candidate struct {
	absPath   string
	relPath   string // slash-separated, relative to root
	isDir     bool
	isSymlink bool
}

// Read walks root once (sequentially) collecting candidate paths,
// filtering with matcher if non-nil, then classifies every surviving
// path concurrently into a SourceEntry. A single invalid path or
// unreadable file aborts the whole read, matching the original engine's
// eager propagation (one bad source entry means the source tree itself
// cannot be trusted for this run).
func Read(root gpath.AbsPath, matcher *ignore.Matcher) (*State, error) {
	rootStr := root.String()
	var candidates []candidate

	err := filepath.WalkDir(rootStr, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("sourcestate: walking %s: %w", p, err)
		}
		if p == rootStr {
			return nil
		}

		rel, rerr := filepath.Rel(rootStr, p)
		if rerr != nil {
			return fmt.Errorf("sourcestate: %s is not under %s: %w", p, rootStr, rerr)
		}
		rel = filepath.ToSlash(rel)

		isSymlink := d.Type()&fs.ModeSymlink != 0
		isDir := d.IsDir() && !isSymlink

		if matcher != nil && matcher.Match(rel, isDir) {
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}

		candidates = append(candidates, candidate{absPath: p, relPath: rel, isDir: isDir, isSymlink: isSymlink})
		return nil
	})
	if err != nil {
		return nil, err
	}

	type result struct {
		e   entry.SourceEntry
		err error
	}
	results := make([]result, len(candidates))

	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, c candidate) {
			defer wg.Done()
			defer func() { <-sem }()
			e, err := classify(c)
			results[i] = result{e: e, err: err}
		}(i, c)
	}
	wg.Wait()

	entries := make(map[string]entry.SourceEntry, len(candidates))
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		entries[r.e.TargetPath.String()] = r.e
	}

	return &State{root: root, entries: entries}, nil
}

// decodeTargetPath strips attribute suffixes from every path component
// independently (not just the leaf), so a file nested under an
// attribute-bearing directory name still resolves a clean target path.
func decodeTargetPath(relPath string) string {
	parts := strings.Split(relPath, "/")
	for i, p := range parts {
		_, name := attr.ParseFromSource(p, nil)
		parts[i] = name
	}
	return path.Join(parts...)
}

func classify(c candidate) (entry.SourceEntry, error) {
	sourceRel, err := gpath.NewSourceRelPath(c.relPath)
	if err != nil {
		return entry.SourceEntry{}, fmt.Errorf("sourcestate: %s: %w", c.relPath, err)
	}

	targetRel, err := gpath.NewRelPath(decodeTargetPath(c.relPath))
	if err != nil {
		return entry.SourceEntry{}, fmt.Errorf("sourcestate: %s: invalid target path: %w", c.relPath, err)
	}

	baseName := path.Base(c.relPath)

	if c.isSymlink {
		linkDest, err := os.Readlink(c.absPath)
		if err != nil {
			return entry.SourceEntry{}, fmt.Errorf("sourcestate: reading symlink %s: %w", c.relPath, err)
		}
		linkRel, err := gpath.NewRelPath(filepath.ToSlash(linkDest))
		if err != nil {
			return entry.SourceEntry{}, fmt.Errorf("sourcestate: symlink %s has an unsupported target %q: %w", c.relPath, linkDest, err)
		}
		attrs, _ := attr.ParseFromSource(baseName, nil)
		return entry.NewSourceSymlink(sourceRel, targetRel, linkRel, attrs), nil
	}

	if c.isDir {
		attrs, _ := attr.ParseFromSource(baseName, nil)
		return entry.NewSourceDirectory(sourceRel, targetRel, attrs), nil
	}

	mode, err := statMode(c.absPath)
	if err != nil {
		return entry.SourceEntry{}, fmt.Errorf("sourcestate: stat %s: %w", c.relPath, err)
	}
	attrs, _ := attr.ParseFromSource(baseName, mode)
	return entry.NewSourceFile(sourceRel, targetRel, attrs), nil
}

// statMode returns the Unix permission bits of absPath, or nil on
// platforms where they are not meaningful (attr.ParseFromSource treats
// a nil mode as "no permission-derived flags").
func statMode(absPath string) (*uint32, error) {
	if runtime.GOOS == "windows" {
		return nil, nil
	}
	info, err := os.Lstat(absPath)
	if err != nil {
		return nil, err
	}
	m := uint32(info.Mode().Perm())
	return &m, nil
}
