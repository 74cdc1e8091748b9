// Package deststate implements the lazy, cached view of the live
// destination filesystem (spec.md §4.3.2): DestinationState.Read(path)
// returns a cached DestEntry if present, else materializes one through
// the System capability. Hashing/reading may proceed concurrently for
// distinct paths, so the cache is guarded by a single mutex rather than
// one lock per path -- contention is expected to be low since distinct
// paths rarely collide, and a single mutex keeps the read-then-insert
// sequence race-free without a lock-striping scheme the spec does not
// ask for.
package deststate

import (
	"fmt"
	"sync"

	"github.com/PaulYuuu/guisu/pkg/entry"
	"github.com/PaulYuuu/guisu/pkg/gpath"
)

// State is the cached view of one destination tree rooted at root.
type State struct {
	root   gpath.AbsPath
	system System

	mu    sync.Mutex
	cache map[string]entry.DestEntry
}

// New builds a State rooted at root, backed by system.
func New(root gpath.AbsPath, system System) *State {
	return &State{root: root, system: system, cache: make(map[string]entry.DestEntry)}
}

// Root returns the destination tree's root directory.
func (s *State) Root() gpath.AbsPath { return s.root }

// Read returns the DestEntry at relPath, reading through to System and
// caching the result on first access. Concurrent calls for distinct
// paths proceed without serializing on each other's filesystem I/O
// beyond the brief cache-map critical section.
func (s *State) Read(relPath gpath.RelPath) (entry.DestEntry, error) {
	key := relPath.String()

	s.mu.Lock()
	if cached, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	absPath, err := s.root.Join(relPath)
	if err != nil {
		return entry.DestEntry{}, fmt.Errorf("deststate: resolving %s: %w", key, err)
	}

	e, err := s.readEntry(relPath, absPath)
	if err != nil {
		return entry.DestEntry{}, err
	}

	s.mu.Lock()
	s.cache[key] = e
	s.mu.Unlock()
	return e, nil
}

// Get returns a previously cached entry without touching the
// filesystem, for callers that already know Read was called.
func (s *State) Get(relPath gpath.RelPath) (entry.DestEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache[relPath.String()]
	return e, ok
}

// InvalidatePath drops relPath from the cache, for use after an apply
// step writes to the destination and the next read must observe the new
// state rather than a stale pre-write snapshot.
func (s *State) InvalidatePath(relPath gpath.RelPath) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, relPath.String())
}

func (s *State) readEntry(relPath gpath.RelPath, absPath gpath.AbsPath) (entry.DestEntry, error) {
	if !s.system.Exists(absPath) {
		return entry.DestEntry{Kind: entry.DestMissing, Path: relPath}, nil
	}

	info, err := s.system.Metadata(absPath)
	if err != nil {
		return entry.DestEntry{}, fmt.Errorf("deststate: reading metadata for %s: %w", relPath.String(), err)
	}

	if info.IsDir() {
		mode := modePtr(info)
		return entry.DestEntry{Kind: entry.DestDirectory, Path: relPath, Mode: mode}, nil
	}

	if info.Mode()&modeSymlinkBit != 0 {
		target, err := s.system.ReadLink(absPath)
		if err != nil {
			return entry.DestEntry{}, fmt.Errorf("deststate: reading symlink %s: %w", relPath.String(), err)
		}
		linkRel, err := gpath.NewRelPath(target)
		if err != nil {
			return entry.DestEntry{}, fmt.Errorf("deststate: symlink %s has an unsupported target %q: %w", relPath.String(), target, err)
		}
		return entry.DestEntry{Kind: entry.DestSymlink, Path: relPath, LinkTarget: linkRel}, nil
	}

	content, err := s.system.ReadFile(absPath)
	if err != nil {
		return entry.DestEntry{}, fmt.Errorf("deststate: reading file %s: %w", relPath.String(), err)
	}
	mode := modePtr(info)
	return entry.DestEntry{Kind: entry.DestFile, Path: relPath, Content: content, Mode: mode}, nil
}
