// Package targetstate builds the prospective destination view from a
// source tree (spec.md §4.3.3): every SourceEntry runs through the
// content pipeline (pkg/content) against a shared template context,
// producing a TargetEntry. Per-entry failures are collected rather than
// aborting the whole build, matching the content pipeline's own
// per-file error isolation.
package targetstate

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/PaulYuuu/guisu/pkg/content"
	"github.com/PaulYuuu/guisu/pkg/entry"
	"github.com/PaulYuuu/guisu/pkg/gpath"
)

// SourceState is the minimal view of pkg/sourcestate.State that Build
// needs, kept as an interface so tests can supply a fixture without
// walking a real tree.
type SourceState interface {
	Entries() []entry.SourceEntry
	SourceFilePath(sourcePath gpath.SourceRelPath) (gpath.AbsPath, error)
}

// BuildError reports one SourceEntry that failed to process, keyed by
// its target path so a caller can report all failures from one build in
// a single pass.
type BuildError struct {
	TargetPath string
	Err        error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("targetstate: %s: %v", e.TargetPath, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// State is the built map of TargetEntry keyed by target path, plus the
// errors collected along the way.
type State struct {
	entries map[string]entry.TargetEntry
	Errors  []*BuildError
}

// Get returns the TargetEntry at targetPath.
func (s *State) Get(targetPath string) (entry.TargetEntry, bool) {
	e, ok := s.entries[targetPath]
	return e, ok
}

// Entries returns every built TargetEntry in target-path sorted order,
// for deterministic plan output (spec.md §4.5.1 step 4 relies on the
// same ordering downstream).
func (s *State) Entries() []entry.TargetEntry {
	out := make([]entry.TargetEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetPath.String() < out[j].TargetPath.String() })
	return out
}

// Len returns the number of successfully built entries.
func (s *State) Len() int { return len(s.entries) }

// Build runs the content pipeline over every entry in src, in parallel,
// against the shared templateContext. A processing failure for one
// entry is recorded in the returned State.Errors and does not prevent
// the other entries from building (spec.md §4.3.3).
func Build(src SourceState, processor *content.Processor, templateContext map[string]any) (*State, error) {
	entries := src.Entries()

	type result struct {
		ok   entry.TargetEntry
		err  *BuildError
		skip bool
	}
	results := make([]result, len(entries))

	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup
	for i, se := range entries {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, se entry.SourceEntry) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = processOne(src, processor, se, templateContext)
		}(i, se)
	}
	wg.Wait()

	state := &State{entries: make(map[string]entry.TargetEntry, len(entries))}
	for _, r := range results {
		if r.skip {
			continue
		}
		if r.err != nil {
			state.Errors = append(state.Errors, r.err)
			continue
		}
		state.entries[r.ok.TargetPath.String()] = r.ok
	}
	return state, nil
}

func processOne(src SourceState, processor *content.Processor, se entry.SourceEntry, templateContext map[string]any) (result struct {
	ok   entry.TargetEntry
	err  *BuildError
	skip bool
}) {
	switch se.Kind {
	case entry.KindDirectory:
		mode, hasMode := se.Attributes.Mode()
		var modePtr *uint32
		if hasMode {
			modePtr = &mode
		}
		result.ok = entry.NewTargetDirectory(se.TargetPath, modePtr)
		return result

	case entry.KindSymlink:
		result.ok = entry.NewTargetSymlink(se.TargetPath, se.LinkTarget)
		return result

	case entry.KindFile:
		absPath, err := src.SourceFilePath(se.SourcePath)
		if err != nil {
			result.err = &BuildError{TargetPath: se.TargetPath.String(), Err: err}
			return result
		}

		data, err := processor.ProcessFile(absPath.String(), se.SourcePath.String(), se.Attributes, templateContext)
		if err != nil {
			result.err = &BuildError{TargetPath: se.TargetPath.String(), Err: err}
			return result
		}

		mode, hasMode := se.Attributes.Mode()
		var modeOut *uint32
		if hasMode {
			modeOut = &mode
		}
		result.ok = entry.NewTargetFile(se.TargetPath, data, modeOut)
		return result

	default:
		result.err = &BuildError{TargetPath: se.TargetPath.String(), Err: fmt.Errorf("targetstate: unknown source kind %s", se.Kind)}
		return result
	}
}
