// Package apply implements the commit loop (spec.md §4.5.1-4.5.3,
// 4.5.5): filtering and planning a TargetState against the live
// destination, sequential or two-phase-parallel commit, and the
// single-syscall atomic write discipline.
package apply

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/PaulYuuu/guisu/pkg/deststate"
	"github.com/PaulYuuu/guisu/pkg/diffengine"
	"github.com/PaulYuuu/guisu/pkg/entry"
	"github.com/PaulYuuu/guisu/pkg/gpath"
	"github.com/PaulYuuu/guisu/pkg/hash"
	"github.com/PaulYuuu/guisu/pkg/journal"
	"github.com/PaulYuuu/guisu/pkg/targetstate"
)

// PlanEntry is one surviving, classified entry in an apply plan.
type PlanEntry struct {
	Target         entry.TargetEntry
	Dest           entry.DestEntry
	Classification diffengine.Classification
}

// Options controls planning (spec.md §4.5.1).
type Options struct {
	// PathFilters restricts the plan to target paths under one of these
	// prefixes (step 1); empty means every entry.
	PathFilters []string
	// CreateOnce is the persisted create-once set (spec.md §6.1's
	// .guisu/state.toml [create-once] files); a target path present here
	// is dropped from the plan once its destination already exists
	// (step 3).
	CreateOnce map[string]bool
}

// Build runs spec.md §4.5.1's four planning steps against target,
// consulting dest for existence/content and store's entry-state bucket
// for the journal-recorded base hash. The ignore matcher has already
// been applied upstream, during the source walk (spec.md §4.3.1).
func Build(target *targetstate.State, dest *deststate.State, store journal.Store, opts Options) ([]PlanEntry, error) {
	var plan []PlanEntry

	for _, te := range target.Entries() {
		targetPath := te.TargetPath.String()

		if !MatchesAnyFilter(opts.PathFilters, targetPath) {
			continue
		}

		relPath, err := gpath.NewRelPath(targetPath)
		if err != nil {
			return nil, fmt.Errorf("apply: planning %s: %w", targetPath, err)
		}
		de, err := dest.Read(relPath)
		if err != nil {
			return nil, fmt.Errorf("apply: reading destination for %s: %w", targetPath, err)
		}

		if opts.CreateOnce[targetPath] && de.Kind != entry.DestMissing {
			continue
		}

		classification, err := classify(te, de, store)
		if err != nil {
			return nil, fmt.Errorf("apply: classifying %s: %w", targetPath, err)
		}

		plan = append(plan, PlanEntry{Target: te, Dest: de, Classification: classification})
	}

	sort.Slice(plan, func(i, j int) bool {
		return plan[i].Target.TargetPath.String() < plan[j].Target.TargetPath.String()
	})
	return plan, nil
}

// classify applies spec.md §4.4.1's table. Directories and symlinks have
// no content hash to compare, so they classify on existence alone
// (Latent when the destination is missing, NoChange otherwise) --
// §4.4.1's table is phrased in terms of "target file" and the base-hash
// journal bucket only ever records file content, so there is no base
// state to three-way-compare a directory or symlink against.
func classify(te entry.TargetEntry, de entry.DestEntry, store journal.Store) (diffengine.Classification, error) {
	if te.Kind != entry.KindFile {
		if de.Kind == entry.DestMissing {
			return diffengine.Latent, nil
		}
		return diffengine.NoChange, nil
	}

	hT := hash.Of(te.Content)

	var hD hash.Sum
	if de.Kind == entry.DestFile {
		hD = hash.Of(de.Content)
	}

	var hB hash.Sum
	raw, found, err := store.Get(journal.BucketEntryState, te.TargetPath.String())
	if err != nil {
		return 0, err
	}
	if found {
		if rec, ok := journal.DecodeEntryRecord(raw, nil); ok {
			if decoded, derr := hashFromHex(rec.ContentHash); derr == nil {
				hB = decoded
			}
		}
	}

	modeDiffers := modesDiffer(te.Mode, de.Mode)
	return diffengine.Classify(hT, hD, hB, de.Kind != entry.DestMissing, modeDiffers), nil
}

// hashFromHex decodes a hex-encoded digest as produced by hash.Sum.String().
func hashFromHex(s string) (hash.Sum, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return hash.Sum{}, err
	}
	sum, ok := hash.FromBytes(b)
	if !ok {
		return hash.Sum{}, fmt.Errorf("apply: unexpected content hash length %d", len(b))
	}
	return sum, nil
}

// modesDiffer reports whether the prospective mode disagrees with the
// destination's current mode; an entry with no explicit mode (nil,
// meaning "inherit") never contributes a mode-only difference.
func modesDiffer(targetMode, destMode *uint32) bool {
	if targetMode == nil || destMode == nil {
		return false
	}
	return *targetMode != *destMode
}
