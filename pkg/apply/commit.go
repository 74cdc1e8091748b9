package apply

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/PaulYuuu/guisu/pkg/content"
	"github.com/PaulYuuu/guisu/pkg/deststate"
	"github.com/PaulYuuu/guisu/pkg/diffengine"
	"github.com/PaulYuuu/guisu/pkg/entry"
	"github.com/PaulYuuu/guisu/pkg/gpath"
	"github.com/PaulYuuu/guisu/pkg/hash"
	"github.com/PaulYuuu/guisu/pkg/journal"
)

// Decision is the user's response to an interactive prompt for one plan
// entry (spec.md §4.5.2).
type Decision int

const (
	DecisionDiff Decision = iota
	DecisionOverride
	DecisionSkip
	DecisionAllSkip
	DecisionAllOverride
	DecisionQuit
)

// Prompter asks the user (or simulates an answer in dry-run mode) what
// to do about one plan entry. On a Diff response the commit loop calls
// Prompt again until a non-Diff decision is returned; the commit loop
// itself does not print a preview.
type Prompter interface {
	Prompt(pe PlanEntry) (Decision, error)
}

// needsConfirmation reports whether a classification requires the user
// to be asked before the entry is written (spec.md §4.5.2: every
// LocalModification or TrueConflict).
func needsConfirmation(c diffengine.Classification) bool {
	return c == diffengine.LocalModification || c == diffengine.TrueConflict
}

// Stats summarizes one commit invocation's outcome.
type Stats struct {
	Written []string
	Skipped []string
	Errors  []error
	Quit    bool
}

func (s *Stats) recordError(targetPath string, err error) {
	s.Errors = append(s.Errors, fmt.Errorf("%s: %w", targetPath, err))
}

// writeOutcome is the per-entry product of a successful write, carried
// forward to the batched journal commit.
type writeOutcome struct {
	targetPath string
	content    []byte
	mode       *uint32
}

func toJournalRecord(o writeOutcome) (journal.KV, error) {
	rec := journal.EntryRecord{ContentHash: hash.Of(o.content).String(), Mode: o.mode}
	raw, err := journal.EncodeEntryRecord(rec)
	if err != nil {
		return journal.KV{}, fmt.Errorf("apply: encoding journal record for %s: %w", o.targetPath, err)
	}
	return journal.KV{Key: o.targetPath, Value: raw}, nil
}

// CommitSequential runs the interactive/dry-run path (spec.md §4.5.2):
// per entry, classify (already done by Build), prompt if needed, act.
// dryRun suppresses all filesystem writes while still exercising the
// prompt flow, so a dry-run's reported decisions match what a real
// apply would do.
func CommitSequential(root gpath.AbsPath, plan []PlanEntry, w Writer, dest *deststate.State, processor *content.Processor, store journal.Store, prompter Prompter, dryRun bool, logger *zap.SugaredLogger) (*Stats, error) {
	stats := &Stats{}
	var pending []writeOutcome

	forceSkip := false
	forceOverride := false

	for _, pe := range plan {
		targetPath := pe.Target.TargetPath.String()

		if pe.Classification == diffengine.NoChange {
			continue
		}

		act := true
		if needsConfirmation(pe.Classification) && !forceSkip && !forceOverride {
			decision, err := resolveDecision(prompter, pe)
			if err != nil {
				stats.recordError(targetPath, err)
				continue
			}
			switch decision {
			case DecisionSkip:
				act = false
			case DecisionAllSkip:
				forceSkip = true
				act = false
			case DecisionOverride:
				// proceed
			case DecisionAllOverride:
				forceOverride = true
			case DecisionQuit:
				stats.Quit = true
				return stats, nil
			}
		} else if needsConfirmation(pe.Classification) && forceSkip {
			act = false
		}

		if !act {
			stats.Skipped = append(stats.Skipped, targetPath)
			continue
		}

		if dryRun {
			stats.Written = append(stats.Written, targetPath)
			continue
		}

		outcome, err := commitOne(root, pe, w, dest, processor)
		if err != nil {
			stats.recordError(targetPath, err)
			continue
		}
		stats.Written = append(stats.Written, targetPath)
		if outcome != nil {
			pending = append(pending, *outcome)
		}
	}

	if !dryRun && len(pending) > 0 {
		if err := commitJournal(store, pending); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func resolveDecision(prompter Prompter, pe PlanEntry) (Decision, error) {
	for {
		decision, err := prompter.Prompt(pe)
		if err != nil {
			return DecisionSkip, err
		}
		if decision != DecisionDiff {
			return decision, nil
		}
	}
}

// CommitParallel runs the two-phase parallel path (spec.md §4.5.2):
// phase 1 sequentially collects confirmations for every entry requiring
// one; phase 2 writes every confirmed entry concurrently, bounded to
// runtime.NumCPU() in flight at once.
func CommitParallel(root gpath.AbsPath, plan []PlanEntry, w Writer, dest *deststate.State, processor *content.Processor, store journal.Store, prompter Prompter, logger *zap.SugaredLogger) (*Stats, error) {
	stats := &Stats{}

	type job struct {
		pe PlanEntry
	}
	var jobs []job

	forceSkip := false
	forceOverride := false

	for _, pe := range plan {
		targetPath := pe.Target.TargetPath.String()
		if pe.Classification == diffengine.NoChange {
			continue
		}

		if needsConfirmation(pe.Classification) {
			if forceSkip {
				stats.Skipped = append(stats.Skipped, targetPath)
				continue
			}
			if !forceOverride {
				decision, err := resolveDecision(prompter, pe)
				if err != nil {
					stats.recordError(targetPath, err)
					continue
				}
				switch decision {
				case DecisionSkip:
					stats.Skipped = append(stats.Skipped, targetPath)
					continue
				case DecisionAllSkip:
					forceSkip = true
					stats.Skipped = append(stats.Skipped, targetPath)
					continue
				case DecisionAllOverride:
					forceOverride = true
				case DecisionOverride:
					// proceed
				case DecisionQuit:
					stats.Quit = true
					return stats, nil
				}
			}
		}

		jobs = append(jobs, job{pe: pe})
	}

	type result struct {
		targetPath string
		outcome    *writeOutcome
		err        error
	}
	results := make([]result, len(jobs))

	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, j job) {
			defer wg.Done()
			defer func() { <-sem }()
			outcome, err := commitOne(root, j.pe, w, dest, processor)
			results[i] = result{targetPath: j.pe.Target.TargetPath.String(), outcome: outcome, err: err}
		}(i, j)
	}
	wg.Wait()

	var pending []writeOutcome
	for _, r := range results {
		if r.err != nil {
			stats.recordError(r.targetPath, r.err)
			continue
		}
		stats.Written = append(stats.Written, r.targetPath)
		if r.outcome != nil {
			pending = append(pending, *r.outcome)
		}
	}

	if len(pending) > 0 {
		if err := commitJournal(store, pending); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func commitOne(root gpath.AbsPath, pe PlanEntry, w Writer, dest *deststate.State, processor *content.Processor) (*writeOutcome, error) {
	absPath := root.JoinUnsafe(pe.Target.TargetPath)

	data, mode, err := writeEntry(w, absPath.String(), pe, processor)
	if err != nil {
		return nil, err
	}

	dest.InvalidatePath(pe.Target.TargetPath)

	if pe.Target.Kind != entry.KindFile {
		return nil, nil
	}
	return &writeOutcome{targetPath: pe.Target.TargetPath.String(), content: data, mode: mode}, nil
}

// commitJournal persists every successful write's entry-state record in
// one batched transaction (spec.md §4.5.2's "after the loop, all records
// are persisted in one batched transaction").
func commitJournal(store journal.Store, pending []writeOutcome) error {
	pairs := make([]journal.KV, 0, len(pending))
	for _, o := range pending {
		kv, err := toJournalRecord(o)
		if err != nil {
			return err
		}
		pairs = append(pairs, kv)
	}
	if err := store.SetBatch(journal.BucketEntryState, pairs); err != nil {
		return fmt.Errorf("apply: committing journal batch: %w", err)
	}
	return nil
}
