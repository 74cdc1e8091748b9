// Package diffengine implements the three-way classification table,
// status labels, and drift detection (spec.md §4.4.1-4.4.3), plus
// human-facing diff previews (§4.4.4).
package diffengine

import "github.com/PaulYuuu/guisu/pkg/hash"

// Classification is the outcome of comparing a target, destination, and
// journal-recorded hash for one path (spec.md §4.4.1's table).
type Classification uint8

const (
	NoChange Classification = iota
	LocalModification
	SourceUpdate
	TrueConflict
	Latent
)

func (c Classification) String() string {
	switch c {
	case NoChange:
		return "NoChange"
	case LocalModification:
		return "LocalModification"
	case SourceUpdate:
		return "SourceUpdate"
	case TrueConflict:
		return "TrueConflict"
	case Latent:
		return "Latent"
	default:
		return "Unknown"
	}
}

// Classify evaluates spec.md §4.4.1's table in order: hT is the
// prospective content's hash, hD the destination's (hash.Sum{} / IsZero
// when the destination is missing), hB the journal-recorded hash
// (hash.Sum{} / IsZero when no journal entry exists). modeDiffers
// reports whether the prospective and destination file modes disagree
// even though content hashes match -- per §4.4.1's mode-only-difference
// rule, that case reduces to SourceUpdate rather than NoChange.
func Classify(hT, hD, hB hash.Sum, destExists, modeDiffers bool) Classification {
	if !destExists {
		return Latent
	}
	if hT.Equal(hD) {
		if modeDiffers {
			return SourceUpdate
		}
		return NoChange
	}
	if hB.IsZero() {
		return LocalModification
	}
	if hD.Equal(hB) && !hB.Equal(hT) {
		return SourceUpdate
	}
	if hT.Equal(hB) && !hB.Equal(hD) {
		return LocalModification
	}
	return TrueConflict
}

// Status is the five user-facing labels exposed by the status command
// (spec.md §4.4.2), derived from the same Classification plus the
// destination-existence bit already folded into it.
type Status uint8

const (
	StatusSteady Status = iota
	StatusLatent
	StatusAhead
	StatusBehind
	StatusConflict
)

func (s Status) String() string {
	switch s {
	case StatusSteady:
		return "Steady"
	case StatusLatent:
		return "Latent"
	case StatusAhead:
		return "Ahead"
	case StatusBehind:
		return "Behind"
	case StatusConflict:
		return "Conflict"
	default:
		return "Unknown"
	}
}

// StatusFor maps a Classification to its user-facing Status label.
func StatusFor(c Classification) Status {
	switch c {
	case Latent:
		return StatusLatent
	case LocalModification:
		return StatusAhead
	case SourceUpdate:
		return StatusBehind
	case TrueConflict:
		return StatusConflict
	default:
		return StatusSteady
	}
}

// IsDrift reports whether c represents configuration drift: a
// TrueConflict found ahead of an unattended apply (spec.md §4.4.3).
func IsDrift(c Classification) bool { return c == TrueConflict }
