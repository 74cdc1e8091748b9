// Package addflow implements `guisu add`: importing an on-disk file,
// symlink, or directory into the source tree under its `root_entry`
// subdirectory (spec.md §4.5.6), with symlink-safe canonicalization,
// secret scanning, autotemplate substitution, suffix encoding, and
// force-overwrite handling, ported from
// original_source/crates/cli/src/cmd/add.rs.
package addflow

import "fmt"

// SecretsMode controls what happens when DetectSecrets finds a
// plausible secret in a file being added.
type SecretsMode string

const (
	SecretsIgnore  SecretsMode = "ignore"
	SecretsWarning SecretsMode = "warning"
	SecretsError   SecretsMode = "error"
)

// ParseSecretsMode validates a --secrets flag value.
func ParseSecretsMode(s string) (SecretsMode, error) {
	switch SecretsMode(s) {
	case SecretsIgnore, SecretsWarning, SecretsError:
		return SecretsMode(s), nil
	default:
		return "", fmt.Errorf("addflow: invalid secrets mode %q: must be one of ignore, warning, error", s)
	}
}

// Options mirrors the original's AddOptions (spec.md §4.5.6).
type Options struct {
	Template     bool
	Autotemplate bool
	Encrypt      bool
	CreateOnce   bool
	Force        bool
	Secrets      SecretsMode
}
