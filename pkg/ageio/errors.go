package ageio

import "fmt"

// ErrNoIdentity is returned when an inline or whole-file decrypt is
// attempted with zero configured identities (spec.md §4.2/§7).
var ErrNoIdentity = fmt.Errorf("ageio: no identities configured")

// ErrNoRecipients is returned when an encrypt/rotate is attempted with
// zero configured recipients.
var ErrNoRecipients = fmt.Errorf("ageio: no recipients configured")

// ErrWrongKey signals that decryption failed because none of the
// configured identities match the ciphertext's recipient stanzas.
type ErrWrongKey struct{}

func (ErrWrongKey) Error() string { return "ageio: no identity matches this ciphertext" }

// ErrDecryptionFailed wraps a malformed-ciphertext or I/O failure during
// decryption, preserving the underlying reason for diagnostics.
type ErrDecryptionFailed struct {
	Reason string
}

func (e ErrDecryptionFailed) Error() string {
	return fmt.Sprintf("ageio: decryption failed: %s", e.Reason)
}

// ErrExcessiveWork signals a scrypt work-factor far beyond what a
// legitimate passphrase-encrypted file would use (a DoS guard age itself
// enforces and that we surface distinctly per spec.md §7's taxonomy).
type ErrExcessiveWork struct{}

func (ErrExcessiveWork) Error() string { return "ageio: excessive work factor required to decrypt" }
