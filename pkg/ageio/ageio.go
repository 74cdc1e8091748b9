// Package ageio implements the age-encryption half of the content
// processor (spec.md §4.2 steps 2 and 4): whole-file decrypt/encrypt
// with auto-detected ASCII armor, and inline age:<base64> scan/decrypt/
// encrypt with the exact greedy-match quirk preserved from the original
// Rust implementation (original_source/crates/crypto/src/age.rs).
package ageio

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

const armorHeader = "-----BEGIN AGE ENCRYPTED FILE-----"

// DecryptWholeFile decrypts data, auto-detecting ASCII-armored vs binary
// age format, against the given identities.
func DecryptWholeFile(data []byte, identities []age.Identity) ([]byte, error) {
	if len(identities) == 0 {
		return nil, ErrNoIdentity
	}

	var r io.Reader = bytes.NewReader(data)
	if looksArmored(data) {
		r = armor.NewReader(r)
	}

	dec, err := age.Decrypt(r, identities...)
	if err != nil {
		return nil, mapDecryptError(err)
	}
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, mapDecryptError(err)
	}
	return out, nil
}

// EncryptWholeFile encrypts data to the given recipients, producing
// ASCII-armored output (the on-disk .age convention).
func EncryptWholeFile(data []byte, recipients []age.Recipient) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	var buf bytes.Buffer
	armorWriter := armor.NewWriter(&buf)
	w, err := age.Encrypt(armorWriter, recipients...)
	if err != nil {
		return nil, ErrDecryptionFailed{Reason: err.Error()}
	}
	if _, err := w.Write(data); err != nil {
		return nil, ErrDecryptionFailed{Reason: err.Error()}
	}
	if err := w.Close(); err != nil {
		return nil, ErrDecryptionFailed{Reason: err.Error()}
	}
	if err := armorWriter.Close(); err != nil {
		return nil, ErrDecryptionFailed{Reason: err.Error()}
	}
	return buf.Bytes(), nil
}

func looksArmored(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte(armorHeader))
}

func mapDecryptError(err error) error {
	if err == nil {
		return nil
	}
	var noMatch *age.NoIdentityMatchError
	if errors.As(err, &noMatch) {
		return ErrWrongKey{}
	}
	msg := err.Error()
	if strings.Contains(msg, "no identity matched") || strings.Contains(msg, "incorrect identity") {
		return ErrWrongKey{}
	}
	if strings.Contains(msg, "excessive work") {
		return ErrExcessiveWork{}
	}
	return ErrDecryptionFailed{Reason: msg}
}
