package ageio

import (
	"bytes"
	"encoding/base64"
	"regexp"
	"unicode/utf8"

	"filippo.io/age"
	"go.uber.org/zap"
)

// inlinePrefix is the sentinel marking an inline-encrypted substring
// (spec.md §6.3): "age:" followed by standard-alphabet base64.
const inlinePrefix = "age:"

// inlinePattern matches inlinePrefix greedily followed by a run of
// base64 characters. Because it is greedy and the base64 alphabet does
// not include ':', two adjacent inline tokens ("age:AAA" immediately
// followed by "age:BBB" with no separator) have the second token's
// "age" letters swallowed into the first match whenever the first
// token's payload carries no '=' padding to stop the run -- see
// scanOne's trim-back correction below, preserved bit-for-bit from
// original_source/crates/crypto/src/age.rs's decrypt_file_content.
var inlinePattern = regexp.MustCompile(inlinePrefix + `[A-Za-z0-9+/]+=*`)

// binarySniffLen is the window spec.md §4.2 step 4 and §4.4.4 define for
// "contains a NUL byte" binary detection.
const binarySniffLen = 8000

// LooksBinary reports whether content should be treated as binary: a NUL
// byte appears in the first binarySniffLen bytes.
func LooksBinary(content []byte) bool {
	n := len(content)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	for _, b := range content[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}

// match is one located+corrected inline pattern occurrence.
type match struct {
	start, end int // corrected end, i.e. the position scanning resumes from
	text       string
}

// scanOne finds the next inlinePattern occurrence at or after pos and
// applies the greedy-match trim-back correction: if the raw match ends
// with "age", "ag", or "a" immediately followed by the literal
// completing it into the next token's "age:" prefix, that trailing
// fragment is given back to the next token instead.
func scanOne(content string, pos int) (match, bool) {
	loc := inlinePattern.FindStringIndex(content[pos:])
	if loc == nil {
		return match{}, false
	}
	start, end := pos+loc[0], pos+loc[1]
	text := content[start:end]

	if end < len(content) {
		rest := content[end:]
		switch {
		case len(text) >= 3 && text[len(text)-3:] == "age" && len(rest) >= 1 && rest[0] == ':':
			text = text[:len(text)-3]
			end -= 3
		case len(text) >= 2 && text[len(text)-2:] == "ag" && len(rest) >= 2 && rest[:2] == "e:":
			text = text[:len(text)-2]
			end -= 2
		case len(text) >= 1 && text[len(text)-1:] == "a" && len(rest) >= 3 && rest[:3] == "ge:":
			text = text[:len(text)-1]
			end -= 1
		}
	}
	return match{start: start, end: end, text: text}, true
}

// DecryptInlineScan resolves every inline age:<base64> token in content
// to plaintext (spec.md §4.2 step 4). A token that fails to decrypt
// (wrong identity, malformed ciphertext, non-UTF8 result) is left
// unchanged in the output and logged at warn, rather than aborting the
// whole pass -- unless failOnError is set, in which case the first
// failure is returned as a hard error.
func DecryptInlineScan(content string, identities []age.Identity, failOnError bool, logger *zap.SugaredLogger) (string, error) {
	if len(identities) == 0 {
		return "", ErrNoIdentity
	}

	var out []byte
	pos := 0
	for {
		m, ok := scanOne(content, pos)
		if !ok {
			break
		}
		out = append(out, content[pos:m.start]...)

		plain, err := decryptInlineToken(m.text, identities)
		if err == nil && !utf8.Valid(plain) {
			err = ErrDecryptionFailed{Reason: "decrypted inline value is not valid UTF-8"}
		}
		if err != nil {
			if failOnError {
				return "", err
			}
			if logger != nil {
				logger.Warnf("ageio: failed to decrypt inline value at position %d: %v", m.start, err)
			}
			out = append(out, m.text...)
		} else {
			out = append(out, plain...)
		}
		pos = m.end
	}
	out = append(out, content[pos:]...)
	return string(out), nil
}

func decryptInlineToken(token string, identities []age.Identity) ([]byte, error) {
	b64 := token[len(inlinePrefix):]
	ciphertext, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, ErrDecryptionFailed{Reason: "invalid base64 encoding: " + err.Error()}
	}
	return DecryptWholeFile(ciphertext, identities)
}

// EncryptInlineToken encrypts plaintext to the compact age:<base64>
// inline form.
func EncryptInlineToken(plaintext []byte, recipients []age.Recipient) (string, error) {
	if len(recipients) == 0 {
		return "", ErrNoRecipients
	}
	ciphertext, err := encryptBinary(plaintext, recipients)
	if err != nil {
		return "", err
	}
	return inlinePrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

func encryptBinary(plaintext []byte, recipients []age.Recipient) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return nil, ErrDecryptionFailed{Reason: err.Error()}
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, ErrDecryptionFailed{Reason: err.Error()}
	}
	if err := w.Close(); err != nil {
		return nil, ErrDecryptionFailed{Reason: err.Error()}
	}
	return buf.Bytes(), nil
}

// RotateInline re-encrypts every inline token in content, decrypting
// with oldIdentities and re-encrypting with newRecipients. A token that
// fails to decrypt or re-encrypt is left unchanged and logged at warn
// (original_source/crates/crypto/src/age.rs's encrypt_file_content; see
// SPEC_FULL.md's supplemented-features list).
func RotateInline(content string, oldIdentities []age.Identity, newRecipients []age.Recipient, logger *zap.SugaredLogger) (string, error) {
	if len(newRecipients) == 0 {
		return "", ErrNoRecipients
	}
	if len(oldIdentities) == 0 {
		return "", ErrNoIdentity
	}

	var out []byte
	pos := 0
	for {
		m, ok := scanOne(content, pos)
		if !ok {
			break
		}
		out = append(out, content[pos:m.start]...)

		plain, err := decryptInlineToken(m.text, oldIdentities)
		if err != nil {
			if logger != nil {
				logger.Warnf("ageio: failed to rotate inline value at position %d: %v", m.start, err)
			}
			out = append(out, m.text...)
			pos = m.end
			continue
		}
		rotated, err := EncryptInlineToken(plain, newRecipients)
		if err != nil {
			if logger != nil {
				logger.Warnf("ageio: failed to re-encrypt inline value at position %d: %v", m.start, err)
			}
			out = append(out, m.text...)
			pos = m.end
			continue
		}
		out = append(out, rotated...)
		pos = m.end
	}
	out = append(out, content[pos:]...)
	return string(out), nil
}
