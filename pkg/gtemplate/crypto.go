package gtemplate

import (
	"fmt"
	"text/template"

	"filippo.io/age"

	"github.com/PaulYuuu/guisu/pkg/ageio"
)

// cryptoFilters exposes the encrypt/decrypt template filters (spec.md
// §4.2, original_source/crates/template/src/functions.rs's encrypt/
// decrypt) operating on the engine's configured identities: decrypt
// reads an inline age:<base64> token, encrypt produces one against
// encryptTarget so a value encrypted while editing a template stays
// decryptable by the identity that will later render it.
func (e *Engine) cryptoFilters() template.FuncMap {
	return template.FuncMap{
		"encrypt": e.encryptFilter,
		"decrypt": e.decryptFilter,
	}
}

func (e *Engine) decryptFilter(value string) (string, error) {
	if len(e.identities) == 0 {
		return "", fmt.Errorf("gtemplate: decrypt filter requires a configured age identity")
	}
	out, err := ageio.DecryptInlineScan(value, e.identities, true, e.logger)
	if err != nil {
		return "", fmt.Errorf("gtemplate: decrypt: %w", err)
	}
	return out, nil
}

func (e *Engine) encryptFilter(value string) (string, error) {
	if e.encryptTarget == nil {
		return "", fmt.Errorf(`gtemplate: encrypt filter requires a configured age identity

To fix this:
  1. Generate a new identity: guisu age generate
  2. Or configure an existing identity in your guisu config:

     [age]
     identity = "~/.ssh/id_ed25519"`)
	}
	token, err := ageio.EncryptInlineToken([]byte(value), []age.Recipient{e.encryptTarget})
	if err != nil {
		return "", fmt.Errorf("gtemplate: encrypt: %w", err)
	}
	return token, nil
}
