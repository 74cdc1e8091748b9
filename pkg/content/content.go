// Package content implements the per-file decrypt-then-render pipeline
// (spec.md §4.2): read raw bytes, optionally whole-file decrypt,
// optionally template-render, then scan the result for inline
// age:<base64> tokens. Every stage produces a typed error carrying the
// offending source path, so a batch of N files can fail independently
// without aborting the other N-1 (spec.md §4.2's failure semantics).
package content

import (
	"fmt"
	"os"
	"strings"

	"filippo.io/age"
	"go.uber.org/zap"

	"github.com/PaulYuuu/guisu/pkg/ageio"
	"github.com/PaulYuuu/guisu/pkg/attr"
	"github.com/PaulYuuu/guisu/pkg/gtemplate"
)

// Error wraps a pipeline-stage failure with the source path it occurred
// against, so a caller processing many files can report one actionable
// diagnostic per file (spec.md §4.2's "Failure semantics").
type Error struct {
	SourcePath string
	Stage      string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("content: %s: %s: %v", e.SourcePath, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Processor runs the five-step pipeline against a file's raw bytes.
type Processor struct {
	identities       []age.Identity
	engine           *gtemplate.Engine
	failOnDecryptErr bool
	logger           *zap.SugaredLogger
}

// New builds a Processor. failOnDecryptErr corresponds to spec.md
// §4.2's fail_on_decrypt_error policy flag (default true at the config
// layer; callers pass the resolved value here).
func New(identities []age.Identity, engine *gtemplate.Engine, failOnDecryptErr bool, logger *zap.SugaredLogger) *Processor {
	return &Processor{
		identities:       identities,
		engine:           engine,
		failOnDecryptErr: failOnDecryptErr,
		logger:           logger,
	}
}

// ProcessFile runs the pipeline against the file at absSourcePath,
// applying decryption and/or templating according to attrs, rendering
// against templateContext when attrs.IsTemplate().
func (p *Processor) ProcessFile(absSourcePath, sourceRelPath string, attrs attr.FileAttributes, templateContext map[string]any) ([]byte, error) {
	raw, err := os.ReadFile(absSourcePath)
	if err != nil {
		return nil, &Error{SourcePath: sourceRelPath, Stage: "read", Err: err}
	}

	data := raw
	if attrs.IsEncrypted() {
		decrypted, err := ageio.DecryptWholeFile(data, p.identities)
		if err != nil {
			return nil, &Error{SourcePath: sourceRelPath, Stage: "decrypt", Err: err}
		}
		data = decrypted
	}

	if attrs.IsTemplate() {
		rendered, err := p.engine.Render(sourceRelPath, string(data), templateContext)
		if err != nil {
			return nil, &Error{SourcePath: sourceRelPath, Stage: "render", Err: err}
		}
		data = []byte(rendered)
	}

	if !ageio.LooksBinary(data) && strings.Contains(string(data), "age:") {
		scanned, err := ageio.DecryptInlineScan(string(data), p.identities, p.failOnDecryptErr, p.logger)
		if err != nil {
			return nil, &Error{SourcePath: sourceRelPath, Stage: "inline-decrypt", Err: err}
		}
		data = []byte(scanned)
	}

	return data, nil
}

// ReEncryptInlineForWrite runs step 4 of §4.2 once more against content
// about to be written to disk, per §4.5's "Inline decryption at write
// time" rule: if inline decryption was deferred (no identities
// configured at build time but available now), disk contents must still
// end up plaintext free of stray age:<base64> tokens.
func (p *Processor) ReEncryptInlineForWrite(data []byte) ([]byte, error) {
	if len(p.identities) == 0 || ageio.LooksBinary(data) || !strings.Contains(string(data), "age:") {
		return data, nil
	}
	scanned, err := ageio.DecryptInlineScan(string(data), p.identities, p.failOnDecryptErr, p.logger)
	if err != nil {
		return nil, &Error{Stage: "inline-decrypt-at-write", Err: err}
	}
	return []byte(scanned), nil
}
