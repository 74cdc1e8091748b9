// Package gtemplate is the rendering half of the content processor
// (spec.md §4.2 step 3): a text/template engine enriched with the
// capability-function catalog original_source/crates/template/src/
// functions.rs exposes to minijinja, reimplemented as Go template
// FuncMap entries. Secrets and inline crypto are wired through
// pkg/vault and pkg/ageio rather than reinvented here.
package gtemplate

import (
	"bytes"
	"fmt"
	"text/template"

	"filippo.io/age"
	"github.com/go-sprout/sprout"
	"go.uber.org/zap"

	"github.com/PaulYuuu/guisu/pkg/gpath"
	"github.com/PaulYuuu/guisu/pkg/vault"
)

// Engine renders a single source file's template body, carrying the
// ambient capabilities (source tree root for include(), configured age
// identities for encrypt/decrypt filters, vault provider registry for
// bitwarden* functions) every template invocation may reach for.
type Engine struct {
	sourceDir     gpath.AbsPath
	identities    []age.Identity
	encryptTarget age.Recipient // the recipient encrypt() writes to, usually identities[0]'s own public key
	providers     *vault.Registry
	logger        *zap.SugaredLogger
}

// New builds an Engine rooted at sourceDir. identities may be empty; any
// template that then calls decrypt will fail with a clear error rather
// than silently no-op. encryptTarget is the recipient the encrypt()
// filter encrypts to -- normally the first configured identity's own
// public key, so a value a user encrypts while editing is still
// decryptable by that same identity on the next run.
func New(sourceDir gpath.AbsPath, identities []age.Identity, encryptTarget age.Recipient, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		sourceDir:     sourceDir,
		identities:    identities,
		encryptTarget: encryptTarget,
		providers:     vault.NewRegistry(),
		logger:        logger,
	}
}

// Render executes templateText (a file's decrypted body, spec.md §4.2
// step 3) against data, returning the rendered output. name is used only
// for error messages (typically the file's source-relative path).
func (e *Engine) Render(name, templateText string, data map[string]any) (string, error) {
	tmpl, err := template.New(name).Funcs(e.funcMap()).Parse(templateText)
	if err != nil {
		return "", fmt.Errorf("gtemplate: parse %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("gtemplate: render %s: %w", name, err)
	}
	return buf.String(), nil
}

// funcMap assembles the full function catalog: sprout's generic
// string/slice/codec registry (the sprig successor, per SPEC_FULL.md's
// domain stack) as the base layer, overlaid with this engine's
// capability-aware functions (env, include, bitwarden*, encrypt/decrypt)
// that need access to Engine state and so cannot live in a generic
// registry.
func (e *Engine) funcMap() template.FuncMap {
	fm := template.FuncMap{}
	for name, fn := range sprout.New().Build() {
		fm[name] = fn
	}
	for name, fn := range stringFilters() {
		fm[name] = fn
	}
	for name, fn := range e.capabilityFuncs() {
		fm[name] = fn
	}
	for name, fn := range e.secretFuncs() {
		fm[name] = fn
	}
	for name, fn := range e.cryptoFilters() {
		fm[name] = fn
	}
	return fm
}
