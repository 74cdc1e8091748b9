// Package vault invokes external secret-manager CLIs (Bitwarden's bw/rbw)
// on behalf of the template engine's bitwarden()/bitwardenFields()/
// bitwardenAttachment() functions (spec.md §4.2, SPEC_FULL.md domain
// stack). It never talks to Bitwarden's API directly: every call shells
// out to a locally installed, already-authenticated CLI, mirroring
// original_source/crates/vault's provider-per-binary design.
package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"
)

// Provider executes a secret-lookup command and returns its decoded
// result. The concrete argv shape is provider-specific (bw vs rbw use
// different subcommands), which is why Execute takes an already-built
// argument list rather than a (itemType, itemID) pair.
type Provider interface {
	// Name is the provider identifier used in config and cache keys.
	Name() string
	// Execute runs the provider's CLI with the given arguments and
	// decodes its stdout as JSON, or as a raw string if cmdArgs asked
	// for --raw output (attachments, rbw's get --raw).
	Execute(ctx context.Context, cmdArgs []string) (any, error)
}

// defaultTimeout bounds how long a single CLI invocation may run before
// it is killed, preventing a hung vault process from stalling an entire
// apply run.
const defaultTimeout = 30 * time.Second

// execProvider is the shared implementation behind BwCLI and RbwCLI: run
// binary with args, capture stdout, and either JSON-decode it or return
// it as a trimmed string depending on raw.
type execProvider struct {
	name   string
	binary string
}

func (p execProvider) Name() string { return p.name }

func (p execProvider) run(ctx context.Context, args []string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrText := strings.TrimSpace(stderr.String())
		if strings.Contains(strings.ToLower(stderrText), "unlock") ||
			strings.Contains(strings.ToLower(stderrText), "unauthenticated") ||
			strings.Contains(strings.ToLower(stderrText), "not logged in") {
			return nil, ErrAuthenticationRequired{Reason: stderrText}
		}
		if stderrText == "" {
			stderrText = err.Error()
		}
		return nil, ErrCommandFailed{Args: args, Reason: stderrText}
	}
	return stdout.Bytes(), nil
}

// isRawInvocation reports whether cmdArgs requests raw (non-JSON)
// output, matching the --raw flag convention both bw and rbw use.
func isRawInvocation(cmdArgs []string) bool {
	for _, a := range cmdArgs {
		if a == "--raw" {
			return true
		}
	}
	return false
}

func (p execProvider) Execute(ctx context.Context, cmdArgs []string) (any, error) {
	out, err := p.run(ctx, cmdArgs)
	if err != nil {
		return nil, err
	}
	if isRawInvocation(cmdArgs) {
		return strings.TrimRight(string(out), "\n"), nil
	}

	var decoded any
	if err := json.Unmarshal(out, &decoded); err != nil {
		return nil, ErrCommandFailed{Args: cmdArgs, Reason: "invalid JSON output: " + err.Error()}
	}
	return decoded, nil
}

// NewBwCLI returns a Provider backed by the official Bitwarden CLI (bw).
func NewBwCLI() Provider { return execProvider{name: "bw", binary: "bw"} }

// NewRbwCLI returns a Provider backed by the unofficial Rust rbw client.
func NewRbwCLI() Provider { return execProvider{name: "rbw", binary: "rbw"} }

// NewBwsCLI returns a Provider backed by the Bitwarden Secrets Manager
// CLI (bws), a separate organization-secrets store from the bw/rbw
// personal vault.
func NewBwsCLI() Provider { return execProvider{name: "bws", binary: "bws"} }

// NewProvider resolves a provider name to its Provider, as
// original_source/crates/template/src/functions.rs's create_provider does.
func NewProvider(name string) (Provider, error) {
	switch name {
	case "bw":
		return NewBwCLI(), nil
	case "rbw":
		return NewRbwCLI(), nil
	case "bws":
		return NewBwsCLI(), nil
	default:
		return nil, ErrProviderNotAvailable{Name: name}
	}
}
