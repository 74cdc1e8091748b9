package vault

import "fmt"

// ErrProviderNotAvailable signals an unknown or unconfigured vault provider
// name (spec.md §4.2's bitwarden() family / SPEC_FULL.md domain stack).
type ErrProviderNotAvailable struct {
	Name string
}

func (e ErrProviderNotAvailable) Error() string {
	return fmt.Sprintf("vault: unknown provider %q, valid options: bw, rbw, bws", e.Name)
}

// ErrAuthenticationRequired signals the underlying CLI rejected the call
// because the vault is locked or no session token is present.
type ErrAuthenticationRequired struct {
	Reason string
}

func (e ErrAuthenticationRequired) Error() string {
	return fmt.Sprintf("vault: authentication required: %s", e.Reason)
}

// ErrCommandFailed wraps a non-zero exit from the underlying CLI.
type ErrCommandFailed struct {
	Args   []string
	Reason string
}

func (e ErrCommandFailed) Error() string {
	return fmt.Sprintf("vault: command %v failed: %s", e.Args, e.Reason)
}
