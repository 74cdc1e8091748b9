package gtemplate

import (
	"context"
	"fmt"
	"text/template"

	"github.com/PaulYuuu/guisu/pkg/vault"
)

// secretFuncs exposes the Bitwarden vault/secrets-manager lookups
// (spec.md §4.2's domain stack, grounded on original_source/crates/
// template/src/functions.rs's bitwarden/bitwardenFields/
// bitwardenAttachment/bitwardenSecrets), each deferring the actual CLI
// invocation and per-run caching to pkg/vault.
func (e *Engine) secretFuncs() template.FuncMap {
	return template.FuncMap{
		"bitwarden":           e.bitwardenFunc,
		"bitwardenFields":     e.bitwardenFieldsFunc,
		"bitwardenAttachment": e.bitwardenAttachmentFunc,
		"bitwardenSecrets":    e.bitwardenSecretsFunc,
	}
}

func (e *Engine) provider(name string) (vault.Provider, error) {
	return e.providers.Get(name)
}

// bitwardenFunc returns the entire decoded vault item, for dotted access
// in the template (e.g. bitwarden("Google" "bw").login.username).
func (e *Engine) bitwardenFunc(itemID, providerName string) (any, error) {
	p, err := e.provider(providerName)
	if err != nil {
		return nil, err
	}
	return fetchItem(p, itemID, providerName)
}

func fetchItem(p vault.Provider, itemID, providerName string) (any, error) {
	var cmdArgs []string
	if providerName == "rbw" {
		cmdArgs = []string{"get", "--raw", itemID}
	} else {
		cmdArgs = []string{"get", "item", itemID}
	}
	return p.Execute(context.Background(), cmdArgs)
}

// bitwardenFieldsFunc extracts a single field from an item's custom
// fields array, falling back to the username/password/notes shorthands
// original_source's get_single_field supports.
func (e *Engine) bitwardenFieldsFunc(itemID, fieldName, providerName string) (any, error) {
	p, err := e.provider(providerName)
	if err != nil {
		return nil, err
	}
	item, err := fetchItem(p, itemID, providerName)
	if err != nil {
		return nil, err
	}
	return extractField(item, fieldName)
}

func extractField(item any, fieldName string) (any, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("gtemplate: bitwarden item is not an object")
	}

	if fields, ok := obj["fields"].([]any); ok {
		for _, f := range fields {
			fm, ok := f.(map[string]any)
			if !ok {
				continue
			}
			if name, _ := fm["name"].(string); name == fieldName {
				return fm["value"], nil
			}
		}
	}

	switch fieldName {
	case "username":
		if login, ok := obj["login"].(map[string]any); ok {
			if v, ok := login["username"]; ok {
				return v, nil
			}
		}
	case "password":
		if login, ok := obj["login"].(map[string]any); ok {
			if v, ok := login["password"]; ok {
				return v, nil
			}
		}
	case "notes":
		if v, ok := obj["notes"]; ok {
			return v, nil
		}
	}

	return nil, fmt.Errorf("gtemplate: field %q not found in Bitwarden item", fieldName)
}

// bitwardenAttachmentFunc downloads an attachment's raw content. Only bw
// (the official CLI) supports attachments; rbw does not.
func (e *Engine) bitwardenAttachmentFunc(filename, itemID, providerName string) (string, error) {
	if providerName == "rbw" {
		return "", fmt.Errorf("gtemplate: bitwardenAttachment is not supported with rbw, use bw instead")
	}
	p, err := e.provider(providerName)
	if err != nil {
		return "", err
	}
	result, err := p.Execute(context.Background(), []string{"get", "attachment", filename, "--itemid", itemID, "--raw"})
	if err != nil {
		return "", err
	}
	s, _ := result.(string)
	return s, nil
}

// bitwardenSecretsFunc looks up an organization secret from Bitwarden
// Secrets Manager (bws), a separate store from the personal/team vault
// the other bitwarden* functions read.
func (e *Engine) bitwardenSecretsFunc(secretID string) (any, error) {
	p, err := e.provider("bws")
	if err != nil {
		return nil, err
	}
	return p.Execute(context.Background(), []string{"get", secretID})
}
