package journal

import (
	"encoding/json"

	"go.uber.org/zap"
)

// EntryRecord is the per-target-path value stored in BucketEntryState:
// the content hash and mode the engine last wrote, used by the diff
// engine as H_B (spec.md §4.4.1). JSON encoding (rather than a
// length-prefixed binary format) is self-describing: an added field
// zero-defaults on decode by an older build, and a removed field is
// simply ignored, satisfying §4.3.4/§8's upgrade-tolerance invariant
// without a schema registry.
type EntryRecord struct {
	ContentHash string  `json:"content_hash"`
	Mode        *uint32 `json:"mode,omitempty"`
}

// EncodeEntryRecord marshals r for storage.
func EncodeEntryRecord(r EntryRecord) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeEntryRecord unmarshals raw into an EntryRecord. On any decode
// failure it returns the zero value and logs once, treating the record
// as absent rather than propagating the error -- the journal upgrade
// invariant (spec.md §8) requires a corrupted or foreign-shaped record
// to degrade gracefully rather than abort the caller.
func DecodeEntryRecord(raw []byte, logger *zap.SugaredLogger) (EntryRecord, bool) {
	var r EntryRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		if logger != nil {
			logger.Warnf("journal: entry record failed to decode, treating as absent: %v", err)
		}
		return EntryRecord{}, false
	}
	return r, true
}

// HookRecord is the per-hook value stored in BucketHookState: Executed
// backs Once semantics, DefinitionHash backs OnChange semantics (spec.md
// §4.5.4's should_skip_hook contract, condensed to a single record per
// hook name rather than separate once/onchange maps -- the bucket is
// already keyed by hook name, so one record per key carries both).
type HookRecord struct {
	Executed       bool   `json:"executed"`
	DefinitionHash string `json:"definition_hash,omitempty"`
	LastRunUnix    int64  `json:"last_run_unix"`
}

// EncodeHookRecord marshals r for storage.
func EncodeHookRecord(r HookRecord) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeHookRecord mirrors DecodeEntryRecord's upgrade-tolerant decode.
func DecodeHookRecord(raw []byte, logger *zap.SugaredLogger) (HookRecord, bool) {
	var r HookRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		if logger != nil {
			logger.Warnf("journal: hook record failed to decode, treating as absent: %v", err)
		}
		return HookRecord{}, false
	}
	return r, true
}

// ConfigMetadata is the single value stored in BucketConfigMetadata
// under the key ".guisu.toml.j2": the rendered TOML text of a templated
// config file plus a hash of the template source it was rendered from,
// so an unchanged template can skip re-rendering (spec.md §6.1,
// original_source/crates/engine/src/state.rs's ConfigMetadata).
type ConfigMetadata struct {
	TemplateHash   string `json:"template_hash"`
	RenderedConfig string `json:"rendered_config"`
}

// EncodeConfigMetadata marshals m for storage.
func EncodeConfigMetadata(m ConfigMetadata) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeConfigMetadata mirrors DecodeEntryRecord's upgrade-tolerant decode.
func DecodeConfigMetadata(raw []byte, logger *zap.SugaredLogger) (ConfigMetadata, bool) {
	var m ConfigMetadata
	if err := json.Unmarshal(raw, &m); err != nil {
		if logger != nil {
			logger.Warnf("journal: config metadata failed to decode, treating as absent: %v", err)
		}
		return ConfigMetadata{}, false
	}
	return m, true
}
