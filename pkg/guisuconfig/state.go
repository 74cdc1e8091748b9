package guisuconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// stateFile mirrors `.guisu/state.toml`'s shape (spec.md §6.1,
// original_source/crates/engine/src/state.rs's Metadata/CreateOnceConfig).
type stateFile struct {
	CreateOnce struct {
		Files []string `toml:"files"`
	} `toml:"create-once"`
}

// LoadCreateOnce reads `.guisu/state.toml`'s [create-once] files list
// into the set shape apply.Options.CreateOnce expects. A missing file
// is not an error; it returns an empty set.
func LoadCreateOnce(sourceDir string) (map[string]bool, error) {
	path := filepath.Join(sourceDir, ".guisu", "state.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("guisuconfig: reading %s: %w", path, err)
	}

	var f stateFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("guisuconfig: parsing %s: %w", path, err)
	}

	out := make(map[string]bool, len(f.CreateOnce.Files))
	for _, p := range f.CreateOnce.Files {
		out[p] = true
	}
	return out, nil
}
