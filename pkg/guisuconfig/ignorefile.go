package guisuconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/PaulYuuu/guisu/pkg/ignore"
)

// ignoresFile mirrors `.guisu/ignores.toml`'s shape (spec.md §6.1): flat
// per-platform pattern lists, same field names as the config file's
// [ignore] section.
type ignoresFile struct {
	Global  []string `toml:"global"`
	Darwin  []string `toml:"darwin"`
	Linux   []string `toml:"linux"`
	Windows []string `toml:"windows"`
}

// LoadIgnores reads sourceDir's `.guisu/ignores.toml` if present and
// returns an ignore.Config with its patterns appended after the config
// file's own [ignore] patterns (original_source's load_with_variables:
// ".guisu/ignores.toml patterns are appended to config file patterns").
// A missing file is not an error -- it returns cfgIgnore unchanged.
func LoadIgnores(sourceDir string, cfgIgnore IgnoreConfig) (ignore.Config, error) {
	out := ignore.Config{
		Global:  append([]string(nil), cfgIgnore.Global...),
		Darwin:  append([]string(nil), cfgIgnore.Darwin...),
		Linux:   append([]string(nil), cfgIgnore.Linux...),
		Windows: append([]string(nil), cfgIgnore.Windows...),
	}

	path := filepath.Join(sourceDir, ".guisu", "ignores.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return ignore.Config{}, fmt.Errorf("guisuconfig: reading %s: %w", path, err)
	}

	var f ignoresFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return ignore.Config{}, fmt.Errorf("guisuconfig: parsing %s: %w", path, err)
	}

	out.Global = append(out.Global, f.Global...)
	out.Darwin = append(out.Darwin, f.Darwin...)
	out.Linux = append(out.Linux, f.Linux...)
	out.Windows = append(out.Windows, f.Windows...)
	return out, nil
}
