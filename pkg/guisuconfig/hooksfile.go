package guisuconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/PaulYuuu/guisu/pkg/hooks"
)

// LoadHooks merges every `.guisu/hooks/*.toml` file's pre/post arrays
// into one hooks.Collections (spec.md §6.1, §4.5.4), in sorted filename
// order so groupByOrder's within-group ordering stays deterministic
// across runs. A missing hooks directory is not an error.
//
// For every hook whose definition carries a "script" reference,
// LoadHooks also reads that script's own file (resolved relative to
// sourceDir) into Hook.ScriptContent, since OnChange hashing must
// observe the script's bytes, not its path (hooks.Hook.Content).
func LoadHooks(sourceDir string) (hooks.Collections, error) {
	var out hooks.Collections

	dir := filepath.Join(sourceDir, ".guisu", "hooks")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, fmt.Errorf("guisuconfig: reading %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".toml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return hooks.Collections{}, fmt.Errorf("guisuconfig: reading %s: %w", path, err)
		}

		var c hooks.Collections
		if err := toml.Unmarshal(data, &c); err != nil {
			return hooks.Collections{}, fmt.Errorf("guisuconfig: parsing %s: %w", path, err)
		}

		out.Pre = append(out.Pre, c.Pre...)
		out.Post = append(out.Post, c.Post...)
	}

	if err := loadScriptContents(sourceDir, out.Pre); err != nil {
		return hooks.Collections{}, err
	}
	if err := loadScriptContents(sourceDir, out.Post); err != nil {
		return hooks.Collections{}, err
	}
	return out, nil
}

func loadScriptContents(sourceDir string, list []hooks.Hook) error {
	for i := range list {
		h := &list[i]
		if h.Script == "" {
			continue
		}
		scriptPath := h.Script
		if !filepath.IsAbs(scriptPath) {
			scriptPath = filepath.Join(sourceDir, scriptPath)
		}
		data, err := os.ReadFile(scriptPath)
		if err != nil {
			return fmt.Errorf("guisuconfig: reading hook %q script %s: %w", h.Name, scriptPath, err)
		}
		h.ScriptContent = string(data)
	}
	return nil
}
