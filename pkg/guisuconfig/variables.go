package guisuconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LoadVariables merges `.guisu/variables/*.{toml,yaml}` and
// `.guisu/variables/<platform>/*.{toml,yaml}` into cfgVariables,
// returning the combined template context (spec.md §6.1). platform is
// normally runtime.GOOS; tests pass an explicit value.
//
// Merge order, each step overwriting only the top-level keys it
// defines (a "section" is a top-level key; values under different
// top-level keys never interact):
//  1. cfgVariables (the config file's own [variables] table)
//  2. .guisu/variables/*.{toml,yaml}, in sorted filename order
//  3. .guisu/variables/<platform>/*.{toml,yaml}, in sorted filename order
//
// A missing variables directory is not an error; it is simply skipped.
func LoadVariables(sourceDir string, cfgVariables map[string]any, platform string) (map[string]any, error) {
	out := make(map[string]any, len(cfgVariables))
	for k, v := range cfgVariables {
		out[k] = v
	}

	varDir := filepath.Join(sourceDir, ".guisu", "variables")
	if err := mergeFragmentsFromDir(out, varDir); err != nil {
		return nil, err
	}

	platformDir := filepath.Join(varDir, platform)
	if err := mergeFragmentsFromDir(out, platformDir); err != nil {
		return nil, err
	}

	return out, nil
}

// CurrentPlatform returns runtime.GOOS, the value LoadVariables' caller
// should pass as platform outside of tests.
func CurrentPlatform() string { return runtime.GOOS }

func mergeFragmentsFromDir(dst map[string]any, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("guisuconfig: reading %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".toml" || ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("guisuconfig: reading %s: %w", path, err)
		}

		fragment := make(map[string]any)
		ext := strings.ToLower(filepath.Ext(name))
		switch ext {
		case ".toml":
			if err := toml.Unmarshal(data, &fragment); err != nil {
				return fmt.Errorf("guisuconfig: parsing %s: %w", path, err)
			}
		default: // .yaml, .yml
			if err := yaml.Unmarshal(data, &fragment); err != nil {
				return fmt.Errorf("guisuconfig: parsing %s: %w", path, err)
			}
			fragment = normalizeYAMLKeys(fragment)
		}

		for k, v := range fragment {
			dst[k] = v
		}
	}
	return nil
}

// normalizeYAMLKeys converts yaml.v3's map[string]interface{} nested
// values (which decode nested maps as map[string]interface{} already in
// v3, but may still surface map[interface{}]interface{} from anchors)
// into a form the gtemplate engine can index uniformly alongside
// TOML-sourced fragments.
func normalizeYAMLKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeYAMLValue(v)
	}
	return out
}

func normalizeYAMLValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeYAMLKeys(val)
	case map[any]any:
		converted := make(map[string]any, len(val))
		for k, vv := range val {
			converted[fmt.Sprintf("%v", k)] = normalizeYAMLValue(vv)
		}
		return converted
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeYAMLValue(item)
		}
		return out
	default:
		return val
	}
}
