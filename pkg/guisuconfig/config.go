// Package guisuconfig loads a source tree's `.guisu.toml` (or templated
// `.guisu.toml.j2`) configuration file and the `.guisu/` directory's
// ignore patterns, template variable fragments, create-once state, and
// hook definitions (spec.md §6.1). Every on-disk path field is resolved
// relative to the config file's own directory, with `~` expanding to
// the user's home directory, mirroring
// original_source/crates/config/src/config.rs's resolve_relative_paths.
package guisuconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/PaulYuuu/guisu/pkg/hash"
	"github.com/PaulYuuu/guisu/pkg/journal"
)

// AutoBool is a three-state toggle ("auto", true, or false) used by
// general.useBuiltinAge/useBuiltinGit (spec.md §6.1).
type AutoBool string

const (
	AutoBoolAuto  AutoBool = "auto"
	AutoBoolTrue  AutoBool = "true"
	AutoBoolFalse AutoBool = "false"
)

func (a *AutoBool) UnmarshalText(text []byte) error {
	switch s := strings.ToLower(strings.TrimSpace(string(text))); s {
	case "", "auto":
		*a = AutoBoolAuto
	case "true":
		*a = AutoBoolTrue
	case "false":
		*a = AutoBoolFalse
	default:
		return fmt.Errorf("guisuconfig: invalid boolean %q: want auto, true, or false", s)
	}
	return nil
}

// IconMode controls the ui.icons field (spec.md §6.1).
type IconMode string

const (
	IconAuto   IconMode = "auto"
	IconAlways IconMode = "always"
	IconNever  IconMode = "never"
)

func (m *IconMode) UnmarshalText(text []byte) error {
	switch s := strings.ToLower(strings.TrimSpace(string(text))); s {
	case "", "auto", "automatic":
		*m = IconAuto
	case "always":
		*m = IconAlways
	case "never":
		*m = IconNever
	default:
		return fmt.Errorf("guisuconfig: invalid icon mode %q: want auto, always, or never", s)
	}
	return nil
}

// GeneralConfig is the [general] section.
type GeneralConfig struct {
	SrcDir        string   `toml:"srcDir"`
	DstDir        string   `toml:"dstDir"`
	RootEntry     string   `toml:"rootEntry"`
	Editor        string   `toml:"editor"`
	EditorArgs    []string `toml:"editorArgs"`
	Color         *bool    `toml:"color"`
	Progress      *bool    `toml:"progress"`
	UseBuiltinAge AutoBool `toml:"useBuiltinAge"`
	UseBuiltinGit AutoBool `toml:"useBuiltinGit"`
}

// IsColor reports the effective color setting, defaulting to true.
func (g GeneralConfig) IsColor() bool { return g.Color == nil || *g.Color }

// IsProgress reports the effective progress-bar setting, defaulting to true.
func (g GeneralConfig) IsProgress() bool { return g.Progress == nil || *g.Progress }

// EffectiveRootEntry returns root_entry, defaulting to "home" (spec.md
// §6.1). Unlike srcDir/dstDir this is never resolved to an absolute
// path -- it names a subdirectory joined against srcDir at use time.
func (g GeneralConfig) EffectiveRootEntry() string {
	if g.RootEntry == "" {
		return "home"
	}
	return g.RootEntry
}

// AgeConfig is the [age] section.
type AgeConfig struct {
	Identity            string   `toml:"identity"`
	Identities          []string `toml:"identities"`
	Recipient           string   `toml:"recipient"`
	Recipients          []string `toml:"recipients"`
	Derive              bool     `toml:"derive"`
	FailOnDecryptError  *bool    `toml:"failOnDecryptError"`
}

// EffectiveFailOnDecryptError defaults to true (spec.md §6.1: "fail
// loudly for security" per the original's documented default).
func (a AgeConfig) EffectiveFailOnDecryptError() bool {
	return a.FailOnDecryptError == nil || *a.FailOnDecryptError
}

// AllIdentities merges the singular and plural identity fields into one
// list, singular first, mirroring AgeConfig.AllRecipients.
func (a AgeConfig) AllIdentities() []string {
	var out []string
	if a.Identity != "" {
		out = append(out, a.Identity)
	}
	out = append(out, a.Identities...)
	return out
}

// AllRecipients merges the singular and plural recipient fields.
func (a AgeConfig) AllRecipients() []string {
	var out []string
	if a.Recipient != "" {
		out = append(out, a.Recipient)
	}
	out = append(out, a.Recipients...)
	return out
}

// BitwardenConfig is the [bitwarden] section.
type BitwardenConfig struct {
	Provider string `toml:"provider"`
}

// EffectiveProvider defaults to "bw".
func (b BitwardenConfig) EffectiveProvider() string {
	if b.Provider == "" {
		return "bw"
	}
	return b.Provider
}

// UiConfig is the [ui] section.
type UiConfig struct {
	Icons         IconMode `toml:"icons"`
	DiffFormat    string   `toml:"diffFormat"`
	ContextLines  *int     `toml:"contextLines"`
	PreviewLines  *int     `toml:"previewLines"`
}

func (u UiConfig) EffectiveDiffFormat() string {
	if u.DiffFormat == "" {
		return "unified"
	}
	return u.DiffFormat
}

func (u UiConfig) EffectiveContextLines() int {
	if u.ContextLines == nil {
		return 3
	}
	return *u.ContextLines
}

func (u UiConfig) EffectivePreviewLines() int {
	if u.PreviewLines == nil {
		return 10
	}
	return *u.PreviewLines
}

// IgnoreConfig is the [ignore] section, shaped identically to
// pkg/ignore.Config so it can be converted with a field-for-field copy.
type IgnoreConfig struct {
	Global  []string `toml:"global"`
	Darwin  []string `toml:"darwin"`
	Linux   []string `toml:"linux"`
	Windows []string `toml:"windows"`
}

// Config is the fully decoded, path-resolved `.guisu.toml` (spec.md §6.1).
type Config struct {
	General   GeneralConfig          `toml:"general"`
	Age       AgeConfig              `toml:"age"`
	Bitwarden BitwardenConfig        `toml:"bitwarden"`
	UI        UiConfig               `toml:"ui"`
	Ignore    IgnoreConfig           `toml:"ignore"`
	Variables map[string]any         `toml:"variables"`

	// baseDir is the directory relative paths and ~ are resolved
	// against: the config file's own directory.
	baseDir string
}

// ConfigFileNames are the two recognized on-disk config file names, in
// the order Load checks them.
const (
	ConfigFileName         = ".guisu.toml"
	ConfigTemplateFileName = ".guisu.toml.j2"
)

// parse decodes raw TOML bytes into a Config and resolves its relative
// paths and ~ against baseDir (original_source's resolve_relative_paths).
func parse(data []byte, baseDir string) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("guisuconfig: parsing config: %w", err)
	}
	cfg.baseDir = baseDir
	cfg.resolveRelativePaths()
	return cfg, nil
}

func (c *Config) resolveRelativePaths() {
	if c.General.SrcDir != "" {
		c.General.SrcDir = resolvePath(c.General.SrcDir, c.baseDir)
	}
	if c.General.DstDir != "" {
		c.General.DstDir = resolvePath(c.General.DstDir, c.baseDir)
	}
	if c.Age.Identity != "" {
		c.Age.Identity = resolvePath(c.Age.Identity, c.baseDir)
	}
	for i, id := range c.Age.Identities {
		c.Age.Identities[i] = resolvePath(id, c.baseDir)
	}
}

// resolvePath expands a leading ~ to the user's home directory, else
// resolves a relative path against baseDir; an already-absolute path is
// returned unchanged. root_entry is never passed through here -- it
// names a subdirectory joined at use time, not a standalone path.
func resolvePath(p, baseDir string) string {
	if p == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return p
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
		return p
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// TemplateRenderer renders a config template against a minimal,
// config-independent context. guisuconfig never builds a full
// gtemplate.Engine itself (that needs identities this very config
// supplies), so the caller -- internal/cli's bootstrap -- passes in a
// renderer built with no identities, in which encrypt/decrypt fail
// (see SPEC_FULL.md open question decision 4).
type TemplateRenderer interface {
	Render(name, templateText string, data map[string]any) (string, error)
}

// Load reads sourceDir's `.guisu.toml` or `.guisu.toml.j2`, parses it,
// and resolves its paths. If both are absent, Load returns
// ErrConfigNotFound. store and renderer are only consulted for the .j2
// variant; both may be nil for a plain `.guisu.toml` (they are then
// simply unused).
func Load(sourceDir string, store journal.Store, renderer TemplateRenderer) (Config, error) {
	plainPath := filepath.Join(sourceDir, ConfigFileName)
	if data, err := os.ReadFile(plainPath); err == nil {
		return parse(data, sourceDir)
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("guisuconfig: reading %s: %w", plainPath, err)
	}

	templatePath := filepath.Join(sourceDir, ConfigTemplateFileName)
	templateSource, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, ErrConfigNotFound{SourceDir: sourceDir}
		}
		return Config{}, fmt.Errorf("guisuconfig: reading %s: %w", templatePath, err)
	}

	rendered, err := renderConfigTemplate(templateSource, sourceDir, store, renderer)
	if err != nil {
		return Config{}, err
	}
	return parse([]byte(rendered), sourceDir)
}

// renderConfigTemplate renders templateSource, consulting the journal's
// config-metadata bucket first so an unchanged template skips
// re-rendering entirely (spec.md §6.1 plus original_source's
// ConfigMetadata caching, see SPEC_FULL.md decision 4).
func renderConfigTemplate(templateSource []byte, sourceDir string, store journal.Store, renderer TemplateRenderer) (string, error) {
	templateHash := hash.Of(templateSource).String()

	if store != nil {
		if raw, found, err := store.Get(journal.BucketConfigMetadata, ConfigTemplateFileName); err == nil && found {
			if meta, ok := journal.DecodeConfigMetadata(raw, nil); ok && meta.TemplateHash == templateHash {
				return meta.RenderedConfig, nil
			}
		}
	}

	if renderer == nil {
		return "", fmt.Errorf("guisuconfig: %s requires template rendering but no renderer was configured", ConfigTemplateFileName)
	}
	rendered, err := renderer.Render(ConfigTemplateFileName, string(templateSource), nil)
	if err != nil {
		return "", fmt.Errorf("guisuconfig: rendering %s: %w", ConfigTemplateFileName, err)
	}

	if store != nil {
		meta := journal.ConfigMetadata{TemplateHash: templateHash, RenderedConfig: rendered}
		if raw, err := journal.EncodeConfigMetadata(meta); err == nil {
			_ = store.Set(journal.BucketConfigMetadata, ConfigTemplateFileName, raw)
		}
	}
	return rendered, nil
}

// ErrConfigNotFound reports that neither .guisu.toml nor .guisu.toml.j2
// exists in sourceDir.
type ErrConfigNotFound struct{ SourceDir string }

func (e ErrConfigNotFound) Error() string {
	return fmt.Sprintf("guisuconfig: no %s or %s found in %s", ConfigFileName, ConfigTemplateFileName, e.SourceDir)
}
