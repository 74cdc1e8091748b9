package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/PaulYuuu/guisu/pkg/content"
	"github.com/PaulYuuu/guisu/pkg/deststate"
	"github.com/PaulYuuu/guisu/pkg/gpath"
	"github.com/PaulYuuu/guisu/pkg/gtemplate"
	"github.com/PaulYuuu/guisu/pkg/guisuconfig"
	"github.com/PaulYuuu/guisu/pkg/ignore"
	"github.com/PaulYuuu/guisu/pkg/journal"
	"github.com/PaulYuuu/guisu/pkg/sourcestate"
	"github.com/PaulYuuu/guisu/pkg/targetstate"
)

// Runtime bundles the objects every subcommand needs, assembled once
// from GlobalParams by LoadRuntime: the opened journal store, config,
// ignore matcher, rendering engine, and the content processor each
// operation (diff/status/apply) drives against fresh source/target/
// dest state.
type Runtime struct {
	Config     guisuconfig.Config
	Variables  map[string]any
	CreateOnce map[string]bool
	Store      journal.Store
	SourceDir  gpath.AbsPath
	DestDir    gpath.AbsPath
	RootEntry  string
	Matcher    *ignore.Matcher
	Processor  *content.Processor
	Engine     *gtemplate.Engine
	Logger     *zap.SugaredLogger

	identities []age.Identity
	closeStore func() error
}

// Close releases the runtime's journal store handle.
func (r *Runtime) Close() error {
	if r.closeStore == nil {
		return nil
	}
	return r.closeStore()
}

// LoadRuntime resolves --source (defaulting to
// $XDG_DATA_HOME/guisu or ~/.local/share/guisu), opens the bbolt
// journal at <source>/.guisu/state.db, loads .guisu.toml (rendering
// the .j2 variant through a template engine with no identities per
// SPEC_FULL.md open question decision 4), and assembles the ignore
// matcher, age identities, and content processor used by every
// subcommand.
func LoadRuntime(gp *GlobalParams) (*Runtime, error) {
	logger := gp.LoggerFor()

	sourceDirStr := gp.SourceDir
	if sourceDirStr == "" {
		sourceDirStr = defaultSourceDir()
	}
	sourceDir, err := gpath.NewAbsPath(sourceDirStr)
	if err != nil {
		return nil, fmt.Errorf("cli: resolving source directory: %w", err)
	}

	destDirStr := gp.DestDir
	if destDirStr == "" {
		destDirStr, err = os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cli: resolving destination directory: %w", err)
		}
	}
	destDir, err := gpath.NewAbsPath(destDirStr)
	if err != nil {
		return nil, fmt.Errorf("cli: resolving destination directory: %w", err)
	}

	guisuDir := filepath.Join(sourceDirStr, ".guisu")
	if err := os.MkdirAll(guisuDir, 0o755); err != nil {
		return nil, fmt.Errorf("cli: creating %s: %w", guisuDir, err)
	}
	store, err := journal.Open(filepath.Join(guisuDir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("cli: opening journal: %w", err)
	}

	bootstrapEngine := gtemplate.New(sourceDir, nil, nil, logger)
	cfg, err := guisuconfig.Load(sourceDirStr, store, bootstrapEngine)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("cli: loading config: %w", err)
	}

	identities, err := loadIdentities(cfg.Age.AllIdentities())
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var encryptTarget age.Recipient
	if len(identities) > 0 {
		if x25519, ok := identities[0].(*age.X25519Identity); ok {
			encryptTarget = x25519.Recipient()
		}
	}

	ignoreCfg, err := guisuconfig.LoadIgnores(sourceDirStr, cfg.Ignore)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("cli: loading ignore patterns: %w", err)
	}
	matcher := ignore.New(ignoreCfg)

	variables, err := guisuconfig.LoadVariables(sourceDirStr, cfg.Variables, guisuconfig.CurrentPlatform())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("cli: loading variables: %w", err)
	}

	createOnce, err := guisuconfig.LoadCreateOnce(sourceDirStr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("cli: loading create-once state: %w", err)
	}

	engine := gtemplate.New(sourceDir, identities, encryptTarget, logger)
	processor := content.New(identities, engine, cfg.Age.EffectiveFailOnDecryptError(), logger)

	rootEntry := gp.RootEntry
	if rootEntry == "" {
		rootEntry = cfg.General.EffectiveRootEntry()
	}

	return &Runtime{
		Config:     cfg,
		Variables:  variables,
		CreateOnce: createOnce,
		Store:      store,
		SourceDir:  sourceDir,
		DestDir:    destDir,
		RootEntry:  rootEntry,
		Matcher:    matcher,
		Processor:  processor,
		Engine:     engine,
		Logger:     logger,
		identities: identities,
		closeStore: store.Close,
	}, nil
}

// Recipients implements addflow.EncryptionTarget against the
// runtime's configured age recipients (spec.md §4.5.6's --encrypt
// validation happens up front, before any write).
func (r *Runtime) Recipients() ([]age.Recipient, error) {
	var recipients []age.Recipient
	for _, s := range r.Config.Age.AllRecipients() {
		rs, err := age.ParseRecipients(strings.NewReader(s))
		if err != nil {
			return nil, fmt.Errorf("cli: parsing age recipient: %w", err)
		}
		recipients = append(recipients, rs...)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("cli: --encrypt requires at least one [age] recipient or recipients entry in .guisu.toml")
	}
	return recipients, nil
}

// BuildStates reads the source tree, renders it into target state, and
// opens the destination, the three pieces every diff/status/apply
// subcommand plans against.
func (r *Runtime) BuildStates() (*sourcestate.State, *targetstate.State, *deststate.State, error) {
	src, err := sourcestate.Read(r.SourceDir, r.Matcher)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cli: reading source tree: %w", err)
	}

	target, err := targetstate.Build(src, r.Processor, r.Variables)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cli: rendering target state: %w", err)
	}

	dest := deststate.New(r.DestDir, deststate.NewAferoSystem(afero.NewOsFs()))

	return src, target, dest, nil
}

func loadIdentities(paths []string) ([]age.Identity, error) {
	var identities []age.Identity
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("cli: opening identity file %s: %w", p, err)
		}
		ids, err := age.ParseIdentities(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("cli: parsing identity file %s: %w", p, err)
		}
		identities = append(identities, ids...)
	}
	return identities, nil
}

func defaultSourceDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "guisu")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".guisu-source"
	}
	return filepath.Join(home, ".local", "share", "guisu")
}
