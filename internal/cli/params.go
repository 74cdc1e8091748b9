// Package cli wires the guisu root command together, following the
// teacher's cmd/agent/command shape: a GlobalParams struct threaded to
// every SubcommandFactory, a persistent log-level flag, and a
// MakeCommand constructor that assembles the cobra root command from a
// list of factories.
package cli

import (
	"os"

	"go.uber.org/zap"

	"github.com/PaulYuuu/guisu/internal/logging"
)

// GlobalParams carries the flags every subcommand needs regardless of
// which operation it runs (spec.md §6.1's source/destination/root-entry
// triple plus the config path and the logging/color knobs every
// command accepts).
type GlobalParams struct {
	SourceDir  string
	DestDir    string
	RootEntry  string
	ConfigPath string
	Verbose    bool
	NoColor    bool
	// LogLevel is the resolved effective level: --log-level when the
	// user set it explicitly, else logging.ForVerbosity(Verbose).
	LogLevel string
}

// DefaultGlobalParams mirrors the teacher's convention of seeding
// GlobalParams with OS-derived defaults before flag parsing overrides
// them.
func DefaultGlobalParams() *GlobalParams {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &GlobalParams{
		DestDir: home,
	}
}

// LoggerFor builds the logger a subcommand should use, gated by the
// resolved LogLevel (spec.md §6.5).
func (g *GlobalParams) LoggerFor() *zap.SugaredLogger {
	return logging.New(g.LogLevel)
}
