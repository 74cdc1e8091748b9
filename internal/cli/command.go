package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/PaulYuuu/guisu/internal/logging"
)

// SubcommandFactory builds one or more cobra commands bound to the
// shared GlobalParams, following the teacher's
// cmd/agent/command.SubcommandFactory shape so each subcommand package
// (diff, apply, add, status, age...) stays decoupled from root-command
// assembly.
type SubcommandFactory func(globalParams *GlobalParams) []*cobra.Command

// LogLevelFlag registers the persistent --log-level flag, defaulting
// to "off" until a subcommand's PersistentPreRun resolves it against
// -v the way the teacher's LogLevelDefaultOff does for log_level.
type LogLevelFlag struct {
	value string
}

func (l *LogLevelFlag) Register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&l.value, "log-level", "off", "log level (debug|info|warn|error|off)")
}

func (l *LogLevelFlag) Value() string {
	return l.value
}

// MakeCommand assembles the root cobra command: persistent flags
// shared by every subcommand (--config, --source, --dest, --root-entry,
// -v, --no-color, --log-level), then appends every command each
// factory returns.
func MakeCommand(factories []SubcommandFactory) *cobra.Command {
	globalParams := DefaultGlobalParams()
	logLevel := &LogLevelFlag{}

	root := &cobra.Command{
		Use:           filepath.Base(os.Args[0]),
		Short:         "guisu manages dotfiles declaratively",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&globalParams.ConfigPath, "config", "", "path to .guisu.toml (defaults to <source>/.guisu.toml)")
	root.PersistentFlags().StringVar(&globalParams.SourceDir, "source", "", "source directory (defaults to ~/.local/share/guisu)")
	root.PersistentFlags().StringVar(&globalParams.DestDir, "dest", globalParams.DestDir, "destination directory to manage")
	root.PersistentFlags().StringVar(&globalParams.RootEntry, "root-entry", "home", "source subdirectory applied to --dest")
	root.PersistentFlags().BoolVarP(&globalParams.Verbose, "verbose", "v", false, "raise log verbosity to debug")
	root.PersistentFlags().BoolVar(&globalParams.NoColor, "no-color", false, "disable ANSI color in stdout output")
	logLevel.Register(root)

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if logLevel.Value() == "off" {
			globalParams.LogLevel = logging.ForVerbosity(globalParams.Verbose)
		} else {
			globalParams.LogLevel = logLevel.Value()
		}
		return nil
	}

	for _, factory := range factories {
		root.AddCommand(factory(globalParams)...)
	}

	return root
}
