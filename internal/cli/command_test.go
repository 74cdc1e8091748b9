package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevelFlagRegisterAndValue(t *testing.T) {
	logLevel := &LogLevelFlag{}
	cmd := &cobra.Command{}

	logLevel.Register(cmd)

	flag := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, flag)
	assert.Equal(t, "off", flag.DefValue)

	require.NoError(t, cmd.PersistentFlags().Set("log-level", "debug"))
	assert.Equal(t, "debug", logLevel.Value())
}

func TestMakeCommandAssemblesRootAndSubcommands(t *testing.T) {
	factory := func(globalParams *GlobalParams) []*cobra.Command {
		return []*cobra.Command{
			{Use: "diff", Short: "show pending changes"},
			{Use: "apply", Short: "apply pending changes"},
		}
	}

	root := MakeCommand([]SubcommandFactory{factory})

	assert.Equal(t, filepath.Base(os.Args[0]), root.Use)
	assert.NotNil(t, root.PersistentFlags().Lookup("source"))
	assert.NotNil(t, root.PersistentFlags().Lookup("dest"))
	assert.NotNil(t, root.PersistentFlags().Lookup("root-entry"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
	require.Len(t, root.Commands(), 2)
	assert.Equal(t, "apply", root.Commands()[0].Use)
	assert.Equal(t, "diff", root.Commands()[1].Use)
}

func TestMakeCommandResolvesLogLevelFromVerboseWhenNotSetExplicitly(t *testing.T) {
	var captured *GlobalParams
	factory := func(globalParams *GlobalParams) []*cobra.Command {
		captured = globalParams
		return []*cobra.Command{{Use: "noop", Run: func(*cobra.Command, []string) {}}}
	}

	root := MakeCommand([]SubcommandFactory{factory})
	root.SetArgs([]string{"noop", "-v"})
	require.NoError(t, root.Execute())

	require.NotNil(t, captured)
	assert.Equal(t, "debug", captured.LogLevel)
}

func TestMakeCommandRespectsExplicitLogLevelOverVerbose(t *testing.T) {
	var captured *GlobalParams
	factory := func(globalParams *GlobalParams) []*cobra.Command {
		captured = globalParams
		return []*cobra.Command{{Use: "noop", Run: func(*cobra.Command, []string) {}}}
	}

	root := MakeCommand([]SubcommandFactory{factory})
	root.SetArgs([]string{"noop", "--log-level", "error"})
	require.NoError(t, root.Execute())

	require.NotNil(t, captured)
	assert.Equal(t, "error", captured.LogLevel)
}

func TestDefaultGlobalParamsSeedsDestFromHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	gp := DefaultGlobalParams()
	assert.Equal(t, home, gp.DestDir)
}
