package test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/urfave/cli.v1"

	"github.com/tradelayer/go-tradelayer/cmd/tradelayer/launcher"
	"github.com/tradelayer/go-tradelayer/consensus"
	"github.com/tradelayer/go-tradelayer/flags"
)

// runConfigFromArgs builds a launcher config through a synthetic CLI
// invocation, the way the real binary does.
func runConfigFromArgs(t *testing.T, args []string) (launcher.Config, error) {
	t.Helper()

	app := cli.NewApp()
	app.HideHelp = true
	app.HideVersion = true
	app.Flags = append(app.Flags, flags.CommonFlags()...)
	app.Flags = append(app.Flags, flags.NetworkFlags()...)

	var got launcher.Config
	var cfgErr error
	app.Action = func(c *cli.Context) error {
		got, cfgErr = launcher.MakeConfig(c)
		return nil
	}

	err := app.Run(append([]string{"tradelayer"}, args...))
	require.NoError(t, err)
	return got, cfgErr
}

func TestConfigDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := runConfigFromArgs(t, nil)
	require.NoError(err)
	require.Equal(consensus.MainNetName, cfg.Network.Name)
	require.Equal("~/.tradelayer", cfg.Node.DataDir)
	require.Equal(filepath.Join("~/.tradelayer", "state"), cfg.Node.StateDir)
	require.Equal(3, cfg.Logging.Verbosity)
}

func TestConfigOverrides(t *testing.T) {
	require := require.New(t)

	cfg, err := runConfigFromArgs(t, []string{
		"--network", "test",
		"--datadir", "/tmp/tl",
		"--log.verbosity", "5",
		"--log.format", "json",
	})
	require.NoError(err)
	require.Equal(consensus.TestNetName, cfg.Network.Name)
	require.Equal("/tmp/tl", cfg.Node.DataDir)
	require.Equal(filepath.Join("/tmp/tl", "state"), cfg.Node.StateDir)
	require.Equal(5, cfg.Logging.Verbosity)
	require.Equal("json", cfg.Logging.Format)
}

func TestConfigStateDirOverride(t *testing.T) {
	require := require.New(t)

	cfg, err := runConfigFromArgs(t, []string{"--datadir.state", "/mnt/fast/state"})
	require.NoError(err)
	require.Equal("/mnt/fast/state", cfg.Node.StateDir)
}

func TestConfigUnknownNetwork(t *testing.T) {
	require := require.New(t)

	_, err := runConfigFromArgs(t, []string{"--network", "nope"})
	require.Error(err)
}
