package launcher

import (
	"fmt"
	"path/filepath"

	"gopkg.in/urfave/cli.v1"

	"github.com/tradelayer/go-tradelayer/consensus"
)

// Config aggregates everything the launcher needs to run a command.
type Config struct {
	Node    NodeConfig
	Network consensus.Params
	Logging LoggingConfig
}

type NodeConfig struct {
	DataDir string
	// StateDir is where the badger snapshot lives, <datadir>/state by
	// default.
	StateDir string
}

type LoggingConfig struct {
	Verbosity int
	Format    string
}

// MakeConfig merges defaults with CLI flag overrides.
func MakeConfig(ctx *cli.Context) (Config, error) {
	cfg := DefaultConfig()

	if ctx.GlobalIsSet("datadir") {
		cfg.Node.DataDir = ctx.GlobalString("datadir")
	}
	if ctx.GlobalIsSet("datadir.state") {
		cfg.Node.StateDir = ctx.GlobalString("datadir.state")
	} else {
		cfg.Node.StateDir = filepath.Join(cfg.Node.DataDir, "state")
	}
	if ctx.GlobalIsSet("log.verbosity") {
		cfg.Logging.Verbosity = ctx.GlobalInt("log.verbosity")
	}
	if ctx.GlobalIsSet("log.format") {
		cfg.Logging.Format = ctx.GlobalString("log.format")
	}

	switch name := ctx.GlobalString("network"); name {
	case consensus.MainNetName:
		cfg.Network = consensus.MainNetParams()
	case consensus.TestNetName:
		cfg.Network = consensus.TestNetParams()
	case consensus.RegTestName:
		cfg.Network = consensus.RegTestParams()
	default:
		return Config{}, fmt.Errorf("unknown network %q", name)
	}

	return cfg, nil
}
