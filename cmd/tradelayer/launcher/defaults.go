package launcher

import "github.com/tradelayer/go-tradelayer/consensus"

// DefaultConfig returns the baseline configuration before CLI overrides.
func DefaultConfig() Config {
	return Config{
		Node: NodeConfig{
			DataDir: "~/.tradelayer",
		},
		Network: consensus.MainNetParams(),
		Logging: LoggingConfig{
			Verbosity: 3,
			Format:    "text",
		},
	}
}
