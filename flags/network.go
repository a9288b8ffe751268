package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NetworkFlags selects the consensus parameter set.
func NetworkFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "network",
			Usage: "Consensus network to run against (main|test|regtest)",
			Value: "main",
		},
	}
}
