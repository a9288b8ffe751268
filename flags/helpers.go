package flags

import (
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "tradelayer"
	app.Usage = "TradeLayer transaction interpreter"
	app.Version = "0.2.0"
	app.Writer = os.Stdout
	return app
}
