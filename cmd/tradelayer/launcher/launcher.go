package launcher

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/tradelayer/go-tradelayer/envelope"
	"github.com/tradelayer/go-tradelayer/flags"
	"github.com/tradelayer/go-tradelayer/state"
)

var app = flags.NewApp()

func init() {
	app.Flags = append(app.Flags, flags.CommonFlags()...)
	app.Flags = append(app.Flags, flags.NetworkFlags()...)
	app.Commands = []cli.Command{
		decodeCommand,
		paramsCommand,
		balancesCommand,
	}
}

// Launch runs the CLI.
func Launch(args []string) error {
	return app.Run(args)
}

func setupLogging(cfg Config) {
	logrus.SetLevel(verbosityToLevel(cfg.Logging.Verbosity))
	if cfg.Logging.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

func verbosityToLevel(v int) logrus.Level {
	switch {
	case v <= 0:
		return logrus.FatalLevel
	case v == 1:
		return logrus.ErrorLevel
	case v == 2:
		return logrus.WarnLevel
	case v == 3:
		return logrus.InfoLevel
	case v == 4:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

var decodeCommand = cli.Command{
	Name:      "decode",
	Usage:     "Decode a hex-encoded transaction payload",
	ArgsUsage: "<hexpayload>",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "sender",
			Usage: "Sender address carried into the decoded header",
		},
		cli.StringFlag{
			Name:  "receiver",
			Usage: "Receiver address carried into the decoded header",
		},
	},
	Action: decodePayload,
}

func decodePayload(ctx *cli.Context) error {
	cfg, err := MakeConfig(ctx)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	if ctx.NArg() != 1 {
		return fmt.Errorf("expected one hex payload argument")
	}
	payload, err := hexutil.Decode(ctx.Args().First())
	if err != nil {
		return fmt.Errorf("bad payload: %v", err)
	}

	env, err := envelope.Decode(payload, envelope.Meta{
		Sender:   ctx.String("sender"),
		Receiver: ctx.String("receiver"),
		Payload:  payload,
	})
	if err != nil {
		return fmt.Errorf("decode: %v", err)
	}

	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Writer, "type: %d\n%s\n", env.TxType(), out)
	return nil
}

var paramsCommand = cli.Command{
	Name:   "params",
	Usage:  "Print the consensus parameters of the selected network",
	Action: printParams,
}

func printParams(ctx *cli.Context) error {
	cfg, err := MakeConfig(ctx)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	out, err := json.MarshalIndent(&cfg.Network, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(app.Writer, string(out))
	return nil
}

var balancesCommand = cli.Command{
	Name:      "balances",
	Usage:     "Print the persisted balances of an address",
	ArgsUsage: "<address>",
	Action:    printBalances,
}

var balanceClasses = []state.BalanceClass{
	state.Available,
	state.SellOfferReserve,
	state.ContractDexMargin,
	state.ContractDexReserve,
	state.PositiveBalance,
	state.NegativeBalance,
	state.ChannelReserve,
	state.Unvested,
}

func printBalances(ctx *cli.Context) error {
	cfg, err := MakeConfig(ctx)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	if ctx.NArg() != 1 {
		return fmt.Errorf("expected one address argument")
	}
	address := ctx.Args().First()

	store, err := state.OpenStore(cfg.Node.StateDir)
	if err != nil {
		return fmt.Errorf("open state: %v", err)
	}
	defer store.Close()

	books := state.NewBooks()
	block, err := store.Load(books)
	if err != nil {
		return fmt.Errorf("load state: %v", err)
	}
	fmt.Fprintf(app.Writer, "state at block %d\n", block)

	for _, property := range books.Ledger.PropertiesOf(address) {
		for _, class := range balanceClasses {
			amount := books.Ledger.GetBalance(address, property, class)
			if amount == 0 {
				continue
			}
			fmt.Fprintf(app.Writer, "property %d  %-18s %d\n", property, class, amount)
		}
	}
	return nil
}
