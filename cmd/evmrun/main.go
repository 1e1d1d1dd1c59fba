// Command evmrun loads a YAML fixture describing a world of accounts and
// one top-level call, drives it through core/vm to completion, and prints
// the exit reason, return data, and emitted logs.
//
// Usage:
//
//	evmrun run fixture.yaml
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/loriopatrick/evm/core/vm"
	"github.com/loriopatrick/evm/log"
)

var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "evmrun",
		Usage:   "run an EVM fixture to completion",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "verbosity", Value: 3, Usage: "log level 0-5 (0-1=error, 2=warn, 3=info, 4-5=debug)"},
			&cli.Uint64Flag{Name: "mem-limit", Value: 0, Usage: "per-frame memory cap in bytes (0 = uncapped)"},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "execute a fixture file",
				ArgsUsage: "<fixture.yaml>",
				Action:    runFixture,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "evmrun: %v\n", err)
		os.Exit(1)
	}
}

func runFixture(c *cli.Context) error {
	setupLogging(c.Int("verbosity"))

	path := c.Args().First()
	if path == "" {
		return cli.Exit("missing fixture path", 2)
	}

	fixture, err := LoadFixture(path)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	be, code, calldata, value, err := fixture.Build()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ctx := vm.Context{
		Address:       parseAddress(fixture.Address),
		Caller:        parseAddress(fixture.Caller),
		ApparentValue: value,
	}
	rt := vm.NewRuntime(code, calldata, ctx, fixture.IsStatic, c.Uint64("mem-limit"))

	driver := vm.NewDriver()
	exit := driver.Run(be, rt)

	fmt.Printf("exit:   %s\n", exit.String())
	fmt.Printf("return: 0x%x\n", rt.Machine().ReturnValue())
	for i, l := range be.Logs() {
		fmt.Printf("log[%d]: address=%s topics=%d data=0x%x\n", i, l.Address.Hex(), len(l.Topics), l.Data)
	}

	if vm.IsFatal(exit) {
		return cli.Exit("fatal execution error", 1)
	}
	return nil
}

func setupLogging(verbosity int) {
	var lvl = mapVerbosity(verbosity)
	log.SetDefault(log.New(lvl))
}
