// Command mixer is a client for the mixer server. It deposits into and
// withdraws from the pool, and keeps notes on disk between the two.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Flags are constructed per app, since urfave/cli records whether a flag was
// set on the flag itself.
func serverFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "server",
		Usage:   "Base URL of the mixer server",
		Value:   "http://localhost:8080",
		EnvVars: []string{"MIXER_SERVER"},
	}
}

func noteFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "note",
		Usage:    "Location of the note file",
		Required: true,
	}
}

func suiteFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "suite",
		Usage: "Hash suite used by the server (keccak256, sha256, mimc-bn254)",
		Value: "keccak256",
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "mixer",
		Usage: "Deposit into and withdraw from an anonymity pool",
		Flags: []cli.Flag{serverFlag()},
		Commands: []*cli.Command{
			secretCommand(),
			depositCommand(),
			withdrawCommand(),
			verifyCommand(),
			rootsCommand(),
			balanceCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
