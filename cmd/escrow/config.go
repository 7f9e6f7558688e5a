package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tdex-network/tdex-escrow/pkg/jwtauth"
	"github.com/urfave/cli/v2"
)

var (
	rpcFlag = cli.StringFlag{
		Name:  "rpcserver",
		Usage: "escrowd daemon address host:port",
		Value: "localhost:9090",
	}

	accountFlag = cli.StringFlag{
		Name:  "account",
		Usage: "the account used to sign requests",
		Value: "",
	}

	authSecretFlag = cli.StringFlag{
		Name:  "auth_secret",
		Usage: "the secret shared with escrowd to sign auth tokens",
		Value: "",
	}
)

var config = cli.Command{
	Name:   "config",
	Usage:  "Print local configuration of the escrow CLI",
	Action: configAction,
	Subcommands: []*cli.Command{
		{
			Name:   "set",
			Usage:  "set a <key> <value> in the local state",
			Action: configSetAction,
		},
		{
			Name:   "init",
			Usage:  "initialize the local state with flags",
			Action: configInitAction,
			Flags: []cli.Flag{
				&rpcFlag,
				&accountFlag,
				&authSecretFlag,
			},
		},
	},
}

var token = cli.Command{
	Name:  "token",
	Usage: "print an auth token for the configured account",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "ttl",
			Usage: "the validity of the token, 0 means no expiration",
			Value: time.Hour,
		},
	},
	Action: tokenAction,
}

func configAction(ctx *cli.Context) error {
	state, err := getState()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(state))
	for key := range state {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Println(key + ": " + state[key])
	}

	return nil
}

func configInitAction(c *cli.Context) error {
	return setState(map[string]string{
		"rpcserver":   c.String("rpcserver"),
		"account":     c.String("account"),
		"auth_secret": c.String("auth_secret"),
	})
}

func configSetAction(c *cli.Context) error {
	if c.NArg() < 2 {
		return errors.New("key and value are missing")
	}

	key := c.Args().Get(0)
	value := c.Args().Get(1)

	if err := setState(map[string]string{key: value}); err != nil {
		return err
	}

	fmt.Printf("%s %s has been set\n", key, value)
	return nil
}

func tokenAction(ctx *cli.Context) error {
	state, err := getState()
	if err != nil {
		return err
	}

	token, err := jwtauth.NewToken(
		[]byte(state["auth_secret"]), state["account"], ctx.Duration("ttl"),
	)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
