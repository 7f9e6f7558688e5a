package main

import (
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"
)

var (
	registry = cli.Command{
		Name:  "registry",
		Usage: "mint and approve assets on a registry hosted by escrowd",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "registry",
				Usage:    "the id of the registry",
				Required: true,
			},
		},
		Subcommands: []*cli.Command{
			registryMintCmd, registryApproveCmd, registryOwnerCmd,
		},
	}

	assetFlag = &cli.Uint64Flag{
		Name:     "asset",
		Usage:    "the id of the asset",
		Required: true,
	}

	registryMintCmd = &cli.Command{
		Name:  "mint",
		Usage: "mint a new asset, owned by the configured account by default",
		Flags: []cli.Flag{
			assetFlag,
			&cli.StringFlag{
				Name:  "owner",
				Usage: "the owner of the minted asset",
			},
		},
		Action: mintAction,
	}
	registryApproveCmd = &cli.Command{
		Name:  "approve",
		Usage: "let an operator transfer one or all of the configured account's assets",
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:  "asset",
				Usage: "the id of the asset to approve, ignored with --all",
			},
			&cli.StringFlag{
				Name:  "operator",
				Usage: "the account allowed to transfer the assets",
				Value: "escrow",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "approve the operator for all assets",
			},
			&cli.BoolFlag{
				Name:  "revoke",
				Usage: "revoke the approval instead",
			},
		},
		Action: approveAction,
	}
	registryOwnerCmd = &cli.Command{
		Name:   "owner",
		Usage:  "print the owner of an asset",
		Flags:  []cli.Flag{assetFlag},
		Action: ownerAction,
	}
)

func mintAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	req := map[string]interface{}{
		"owner":    ctx.String("owner"),
		"asset_id": ctx.Uint64("asset"),
	}
	reply := map[string]string{}
	if err := client.post(registryPath(ctx, "/mint"), req, &reply); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("owner:", reply["owner"])
	return nil
}

func approveAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}
	if !ctx.Bool("all") && !ctx.IsSet("asset") {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}

	req := map[string]interface{}{
		"operator": ctx.String("operator"),
		"asset_id": ctx.Uint64("asset"),
		"all":      ctx.Bool("all"),
		"approved": !ctx.Bool("revoke"),
	}
	reply := map[string]bool{}
	if err := client.post(registryPath(ctx, "/approve"), req, &reply); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("approved:", reply["approved"])
	return nil
}

func ownerAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	path := registryPath(ctx, fmt.Sprintf("/assets/%d/owner", ctx.Uint64("asset")))
	reply := map[string]string{}
	if err := client.get(path, &reply); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("owner:", reply["owner"])
	return nil
}

func registryPath(ctx *cli.Context, path string) string {
	return "/registries/" + url.PathEscape(ctx.String("registry")) + path
}
