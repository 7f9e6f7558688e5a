package main

import (
	"crypto/rand"
	"fmt"
	"net/url"

	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var (
	trade = cli.Command{
		Name:  "trade",
		Usage: "start, inspect and operate on escrowed trades",
		Subcommands: []*cli.Command{
			tradeStartCmd, tradeGetCmd, tradeListCmd, tradeDepositCmd,
			tradeWithdrawCmd, tradeReadyCmd,
		},
	}
	tradeListCmd = &cli.Command{
		Name:  "list",
		Usage: "list all trades, optionally filtered by participant",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "account",
				Usage: "list only the trades the account takes part in",
			},
		},
		Action: listTradesAction,
	}

	tradeIDFlag = &cli.StringFlag{
		Name:     "id",
		Usage:    "the hex encoded trade id",
		Required: true,
	}
	cellFlag = &cli.UintFlag{
		Name:     "cell",
		Usage:    "the 1-based index of the trade cell",
		Required: true,
	}

	tradeStartCmd = &cli.Command{
		Name:  "start",
		Usage: "start a new trade with the configured account as starter",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "the hex encoded trade id, a random one is used if omitted",
			},
			&cli.StringFlag{
				Name:     "receiver",
				Usage:    "the counterparty of the trade",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "starter_registry",
				Usage:    "the registry of the starter's assets",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "receiver_registry",
				Usage:    "the registry of the receiver's assets",
				Required: true,
			},
			&cli.UintFlag{
				Name:  "cells",
				Usage: "the number of cells of the trade",
				Value: 12,
			},
		},
		Action: startTradeAction,
	}
	tradeGetCmd = &cli.Command{
		Name:   "get",
		Usage:  "get the current state of a trade",
		Flags:  []cli.Flag{tradeIDFlag},
		Action: getTradeAction,
	}
	tradeDepositCmd = &cli.Command{
		Name:  "deposit",
		Usage: "deposit an asset into a cell of the trade",
		Flags: []cli.Flag{
			tradeIDFlag,
			cellFlag,
			&cli.Uint64Flag{
				Name:     "asset",
				Usage:    "the id of the asset to deposit",
				Required: true,
			},
		},
		Action: depositAction,
	}
	tradeWithdrawCmd = &cli.Command{
		Name:   "withdraw",
		Usage:  "withdraw the asset deposited into a cell of the trade",
		Flags:  []cli.Flag{tradeIDFlag, cellFlag},
		Action: withdrawAction,
	}
	tradeReadyCmd = &cli.Command{
		Name:  "ready",
		Usage: "mark the configured account as ready or not ready to finalize",
		Flags: []cli.Flag{
			tradeIDFlag,
			&cli.BoolFlag{
				Name:  "not",
				Usage: "revoke a previous readiness",
			},
		},
		Action: readyAction,
	}
)

func startTradeAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	tradeID, err := tradeIDOrRandom(ctx.String("id"))
	if err != nil {
		return err
	}

	req := map[string]interface{}{
		"trade_id":          tradeID,
		"starter":           client.account,
		"receiver":          ctx.String("receiver"),
		"starter_registry":  ctx.String("starter_registry"),
		"receiver_registry": ctx.String("receiver_registry"),
		"cell_count":        ctx.Uint("cells"),
	}
	reply := map[string]string{}
	if err := client.post("/v1/trades", req, &reply); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("trade id:", reply["trade_id"])
	return nil
}

func getTradeAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	reply := application.TradeInfo{}
	if err := client.get(
		"/v1/trades/"+url.PathEscape(ctx.String("id")), &reply,
	); err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func listTradesAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	path := "/v1/trades"
	if account := ctx.String("account"); len(account) > 0 {
		path += "?account=" + url.QueryEscape(account)
	}
	reply := struct {
		Trades []application.TradeInfo `json:"trades"`
	}{}
	if err := client.get(path, &reply); err != nil {
		return err
	}

	printRespJSON(reply.Trades)
	return nil
}

func depositAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	req := map[string]uint64{"asset_id": ctx.Uint64("asset")}
	if err := client.post(cellPath(ctx), req, nil); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("deposited")
	return nil
}

func withdrawAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	if err := client.delete(cellPath(ctx)); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("withdrawn")
	return nil
}

func readyAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	ready := !ctx.Bool("not")
	path := fmt.Sprintf("/v1/trades/%s/readiness", url.PathEscape(ctx.String("id")))
	if err := client.post(path, map[string]bool{"ready": ready}, nil); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("ready:", ready)
	return nil
}

func cellPath(ctx *cli.Context) string {
	return fmt.Sprintf(
		"/v1/trades/%s/cells/%d", url.PathEscape(ctx.String("id")), ctx.Uint("cell"),
	)
}

func tradeIDOrRandom(str string) (domain.TradeID, error) {
	if len(str) > 0 {
		return domain.ParseTradeID(str)
	}

	var id domain.TradeID
	if _, err := rand.Read(id[:]); err != nil {
		return domain.TradeID{}, err
	}
	return id, nil
}
