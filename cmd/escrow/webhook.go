package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var (
	webhook = cli.Command{
		Name:  "webhook",
		Usage: "add or remove webhooks",
		Subcommands: []*cli.Command{
			webhookAddCmd, webhookRemoveCmd,
		},
	}
	listwebhooks = cli.Command{
		Name:   "webhooks",
		Usage:  "list all webhooks",
		Action: listWebhooksAction,
	}

	webhookAddCmd = &cli.Command{
		Name:  "add",
		Usage: "add a (secured) webhook endpoint called whenever a target event occurs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "endpoint",
				Usage:    "the endpoint where to notify the webhook",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "secret",
				Usage: "the eventual secret to authenticate requests",
			},
			&cli.StringFlag{
				Name: "topic",
				Usage: fmt.Sprintf(
					"the event topic, one of %s or * for any",
					strings.Join(domain.Topics(), ", "),
				),
				Value: "*",
			},
		},
		Action: addWebhookAction,
	}
	webhookRemoveCmd = &cli.Command{
		Name:  "remove",
		Usage: "remove a webhook",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "the id of the webhook to remove",
				Required: true,
			},
		},
		Action: removeWebhookAction,
	}
)

func addWebhookAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	req := map[string]string{
		"topic":    ctx.String("topic"),
		"endpoint": ctx.String("endpoint"),
		"secret":   ctx.String("secret"),
	}
	reply := map[string]string{}
	if err := client.post("/v1/webhooks", req, &reply); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("hook id:", reply["id"])
	return nil
}

func removeWebhookAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	if err := client.delete(
		"/v1/webhooks/" + url.PathEscape(ctx.String("id")),
	); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("hook removed")
	return nil
}

func listWebhooksAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	reply := struct {
		Webhooks []application.Webhook `json:"webhooks"`
	}{}
	if err := client.get("/v1/webhooks", &reply); err != nil {
		return err
	}

	printRespJSON(reply.Webhooks)
	return nil
}
