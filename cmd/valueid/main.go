package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "valueid",
		Usage: "Value ID NFT marketplace client",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-base-url", Aliases: []string{"a"}, Usage: "Marketplace REST API base URL"},
			&cli.StringFlag{Name: "api-token", Usage: "Bearer token for authenticated REST endpoints"},
			&cli.DurationFlag{Name: "api-timeout", Usage: "REST request timeout"},
			&cli.StringFlag{Name: "rpc-url", Aliases: []string{"r"}, Usage: "Chain RPC URL used for reads"},
			&cli.Uint64Flag{Name: "chain-id", Usage: "Target chain id"},
			&cli.StringFlag{Name: "contract-address", Aliases: []string{"c"}, Usage: "Value ID contract address"},
			&cli.StringFlag{Name: "wallet-rpc-url", Aliases: []string{"w"}, Usage: "JSON-RPC endpoint of an external wallet"},
			&cli.StringFlag{Name: "wallet-private-key", Aliases: []string{"k"}, Usage: "Hex private key for the local key wallet"},
			&cli.StringFlag{Name: "network-file", Aliases: []string{"n"}, Usage: "TOML file with the network descriptor and currencies"},
			&cli.IntFlag{Name: "metrics-port", Usage: "Serve Prometheus metrics on this port"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Commands: []*cli.Command{
			{
				Name:  "connect",
				Usage: "Connect the wallet and switch it to the configured network",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "watch", Usage: "Keep running and follow wallet account and chain changes"},
				},
				Action: withApp(connectCmd),
			},
			{
				Name:  "assets",
				Usage: "List assets owned by the connected wallet",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "List every asset listed for sale or rent instead"},
				},
				Action: withApp(assetsCmd),
			},
			{
				Name:  "market",
				Usage: "Query the marketplace listing",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "sale", Usage: "Only assets for sale"},
					&cli.BoolFlag{Name: "rent", Usage: "Only assets for rent"},
					&cli.StringFlag{Name: "name", Usage: "Name contains"},
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.IntFlag{Name: "page-size", Value: 20},
				},
				Action: withApp(marketCmd),
			},
			{
				Name:      "asset",
				Usage:     "Show one asset",
				ArgsUsage: "<token-id>",
				Action:    withApp(assetCmd),
			},
			{
				Name:      "sell",
				Usage:     "List a token for sale",
				ArgsUsage: "<token-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "price", Required: true, Usage: "Display price, e.g. 12.5"},
					&cli.StringFlag{Name: "currency", Value: "ETH", Usage: "Payment currency symbol"},
				},
				Action: withApp(sellCmd),
			},
			{
				Name:      "rent-out",
				Usage:     "List a token for rent",
				ArgsUsage: "<token-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "price", Required: true, Usage: "Price per period in the native currency"},
					&cli.Uint64Flag{Name: "periods", Required: true, Usage: "Maximum number of periods"},
				},
				Action: withApp(rentOutCmd),
			},
			{
				Name:      "cancel",
				Usage:     "Cancel the listings of a token",
				ArgsUsage: "<token-id>",
				Action:    withApp(cancelCmd),
			},
			{
				Name:      "buy",
				Usage:     "Buy a token listed for sale",
				ArgsUsage: "<token-id>",
				Action:    withApp(buyCmd),
			},
			{
				Name:      "rent",
				Usage:     "Rent a token listed for rent",
				ArgsUsage: "<token-id>",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "periods", Required: true},
				},
				Action: withApp(rentCmd),
			},
			{
				Name:  "order",
				Usage: "Manage marketplace orders",
				Subcommands: []*cli.Command{
					{
						Name:      "create",
						ArgsUsage: "<token-id>",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "kind", Value: "sale", Usage: "sale or rent"},
							&cli.StringFlag{Name: "price", Required: true, Usage: "Price in base units"},
							&cli.StringFlag{Name: "pay-token", Usage: "Payment token address"},
							&cli.Uint64Flag{Name: "periods"},
						},
						Action: withApp(orderCreateCmd),
					},
					{Name: "cancel", ArgsUsage: "<order-id>", Action: withApp(orderCancelCmd)},
					{
						Name:      "complete",
						ArgsUsage: "<order-id>",
						Flags:     []cli.Flag{&cli.StringFlag{Name: "tx-hash", Required: true}},
						Action:    withApp(orderCompleteCmd),
					},
				},
			},
			{
				Name:  "finance",
				Usage: "Move funds on the marketplace account",
				Subcommands: []*cli.Command{
					financeCommand("deposit"),
					financeCommand("withdraw"),
					financeCommand("transfer"),
				},
			},
			{
				Name:  "mock-api",
				Usage: "Serve the fixture REST backend for local development",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Usage: "Listen port (default MOCK_API_PORT)"},
					&cli.StringFlag{Name: "database-url", Usage: "Postgres DSN for persisting orders and finance records"},
				},
				Action: mockAPICmd,
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func financeCommand(kind string) *cli.Command {
	return &cli.Command{
		Name: kind,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "currency", Required: true},
			&cli.StringFlag{Name: "amount", Required: true},
			&cli.StringFlag{Name: "address"},
			&cli.StringFlag{Name: "tx-hash"},
		},
		Action: withApp(financeCmd(kind)),
	}
}
