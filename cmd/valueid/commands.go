package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/valueid/valueid-client/internal/config"
	"github.com/valueid/valueid-client/internal/mockapi"
	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/internal/repository"
	"github.com/valueid/valueid-client/pkg/logger"
)

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func tokenArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit("expected exactly one argument: "+c.Command.ArgsUsage, 2)
	}
	return c.Args().First(), nil
}

func connectCmd(ctx context.Context, c *cli.Context, app *application) error {
	if !c.Bool("watch") {
		session, err := app.bridge.Connect(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Connected %s on chain %s\n", session.Account, hexutil.EncodeUint64(session.ChainID))
		return nil
	}

	// Watch runs alongside Connect so wallet changes made while the
	// prompt is open are seen.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, poll := range app.pollers {
		go poll(ctx)
	}
	watchErr := make(chan error, 1)
	go func() { watchErr <- app.bridge.Watch(ctx) }()

	session, err := app.bridge.Connect(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Connected %s on chain %s\n", session.Account, hexutil.EncodeUint64(session.ChainID))

	err = <-watchErr
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func assetsCmd(ctx context.Context, c *cli.Context, app *application) error {
	var (
		assets []models.CanonicalAsset
		err    error
	)
	if c.Bool("all") {
		assets, err = app.market.ListedAssets(ctx)
	} else {
		if _, err = app.bridge.Connect(ctx); err != nil {
			return err
		}
		assets, err = app.market.MyAssets(ctx)
	}
	if err != nil {
		return err
	}
	return printJSON(assets)
}

func marketCmd(ctx context.Context, c *cli.Context, app *application) error {
	query := models.ListingQuery{
		Name:     c.String("name"),
		Page:     c.Int("page"),
		PageSize: c.Int("page-size"),
	}
	if c.IsSet("sale") {
		v := c.Bool("sale")
		query.IsForSale = &v
	}
	if c.IsSet("rent") {
		v := c.Bool("rent")
		query.IsForRent = &v
	}

	page, err := app.market.Market(ctx, query)
	if err != nil {
		return err
	}
	return printJSON(page)
}

func assetCmd(ctx context.Context, c *cli.Context, app *application) error {
	id, err := tokenArg(c)
	if err != nil {
		return err
	}
	asset, err := app.market.AssetDetail(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(asset)
}

func sellCmd(ctx context.Context, c *cli.Context, app *application) error {
	id, err := tokenArg(c)
	if err != nil {
		return err
	}
	price, err := decimal.NewFromString(c.String("price"))
	if err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}
	if _, err := app.bridge.Connect(ctx); err != nil {
		return err
	}
	res, err := app.market.Sell(ctx, id, price, c.String("currency"))
	if err != nil {
		return err
	}
	return printJSON(res)
}

func rentOutCmd(ctx context.Context, c *cli.Context, app *application) error {
	id, err := tokenArg(c)
	if err != nil {
		return err
	}
	price, err := decimal.NewFromString(c.String("price"))
	if err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}
	if _, err := app.bridge.Connect(ctx); err != nil {
		return err
	}
	res, err := app.market.RentOut(ctx, id, price, c.Uint64("periods"))
	if err != nil {
		return err
	}
	return printJSON(res)
}

func cancelCmd(ctx context.Context, c *cli.Context, app *application) error {
	id, err := tokenArg(c)
	if err != nil {
		return err
	}
	if _, err := app.bridge.Connect(ctx); err != nil {
		return err
	}
	res, err := app.market.CancelListing(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func buyCmd(ctx context.Context, c *cli.Context, app *application) error {
	id, err := tokenArg(c)
	if err != nil {
		return err
	}
	if _, err := app.bridge.Connect(ctx); err != nil {
		return err
	}
	res, err := app.market.Buy(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func rentCmd(ctx context.Context, c *cli.Context, app *application) error {
	id, err := tokenArg(c)
	if err != nil {
		return err
	}
	if _, err := app.bridge.Connect(ctx); err != nil {
		return err
	}
	res, err := app.market.Rent(ctx, id, c.Uint64("periods"))
	if err != nil {
		return err
	}
	return printJSON(res)
}

func orderCreateCmd(ctx context.Context, c *cli.Context, app *application) error {
	id, err := tokenArg(c)
	if err != nil {
		return err
	}
	order, err := app.market.CreateOrder(ctx, models.OrderRequest{
		TokenID:  id,
		Kind:     models.OrderKind(c.String("kind")),
		Price:    c.String("price"),
		PayToken: c.String("pay-token"),
		Periods:  c.Uint64("periods"),
	})
	if err != nil {
		return err
	}
	return printJSON(order)
}

func orderCancelCmd(ctx context.Context, c *cli.Context, app *application) error {
	id, err := tokenArg(c)
	if err != nil {
		return err
	}
	order, err := app.market.CancelOrder(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(order)
}

func orderCompleteCmd(ctx context.Context, c *cli.Context, app *application) error {
	id, err := tokenArg(c)
	if err != nil {
		return err
	}
	order, err := app.market.CompleteOrder(ctx, id, c.String("tx-hash"))
	if err != nil {
		return err
	}
	return printJSON(order)
}

func financeCmd(kind string) command {
	return func(ctx context.Context, c *cli.Context, app *application) error {
		amount, err := decimal.NewFromString(c.String("amount"))
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
		req := models.FinanceRequest{
			Currency: strings.ToUpper(c.String("currency")),
			Amount:   amount,
			Address:  c.String("address"),
			TxHash:   c.String("tx-hash"),
		}

		var record models.FinanceRecord
		switch models.FinanceKind(kind) {
		case models.FinanceDeposit:
			record, err = app.market.Deposit(ctx, req)
		case models.FinanceWithdraw:
			if req.Address == "" {
				if _, err := app.bridge.Connect(ctx); err != nil {
					return err
				}
			}
			record, err = app.market.Withdraw(ctx, req)
		case models.FinanceTransfer:
			record, err = app.market.Transfer(ctx, req)
		default:
			return fmt.Errorf("unknown finance action %s", kind)
		}
		if err != nil {
			return err
		}
		return printJSON(record)
	}
}

// mockAPICmd serves the fixture backend until interrupted. It does not need
// the chain or wallet, so it loads only the base configuration.
func mockAPICmd(c *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}
	port := cfg.MockAPIPort
	if c.IsSet("port") {
		port = c.Int("port")
	}
	token := cfg.APIToken
	if c.IsSet("api-token") {
		token = c.String("api-token")
	}

	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	dsn := cfg.MockAPIDatabaseURL
	if c.IsSet("database-url") {
		dsn = c.String("database-url")
	}

	store := mockapi.NewStore(mockapi.Fixtures())
	if dsn != "" {
		db, err := repository.NewPostgresDB(dsn, log)
		if err != nil {
			return err
		}
		defer db.Close()

		orders, err := db.Orders()
		if err != nil {
			return err
		}
		finance, err := db.FinanceRecords()
		if err != nil {
			return err
		}
		store.Restore(orders, finance)
		store.SetJournal(db)
		log.Info("Restored mock API state", "orders", len(orders), "finance", len(finance))
	}

	server := mockapi.NewServer(store, port, token, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	ctx, stop := signalContext(c.Context)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return server.Shutdown()
	}
}
