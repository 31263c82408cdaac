package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"

	"github.com/valueid/valueid-client/internal/api"
	"github.com/valueid/valueid-client/internal/blockchain"
	"github.com/valueid/valueid-client/internal/config"
	"github.com/valueid/valueid-client/internal/marketplace"
	"github.com/valueid/valueid-client/internal/metadata"
	"github.com/valueid/valueid-client/internal/metrics"
	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/internal/normalize"
	"github.com/valueid/valueid-client/internal/wallet"
	"github.com/valueid/valueid-client/internal/wallet/provider"
	"github.com/valueid/valueid-client/pkg/logger"
)

// application holds the wired components for one CLI invocation.
type application struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics

	bridge *wallet.Bridge
	market *marketplace.Marketplace

	// pollers run until the context ends; only started by long-lived commands
	pollers []func(ctx context.Context)

	closers []func()
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.log.Sync()
}

// loadConfig loads the environment configuration and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("network-file") {
		if err := cfg.LoadNetworkFile(c.String("network-file")); err != nil {
			return nil, err
		}
	}
	if c.IsSet("api-base-url") {
		cfg.APIBaseURL = c.String("api-base-url")
	}
	if c.IsSet("api-token") {
		cfg.APIToken = c.String("api-token")
	}
	if c.IsSet("api-timeout") {
		cfg.APITimeout = c.Duration("api-timeout")
	}
	if c.IsSet("rpc-url") {
		cfg.Network.RPCURLs = []string{c.String("rpc-url")}
	}
	if c.IsSet("chain-id") {
		cfg.Network.ChainID = c.Uint64("chain-id")
	}
	if c.IsSet("contract-address") {
		cfg.ContractAddress = c.String("contract-address")
	}
	if c.IsSet("wallet-rpc-url") {
		cfg.WalletRPCURL = c.String("wallet-rpc-url")
	}
	if c.IsSet("wallet-private-key") {
		cfg.WalletPrivateKey = c.String("wallet-private-key")
	}
	if c.IsSet("metrics-port") {
		cfg.MetricsPort = c.Int("metrics-port")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %v", err)
	}

	app := &application{cfg: cfg, log: log, metrics: metrics.New()}

	if cfg.MetricsPort > 0 {
		app.serveMetrics()
	}

	// Initialize wallet provider; a missing provider surfaces as WalletUnavailable on connect
	var walletProvider models.Provider
	switch {
	case cfg.WalletRPCURL != "":
		p, err := provider.DialRPC(ctx, cfg.WalletRPCURL, cfg.WalletPollInterval, log)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, p.Close)
		app.pollers = append(app.pollers, p.Run)
		walletProvider = p
	case cfg.WalletPrivateKey != "":
		p, err := provider.NewKeyProvider(cfg.WalletPrivateKey, cfg.Network, provider.DialEthclient, log)
		if err != nil {
			app.Close()
			return nil, err
		}
		walletProvider = p
	}
	app.bridge = wallet.NewBridge(walletProvider, cfg.Network, log, app.metrics)

	// Initialize blockchain service
	var chain marketplace.Chain
	if cfg.ContractAddress != "" {
		eth := blockchain.NewEthereum(cfg.Network.RPCURLs[0], cfg.ContractAddress, log, app.metrics)
		if err := eth.Run(ctx); err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, eth.Close)
		chain = eth
	}

	var marketAPI models.MarketAPI
	if cfg.APIBaseURL != "" {
		marketAPI = api.New(cfg.APIBaseURL, cfg.APITimeout, cfg.APIToken, log, app.metrics)
	}

	native := models.Currency{Symbol: cfg.Network.NativeCurrency.Symbol, Decimals: int32(cfg.Network.NativeCurrency.Decimals)}
	currencies := normalize.NewCurrencyTable(native, cfg.Currencies)
	normalizer := normalize.New(currencies, cfg.PlaceholderImage,
		normalize.WithMetrics(app.metrics),
		normalize.WithLogger(log),
	)
	resolver := metadata.NewResolver(cfg.MetadataGateway, cfg.APITimeout, log)

	app.market = marketplace.NewMarketplace(app.bridge, chain, marketAPI, resolver, normalizer, currencies, log)
	return app, nil
}

func (a *application) serveMetrics() {
	router := gin.New()
	router.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	server := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", a.cfg.MetricsPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		a.log.Info("Serving metrics", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Metrics server failed", "error", err)
		}
	}()
	a.closers = append(a.closers, func() { _ = server.Close() })
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

type command func(ctx context.Context, c *cli.Context, app *application) error

// withApp builds the application for one command and tears it down afterwards.
func withApp(fn command) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		ctx, stop := signalContext(c.Context)
		defer stop()

		if !cfg.Development {
			gin.SetMode(gin.ReleaseMode)
		}

		app, err := newApplication(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := fn(ctx, c, app); err != nil {
			app.log.Debug("Command failed", "command", c.Command.FullName(), "kind", models.KindOf(err).String(), "error", err)
			return cli.Exit(models.Describe(err)+" ("+err.Error()+")", 1)
		}
		return nil
	}
}
