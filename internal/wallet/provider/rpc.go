package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/pkg/logger"
)

// RPCProvider talks to an external wallet over JSON-RPC (for example a wallet
// daemon or a browser bridge). Account and chain changes are detected by
// polling because plain JSON-RPC has no push notifications.
type RPCProvider struct {
	client       *rpc.Client
	pollInterval time.Duration
	logger       *logger.Logger

	feed  event.Feed
	scope event.SubscriptionScope

	mu       sync.Mutex
	accounts []string
	chainID  uint64
	polled   bool

	closeOnce sync.Once
	quit      chan struct{}
}

// DialRPC connects to the wallet endpoint.
func DialRPC(ctx context.Context, url string, pollInterval time.Duration, log *logger.Logger) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to wallet RPC: %w", err)
	}
	return NewRPCProvider(client, pollInterval, log), nil
}

func NewRPCProvider(client *rpc.Client, pollInterval time.Duration, log *logger.Logger) *RPCProvider {
	if log == nil {
		log = logger.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &RPCProvider{
		client:       client,
		pollInterval: pollInterval,
		logger:       log,
		quit:         make(chan struct{}),
	}
}

// Request forwards a call to the wallet. Wallet-side JSON-RPC errors are
// returned as *models.ProviderError carrying the wallet's code.
func (p *RPCProvider) Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	var result json.RawMessage
	if err := p.client.CallContext(ctx, &result, method, params...); err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return nil, &models.ProviderError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
		}
		return nil, &models.ProviderError{Code: models.ProviderCodeDisconnected, Message: err.Error()}
	}
	return result, nil
}

func (p *RPCProvider) SubscribeEvents(ch chan<- models.ProviderEvent) event.Subscription {
	return p.scope.Track(p.feed.Subscribe(ch))
}

// Run polls eth_accounts and eth_chainId until ctx is done or Close is called,
// emitting an event for every observed change.
func (p *RPCProvider) Run(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		p.poll(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		}
	}
}

func (p *RPCProvider) poll(ctx context.Context) {
	var accounts []string
	if err := p.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		p.logger.Debug("Wallet poll failed", "error", err)
		p.emitDisconnect()
		return
	}
	var chainHex string
	if err := p.client.CallContext(ctx, &chainHex, "eth_chainId"); err != nil {
		p.logger.Debug("Wallet poll failed", "error", err)
		p.emitDisconnect()
		return
	}
	chainID, err := hexutil.DecodeUint64(chainHex)
	if err != nil {
		p.logger.Warn("Wallet returned invalid chain id", "chainId", chainHex)
		return
	}

	p.mu.Lock()
	first := !p.polled
	accountsChanged := !first && !sameAccounts(p.accounts, accounts)
	chainChanged := !first && p.chainID != chainID
	p.accounts, p.chainID, p.polled = accounts, chainID, true
	p.mu.Unlock()

	if accountsChanged {
		p.feed.Send(models.ProviderEvent{Kind: models.EventAccountsChanged, Accounts: accounts, ChainID: chainID})
	}
	if chainChanged {
		p.feed.Send(models.ProviderEvent{Kind: models.EventChainChanged, Accounts: accounts, ChainID: chainID})
	}
}

func (p *RPCProvider) emitDisconnect() {
	p.mu.Lock()
	wasUp := p.polled
	p.polled = false
	p.mu.Unlock()

	if wasUp {
		p.feed.Send(models.ProviderEvent{Kind: models.EventDisconnect})
	}
}

// Close stops polling, ends all subscriptions and closes the connection.
func (p *RPCProvider) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.scope.Close()
		p.client.Close()
	})
}

func sameAccounts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
