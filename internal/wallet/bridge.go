package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/sync/singleflight"

	"github.com/valueid/valueid-client/internal/metrics"
	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/pkg/logger"
)

const (
	// DefaultConnectTimeout bounds one shared connection attempt, wallet
	// prompts included.
	DefaultConnectTimeout = 2 * time.Minute

	maxSessionRefreshes = 3
)

// State is the connection state of the bridge.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateNetworkMismatched
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateNetworkMismatched:
		return "network_mismatched"
	}
	return "disconnected"
}

// Bridge owns the single active wallet session. It is the only writer of the
// session; everything else reads snapshots through Session.
type Bridge struct {
	provider models.Provider
	network  models.NetworkDescriptor
	logger   *logger.Logger
	metrics  *metrics.Metrics

	mu      sync.RWMutex
	state   State
	session models.WalletSession
	// stale is set when the wallet reports a change while a connection
	// attempt is still running.
	stale bool

	connecting     singleflight.Group
	connectTimeout time.Duration
}

// NewBridge creates a bridge for the given network. A nil provider means no
// wallet is installed.
func NewBridge(provider models.Provider, network models.NetworkDescriptor, log *logger.Logger, m *metrics.Metrics) *Bridge {
	if log == nil {
		log = logger.NewNop()
	}
	return &Bridge{
		provider: provider,
		network:  network,
		logger:   log,
		metrics:  m,

		connectTimeout: DefaultConnectTimeout,
	}
}

// State returns the current connection state.
func (b *Bridge) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Session returns a snapshot of the current session.
func (b *Bridge) Session() models.WalletSession {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session
}

// Connect requests account access and makes sure the wallet is on the
// configured network, retrying the network fix exactly once. Concurrent
// callers share one in-flight attempt so the wallet prompts only once.
//
// The shared attempt is not tied to any single caller: it runs until it
// finishes or connectTimeout elapses. A caller whose ctx ends stops waiting
// and gets ctx.Err(), while the others keep waiting for the result.
func (b *Bridge) Connect(ctx context.Context) (models.WalletSession, error) {
	ch := b.connecting.DoChan("connect", func() (interface{}, error) {
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.connectTimeout)
		defer cancel()
		return b.connect(attemptCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			b.logger.Debug("Joined in-flight wallet connection")
		}
		if res.Err != nil {
			return models.WalletSession{}, res.Err
		}
		return res.Val.(models.WalletSession), nil
	case <-ctx.Done():
		return models.WalletSession{}, ctx.Err()
	}
}

func (b *Bridge) connect(ctx context.Context) (session models.WalletSession, err error) {
	defer func() { b.metrics.ObserveConnect(err) }()

	b.mu.Lock()
	b.state = StateConnecting
	b.session = models.WalletSession{}
	b.stale = false
	b.mu.Unlock()

	session, err = b.RequestConnection(ctx)
	if err != nil {
		b.reset()
		b.logger.Warn("Wallet connection failed", "error", err)
		return models.WalletSession{}, err
	}

	if !b.VerifyNetwork(session) {
		b.setState(StateNetworkMismatched, models.WalletSession{})
		b.logger.Info("Wallet is on the wrong network",
			"walletChainId", hexutil.EncodeUint64(session.ChainID),
			"targetChainId", b.network.ChainIDHex())

		if err = b.EnsureNetwork(ctx, session); err != nil {
			b.reset()
			return models.WalletSession{}, err
		}
		chainID, readErr := b.chainID(ctx)
		if readErr != nil {
			b.reset()
			return models.WalletSession{}, fmt.Errorf("%w: %v", models.ErrNetworkMismatch, readErr)
		}
		session.ChainID = chainID
		if !b.VerifyNetwork(session) {
			b.reset()
			return models.WalletSession{}, fmt.Errorf("%w: wallet still on chain %s after switch",
				models.ErrNetworkMismatch, hexutil.EncodeUint64(chainID))
		}
	}

	for refreshes := 0; ; refreshes++ {
		if b.commit(&session) {
			break
		}
		if refreshes == maxSessionRefreshes {
			b.reset()
			return models.WalletSession{}, fmt.Errorf("%w: wallet kept changing while connecting", models.ErrWalletUnavailable)
		}
		if session, err = b.refreshSession(ctx, session); err != nil {
			b.reset()
			return models.WalletSession{}, err
		}
	}

	b.logger.Info("Wallet connected", "account", session.Account, "chainId", b.network.ChainIDHex())
	return session, nil
}

// commit publishes session as connected unless the wallet reported a change
// since the attempt started. It clears the stale mark either way.
func (b *Bridge) commit(session *models.WalletSession) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stale {
		b.stale = false
		return false
	}
	session.Connected = true
	session.Signer = newProviderSigner(b.provider, session.Account)
	b.state = StateConnected
	b.session = *session
	return true
}

// refreshSession re-reads the authorized account and the chain without
// prompting the user again.
func (b *Bridge) refreshSession(ctx context.Context, session models.WalletSession) (models.WalletSession, error) {
	raw, err := b.provider.Request(ctx, "eth_accounts")
	if err != nil {
		return models.WalletSession{}, classify(err)
	}
	account, err := firstAccount("eth_accounts", raw)
	if err != nil {
		return models.WalletSession{}, err
	}
	chainID, err := b.chainID(ctx)
	if err != nil {
		return models.WalletSession{}, err
	}

	session.Account = account
	session.ChainID = chainID
	if !b.VerifyNetwork(session) {
		return models.WalletSession{}, fmt.Errorf("%w: wallet moved to chain %s while connecting",
			models.ErrNetworkMismatch, hexutil.EncodeUint64(chainID))
	}

	b.logger.Info("Wallet changed while connecting", "account", account)
	return session, nil
}

// RequestConnection asks the wallet for account access and reads its current
// chain. The returned session is not yet connected and carries no signer.
func (b *Bridge) RequestConnection(ctx context.Context) (models.WalletSession, error) {
	if b.provider == nil {
		return models.WalletSession{}, models.ErrWalletUnavailable
	}

	raw, err := b.provider.Request(ctx, "eth_requestAccounts")
	if err != nil {
		return models.WalletSession{}, classify(err)
	}
	account, err := firstAccount("eth_requestAccounts", raw)
	if err != nil {
		return models.WalletSession{}, err
	}

	chainID, err := b.chainID(ctx)
	if err != nil {
		return models.WalletSession{}, err
	}

	return models.WalletSession{
		ChainID:  chainID,
		Account:  account,
		Provider: b.provider,
	}, nil
}

// VerifyNetwork reports whether the session is on the configured chain.
func (b *Bridge) VerifyNetwork(session models.WalletSession) bool {
	return session.ChainID == b.network.ChainID
}

// EnsureNetwork asks the wallet to switch to the configured chain, adding it
// first when the wallet does not know it. Any failure is a network mismatch.
func (b *Bridge) EnsureNetwork(ctx context.Context, session models.WalletSession) error {
	if b.VerifyNetwork(session) {
		return nil
	}
	if b.provider == nil {
		return models.ErrWalletUnavailable
	}

	switchParam := models.SwitchChainParameter{ChainID: b.network.ChainIDHex()}
	_, err := b.provider.Request(ctx, "wallet_switchEthereumChain", switchParam)
	if err == nil {
		return nil
	}

	var perr *models.ProviderError
	if !errors.As(err, &perr) || perr.Code != models.ProviderCodeUnrecognizedChain {
		return fmt.Errorf("%w: switch to %s: %v", models.ErrNetworkMismatch, switchParam.ChainID, err)
	}

	b.logger.Info("Adding network to wallet", "chainId", switchParam.ChainID, "chainName", b.network.ChainName)
	if _, err := b.provider.Request(ctx, "wallet_addEthereumChain", b.network.AddChainParameter()); err != nil {
		return fmt.Errorf("%w: add %s: %v", models.ErrNetworkMismatch, switchParam.ChainID, err)
	}
	if _, err := b.provider.Request(ctx, "wallet_switchEthereumChain", switchParam); err != nil {
		return fmt.Errorf("%w: switch to %s: %v", models.ErrNetworkMismatch, switchParam.ChainID, err)
	}
	return nil
}

// Disconnect drops the session.
func (b *Bridge) Disconnect() {
	b.reset()
	b.logger.Info("Wallet disconnected")
}

// Watch clears the session whenever the wallet reports an account change, a
// chain change or a disconnect. It returns when ctx is done or the
// subscription fails.
func (b *Bridge) Watch(ctx context.Context) error {
	if b.provider == nil {
		return models.ErrWalletUnavailable
	}

	events := make(chan models.ProviderEvent, 16)
	sub := b.provider.SubscribeEvents(events)
	defer sub.Unsubscribe()

	for {
		select {
		case ev := <-events:
			b.handleEvent(ev)
		case err := <-sub.Err():
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *Bridge) handleEvent(ev models.ProviderEvent) {
	b.mu.Lock()
	switch b.state {
	case StateConnected:
	case StateConnecting, StateNetworkMismatched:
		b.stale = true
		b.mu.Unlock()
		b.logger.Debug("Wallet changed during connection attempt", "event", string(ev.Kind))
		return
	default:
		b.mu.Unlock()
		return
	}
	account := b.session.Account
	b.state = StateDisconnected
	b.session = models.WalletSession{}
	b.mu.Unlock()

	b.logger.Info("Wallet session cleared", "event", string(ev.Kind), "account", account)
}

func firstAccount(method string, raw json.RawMessage) (string, error) {
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return "", fmt.Errorf("%w: bad %s result: %v", models.ErrWalletUnavailable, method, err)
	}
	if len(accounts) == 0 || accounts[0] == "" {
		return "", fmt.Errorf("%w: no account authorized", models.ErrUserRejected)
	}
	return strings.ToLower(accounts[0]), nil
}

func (b *Bridge) chainID(ctx context.Context) (uint64, error) {
	raw, err := b.provider.Request(ctx, "eth_chainId")
	if err != nil {
		return 0, classify(err)
	}
	var hex string
	if err := json.Unmarshal(raw, &hex); err != nil {
		return 0, fmt.Errorf("%w: bad eth_chainId result: %v", models.ErrWalletUnavailable, err)
	}
	id, err := hexutil.DecodeUint64(hex)
	if err != nil {
		return 0, fmt.Errorf("%w: bad chain id %q: %v", models.ErrWalletUnavailable, hex, err)
	}
	return id, nil
}

func (b *Bridge) setState(state State, session models.WalletSession) {
	b.mu.Lock()
	b.state = state
	b.session = session
	b.mu.Unlock()
}

func (b *Bridge) reset() {
	b.setState(StateDisconnected, models.WalletSession{})
}

// classify maps provider failures onto the error taxonomy.
func classify(err error) error {
	var perr *models.ProviderError
	if errors.As(err, &perr) && perr.Code == models.ProviderCodeUserRejected {
		return fmt.Errorf("%w: %s", models.ErrUserRejected, perr.Message)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrWalletUnavailable, err)
}
