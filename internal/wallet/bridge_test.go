package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valueid/valueid-client/internal/metrics"
	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/pkg/logger"
)

const (
	testAccount = "0xAbCdEf0123456789aBcDeF0123456789ABCDEF01"
	sepolia     = uint64(11155111)
)

var sepoliaNetwork = models.NetworkDescriptor{
	ChainID:        sepolia,
	ChainName:      "Sepolia",
	RPCURLs:        []string{"https://rpc.sepolia.org"},
	NativeCurrency: models.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
}

// scriptedWallet is an in-memory wallet that records every request.
type scriptedWallet struct {
	mu       sync.Mutex
	calls    []string
	chainID  uint64
	known    map[uint64]bool
	accounts []string

	rejectAccounts bool
	rejectSwitch   bool
	ignoreSwitch   bool
	requestDelay   time.Duration
	// beforeChainID runs once, outside the lock, ahead of the next eth_chainId.
	beforeChainID func()

	feed event.Feed
}

func newScriptedWallet(chainID uint64, known ...uint64) *scriptedWallet {
	w := &scriptedWallet{
		chainID:  chainID,
		known:    map[uint64]bool{chainID: true},
		accounts: []string{testAccount},
	}
	for _, id := range known {
		w.known[id] = true
	}
	return w
}

func (w *scriptedWallet) Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	w.mu.Lock()
	w.calls = append(w.calls, method)
	delay := w.requestDelay
	var hook func()
	if method == "eth_chainId" {
		hook, w.beforeChainID = w.beforeChainID, nil
	}
	w.mu.Unlock()

	if delay > 0 && method == "eth_requestAccounts" {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if hook != nil {
		hook()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch method {
	case "eth_requestAccounts":
		if w.rejectAccounts {
			return nil, &models.ProviderError{Code: models.ProviderCodeUserRejected, Message: "User rejected the request."}
		}
		return json.Marshal(w.accounts)
	case "eth_accounts":
		return json.Marshal(w.accounts)
	case "eth_chainId":
		return json.Marshal(hexutil.EncodeUint64(w.chainID))
	case "wallet_switchEthereumChain":
		if w.rejectSwitch {
			return nil, &models.ProviderError{Code: models.ProviderCodeUserRejected, Message: "User rejected the request."}
		}
		p := params[0].(models.SwitchChainParameter)
		id, err := hexutil.DecodeUint64(p.ChainID)
		if err != nil {
			return nil, err
		}
		if !w.known[id] {
			return nil, &models.ProviderError{Code: models.ProviderCodeUnrecognizedChain, Message: "Unrecognized chain ID"}
		}
		if !w.ignoreSwitch {
			w.chainID = id
		}
		return json.RawMessage("null"), nil
	case "wallet_addEthereumChain":
		p := params[0].(models.AddChainParameter)
		id, err := hexutil.DecodeUint64(p.ChainID)
		if err != nil {
			return nil, err
		}
		w.known[id] = true
		return json.RawMessage("null"), nil
	case "eth_sendTransaction":
		return json.Marshal(common.HexToHash("0x01"))
	}
	return nil, &models.ProviderError{Code: models.ProviderCodeUnsupportedMethod, Message: method}
}

func (w *scriptedWallet) SubscribeEvents(ch chan<- models.ProviderEvent) event.Subscription {
	return w.feed.Subscribe(ch)
}

func (w *scriptedWallet) setAccounts(accounts ...string) {
	w.mu.Lock()
	w.accounts = accounts
	w.mu.Unlock()
}

func (w *scriptedWallet) Calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

func (w *scriptedWallet) count(method string) int {
	n := 0
	for _, c := range w.Calls() {
		if c == method {
			n++
		}
	}
	return n
}

func newTestBridge(p models.Provider) *Bridge {
	return NewBridge(p, sepoliaNetwork, logger.NewNop(), nil)
}

func (b *Bridge) isStale() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stale
}

// startWatch runs Watch until the test ends. It returns once Watch has
// consumed an event, leaving the bridge disconnected and not stale.
func startWatch(t *testing.T, b *Bridge, w *scriptedWallet) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Watch(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	b.setState(StateConnecting, models.WalletSession{})
	require.Eventually(t, func() bool {
		return w.feed.Send(models.ProviderEvent{Kind: models.EventChainChanged}) > 0
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, b.isStale, time.Second, time.Millisecond)

	b.mu.Lock()
	b.state = StateDisconnected
	b.stale = false
	b.mu.Unlock()
}

func TestRequestConnectionWithoutProvider(t *testing.T) {
	b := newTestBridge(nil)

	session, err := b.RequestConnection(context.Background())
	assert.ErrorIs(t, err, models.ErrWalletUnavailable)
	assert.Equal(t, models.WalletSession{}, session)

	session, err = b.Connect(context.Background())
	assert.ErrorIs(t, err, models.ErrWalletUnavailable)
	assert.False(t, session.Connected)
	assert.Nil(t, session.Signer)
	assert.Equal(t, StateDisconnected, b.State())
}

func TestConnectOnCorrectChain(t *testing.T) {
	w := newScriptedWallet(sepolia)
	b := newTestBridge(w)

	session, err := b.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"eth_requestAccounts", "eth_chainId"}, w.Calls())
	assert.True(t, session.Connected)
	assert.True(t, session.HasSigner())
	assert.Equal(t, sepolia, session.ChainID)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", session.Account)
	assert.Equal(t, common.HexToAddress(testAccount), session.Signer.Address())
	assert.Equal(t, StateConnected, b.State())
	assert.Equal(t, session.Account, b.Session().Account)
}

func TestConnectSwitchesKnownChain(t *testing.T) {
	w := newScriptedWallet(1, sepolia)
	b := newTestBridge(w)

	session, err := b.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, w.count("wallet_switchEthereumChain"))
	assert.Equal(t, 0, w.count("wallet_addEthereumChain"))
	assert.Equal(t, "0xaa36a7", hexutil.EncodeUint64(session.ChainID))
	assert.True(t, session.HasSigner())
}

func TestConnectAddsUnknownChain(t *testing.T) {
	w := newScriptedWallet(1)
	b := newTestBridge(w)

	session, err := b.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"eth_requestAccounts",
		"eth_chainId",
		"wallet_switchEthereumChain",
		"wallet_addEthereumChain",
		"wallet_switchEthereumChain",
		"eth_chainId",
	}, w.Calls())
	assert.Equal(t, sepolia, session.ChainID)
	assert.True(t, session.HasSigner())
}

func TestConnectNeverReturnsSignerOnWrongChain(t *testing.T) {
	tests := []struct {
		name  string
		setup func(w *scriptedWallet)
	}{
		{"switch rejected", func(w *scriptedWallet) { w.rejectSwitch = true }},
		{"switch ignored", func(w *scriptedWallet) { w.ignoreSwitch = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newScriptedWallet(1, sepolia)
			tt.setup(w)
			b := newTestBridge(w)

			session, err := b.Connect(context.Background())
			assert.ErrorIs(t, err, models.ErrNetworkMismatch)
			assert.Nil(t, session.Signer)
			assert.False(t, session.Connected)
			assert.Nil(t, b.Session().Signer)
			assert.Equal(t, StateDisconnected, b.State())
			assert.Equal(t, 1, w.count("wallet_switchEthereumChain"))
		})
	}
}

func TestConnectUserRejected(t *testing.T) {
	w := newScriptedWallet(sepolia)
	w.rejectAccounts = true
	b := newTestBridge(w)

	_, err := b.Connect(context.Background())
	assert.ErrorIs(t, err, models.ErrUserRejected)
	assert.Equal(t, models.KindUserRejected, models.KindOf(err))

	w = newScriptedWallet(sepolia)
	w.accounts = []string{}
	_, err = newTestBridge(w).Connect(context.Background())
	assert.ErrorIs(t, err, models.ErrUserRejected)
}

func TestConcurrentConnectPromptsOnce(t *testing.T) {
	w := newScriptedWallet(sepolia)
	w.requestDelay = 50 * time.Millisecond
	m := metrics.New()
	b := NewBridge(w, sepoliaNetwork, logger.NewNop(), m)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s, err := b.Connect(context.Background()); err == nil && s.HasSigner() {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), ok.Load())
	assert.Equal(t, 1, w.count("eth_requestAccounts"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Connects().WithLabelValues(metrics.ResultOK)))
}

func TestDisconnectClearsSession(t *testing.T) {
	b := newTestBridge(newScriptedWallet(sepolia))

	_, err := b.Connect(context.Background())
	require.NoError(t, err)

	b.Disconnect()
	assert.Equal(t, models.WalletSession{}, b.Session())
	assert.Equal(t, StateDisconnected, b.State())
}

func TestWatchClearsSessionOnProviderEvent(t *testing.T) {
	w := newScriptedWallet(sepolia)
	b := newTestBridge(w)

	_, err := b.Connect(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Watch(ctx) }()

	require.Eventually(t, func() bool {
		return w.feed.Send(models.ProviderEvent{Kind: models.EventAccountsChanged, Accounts: []string{"0x01"}}) > 0
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return b.State() == StateDisconnected }, time.Second, 5*time.Millisecond)
	assert.False(t, b.Session().HasSigner())

	cancel()
	assert.True(t, errors.Is(<-done, context.Canceled))
}

func TestSignerSendsTransaction(t *testing.T) {
	w := newScriptedWallet(sepolia)
	b := newTestBridge(w)

	session, err := b.Connect(context.Background())
	require.NoError(t, err)

	hash, err := session.Signer.SendTransaction(context.Background(), models.TxRequest{
		To:   common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Data: []byte{0x01, 0x02},
	})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x01"), hash)
	assert.Equal(t, 1, w.count("eth_sendTransaction"))
}

func TestJoinedCallerSurvivesInitiatorCancel(t *testing.T) {
	w := newScriptedWallet(sepolia)
	w.requestDelay = 200 * time.Millisecond
	b := newTestBridge(w)

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := b.Connect(first)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return w.count("eth_requestAccounts") == 1 }, time.Second, time.Millisecond)

	type result struct {
		session models.WalletSession
		err     error
	}
	second := make(chan result, 1)
	go func() {
		s, err := b.Connect(context.Background())
		second <- result{s, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancelFirst()

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("cancelled caller kept waiting for the shared attempt")
	}

	res := <-second
	require.NoError(t, res.err)
	assert.True(t, res.session.HasSigner())
	assert.Equal(t, StateConnected, b.State())
	assert.Equal(t, 1, w.count("eth_requestAccounts"))
}

func TestConnectTimeoutBoundsSharedAttempt(t *testing.T) {
	w := newScriptedWallet(sepolia)
	w.requestDelay = 50 * time.Millisecond
	b := newTestBridge(w)
	b.connectTimeout = 10 * time.Millisecond

	_, err := b.Connect(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateDisconnected, b.State())
}

func TestAccountChangeDuringConnectIsPickedUp(t *testing.T) {
	const switched = "0x00000000000000000000000000000000000000BB"

	w := newScriptedWallet(sepolia)
	b := newTestBridge(w)
	startWatch(t, b, w)

	w.beforeChainID = func() {
		w.setAccounts(switched)
		w.feed.Send(models.ProviderEvent{Kind: models.EventAccountsChanged, Accounts: []string{switched}})
		assert.Eventually(t, b.isStale, time.Second, time.Millisecond)
	}

	session, err := b.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"eth_requestAccounts", "eth_chainId", "eth_accounts", "eth_chainId"}, w.Calls())
	assert.Equal(t, "0x00000000000000000000000000000000000000bb", session.Account)
	assert.Equal(t, common.HexToAddress(switched), session.Signer.Address())
	assert.Equal(t, session.Account, b.Session().Account)
	assert.Equal(t, StateConnected, b.State())
	assert.False(t, b.isStale())
}

func TestDisconnectDuringConnectFails(t *testing.T) {
	w := newScriptedWallet(sepolia)
	b := newTestBridge(w)
	startWatch(t, b, w)

	w.beforeChainID = func() {
		w.setAccounts()
		w.feed.Send(models.ProviderEvent{Kind: models.EventDisconnect})
		assert.Eventually(t, b.isStale, time.Second, time.Millisecond)
	}

	session, err := b.Connect(context.Background())
	assert.ErrorIs(t, err, models.ErrUserRejected)
	assert.Nil(t, session.Signer)
	assert.Equal(t, models.WalletSession{}, b.Session())
	assert.Equal(t, StateDisconnected, b.State())
}
