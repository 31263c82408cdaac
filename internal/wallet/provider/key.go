package provider

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"

	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/pkg/logger"
)

// TxBackend is the chain access a local key wallet needs to build and send
// transactions. *ethclient.Client satisfies it.
type TxBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// BackendDialer opens a TxBackend for a network's RPC URL.
type BackendDialer func(ctx context.Context, network models.NetworkDescriptor) (TxBackend, error)

// DialEthclient dials the first RPC URL of the network.
func DialEthclient(ctx context.Context, network models.NetworkDescriptor) (TxBackend, error) {
	if len(network.RPCURLs) == 0 {
		return nil, fmt.Errorf("network %d has no RPC URL", network.ChainID)
	}
	return ethclient.DialContext(ctx, network.RPCURLs[0])
}

// KeyProvider is a wallet backed by a local private key. It behaves like an
// injected wallet that has already been unlocked: account requests never
// prompt, and it only knows the networks it was given or later added.
type KeyProvider struct {
	key     *ecdsa.PrivateKey
	address common.Address
	dial    BackendDialer
	logger  *logger.Logger

	feed event.Feed

	mu       sync.Mutex
	networks map[uint64]models.NetworkDescriptor
	current  uint64
	backends map[uint64]TxBackend
}

// NewKeyProvider creates a key wallet starting on the initial network.
func NewKeyProvider(hexKey string, initial models.NetworkDescriptor, dial BackendDialer, log *logger.Logger) (*KeyProvider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid wallet private key: %w", err)
	}
	if dial == nil {
		dial = DialEthclient
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &KeyProvider{
		key:      key,
		address:  crypto.PubkeyToAddress(key.PublicKey),
		dial:     dial,
		logger:   log,
		networks: map[uint64]models.NetworkDescriptor{initial.ChainID: initial},
		current:  initial.ChainID,
		backends: map[uint64]TxBackend{},
	}, nil
}

// Address returns the wallet account.
func (p *KeyProvider) Address() common.Address {
	return p.address
}

func (p *KeyProvider) SubscribeEvents(ch chan<- models.ProviderEvent) event.Subscription {
	return p.feed.Subscribe(ch)
}

func (p *KeyProvider) Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	switch method {
	case "eth_requestAccounts", "eth_accounts":
		return json.Marshal([]string{strings.ToLower(p.address.Hex())})

	case "eth_chainId":
		p.mu.Lock()
		current := p.current
		p.mu.Unlock()
		return json.Marshal(hexutil.EncodeUint64(current))

	case "wallet_switchEthereumChain":
		var param models.SwitchChainParameter
		if err := decodeParam(params, &param); err != nil {
			return nil, err
		}
		return p.switchChain(param)

	case "wallet_addEthereumChain":
		var param models.AddChainParameter
		if err := decodeParam(params, &param); err != nil {
			return nil, err
		}
		return p.addChain(param)

	case "eth_sendTransaction":
		var args struct {
			From  common.Address `json:"from"`
			To    common.Address `json:"to"`
			Data  hexutil.Bytes  `json:"data"`
			Value *hexutil.Big   `json:"value"`
		}
		if err := decodeParam(params, &args); err != nil {
			return nil, err
		}
		if args.From != (common.Address{}) && args.From != p.address {
			return nil, &models.ProviderError{Code: models.ProviderCodeUnauthorized, Message: "unknown account " + args.From.Hex()}
		}
		hash, err := p.sendTransaction(ctx, args.To, args.Data, (*big.Int)(args.Value))
		if err != nil {
			return nil, err
		}
		return json.Marshal(hash)
	}
	return nil, &models.ProviderError{Code: models.ProviderCodeUnsupportedMethod, Message: "unsupported method " + method}
}

func (p *KeyProvider) switchChain(param models.SwitchChainParameter) (json.RawMessage, error) {
	id, err := hexutil.DecodeUint64(param.ChainID)
	if err != nil {
		return nil, &models.ProviderError{Code: -32602, Message: "invalid chainId " + param.ChainID}
	}

	p.mu.Lock()
	if _, ok := p.networks[id]; !ok {
		p.mu.Unlock()
		return nil, &models.ProviderError{Code: models.ProviderCodeUnrecognizedChain, Message: "unrecognized chain " + param.ChainID}
	}
	changed := p.current != id
	p.current = id
	p.mu.Unlock()

	if changed {
		p.logger.Info("Key wallet switched network", "chainId", param.ChainID)
		p.feed.Send(models.ProviderEvent{Kind: models.EventChainChanged, ChainID: id})
	}
	return json.RawMessage("null"), nil
}

func (p *KeyProvider) addChain(param models.AddChainParameter) (json.RawMessage, error) {
	id, err := hexutil.DecodeUint64(param.ChainID)
	if err != nil {
		return nil, &models.ProviderError{Code: -32602, Message: "invalid chainId " + param.ChainID}
	}
	if len(param.RPCURLs) == 0 {
		return nil, &models.ProviderError{Code: -32602, Message: "rpcUrls is required"}
	}

	p.mu.Lock()
	p.networks[id] = models.NetworkDescriptor{
		ChainID:           id,
		ChainName:         param.ChainName,
		RPCURLs:           param.RPCURLs,
		BlockExplorerURLs: param.BlockExplorerURLs,
		NativeCurrency:    param.NativeCurrency,
	}
	delete(p.backends, id)
	p.mu.Unlock()

	p.logger.Info("Key wallet added network", "chainId", param.ChainID, "chainName", param.ChainName)
	return json.RawMessage("null"), nil
}

func (p *KeyProvider) backend(ctx context.Context) (TxBackend, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.current
	if b, ok := p.backends[id]; ok {
		return b, id, nil
	}
	b, err := p.dial(ctx, p.networks[id])
	if err != nil {
		return nil, 0, &models.ProviderError{Code: models.ProviderCodeChainDisconnected, Message: err.Error()}
	}
	p.backends[id] = b
	return b, id, nil
}

func (p *KeyProvider) sendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	backend, chainID, err := p.backend(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := backend.PendingNonceAt(ctx, p.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to suggest gas price: %w", err)
	}
	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: p.address, To: &to, Value: value, Data: data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(new(big.Int).SetUint64(chainID)), p.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	p.logger.Info("Transaction sent", "hash", signed.Hash().Hex(), "to", to.Hex(), "nonce", nonce)
	return signed.Hash(), nil
}

// decodeParam converts the first positional parameter into out. Params may
// be typed structs or raw JSON.
func decodeParam(params []interface{}, out interface{}) error {
	if len(params) == 0 {
		return &models.ProviderError{Code: -32602, Message: "missing params"}
	}
	raw, err := json.Marshal(params[0])
	if err != nil {
		return &models.ProviderError{Code: -32602, Message: err.Error()}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &models.ProviderError{Code: -32602, Message: err.Error()}
	}
	return nil
}
