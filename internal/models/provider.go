package models

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// EIP-1193 provider error codes.
const (
	ProviderCodeUserRejected      = 4001
	ProviderCodeUnauthorized      = 4100
	ProviderCodeUnsupportedMethod = 4200
	ProviderCodeDisconnected      = 4900
	ProviderCodeChainDisconnected = 4901
	ProviderCodeUnrecognizedChain = 4902
)

// ProviderError is an error reported by the wallet itself.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

type ProviderEventKind string

const (
	EventAccountsChanged ProviderEventKind = "accountsChanged"
	EventChainChanged    ProviderEventKind = "chainChanged"
	EventDisconnect      ProviderEventKind = "disconnect"
)

// ProviderEvent is a notification pushed by the wallet.
type ProviderEvent struct {
	Kind     ProviderEventKind
	Accounts []string
	ChainID  uint64
}

// Provider is the wallet capability: EIP-1193 style requests plus change notifications.
type Provider interface {
	Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error)
	SubscribeEvents(ch chan<- ProviderEvent) event.Subscription
}

// TxRequest is a contract call to be signed and broadcast by the wallet.
type TxRequest struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Signer authorizes transactions for the connected account.
type Signer interface {
	Address() common.Address
	SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error)
}
