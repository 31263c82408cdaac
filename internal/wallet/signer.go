package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/valueid/valueid-client/internal/models"
)

// providerSigner authorizes transactions by handing them to the wallet with
// eth_sendTransaction. The wallet signs and broadcasts.
type providerSigner struct {
	provider models.Provider
	account  common.Address
}

func newProviderSigner(provider models.Provider, account string) *providerSigner {
	return &providerSigner{provider: provider, account: common.HexToAddress(account)}
}

type sendTxArgs struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data,omitempty"`
	Value *hexutil.Big   `json:"value,omitempty"`
}

func (s *providerSigner) Address() common.Address {
	return s.account
}

func (s *providerSigner) SendTransaction(ctx context.Context, tx models.TxRequest) (common.Hash, error) {
	args := sendTxArgs{From: s.account, To: tx.To, Data: tx.Data}
	if tx.Value != nil && tx.Value.Sign() > 0 {
		args.Value = (*hexutil.Big)(tx.Value)
	}

	raw, err := s.provider.Request(ctx, "eth_sendTransaction", args)
	if err != nil {
		var perr *models.ProviderError
		if errors.As(err, &perr) && perr.Code == models.ProviderCodeUserRejected {
			return common.Hash{}, fmt.Errorf("%w: %s", models.ErrUserRejected, perr.Message)
		}
		return common.Hash{}, err
	}

	var hash common.Hash
	if err := json.Unmarshal(raw, &hash); err != nil {
		return common.Hash{}, fmt.Errorf("bad eth_sendTransaction result: %w", err)
	}
	return hash, nil
}
