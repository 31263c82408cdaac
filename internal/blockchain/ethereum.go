package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/valueid/valueid-client/internal/metrics"
	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/pkg/logger"
)

const (
	// DefaultReceiptPollInterval is how often AwaitConfirmation checks for a receipt.
	DefaultReceiptPollInterval = 2 * time.Second

	maxPrealloc = 256
)

// contractCaller is the read side of a bound contract.
type contractCaller interface {
	Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error
}

type receiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Ethereum reads and writes the Value ID contract. Reads go straight to the
// configured RPC node; writes are signed by the session's wallet.
type Ethereum struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
	rpcURL  string
	address common.Address

	client   *ethclient.Client
	abi      abi.ABI
	contract contractCaller
	receipts receiptFetcher

	pollInterval time.Duration
}

// NewEthereum creates a reader/writer for the contract at contractAddress.
func NewEthereum(rpcURL, contractAddress string, log *logger.Logger, m *metrics.Metrics) *Ethereum {
	if log == nil {
		log = logger.NewNop()
	}
	return &Ethereum{
		logger:       log,
		metrics:      m,
		rpcURL:       rpcURL,
		address:      common.HexToAddress(contractAddress),
		pollInterval: DefaultReceiptPollInterval,
	}
}

func (e *Ethereum) Run(ctx context.Context) error {
	err := e.ConnectToRPC(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to the ethereum RPC server: %w", err)
	}
	err = e.BuildBindings()
	if err != nil {
		return fmt.Errorf("failed to build bindings: %w", err)
	}
	return nil
}

func (e *Ethereum) ConnectToRPC(ctx context.Context) error {
	client, err := ethclient.DialContext(ctx, e.rpcURL)
	if err != nil {
		return fmt.Errorf("failed to connect to the ethereum RPC server: %w", err)
	}
	e.client = client
	e.receipts = client
	return nil
}

func (e *Ethereum) BuildBindings() error {
	parsedABI, err := abi.JSON(strings.NewReader(ValueIDABI))
	if err != nil {
		return fmt.Errorf("failed to parse Value ID ABI: %w", err)
	}
	e.abi = parsedABI
	e.contract = bind.NewBoundContract(e.address, parsedABI, e.client, e.client, e.client)
	return nil
}

func (e *Ethereum) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

// Address returns the contract address.
func (e *Ethereum) Address() common.Address {
	return e.address
}

// ListAssetsForOwner enumerates every token held by owner, in contract
// enumeration order. Any failed read fails the whole call.
func (e *Ethereum) ListAssetsForOwner(ctx context.Context, owner string) ([]models.RawAssetRecord, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("%w: invalid owner address %q", models.ErrChainReadFailure, owner)
	}
	ownerAddr := common.HexToAddress(owner)

	balance, err := e.callCount(ctx, methodBalanceOf, ownerAddr)
	if err != nil {
		return nil, err
	}

	records := make([]models.RawAssetRecord, 0, min(balance, maxPrealloc))
	for i := int64(0); i < balance; i++ {
		tokenID, err := e.callUint(ctx, methodTokenOfOwnerByIndex, ownerAddr, big.NewInt(i))
		if err != nil {
			return nil, err
		}
		record, err := e.readRecord(ctx, tokenID, ownerAddr)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// ListAllListedAssets walks the whole token supply and keeps tokens with an
// active sale or rental listing. The cost is linear in total supply.
func (e *Ethereum) ListAllListedAssets(ctx context.Context) ([]models.RawAssetRecord, error) {
	supply, err := e.callCount(ctx, methodTotalSupply)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Enumerating token supply", "totalSupply", supply)

	var records []models.RawAssetRecord
	for i := int64(0); i < supply; i++ {
		tokenID, err := e.callUint(ctx, methodTokenByIndex, big.NewInt(i))
		if err != nil {
			return nil, err
		}
		record, err := e.ReadAsset(ctx, tokenID)
		if err != nil {
			return nil, err
		}
		if record.IsListed() {
			records = append(records, record)
		}
	}
	if records == nil {
		records = []models.RawAssetRecord{}
	}
	return records, nil
}

// ReadAsset reads one token's owner, listings and metadata URI.
func (e *Ethereum) ReadAsset(ctx context.Context, tokenID *big.Int) (models.RawAssetRecord, error) {
	owner, err := e.callAddress(ctx, methodOwnerOf, tokenID)
	if err != nil {
		return models.RawAssetRecord{}, err
	}
	return e.readRecord(ctx, tokenID, owner)
}

// ContractOwner returns the administrative owner of the contract.
func (e *Ethereum) ContractOwner(ctx context.Context) (common.Address, error) {
	return e.callAddress(ctx, methodOwner)
}

func (e *Ethereum) readRecord(ctx context.Context, tokenID *big.Int, owner common.Address) (models.RawAssetRecord, error) {
	sale, err := e.call(ctx, methodGetSaleInfo, tokenID)
	if err != nil {
		return models.RawAssetRecord{}, err
	}
	if len(sale) != 4 {
		return models.RawAssetRecord{}, unexpected(methodGetSaleInfo, sale)
	}
	isForSale, ok1 := sale[0].(bool)
	price, ok2 := sale[1].(*big.Int)
	receiver, ok3 := sale[2].(common.Address)
	payToken, ok4 := sale[3].(common.Address)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return models.RawAssetRecord{}, unexpected(methodGetSaleInfo, sale)
	}

	rental, err := e.call(ctx, methodGetRentalInfo, tokenID)
	if err != nil {
		return models.RawAssetRecord{}, err
	}
	if len(rental) != 3 {
		return models.RawAssetRecord{}, unexpected(methodGetRentalInfo, rental)
	}
	isForRent, ok1 := rental[0].(bool)
	perPeriod, ok2 := rental[1].(*big.Int)
	periods, ok3 := rental[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return models.RawAssetRecord{}, unexpected(methodGetRentalInfo, rental)
	}

	uri, err := e.callString(ctx, methodTokenURI, tokenID)
	if err != nil {
		return models.RawAssetRecord{}, err
	}

	return models.RawAssetRecord{
		TokenID: tokenID.String(),
		Owner:   strings.ToLower(owner.Hex()),
		SaleInfo: &models.SaleInfo{
			IsForSale: isForSale,
			Price:     price.String(),
			Receiver:  strings.ToLower(receiver.Hex()),
			PayToken:  strings.ToLower(payToken.Hex()),
		},
		RentalInfo: &models.RentalInfo{
			IsForRent:      isForRent,
			PricePerPeriod: perPeriod.String(),
			PeriodCount:    periods.Uint64(),
		},
		MetadataURI: uri,
	}, nil
}

// SubmitSale lists a token for sale at price (base units of payToken).
func (e *Ethereum) SubmitSale(ctx context.Context, session models.WalletSession, tokenID, price *big.Int, payToken common.Address) (common.Hash, error) {
	return e.transact(ctx, session, nil, methodListForSale, tokenID, price, payToken)
}

// SubmitRental lists a token for rent.
func (e *Ethereum) SubmitRental(ctx context.Context, session models.WalletSession, tokenID, pricePerPeriod, periodCount *big.Int) (common.Hash, error) {
	return e.transact(ctx, session, nil, methodListForRent, tokenID, pricePerPeriod, periodCount)
}

func (e *Ethereum) CancelListing(ctx context.Context, session models.WalletSession, tokenID *big.Int) (common.Hash, error) {
	return e.transact(ctx, session, nil, methodCancelListing, tokenID)
}

// SubmitPurchase buys a listed token, paying value in the native currency.
func (e *Ethereum) SubmitPurchase(ctx context.Context, session models.WalletSession, tokenID, value *big.Int) (common.Hash, error) {
	return e.transact(ctx, session, value, methodBuy, tokenID)
}

// SubmitRent rents a token for periods, paying value in the native currency.
func (e *Ethereum) SubmitRent(ctx context.Context, session models.WalletSession, tokenID, periods, value *big.Int) (common.Hash, error) {
	return e.transact(ctx, session, value, methodRent, tokenID, periods)
}

// AwaitConfirmation blocks until the transaction is mined or ctx is done.
func (e *Ethereum) AwaitConfirmation(ctx context.Context, tx common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.receipts.TransactionReceipt(ctx, tx)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				e.logger.Warn("Transaction reverted", "hash", tx.Hex(), "block", receipt.BlockNumber)
				return receipt, fmt.Errorf("%w: %s", models.ErrTransactionReverted, tx.Hex())
			}
			e.logger.Info("Transaction confirmed", "hash", tx.Hex(), "block", receipt.BlockNumber)
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
		default:
			return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (e *Ethereum) transact(ctx context.Context, session models.WalletSession, value *big.Int, method string, params ...interface{}) (hash common.Hash, err error) {
	defer func() { e.metrics.ObserveTransaction(method, err) }()

	if !session.HasSigner() {
		return common.Hash{}, models.ErrNoSession
	}
	data, err := e.abi.Pack(method, params...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	hash, err = session.Signer.SendTransaction(ctx, models.TxRequest{To: e.address, Data: data, Value: value})
	if err != nil {
		return common.Hash{}, err
	}
	e.logger.Info("Transaction submitted", "method", method, "hash", hash.Hex(), "from", session.Account)
	return hash, nil
}

func (e *Ethereum) call(ctx context.Context, method string, params ...interface{}) (out []interface{}, err error) {
	defer func() { e.metrics.ObserveChainRead(method, err) }()

	if e.contract == nil {
		return nil, fmt.Errorf("%w: contract bindings not built", models.ErrChainReadFailure)
	}
	if err := e.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrChainReadFailure, method, err)
	}
	return out, nil
}

func (e *Ethereum) callUint(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	out, err := e.call(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, unexpected(method, out)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, unexpected(method, out)
	}
	return v, nil
}

// callCount reads a uint256 count that is used as an enumeration bound.
func (e *Ethereum) callCount(ctx context.Context, method string, params ...interface{}) (int64, error) {
	v, err := e.callUint(ctx, method, params...)
	if err != nil {
		return 0, err
	}
	if v.Sign() < 0 || !v.IsInt64() {
		return 0, fmt.Errorf("%w: %s returned %s, which does not fit an enumeration index", models.ErrChainReadFailure, method, v)
	}
	return v.Int64(), nil
}

func (e *Ethereum) callAddress(ctx context.Context, method string, params ...interface{}) (common.Address, error) {
	out, err := e.call(ctx, method, params...)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) != 1 {
		return common.Address{}, unexpected(method, out)
	}
	v, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, unexpected(method, out)
	}
	return v, nil
}

func (e *Ethereum) callString(ctx context.Context, method string, params ...interface{}) (string, error) {
	out, err := e.call(ctx, method, params...)
	if err != nil {
		return "", err
	}
	if len(out) != 1 {
		return "", unexpected(method, out)
	}
	v, ok := out[0].(string)
	if !ok {
		return "", unexpected(method, out)
	}
	return v, nil
}

func unexpected(method string, out []interface{}) error {
	return fmt.Errorf("%w: unexpected %s result %v", models.ErrChainReadFailure, method, out)
}
