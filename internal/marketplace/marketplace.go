package marketplace

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/internal/normalize"
	"github.com/valueid/valueid-client/pkg/logger"
)

const (
	// fallbackPageSize is the page size used when walking the REST listing.
	fallbackPageSize = 100
)

var (
	ErrAPINotConfigured   = errors.New("api_not_configured")
	ErrChainNotConfigured = errors.New("chain_not_configured")
	ErrUnknownCurrency    = errors.New("unknown_currency")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrNotForSale         = errors.New("not_for_sale")
	ErrNotForRent         = errors.New("not_for_rent")
)

// Chain is the contract boundary: reads plus wallet-signed writes.
type Chain interface {
	models.AssetReader
	models.AssetWriter
}

// TxResult is the outcome of a confirmed state-changing action: the
// transaction and the asset as read back from chain afterwards.
type TxResult struct {
	Hash  common.Hash
	Asset models.CanonicalAsset
}

// Marketplace serves every view: it fetches from chain or REST, normalizes,
// and runs state-changing actions through to a confirmed read-back.
type Marketplace struct {
	logger *logger.Logger

	wallet     models.WalletBridge
	chain      Chain
	api        models.MarketAPI
	metadata   models.MetadataResolver
	normalizer *normalize.Normalizer
	currencies *normalize.CurrencyTable
}

// NewMarketplace wires the service. chain, api and metadata may be nil when
// not configured.
func NewMarketplace(
	wallet models.WalletBridge,
	chain Chain,
	api models.MarketAPI,
	metadata models.MetadataResolver,
	normalizer *normalize.Normalizer,
	currencies *normalize.CurrencyTable,
	log *logger.Logger,
) *Marketplace {
	if log == nil {
		log = logger.NewNop()
	}
	return &Marketplace{
		logger:     log,
		wallet:     wallet,
		chain:      chain,
		api:        api,
		metadata:   metadata,
		normalizer: normalizer,
		currencies: currencies,
	}
}

// MyAssets lists the tokens owned by the connected account.
func (m *Marketplace) MyAssets(ctx context.Context) ([]models.CanonicalAsset, error) {
	session := m.wallet.Session()
	if !session.Connected {
		return nil, models.ErrNoSession
	}
	if m.chain == nil {
		return nil, ErrChainNotConfigured
	}

	raws, err := m.chain.ListAssetsForOwner(ctx, session.Account)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets for %s: %w", session.Account, err)
	}
	return m.normalizeAll(ctx, raws, models.SourceChain), nil
}

// ListedAssets lists every token currently for sale or rent. When the chain
// read fails and a REST API is configured, the REST listing is used instead.
func (m *Marketplace) ListedAssets(ctx context.Context) ([]models.CanonicalAsset, error) {
	if m.chain == nil {
		if m.api == nil {
			return nil, ErrChainNotConfigured
		}
		return m.listedFromAPI(ctx)
	}

	raws, err := m.chain.ListAllListedAssets(ctx)
	if err == nil {
		return m.normalizeAll(ctx, raws, models.SourceChain), nil
	}
	if m.api == nil || !errors.Is(err, models.ErrChainReadFailure) {
		return nil, fmt.Errorf("failed to list listed assets: %w", err)
	}

	m.logger.Warn("Chain listing failed, falling back to REST", "error", err)
	assets, apiErr := m.listedFromAPI(ctx)
	if apiErr != nil {
		return nil, fmt.Errorf("failed to list listed assets: %w (REST fallback: %v)", err, apiErr)
	}
	return assets, nil
}

func (m *Marketplace) listedFromAPI(ctx context.Context) ([]models.CanonicalAsset, error) {
	var raws []models.RawAssetRecord
	for page := 1; ; page++ {
		res, err := m.api.ListAssets(ctx, models.ListingQuery{Page: page, PageSize: fallbackPageSize})
		if err != nil {
			return nil, err
		}
		for _, r := range res.List {
			if r.IsListed() {
				raws = append(raws, r)
			}
		}
		if len(res.List) == 0 || page*fallbackPageSize >= res.Total {
			break
		}
	}
	return m.normalizeAll(ctx, raws, models.SourceAPI), nil
}

// Market queries the REST listing with filters. An empty result is an empty
// page, not an error.
func (m *Marketplace) Market(ctx context.Context, query models.ListingQuery) (models.Page[models.CanonicalAsset], error) {
	if m.api == nil {
		return models.Page[models.CanonicalAsset]{}, ErrAPINotConfigured
	}

	res, err := m.api.ListAssets(ctx, query)
	if err != nil {
		return models.Page[models.CanonicalAsset]{}, err
	}
	return models.Page[models.CanonicalAsset]{
		List:     m.normalizeAll(ctx, res.List, models.SourceAPI),
		Total:    res.Total,
		Page:     res.Page,
		PageSize: res.PageSize,
	}, nil
}

// AssetDetail reads one asset, from chain when possible and from REST otherwise.
func (m *Marketplace) AssetDetail(ctx context.Context, id string) (models.CanonicalAsset, error) {
	if m.chain != nil {
		if tokenID, ok := new(big.Int).SetString(id, 10); ok {
			asset, err := m.readBack(ctx, tokenID)
			if err == nil || m.api == nil {
				return asset, err
			}
			m.logger.Warn("Chain read failed, falling back to REST", "id", id, "error", err)
		}
	}
	if m.api == nil {
		return models.CanonicalAsset{}, ErrAPINotConfigured
	}

	raw, err := m.api.GetAsset(ctx, id)
	if err != nil {
		return models.CanonicalAsset{}, err
	}
	raws := m.enrich(ctx, []models.RawAssetRecord{raw})
	return m.normalizer.Normalize(raws[0], models.SourceAPI)
}

// Sell lists a token for sale. price is a display amount in currency.
func (m *Marketplace) Sell(ctx context.Context, tokenID string, price decimal.Decimal, currency string) (TxResult, error) {
	id, session, err := m.prepare(tokenID)
	if err != nil {
		return TxResult{}, err
	}
	payToken, cur, ok := m.currencies.AddressOf(currency)
	if !ok {
		return TxResult{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}
	amount, err := baseUnits(price, cur.Decimals)
	if err != nil {
		return TxResult{}, err
	}

	return m.confirm(ctx, "sell", id, func() (common.Hash, error) {
		return m.chain.SubmitSale(ctx, session, id, amount, common.HexToAddress(payToken))
	})
}

// RentOut lists a token for rent. pricePerPeriod is in the native currency.
func (m *Marketplace) RentOut(ctx context.Context, tokenID string, pricePerPeriod decimal.Decimal, periods uint64) (TxResult, error) {
	id, session, err := m.prepare(tokenID)
	if err != nil {
		return TxResult{}, err
	}
	if periods == 0 {
		return TxResult{}, fmt.Errorf("%w: periods must be positive", ErrInvalidAmount)
	}
	amount, err := baseUnits(pricePerPeriod, m.currencies.Native().Decimals)
	if err != nil {
		return TxResult{}, err
	}

	return m.confirm(ctx, "rent_out", id, func() (common.Hash, error) {
		return m.chain.SubmitRental(ctx, session, id, amount, new(big.Int).SetUint64(periods))
	})
}

// CancelListing removes the sale and rental listings of a token.
func (m *Marketplace) CancelListing(ctx context.Context, tokenID string) (TxResult, error) {
	id, session, err := m.prepare(tokenID)
	if err != nil {
		return TxResult{}, err
	}
	return m.confirm(ctx, "cancel", id, func() (common.Hash, error) {
		return m.chain.CancelListing(ctx, session, id)
	})
}

// Buy purchases a token listed for sale at its current price.
func (m *Marketplace) Buy(ctx context.Context, tokenID string) (TxResult, error) {
	id, session, err := m.prepare(tokenID)
	if err != nil {
		return TxResult{}, err
	}

	raw, err := m.chain.ReadAsset(ctx, id)
	if err != nil {
		return TxResult{}, err
	}
	if raw.SaleInfo == nil || !raw.SaleInfo.IsForSale {
		return TxResult{}, fmt.Errorf("%w: token %s", ErrNotForSale, id)
	}
	price, ok := new(big.Int).SetString(raw.SaleInfo.Price, 10)
	if !ok {
		return TxResult{}, fmt.Errorf("%w: token %s price %q", models.ErrMalformedAssetRecord, id, raw.SaleInfo.Price)
	}

	// ERC-20 priced listings are settled by the contract through allowance.
	value := new(big.Int)
	if common.HexToAddress(raw.SaleInfo.PayToken) == (common.Address{}) {
		value = price
	}

	return m.confirm(ctx, "buy", id, func() (common.Hash, error) {
		return m.chain.SubmitPurchase(ctx, session, id, value)
	})
}

// Rent takes a listed token for the given number of periods.
func (m *Marketplace) Rent(ctx context.Context, tokenID string, periods uint64) (TxResult, error) {
	id, session, err := m.prepare(tokenID)
	if err != nil {
		return TxResult{}, err
	}

	raw, err := m.chain.ReadAsset(ctx, id)
	if err != nil {
		return TxResult{}, err
	}
	if raw.RentalInfo == nil || !raw.RentalInfo.IsForRent {
		return TxResult{}, fmt.Errorf("%w: token %s", ErrNotForRent, id)
	}
	if periods == 0 || (raw.RentalInfo.PeriodCount > 0 && periods > raw.RentalInfo.PeriodCount) {
		return TxResult{}, fmt.Errorf("%w: periods must be between 1 and %d", ErrInvalidAmount, raw.RentalInfo.PeriodCount)
	}
	perPeriod, ok := new(big.Int).SetString(raw.RentalInfo.PricePerPeriod, 10)
	if !ok {
		return TxResult{}, fmt.Errorf("%w: token %s rental price %q", models.ErrMalformedAssetRecord, id, raw.RentalInfo.PricePerPeriod)
	}
	value := new(big.Int).Mul(perPeriod, new(big.Int).SetUint64(periods))

	return m.confirm(ctx, "rent", id, func() (common.Hash, error) {
		return m.chain.SubmitRent(ctx, session, id, new(big.Int).SetUint64(periods), value)
	})
}

// prepare parses the token id and checks that a signing session exists.
func (m *Marketplace) prepare(tokenID string) (*big.Int, models.WalletSession, error) {
	if m.chain == nil {
		return nil, models.WalletSession{}, ErrChainNotConfigured
	}
	session := m.wallet.Session()
	if !session.HasSigner() {
		return nil, models.WalletSession{}, models.ErrNoSession
	}
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok || id.Sign() < 0 {
		return nil, models.WalletSession{}, fmt.Errorf("%w: invalid token id %q", models.ErrMalformedAssetRecord, tokenID)
	}
	return id, session, nil
}

// confirm submits, waits for the receipt and reads the token back, so the
// caller always gets a definite outcome.
func (m *Marketplace) confirm(ctx context.Context, action string, tokenID *big.Int, submit func() (common.Hash, error)) (TxResult, error) {
	hash, err := submit()
	if err != nil {
		m.logger.Warn("Transaction not submitted", "action", action, "tokenId", tokenID.String(), "error", err)
		return TxResult{}, err
	}
	if _, err := m.chain.AwaitConfirmation(ctx, hash); err != nil {
		return TxResult{Hash: hash}, err
	}

	asset, err := m.readBack(ctx, tokenID)
	if err != nil {
		return TxResult{Hash: hash}, fmt.Errorf("transaction %s confirmed but read-back failed: %w", hash.Hex(), err)
	}
	m.logger.Info("Marketplace action confirmed", "action", action, "tokenId", asset.ID, "hash", hash.Hex())
	return TxResult{Hash: hash, Asset: asset}, nil
}

func (m *Marketplace) readBack(ctx context.Context, tokenID *big.Int) (models.CanonicalAsset, error) {
	raw, err := m.chain.ReadAsset(ctx, tokenID)
	if err != nil {
		return models.CanonicalAsset{}, err
	}
	raws := m.enrich(ctx, []models.RawAssetRecord{raw})
	return m.normalizer.Normalize(raws[0], models.SourceChain)
}

func (m *Marketplace) enrich(ctx context.Context, raws []models.RawAssetRecord) []models.RawAssetRecord {
	if m.metadata == nil || len(raws) == 0 {
		return raws
	}
	return m.metadata.Enrich(ctx, raws)
}

func (m *Marketplace) normalizeAll(ctx context.Context, raws []models.RawAssetRecord, source models.Source) []models.CanonicalAsset {
	assets, rejected := m.normalizer.NormalizeAll(m.enrich(ctx, raws), source)
	if len(rejected) > 0 {
		m.logger.Warn("Some asset records were skipped", "source", source, "rejected", len(rejected))
	}
	return assets
}

// baseUnits converts a positive display amount to integer base units.
func baseUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, amount)
	}
	shifted := amount.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidAmount, amount, decimals)
	}
	return shifted.BigInt(), nil
}
