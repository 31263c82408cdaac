package models

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// WalletBridge owns the single active wallet session.
type WalletBridge interface {
	Connect(ctx context.Context) (WalletSession, error)
	Disconnect()
	Session() WalletSession
}

// AssetReader reads token ownership and listing state from chain.
type AssetReader interface {
	ListAssetsForOwner(ctx context.Context, owner string) ([]RawAssetRecord, error)
	ListAllListedAssets(ctx context.Context) ([]RawAssetRecord, error)
	ReadAsset(ctx context.Context, tokenID *big.Int) (RawAssetRecord, error)
}

// AssetWriter submits listing transactions. Submit calls return as soon as the
// wallet has broadcast the transaction.
type AssetWriter interface {
	SubmitSale(ctx context.Context, session WalletSession, tokenID, price *big.Int, payToken common.Address) (common.Hash, error)
	SubmitRental(ctx context.Context, session WalletSession, tokenID, pricePerPeriod, periodCount *big.Int) (common.Hash, error)
	CancelListing(ctx context.Context, session WalletSession, tokenID *big.Int) (common.Hash, error)
	SubmitPurchase(ctx context.Context, session WalletSession, tokenID, value *big.Int) (common.Hash, error)
	SubmitRent(ctx context.Context, session WalletSession, tokenID, periods, value *big.Int) (common.Hash, error)
	AwaitConfirmation(ctx context.Context, tx common.Hash) (*types.Receipt, error)
}

// MetadataResolver fills inline metadata fields from a record's metadata URI.
type MetadataResolver interface {
	Enrich(ctx context.Context, records []RawAssetRecord) []RawAssetRecord
}
