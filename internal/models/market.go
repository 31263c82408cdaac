package models

import (
	"context"

	"github.com/shopspring/decimal"
)

// ListingQuery filters the REST listing endpoint. Nil flags are not sent.
type ListingQuery struct {
	IsForSale *bool
	IsForRent *bool
	Name      string
	Page      int
	PageSize  int
}

// Page is one page of records from the REST listing endpoint.
type Page[T any] struct {
	List     []T `json:"list"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type OrderKind string

const (
	OrderKindSale OrderKind = "sale"
	OrderKindRent OrderKind = "rent"
)

type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusCompleted OrderStatus = "completed"
)

// OrderRequest creates a marketplace order. Price is in base units.
type OrderRequest struct {
	TokenID  string    `json:"tokenId" binding:"required"`
	Kind     OrderKind `json:"kind" binding:"required,oneof=sale rent"`
	Price    string    `json:"price" binding:"required"`
	PayToken string    `json:"payToken"`
	Periods  uint64    `json:"periods"`
}

type Order struct {
	ID        string      `json:"id"`
	TokenID   string      `json:"tokenId"`
	Kind      OrderKind   `json:"kind"`
	Price     string      `json:"price"`
	PayToken  string      `json:"payToken"`
	Periods   uint64      `json:"periods"`
	Status    OrderStatus `json:"status"`
	TxHash    string      `json:"txHash,omitempty"`
	CreatedAt string      `json:"createdAt"`
}

type FinanceKind string

const (
	FinanceDeposit  FinanceKind = "deposit"
	FinanceWithdraw FinanceKind = "withdraw"
	FinanceTransfer FinanceKind = "transfer"
)

// FinanceRequest moves funds on the marketplace account. Amount is a display decimal.
type FinanceRequest struct {
	Currency string          `json:"currency" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Address  string          `json:"address,omitempty"`
	TxHash   string          `json:"txHash,omitempty"`
}

type FinanceRecord struct {
	ID        string          `json:"id"`
	Kind      FinanceKind     `json:"kind"`
	Currency  string          `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	Address   string          `json:"address,omitempty"`
	TxHash    string          `json:"txHash,omitempty"`
	Status    string          `json:"status"`
	CreatedAt string          `json:"createdAt"`
}

// MarketAPI is the REST boundary.
type MarketAPI interface {
	ListAssets(ctx context.Context, query ListingQuery) (Page[RawAssetRecord], error)
	GetAsset(ctx context.Context, id string) (RawAssetRecord, error)
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	CancelOrder(ctx context.Context, id string) (Order, error)
	CompleteOrder(ctx context.Context, id, txHash string) (Order, error)
	Deposit(ctx context.Context, req FinanceRequest) (FinanceRecord, error)
	Withdraw(ctx context.Context, req FinanceRequest) (FinanceRecord, error)
	Transfer(ctx context.Context, req FinanceRequest) (FinanceRecord, error)
}
