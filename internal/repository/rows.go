package repository

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/valueid/valueid-client/internal/models"
)

type OrderRow struct {
	ID        string `gorm:"primaryKey"`
	TokenID   string `gorm:"index"`
	Kind      string
	Price     string
	PayToken  string
	Periods   uint64
	Status    string
	TxHash    string
	CreatedAt string
}

func (OrderRow) TableName() string {
	return "mock_orders"
}

// FinanceRow stores amounts as decimal strings so no precision is lost.
type FinanceRow struct {
	Seq       uint   `gorm:"primaryKey;autoIncrement"`
	ID        string `gorm:"uniqueIndex"`
	Kind      string
	Currency  string `gorm:"index"`
	Amount    string
	Address   string
	TxHash    string
	Status    string
	CreatedAt string
}

func (FinanceRow) TableName() string {
	return "mock_finance"
}

func orderRow(o models.Order) OrderRow {
	return OrderRow{
		ID:        o.ID,
		TokenID:   o.TokenID,
		Kind:      string(o.Kind),
		Price:     o.Price,
		PayToken:  o.PayToken,
		Periods:   o.Periods,
		Status:    string(o.Status),
		TxHash:    o.TxHash,
		CreatedAt: o.CreatedAt,
	}
}

func (r OrderRow) model() models.Order {
	return models.Order{
		ID:        r.ID,
		TokenID:   r.TokenID,
		Kind:      models.OrderKind(r.Kind),
		Price:     r.Price,
		PayToken:  r.PayToken,
		Periods:   r.Periods,
		Status:    models.OrderStatus(r.Status),
		TxHash:    r.TxHash,
		CreatedAt: r.CreatedAt,
	}
}

func financeRow(f models.FinanceRecord) FinanceRow {
	return FinanceRow{
		ID:        f.ID,
		Kind:      string(f.Kind),
		Currency:  f.Currency,
		Amount:    f.Amount.String(),
		Address:   f.Address,
		TxHash:    f.TxHash,
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
	}
}

func (r FinanceRow) model() (models.FinanceRecord, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return models.FinanceRecord{}, fmt.Errorf("finance record %s has invalid amount %q: %w", r.ID, r.Amount, err)
	}
	return models.FinanceRecord{
		ID:        r.ID,
		Kind:      models.FinanceKind(r.Kind),
		Currency:  r.Currency,
		Amount:    amount,
		Address:   r.Address,
		TxHash:    r.TxHash,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}, nil
}
