package repository

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valueid/valueid-client/internal/models"
)

func TestFinanceRowKeepsFullPrecision(t *testing.T) {
	record := models.FinanceRecord{
		ID:       "f-1",
		Kind:     models.FinanceDeposit,
		Currency: "ETH",
		Amount:   decimal.RequireFromString("0.000000000000000001"),
		Status:   "pending",
	}

	row := financeRow(record)
	assert.Equal(t, "0.000000000000000001", row.Amount)

	back, err := row.model()
	require.NoError(t, err)
	assert.True(t, record.Amount.Equal(back.Amount))
	assert.Equal(t, models.FinanceDeposit, back.Kind)
}

func TestFinanceRowRejectsCorruptAmount(t *testing.T) {
	_, err := FinanceRow{ID: "f-2", Amount: "lots"}.model()
	assert.Error(t, err)
}

func TestOrderRowTables(t *testing.T) {
	assert.Equal(t, "mock_orders", OrderRow{}.TableName())
	assert.Equal(t, "mock_finance", FinanceRow{}.TableName())

	order := models.Order{ID: "o-1", Kind: models.OrderKindRent, Status: models.OrderStatusOpen, Periods: 3}
	assert.Equal(t, order, orderRow(order).model())
}
