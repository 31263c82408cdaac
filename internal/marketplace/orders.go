package marketplace

import (
	"context"
	"fmt"

	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/pkg/validation"
)

func (m *Marketplace) CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error) {
	if m.api == nil {
		return models.Order{}, ErrAPINotConfigured
	}
	if req.PayToken != "" {
		addr, err := validation.ValidateAndNormalizeAddress(req.PayToken)
		if err != nil {
			return models.Order{}, fmt.Errorf("invalid pay token: %w", err)
		}
		req.PayToken = addr
	}
	return m.api.CreateOrder(ctx, req)
}

func (m *Marketplace) CancelOrder(ctx context.Context, id string) (models.Order, error) {
	if m.api == nil {
		return models.Order{}, ErrAPINotConfigured
	}
	return m.api.CancelOrder(ctx, id)
}

func (m *Marketplace) CompleteOrder(ctx context.Context, id, txHash string) (models.Order, error) {
	if m.api == nil {
		return models.Order{}, ErrAPINotConfigured
	}
	return m.api.CompleteOrder(ctx, id, txHash)
}

// Deposit records funds moved into the marketplace account.
func (m *Marketplace) Deposit(ctx context.Context, req models.FinanceRequest) (models.FinanceRecord, error) {
	if err := m.checkFinance(req, false); err != nil {
		return models.FinanceRecord{}, err
	}
	return m.api.Deposit(ctx, req)
}

// Withdraw moves funds to an external address. The address defaults to the
// connected account.
func (m *Marketplace) Withdraw(ctx context.Context, req models.FinanceRequest) (models.FinanceRecord, error) {
	if req.Address == "" {
		req.Address = m.wallet.Session().Account
	}
	if err := m.checkFinance(req, true); err != nil {
		return models.FinanceRecord{}, err
	}
	return m.api.Withdraw(ctx, req)
}

// Transfer moves funds to another marketplace account.
func (m *Marketplace) Transfer(ctx context.Context, req models.FinanceRequest) (models.FinanceRecord, error) {
	if err := m.checkFinance(req, true); err != nil {
		return models.FinanceRecord{}, err
	}
	return m.api.Transfer(ctx, req)
}

func (m *Marketplace) checkFinance(req models.FinanceRequest, needsAddress bool) error {
	if m.api == nil {
		return ErrAPINotConfigured
	}
	if req.Currency == "" {
		return fmt.Errorf("%w: currency is required", ErrUnknownCurrency)
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	if needsAddress {
		if err := validation.ValidateAddress(req.Address); err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}
	}
	return nil
}
