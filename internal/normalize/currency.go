package normalize

import (
	"strings"

	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/pkg/validation"
)

const (
	// UnknownSymbol is shown for payment tokens missing from the table.
	UnknownSymbol = "UNKNOWN"

	defaultDecimals int32 = 18
)

// CurrencyTable resolves payment-token addresses to display currencies.
// It is read-only once built.
type CurrencyTable struct {
	native   models.Currency
	byAddr   map[string]models.Currency
	bySymbol map[string]string
}

// NewCurrencyTable builds the table. The zero address always maps to native.
func NewCurrencyTable(native models.Currency, tokens map[string]models.Currency) *CurrencyTable {
	if native.Symbol == "" {
		native = models.Currency{Symbol: "ETH", Decimals: defaultDecimals}
	}
	t := &CurrencyTable{
		native:   native,
		byAddr:   make(map[string]models.Currency, len(tokens)),
		bySymbol: make(map[string]string, len(tokens)+1),
	}
	for addr, c := range tokens {
		key := validation.NormalizeAddress(addr)
		t.byAddr[key] = c
		t.bySymbol[strings.ToUpper(c.Symbol)] = key
	}
	t.bySymbol[strings.ToUpper(native.Symbol)] = zeroAddress
	return t
}

const zeroAddress = "0x0000000000000000000000000000000000000000"

// Native returns the chain's native currency.
func (t *CurrencyTable) Native() models.Currency {
	return t.native
}

// Resolve maps a payment-token address. Unmapped addresses resolve to
// UNKNOWN with 18 decimals.
func (t *CurrencyTable) Resolve(payToken string) models.Currency {
	if validation.IsZeroAddress(payToken) {
		return t.native
	}
	if c, ok := t.byAddr[validation.NormalizeAddress(payToken)]; ok {
		return c
	}
	return models.Currency{Symbol: UnknownSymbol, Decimals: defaultDecimals}
}

// AddressOf returns the payment-token address for a symbol, e.g. for building a
// sale listing. The native currency maps to the zero address.
func (t *CurrencyTable) AddressOf(symbol string) (string, models.Currency, bool) {
	addr, ok := t.bySymbol[strings.ToUpper(symbol)]
	if !ok {
		return "", models.Currency{}, false
	}
	return addr, t.Resolve(addr), true
}
