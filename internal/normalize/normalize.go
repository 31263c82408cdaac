package normalize

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/valueid/valueid-client/internal/metrics"
	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/pkg/logger"
	"github.com/valueid/valueid-client/pkg/validation"
)

// Rejected is a raw record that could not be normalized.
type Rejected struct {
	Record models.RawAssetRecord
	Err    error
}

// Normalizer maps raw asset records from any source to CanonicalAsset.
type Normalizer struct {
	currencies  *CurrencyTable
	placeholder string
	now         func() time.Time
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

type Option func(*Normalizer)

// WithClock replaces the clock used to synthesize createdAt.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Normalizer) { n.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(n *Normalizer) { n.logger = l }
}

func New(currencies *CurrencyTable, placeholder string, opts ...Option) *Normalizer {
	n := &Normalizer{
		currencies:  currencies,
		placeholder: placeholder,
		now:         time.Now,
		logger:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts one record using the current clock reading.
func (n *Normalizer) Normalize(raw models.RawAssetRecord, source models.Source) (models.CanonicalAsset, error) {
	return n.NormalizeAt(raw, source, n.now())
}

// NormalizeAt converts one record. The result depends only on its arguments,
// so identical inputs yield identical assets.
func (n *Normalizer) NormalizeAt(raw models.RawAssetRecord, source models.Source, at time.Time) (models.CanonicalAsset, error) {
	id, err := canonicalTokenID(raw.TokenID)
	if err != nil {
		return models.CanonicalAsset{}, err
	}

	asset := models.CanonicalAsset{
		ID:          id,
		Name:        raw.Name,
		Description: raw.Description,
		Image:       raw.Image,
		IndexNumber: raw.IndexNumber,
		Price:       decimal.Zero,
		RentalPrice: decimal.Zero,
		Rarity:      rarityOf(raw.Rarity),
		Attributes:  []models.Attribute{},
		Source:      source,
	}

	currency := n.currencies.Native()
	if raw.SaleInfo != nil {
		currency = n.currencies.Resolve(raw.SaleInfo.PayToken)
		if raw.SaleInfo.IsForSale {
			price, err := displayAmount(raw.SaleInfo.Price, currency.Decimals)
			if err != nil {
				return models.CanonicalAsset{}, fmt.Errorf("%w: token %s price: %v", models.ErrMalformedAssetRecord, id, err)
			}
			asset.IsForSale = true
			asset.Price = price
			asset.PaymentAddress = lowerAddress(raw.SaleInfo.Receiver)
		}
	}
	asset.PaymentCurrency = currency.Symbol

	if raw.RentalInfo != nil && raw.RentalInfo.IsForRent {
		native := n.currencies.Native()
		price, err := displayAmount(raw.RentalInfo.PricePerPeriod, native.Decimals)
		if err != nil {
			return models.CanonicalAsset{}, fmt.Errorf("%w: token %s rental price: %v", models.ErrMalformedAssetRecord, id, err)
		}
		asset.IsForRent = true
		asset.RentalPrice = price
		asset.RentalPeriod = raw.RentalInfo.PeriodCount
	}

	owner := lowerAddress(raw.Owner)
	asset.Owner = models.Owner{ID: owner, Username: owner}

	if asset.Image == "" {
		asset.Image = n.placeholder
	}
	if asset.Name == "" {
		asset.Name = "Value ID #" + id
	}
	if asset.IndexNumber == "" {
		asset.IndexNumber = id
	}
	if len(raw.Attributes) > 0 {
		asset.Attributes = append(asset.Attributes, raw.Attributes...)
	}

	asset.CreatedAt = createdAt(raw.CreatedAt, at)
	return asset, nil
}

// NormalizeAll converts a batch with a single clock reading. Malformed records
// are skipped and reported; the rest of the batch is still returned. Duplicate
// ids keep the first occurrence.
func (n *Normalizer) NormalizeAll(raws []models.RawAssetRecord, source models.Source) ([]models.CanonicalAsset, []Rejected) {
	at := n.now()
	assets := make([]models.CanonicalAsset, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	var rejected []Rejected

	for _, raw := range raws {
		asset, err := n.NormalizeAt(raw, source, at)
		if err != nil {
			n.logger.Warn("Skipping malformed asset record", "tokenId", raw.TokenID, "source", source, "error", err)
			rejected = append(rejected, Rejected{Record: raw, Err: err})
			continue
		}
		if _, dup := seen[asset.ID]; dup {
			n.logger.Debug("Dropping duplicate asset", "id", asset.ID, "source", source)
			continue
		}
		seen[asset.ID] = struct{}{}
		assets = append(assets, asset)
	}

	n.metrics.ObserveRejected(len(rejected))
	return assets, rejected
}

// canonicalTokenID accepts decimal or 0x-prefixed hex and returns decimal.
// Decimal input with leading zeros is still decimal: "010" is token 10.
func canonicalTokenID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: missing tokenId", models.ErrMalformedAssetRecord)
	}

	base, digits := 10, s
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		base, digits = 16, rest
	}
	if digits == "" || strings.IndexFunc(digits, func(r rune) bool { return !isDigit(r, base) }) >= 0 {
		return "", fmt.Errorf("%w: invalid tokenId %q", models.ErrMalformedAssetRecord, raw)
	}

	id, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return "", fmt.Errorf("%w: invalid tokenId %q", models.ErrMalformedAssetRecord, raw)
	}
	return id.String(), nil
}

func isDigit(r rune, base int) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case base == 16 && r >= 'a' && r <= 'f':
		return true
	}
	return false
}

// displayAmount converts a base-unit integer string to a display decimal.
// An empty amount is zero.
func displayAmount(baseUnits string, decimals int32) (decimal.Decimal, error) {
	s := strings.TrimSpace(baseUnits)
	if s == "" {
		return decimal.Zero, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return decimal.Zero, fmt.Errorf("invalid base-unit amount %q", baseUnits)
	}
	return decimal.NewFromBigInt(v, -decimals), nil
}

func rarityOf(raw string) models.Rarity {
	switch r := models.Rarity(strings.ToLower(strings.TrimSpace(raw))); r {
	case models.RarityCommon, models.RarityUncommon, models.RarityRare, models.RarityEpic, models.RarityLegendary:
		return r
	}
	return models.RarityCommon
}

func lowerAddress(addr string) string {
	if addr == "" {
		return ""
	}
	return validation.NormalizeAddress(addr)
}

func createdAt(raw string, at time.Time) string {
	if raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return at.UTC().Format(time.RFC3339)
}
