package models

import "github.com/shopspring/decimal"

// Source identifies where a raw asset record came from.
type Source string

const (
	SourceChain Source = "chain"
	SourceAPI   Source = "api"
)

// SaleInfo is the on-chain sale listing of a token. Price is in base units.
type SaleInfo struct {
	IsForSale bool   `json:"isForSale"`
	Price     string `json:"price"`
	Receiver  string `json:"receiver"`
	PayToken  string `json:"payToken"`
}

// RentalInfo is the on-chain rental listing of a token. PricePerPeriod is in
// base units of the native currency.
type RentalInfo struct {
	IsForRent      bool   `json:"isForRent"`
	PricePerPeriod string `json:"pricePerPeriod"`
	PeriodCount    uint64 `json:"periodCount"`
}

// Attribute is one trait/value pair of a token.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// RawAssetRecord is a source-specific asset read. It is never mutated after
// creation and is discarded once normalized.
type RawAssetRecord struct {
	TokenID     string      `json:"tokenId"`
	Owner       string      `json:"owner"`
	SaleInfo    *SaleInfo   `json:"saleInfo,omitempty"`
	RentalInfo  *RentalInfo `json:"rentalInfo,omitempty"`
	MetadataURI string      `json:"metadataUri,omitempty"`
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Image       string      `json:"image,omitempty"`
	Rarity      string      `json:"rarity,omitempty"`
	IndexNumber string      `json:"indexNumber,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
	// CreatedAt is an RFC 3339 timestamp. Only the REST API supplies one.
	CreatedAt string `json:"createdAt,omitempty"`
}

// IsListed reports whether the record carries an active sale or rental listing.
func (r RawAssetRecord) IsListed() bool {
	return (r.SaleInfo != nil && r.SaleInfo.IsForSale) || (r.RentalInfo != nil && r.RentalInfo.IsForRent)
}

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Owner is the displayed owner identity.
type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// CanonicalAsset is the normalized representation every view consumes.
// All fields are always populated with a value or a documented default.
type CanonicalAsset struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Image           string          `json:"image"`
	IndexNumber     string          `json:"indexNumber"`
	Price           decimal.Decimal `json:"price"`
	PaymentCurrency string          `json:"paymentCurrency"`
	PaymentAddress  string          `json:"paymentAddress"`
	Rarity          Rarity          `json:"rarity"`
	IsForSale       bool            `json:"isForSale"`
	IsForRent       bool            `json:"isForRent"`
	RentalPrice     decimal.Decimal `json:"rentalPrice"`
	RentalPeriod    uint64          `json:"rentalPeriod"`
	Owner           Owner           `json:"owner"`
	Attributes      []Attribute     `json:"attributes"`
	CreatedAt       string          `json:"createdAt"`
	Source          Source          `json:"source"`
}
