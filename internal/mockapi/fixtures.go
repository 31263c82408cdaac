package mockapi

import "github.com/valueid/valueid-client/internal/models"

const (
	fixtureOwnerA = "0x5b38da6a701c568545dcfcb03fcb875f56beddc4"
	fixtureOwnerB = "0xab8483f64d9c6d1ecf9b849ae677dd3315835cb2"
	fixtureUSDT   = "0x7169d38820dfd117c3fa1f22a697dba58d90ba06"
	fixtureNative = "0x0000000000000000000000000000000000000000"
)

// Fixtures returns the seeded development dataset.
func Fixtures() []models.RawAssetRecord {
	return []models.RawAssetRecord{
		{
			TokenID:    "1",
			Owner:      fixtureOwnerA,
			Name:       "Value Genesis",
			Image:      "https://assets.valueid.dev/1.png",
			Rarity:     "legendary",
			SaleInfo:   &models.SaleInfo{IsForSale: true, Price: "250000000", Receiver: fixtureOwnerA, PayToken: fixtureUSDT},
			RentalInfo: &models.RentalInfo{IsForRent: true, PricePerPeriod: "10000000000000000", PeriodCount: 30},
			Attributes: []models.Attribute{{TraitType: "tier", Value: "genesis"}},
			CreatedAt:  "2024-01-15T09:30:00Z",
		},
		{
			TokenID:    "2",
			Owner:      fixtureOwnerA,
			Name:       "Value Pioneer",
			Rarity:     "rare",
			RentalInfo: &models.RentalInfo{IsForRent: true, PricePerPeriod: "5000000000000000", PeriodCount: 7},
			CreatedAt:  "2024-02-01T12:00:00Z",
		},
		{
			TokenID:   "3",
			Owner:     fixtureOwnerB,
			Name:      "Moonlight Value",
			Rarity:    "epic",
			SaleInfo:  &models.SaleInfo{IsForSale: true, Price: "1500000000000000000", Receiver: fixtureOwnerB, PayToken: fixtureNative},
			CreatedAt: "2024-02-20T18:45:00Z",
		},
		{
			TokenID:    "4",
			Owner:      fixtureOwnerB,
			Name:       "Orbit",
			RentalInfo: &models.RentalInfo{IsForRent: true, PricePerPeriod: "1000000000000000", PeriodCount: 3},
		},
		{
			TokenID:    "5",
			Owner:      fixtureOwnerA,
			Name:       "evaluated rune",
			Rarity:     "uncommon",
			RentalInfo: &models.RentalInfo{IsForRent: true, PricePerPeriod: "2000000000000000", PeriodCount: 14},
		},
		{
			TokenID: "6",
			Owner:   fixtureOwnerB,
			Name:    "Value Keeper",
			Image:   "https://assets.valueid.dev/6.png",
		},
		{
			TokenID:  "7",
			Owner:    fixtureOwnerA,
			Name:     "Nebula",
			SaleInfo: &models.SaleInfo{IsForSale: true, Price: "75000000", Receiver: fixtureOwnerA, PayToken: fixtureUSDT},
		},
	}
}
