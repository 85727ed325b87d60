package domain

import "github.com/shopspring/decimal"

type MetalType string

const (
	MetalGold      MetalType = "gold"
	MetalSilver    MetalType = "silver"
	MetalPlatinum  MetalType = "platinum"
	MetalPalladium MetalType = "palladium"
)

func (m MetalType) Valid() bool {
	switch m {
	case MetalGold, MetalSilver, MetalPlatinum, MetalPalladium:
		return true
	}
	return false
}

type WeightUnit string

const (
	UnitGram     WeightUnit = "gram"
	UnitOunce    WeightUnit = "ounce"
	UnitKilogram WeightUnit = "kilogram"
)

func (u WeightUnit) Valid() bool {
	switch u {
	case UnitGram, UnitOunce, UnitKilogram:
		return true
	}
	return false
}

type Weight struct {
	Value decimal.Decimal `json:"value"`
	Unit  WeightUnit      `json:"unit"`
}

// ProductSnapshot is the catalog record as served by the backend. A copy of it
// is taken into the cart when the product is added and is never re-fetched.
type ProductSnapshot struct {
	ID            string          `json:"_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	MetalType     MetalType       `json:"metalType"`
	Purity        string          `json:"purity"`
	Weight        Weight          `json:"weight"`
	PricePerUnit  decimal.Decimal `json:"pricePerUnit"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	StockQuantity int             `json:"stockQuantity"`
	Image         *string         `json:"image,omitempty"`
}

func (p ProductSnapshot) InStock() bool {
	return p.StockQuantity > 0
}
