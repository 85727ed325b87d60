package domain

import "github.com/shopspring/decimal"

// CartLine is one product held in the cart. ProductID is the cart key.
type CartLine struct {
	ProductID string          `json:"productId"`
	Snapshot  ProductSnapshot `json:"snapshot"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is the snapshot total price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Snapshot.TotalPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
