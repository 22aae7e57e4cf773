package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineItem is one product line captured from the cart when checkout starts.
type LineItem struct {
	ProductID string          `json:"product_id" validate:"required,max=64"`
	Name      string          `json:"name" validate:"max=200"`
	SellerID  string          `json:"seller_id" validate:"required,max=64"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity" validate:"min=1,max=999"`
}

func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ValidateCart checks every line of a cart snapshot. Prices must be non-negative
// whole cents, matching what the order tables store.
func ValidateCart(items []LineItem) error {
	fields := map[string]string{}
	for i, item := range items {
		prefix := fmt.Sprintf("items[%d].", i)
		for name, msg := range fieldErrors(item) {
			fields[prefix+name] = msg
		}
		switch {
		case item.UnitPrice.IsNegative():
			fields[prefix+"unit_price"] = "must not be negative"
		case !item.UnitPrice.Equal(item.UnitPrice.Round(2)):
			fields[prefix+"unit_price"] = "must be in whole cents"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Step: "cart", Fields: fields}
	}
	return nil
}

func copyItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
