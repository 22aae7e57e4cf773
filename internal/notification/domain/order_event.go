package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const EventOrderPlaced = "OrderPlaced"

// OrderPlaced is the part of the checkout service's event that seller alerts need.
type OrderPlaced struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Items       []OrderLine     `json:"items"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"created_at"`
}

type OrderLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	SellerID  string          `json:"seller_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (l OrderLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Seller is a contact from the seller directory.
type Seller struct {
	ID    string
	Name  string
	Email string
}

// LinesBySeller groups lines by seller in first-seen order.
func (e OrderPlaced) LinesBySeller() ([]string, map[string][]OrderLine) {
	var order []string
	groups := make(map[string][]OrderLine)
	for _, line := range e.Items {
		if _, ok := groups[line.SellerID]; !ok {
			order = append(order, line.SellerID)
		}
		groups[line.SellerID] = append(groups[line.SellerID], line)
	}
	return order, groups
}
