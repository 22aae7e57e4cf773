package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const EventOrderPlaced = "OrderPlaced"

// OrderPlaced is published through the outbox once an order has been created.
type OrderPlaced struct {
	OrderID     string            `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	CustomerID  string            `json:"customer_id"`
	Email       string            `json:"email"`
	Total       decimal.Decimal   `json:"total"`
	Items       []OrderPlacedItem `json:"items"`
	CreatedAt   time.Time         `json:"created_at"`
}

type OrderPlacedItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	SellerID  string          `json:"seller_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func NewOrderPlaced(o Order) OrderPlaced {
	items := make([]OrderPlacedItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderPlacedItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			SellerID:  item.SellerID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return OrderPlaced{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Email:       o.Shipping.Email,
		Total:       o.Total,
		Items:       items,
		CreatedAt:   o.CreatedAt,
	}
}
