package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShippingMethod string

const (
	ShippingStandard  ShippingMethod = "standard"
	ShippingExpress   ShippingMethod = "express"
	ShippingOvernight ShippingMethod = "overnight"
)

type shippingRate struct {
	cost decimal.Decimal
	days int
}

var (
	// TaxRate is a flat rate applied to the subtotal; it is not jurisdiction aware.
	TaxRate = decimal.RequireFromString("0.08")

	shippingRates = map[ShippingMethod]shippingRate{
		ShippingStandard:  {cost: decimal.RequireFromString("5.99"), days: 5},
		ShippingExpress:   {cost: decimal.RequireFromString("12.99"), days: 2},
		ShippingOvernight: {cost: decimal.RequireFromString("24.99"), days: 1},
	}
)

func (m ShippingMethod) rate() shippingRate {
	if r, ok := shippingRates[m]; ok {
		return r
	}
	return shippingRates[ShippingStandard]
}

// Known reports whether m has its own rate; unknown methods are priced as standard.
func (m ShippingMethod) Known() bool {
	_, ok := shippingRates[m]
	return ok
}

func (m ShippingMethod) Cost() decimal.Decimal {
	return m.rate().cost
}

// DeliveryDays is the number of calendar days added to the order date.
func (m ShippingMethod) DeliveryDays() int {
	return m.rate().days
}

// EstimateDelivery adds the method's delivery days to createdAt. Weekends and
// holidays are not skipped.
func EstimateDelivery(createdAt time.Time, m ShippingMethod) time.Time {
	return createdAt.AddDate(0, 0, m.DeliveryDays())
}

// Round2 rounds to currency precision, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

type Summary struct {
	Method       ShippingMethod  `json:"shipping_method"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

// Summarize prices items with the given shipping method:
// total = subtotal + shipping + tax, tax = subtotal * TaxRate.
func Summarize(items []LineItem, method ShippingMethod) Summary {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	subtotal = Round2(subtotal)
	shipping := method.Cost()
	tax := Round2(subtotal.Mul(TaxRate))

	return Summary{
		Method:       method,
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Tax:          tax,
		Total:        Round2(subtotal.Add(shipping).Add(tax)),
	}
}
