package notify

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/marketplace-checkout/internal/checkout/domain"
	notification "github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
)

// Sender is satisfied by the notification Dispatcher.
type Sender interface {
	Send(ctx context.Context, msg notification.Message) notification.Result
}

const confirmationText = `Hi {{.Shipping.FullName}},

Thanks for your order {{.OrderNumber}}.
{{range .Items}}
  {{.Name}} x{{.Quantity}}  {{money .LineTotal}}
{{- end}}

Subtotal: {{money .Subtotal}}
Shipping: {{money .ShippingCost}}
Tax:      {{money .Tax}}
Total:    {{money .Total}}

Paid with card {{.Payment.CardNumber}}.
Shipping to {{.Shipping.Address}}, {{.Shipping.City}} {{.Shipping.PostalCode}}, {{.Shipping.Country}}.
Estimated delivery: {{date .EstimatedDelivery}}
`

const confirmationHTML = `<h2>Thanks for your order, {{.Shipping.FullName}}</h2>
<p>Order number <strong>{{.OrderNumber}}</strong></p>
<table>
{{- range .Items}}
<tr><td>{{.Name}}</td><td>&times;{{.Quantity}}</td><td>{{money .LineTotal}}</td></tr>
{{- end}}
<tr><td colspan="2">Subtotal</td><td>{{money .Subtotal}}</td></tr>
<tr><td colspan="2">Shipping</td><td>{{money .ShippingCost}}</td></tr>
<tr><td colspan="2">Tax</td><td>{{money .Tax}}</td></tr>
<tr><td colspan="2"><strong>Total</strong></td><td><strong>{{money .Total}}</strong></td></tr>
</table>
<p>Paid with card {{.Payment.CardNumber}}.</p>
<p>Shipping to {{.Shipping.Address}}, {{.Shipping.City}} {{.Shipping.PostalCode}}, {{.Shipping.Country}}.<br>
Estimated delivery: {{date .EstimatedDelivery}}</p>
`

var (
	funcs = map[string]any{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
		"date":  func(t time.Time) string { return t.Format("Mon 2 Jan 2006") },
	}
	textT = texttemplate.Must(texttemplate.New("confirmation.txt").Funcs(funcs).Parse(confirmationText))
	htmlT = htmltemplate.Must(htmltemplate.New("confirmation.html").Funcs(funcs).Parse(confirmationHTML))
)

// ConfirmationNotifier emails the buyer once an order is placed.
type ConfirmationNotifier struct {
	sender Sender
}

func NewConfirmationNotifier(sender Sender) *ConfirmationNotifier {
	return &ConfirmationNotifier{sender: sender}
}

// OrderPlaced sends the confirmation. A failed delivery returns ErrDeliveryFailed.
func (n *ConfirmationNotifier) OrderPlaced(ctx context.Context, order domain.Order) error {
	msg, err := Confirmation(order)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, msg).Err()
}

// Confirmation renders the buyer's confirmation message for order.
func Confirmation(order domain.Order) (notification.Message, error) {
	var text, html bytes.Buffer
	if err := textT.Execute(&text, order); err != nil {
		return notification.Message{}, fmt.Errorf("render confirmation text: %w", err)
	}
	if err := htmlT.Execute(&html, order); err != nil {
		return notification.Message{}, fmt.Errorf("render confirmation html: %w", err)
	}
	return notification.Message{
		Recipients: []string{order.Shipping.Email},
		Subject:    fmt.Sprintf("Order confirmed: %s", order.OrderNumber),
		TextBody:   text.String(),
		HTMLBody:   html.String(),
		Tags:       []string{"order-confirmation"},
		Metadata: map[string]string{
			"order_id":    order.ID,
			"customer_id": order.CustomerID,
		},
	}, nil
}
