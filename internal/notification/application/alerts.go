package application

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
)

type SellerDirectory interface {
	Contacts(ctx context.Context, sellerIDs []string) (map[string]domain.Seller, error)
}

// BulkSender is satisfied by Dispatcher.
type BulkSender interface {
	SendBulk(ctx context.Context, msgs []domain.Message) []domain.Result
}

const alertText = `Hi {{.Seller.Name}},

Order {{.OrderNumber}} includes {{len .Lines}} of your products:
{{range .Lines}}
  - {{.Name}} ({{.ProductID}}) x{{.Quantity}} @ {{money .UnitPrice}}
{{- end}}

Your share: {{money .Subtotal}}
`

const alertHTML = `<p>Hi {{.Seller.Name}},</p>
<p>Order <strong>{{.OrderNumber}}</strong> includes {{len .Lines}} of your products:</p>
<ul>
{{- range .Lines}}
<li>{{.Name}} ({{.ProductID}}) &times;{{.Quantity}} @ {{money .UnitPrice}}</li>
{{- end}}
</ul>
<p>Your share: <strong>{{money .Subtotal}}</strong></p>
`

var (
	alertFuncs = map[string]any{"money": func(d decimal.Decimal) string { return d.StringFixed(2) }}
	alertTextT = texttemplate.Must(texttemplate.New("alert.txt").Funcs(alertFuncs).Parse(alertText))
	alertHTMLT = htmltemplate.Must(htmltemplate.New("alert.html").Funcs(alertFuncs).Parse(alertHTML))
)

type alertView struct {
	Seller      domain.Seller
	OrderNumber string
	Lines       []domain.OrderLine
	Subtotal    decimal.Decimal
}

// SellerAlerts tells every seller on a placed order which of their products sold.
type SellerAlerts struct {
	log     *slog.Logger
	sender  BulkSender
	sellers SellerDirectory
}

func NewSellerAlerts(log *slog.Logger, sender BulkSender, sellers SellerDirectory) *SellerAlerts {
	return &SellerAlerts{log: log, sender: sender, sellers: sellers}
}

// OrderPlaced sends one alert per seller. Sellers without a directory entry are
// skipped. The returned error reports how many alerts failed.
func (a *SellerAlerts) OrderPlaced(ctx context.Context, evt domain.OrderPlaced) error {
	sellerIDs, lines := evt.LinesBySeller()
	if len(sellerIDs) == 0 {
		return nil
	}
	contacts, err := a.sellers.Contacts(ctx, sellerIDs)
	if err != nil {
		return fmt.Errorf("load seller contacts: %w", err)
	}

	msgs := make([]domain.Message, 0, len(sellerIDs))
	for _, id := range sellerIDs {
		seller, ok := contacts[id]
		if !ok || seller.Email == "" {
			a.log.Warn("seller has no contact", "seller_id", id, "order_id", evt.OrderID)
			continue
		}
		msg, err := alertMessage(evt, seller, lines[id])
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	failed := 0
	for i, res := range a.sender.SendBulk(ctx, msgs) {
		if !res.Success {
			failed++
			a.log.Warn("seller alert not delivered", "order_id", evt.OrderID, "to", msgs[i].Recipients, "err", res.Error)
		}
	}
	a.log.Info("seller alerts sent", "order_id", evt.OrderID, "sellers", len(msgs), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d seller alerts", domain.ErrDeliveryFailed, failed, len(msgs))
	}
	return nil
}

func alertMessage(evt domain.OrderPlaced, seller domain.Seller, lines []domain.OrderLine) (domain.Message, error) {
	view := alertView{Seller: seller, OrderNumber: evt.OrderNumber, Lines: lines, Subtotal: decimal.Zero}
	for _, l := range lines {
		view.Subtotal = view.Subtotal.Add(l.Total())
	}

	var text, html bytes.Buffer
	if err := alertTextT.Execute(&text, view); err != nil {
		return domain.Message{}, fmt.Errorf("render alert text: %w", err)
	}
	if err := alertHTMLT.Execute(&html, view); err != nil {
		return domain.Message{}, fmt.Errorf("render alert html: %w", err)
	}
	return domain.Message{
		Recipients: []string{seller.Email},
		Subject:    fmt.Sprintf("New order %s", evt.OrderNumber),
		TextBody:   text.String(),
		HTMLBody:   html.String(),
		Tags:       []string{"seller-alert"},
		Metadata:   map[string]string{"order_id": evt.OrderID, "seller_id": seller.ID},
	}, nil
}
