package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dmehra2102/marketplace-checkout/internal/checkout/domain"
)

func newQuoteCmd() *cobra.Command {
	var (
		items  []string
		method string
		at     string
	)
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a cart with a shipping method",
		Example: `  checkoutctl quote --item p-1:s-1:12.50:2 --item p-2:s-2:30.50 --method express
  checkoutctl quote --item p-1:s-1:9.99 --at 2025-03-10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lines, err := parseItems(items)
			if err != nil {
				return err
			}
			if err := domain.ValidateCart(lines); err != nil {
				return err
			}
			m := domain.ShippingMethod(method)
			if !m.Known() {
				return fmt.Errorf("unknown shipping method %q", method)
			}
			placed := time.Now().UTC()
			if at != "" {
				if placed, err = time.Parse(time.DateOnly, at); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}

			s := domain.Summarize(lines, m)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(w, "Subtotal\t%s\t\n", s.Subtotal.StringFixed(2))
			fmt.Fprintf(w, "Shipping (%s)\t%s\t\n", s.Method, s.ShippingCost.StringFixed(2))
			fmt.Fprintf(w, "Tax\t%s\t\n", s.Tax.StringFixed(2))
			fmt.Fprintf(w, "Total\t%s\t\n", s.Total.StringFixed(2))
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Estimated delivery: %s\n", domain.EstimateDelivery(placed, m).Format(time.DateOnly))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&items, "item", nil, "line item as product:seller:price[:quantity] (repeatable)")
	cmd.Flags().StringVar(&method, "method", string(domain.ShippingStandard), "shipping method: standard, express or overnight")
	cmd.Flags().StringVar(&at, "at", "", "order date (YYYY-MM-DD), defaults to today")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func parseItems(raw []string) ([]domain.LineItem, error) {
	out := make([]domain.LineItem, 0, len(raw))
	for _, r := range raw {
		parts := strings.Split(r, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("item %q: want product:seller:price[:quantity]", r)
		}
		price, err := decimal.NewFromString(parts[2])
		if err != nil {
			return nil, fmt.Errorf("item %q: price: %w", r, err)
		}
		qty := 1
		if len(parts) == 4 {
			if qty, err = strconv.Atoi(parts[3]); err != nil {
				return nil, fmt.Errorf("item %q: quantity: %w", r, err)
			}
		}
		out = append(out, domain.LineItem{ProductID: parts[0], SellerID: parts[1], UnitPrice: price, Quantity: qty})
	}
	return out, nil
}
