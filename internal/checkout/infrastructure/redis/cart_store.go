package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/marketplace-checkout/internal/checkout/domain"
)

// CartStore holds the storefront's cart snapshot per customer.
type CartStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCartStore(rdb *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{rdb: rdb, ttl: ttl}
}

func cartKey(customerID string) string { return "cart:" + customerID }

// Items returns the customer's cart lines; a missing cart is empty.
func (c *CartStore) Items(ctx context.Context, customerID string) ([]domain.LineItem, error) {
	raw, err := c.rdb.Get(ctx, cartKey(customerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	var items []domain.LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return items, nil
}

func (c *CartStore) Total(ctx context.Context, customerID string) (decimal.Decimal, error) {
	items, err := c.Items(ctx, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total, nil
}

func (c *CartStore) Clear(ctx context.Context, customerID string) error {
	return c.rdb.Del(ctx, cartKey(customerID)).Err()
}

// Replace overwrites the snapshot. An empty item list clears the cart.
func (c *CartStore) Replace(ctx context.Context, customerID string, items []domain.LineItem) error {
	if len(items) == 0 {
		return c.Clear(ctx, customerID)
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cartKey(customerID), raw, c.ttl).Err()
}
