package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/marketplace-checkout/internal/checkout/domain"
	"github.com/dmehra2102/marketplace-checkout/pkg/outbox"
	"github.com/dmehra2102/marketplace-checkout/pkg/tracing"
)

const aggregateOrder = "order"

// OrderRepository stores placed orders and queues their OrderPlaced event in the
// same transaction.
type OrderRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOrderRepository(log *slog.Logger, pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{log: log, pool: pool}
}

func (r *OrderRepository) Create(ctx context.Context, o domain.Order) error {
	shipping, err := json.Marshal(o.Shipping)
	if err != nil {
		return err
	}
	payment, err := json.Marshal(o.Payment)
	if err != nil {
		return err
	}
	event, err := outbox.NewEvent(aggregateOrder, o.ID, domain.EventOrderPlaced, domain.NewOrderPlaced(o),
		map[string]string{"customer_id": o.CustomerID}, tracing.Traceparent(ctx))
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO orders (id, order_number, customer_id, subtotal, shipping_cost, tax, total, shipping, payment, status, created_at, estimated_delivery)
			VALUES ($1,$2,$3,$4::numeric,$5::numeric,$6::numeric,$7::numeric,$8,$9,$10,$11,$12)`,
		o.ID, o.OrderNumber, o.CustomerID,
		o.Subtotal.StringFixed(2), o.ShippingCost.StringFixed(2), o.Tax.StringFixed(2), o.Total.StringFixed(2),
		shipping, payment, string(o.Status), o.CreatedAt, o.EstimatedDelivery)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}

	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, line_no, product_id, name, seller_id, unit_price, quantity)
			VALUES ($1,$2,$3,$4,$5,$6::numeric,$7)`,
			o.ID, i, item.ProductID, item.Name, item.SellerID, item.UnitPrice.StringFixed(2), item.Quantity)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert order items %s: %w", o.ID, err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		event.AggregateType, event.AggregateID, event.Type, event.Payload, event.Headers, event.Traceparent, string(event.Status))
	if err != nil {
		return fmt.Errorf("insert outbox %s: %w", o.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order %s: %w", o.ID, err)
	}
	r.log.Info("order stored", "order_id", o.ID, "order_number", o.OrderNumber)
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	var (
		o                 domain.Order
		status            string
		shipping, payment []byte
	)
	err := r.pool.QueryRow(ctx, `SELECT id, order_number, customer_id, subtotal, shipping_cost, tax, total, shipping, payment, status, created_at, estimated_delivery
			FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Subtotal, &o.ShippingCost, &o.Tax, &o.Total,
			&shipping, &payment, &status, &o.CreatedAt, &o.EstimatedDelivery)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	o.Status = domain.OrderStatus(status)
	if err := json.Unmarshal(shipping, &o.Shipping); err != nil {
		return domain.Order{}, fmt.Errorf("decode shipping %s: %w", id, err)
	}
	if err := json.Unmarshal(payment, &o.Payment); err != nil {
		return domain.Order{}, fmt.Errorf("decode payment %s: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, `SELECT product_id, name, seller_id, unit_price, quantity FROM order_items WHERE order_id=$1 ORDER BY line_no`, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order items %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.SellerID, &item.UnitPrice, &item.Quantity); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}
