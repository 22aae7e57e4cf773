package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
)

type SellerDirectory struct {
	pool *pgxpool.Pool
}

func NewSellerDirectory(pool *pgxpool.Pool) *SellerDirectory {
	return &SellerDirectory{pool: pool}
}

// Contacts returns the sellers found among ids, keyed by id.
func (d *SellerDirectory) Contacts(ctx context.Context, ids []string) (map[string]domain.Seller, error) {
	out := make(map[string]domain.Seller, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := d.pool.Query(ctx, `SELECT id, name, email FROM sellers WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query sellers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s domain.Seller
		if err := rows.Scan(&s.ID, &s.Name, &s.Email); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

// Upsert adds or updates a seller contact.
func (d *SellerDirectory) Upsert(ctx context.Context, s domain.Seller) error {
	_, err := d.pool.Exec(ctx, `INSERT INTO sellers (id, name, email) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET name=$2, email=$3`, s.ID, s.Name, s.Email)
	return err
}
