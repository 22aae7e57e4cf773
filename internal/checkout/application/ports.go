package application

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/marketplace-checkout/internal/checkout/domain"
)

// CartProvider is the storefront cart owned by another part of the system.
type CartProvider interface {
	Items(ctx context.Context, customerID string) ([]domain.LineItem, error)
	Total(ctx context.Context, customerID string) (decimal.Decimal, error)
	Clear(ctx context.Context, customerID string) error
}

// OrderRepository creates orders in the order service. Create must be atomic:
// either the order exists afterwards or an error is returned.
type OrderRepository interface {
	Create(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, error)
}

// SessionStore keeps in-progress sessions. Get returns domain.ErrSessionNotFound for
// unknown or expired sessions; Lock returns domain.ErrStepInProgress while another
// caller holds the session.
type SessionStore interface {
	Get(ctx context.Context, id string) (domain.Session, error)
	Save(ctx context.Context, s domain.Session) error
	Delete(ctx context.Context, id string) error
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

type OrderNotifier interface {
	OrderPlaced(ctx context.Context, o domain.Order) error
}
