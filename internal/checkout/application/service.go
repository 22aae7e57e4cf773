package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmehra2102/marketplace-checkout/internal/checkout/domain"
	"github.com/dmehra2102/marketplace-checkout/pkg/clock"
	"github.com/dmehra2102/marketplace-checkout/pkg/metrics"
)

// StepResult is returned by CompleteStep. Order is set only when the review step
// placed an order.
type StepResult struct {
	Session domain.Session
	Order   *domain.Order
}

type Service struct {
	log      *slog.Logger
	carts    CartProvider
	orders   OrderRepository
	sessions SessionStore
	notifier OrderNotifier
	clock    clock.Clock
	metrics  *metrics.CheckoutMetrics

	newSessionID   func() string
	newIdentity    func(time.Time) (domain.OrderIdentity, error)
	async          func(func())
	confirmTimeout time.Duration
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithSessionIDs(fn func() string) Option {
	return func(s *Service) { s.newSessionID = fn }
}

func WithOrderIdentity(fn func(time.Time) (domain.OrderIdentity, error)) Option {
	return func(s *Service) { s.newIdentity = fn }
}

// WithAsync replaces the goroutine used to send order confirmations.
func WithAsync(run func(func())) Option {
	return func(s *Service) { s.async = run }
}

func WithConfirmationTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.confirmTimeout = d
		}
	}
}

func NewService(log *slog.Logger, carts CartProvider, orders OrderRepository, sessions SessionStore, notifier OrderNotifier, opts ...Option) *Service {
	s := &Service{
		log:            log,
		carts:          carts,
		orders:         orders,
		sessions:       sessions,
		notifier:       notifier,
		clock:          clock.NewSystem(),
		newSessionID:   uuid.NewString,
		newIdentity:    domain.NewOrderIdentity,
		async:          func(f func()) { go f() },
		confirmTimeout: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewCheckoutMetrics(prometheus.NewRegistry())
	}
	return s
}

// Start snapshots the customer's cart into a new session at the shipping step.
func (s *Service) Start(ctx context.Context, customerID string) (domain.Session, error) {
	if customerID == "" {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	items, err := s.carts.Items(ctx, customerID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return domain.Session{}, domain.ErrEmptyCart
	}
	if err := domain.ValidateCart(items); err != nil {
		return domain.Session{}, err
	}

	sess, err := domain.NewSession(s.newSessionID(), customerID, items, s.clock.Now())
	if err != nil {
		return domain.Session{}, err
	}
	if total, err := s.carts.Total(ctx, customerID); err == nil {
		if subtotal := sess.Summary().Subtotal; !total.Equal(subtotal) {
			s.log.Warn("cart total differs from priced items", "customer_id", customerID, "cart_total", total.String(), "subtotal", subtotal.String())
		}
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("save session: %w", err)
	}
	s.log.Info("checkout started", "session_id", sess.ID, "customer_id", customerID, "items", len(items))
	return sess, nil
}

func (s *Service) Session(ctx context.Context, customerID, sessionID string) (domain.Session, error) {
	return s.load(ctx, customerID, sessionID)
}

// CompleteStep submits the current step. Completing review places the order; on
// success the session reaches complete and is handed off, on failure it stays at review.
func (s *Service) CompleteStep(ctx context.Context, customerID, sessionID string, step domain.Step, data domain.StepData) (StepResult, error) {
	if customerID == "" {
		return StepResult{}, domain.ErrUnauthenticated
	}
	unlock, err := s.sessions.Lock(ctx, sessionID)
	if err != nil {
		return StepResult{}, err
	}
	defer unlock()

	sess, err := s.load(ctx, customerID, sessionID)
	if err != nil {
		return StepResult{}, err
	}

	now := s.clock.Now()
	if step == domain.StepReview && sess.CurrentStep == domain.StepReview {
		return s.placeOrder(ctx, sess, now)
	}

	if err := sess.CompleteStep(step, data, now); err != nil {
		return StepResult{Session: sess}, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return StepResult{}, fmt.Errorf("save session: %w", err)
	}
	s.log.Info("checkout step completed", "session_id", sess.ID, "step", step, "next", sess.CurrentStep)
	return StepResult{Session: sess}, nil
}

func (s *Service) GoBack(ctx context.Context, customerID, sessionID string) (domain.Session, error) {
	if customerID == "" {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	unlock, err := s.sessions.Lock(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	defer unlock()

	sess, err := s.load(ctx, customerID, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if err := sess.GoBack(s.clock.Now()); err != nil {
		return sess, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Discard abandons a session. The cart is left as it was.
func (s *Service) Discard(ctx context.Context, customerID, sessionID string) error {
	if customerID == "" {
		return domain.ErrUnauthenticated
	}
	unlock, err := s.sessions.Lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.load(ctx, customerID, sessionID); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.log.Info("checkout discarded", "session_id", sessionID)
	return nil
}

// Order returns a placed order owned by customerID.
func (s *Service) Order(ctx context.Context, customerID, orderID string) (domain.Order, error) {
	if customerID == "" {
		return domain.Order{}, domain.ErrUnauthenticated
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.CustomerID != customerID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) load(ctx context.Context, customerID, sessionID string) (domain.Session, error) {
	if customerID == "" {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.CustomerID != customerID {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) placeOrder(ctx context.Context, sess domain.Session, now time.Time) (StepResult, error) {
	ids, err := s.newIdentity(now)
	if err != nil {
		return StepResult{Session: sess}, fmt.Errorf("order identity: %w", err)
	}
	order, err := sess.PrepareOrder(ids, now)
	if err != nil {
		return StepResult{Session: sess}, err
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.metrics.PlacementFailures.Inc()
		s.log.Error("order placement failed", "session_id", sess.ID, "order_id", order.ID, "err", err)
		return StepResult{Session: sess}, fmt.Errorf("%w: %w", domain.ErrOrderPlacementFailed, err)
	}
	s.metrics.OrdersPlaced.Inc()

	// The order exists from here on; later failures are logged, not returned.
	if err := s.carts.Clear(ctx, sess.CustomerID); err != nil {
		s.log.Error("cart clear failed", "customer_id", sess.CustomerID, "order_id", order.ID, "err", err)
	}
	if err := sess.MarkComplete(now); err != nil {
		return StepResult{Session: sess}, err
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		s.log.Error("session hand-off failed", "session_id", sess.ID, "err", err)
	}

	s.log.Info("order placed", "session_id", sess.ID, "order_id", order.ID, "order_number", order.OrderNumber, "total", order.Total.StringFixed(2))
	s.confirm(ctx, order)
	return StepResult{Session: sess, Order: &order}, nil
}

func (s *Service) confirm(ctx context.Context, order domain.Order) {
	ctx = context.WithoutCancel(ctx)
	s.async(func() {
		ctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
		defer cancel()
		if err := s.notifier.OrderPlaced(ctx, order); err != nil {
			s.metrics.ConfirmationFailures.Inc()
			s.log.Warn("order confirmation not delivered", "order_id", order.ID, "order_number", order.OrderNumber, "err", err)
		}
	})
}
