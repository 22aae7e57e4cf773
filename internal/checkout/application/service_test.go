package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/marketplace-checkout/internal/checkout/domain"
	"github.com/dmehra2102/marketplace-checkout/pkg/clock"
	"github.com/dmehra2102/marketplace-checkout/pkg/logging"
	"github.com/dmehra2102/marketplace-checkout/pkg/metrics"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	carts    *fakeCarts
	orders   *fakeOrders
	sessions *fakeSessions
	notifier *fakeNotifier
	metrics  *metrics.CheckoutMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		carts: &fakeCarts{items: map[string][]domain.LineItem{
			"cust-1": {
				{ProductID: "p-1", Name: "Mug", SellerID: "s-1", UnitPrice: decimal.RequireFromString("12.50"), Quantity: 2},
				{ProductID: "p-2", Name: "Poster", SellerID: "s-2", UnitPrice: decimal.RequireFromString("30.50"), Quantity: 1},
			},
		}},
		orders:   &fakeOrders{byID: map[string]domain.Order{}},
		sessions: newFakeSessions(),
		notifier: &fakeNotifier{},
		metrics:  metrics.NewCheckoutMetrics(prometheus.NewRegistry()),
	}
	f.svc = NewService(logging.Discard(), f.carts, f.orders, f.sessions, f.notifier,
		WithClock(clock.NewFixed(now)),
		WithMetrics(f.metrics),
		WithSessionIDs(func() string { return "sess-1" }),
		WithOrderIdentity(func(time.Time) (domain.OrderIdentity, error) {
			return domain.OrderIdentity{ID: "ord-1", Number: "FND-TEST00001"}, nil
		}),
		WithAsync(func(fn func()) { fn() }),
	)
	return f
}

func shipping() *domain.ShippingData {
	return &domain.ShippingData{
		FullName:   "Ada Lovelace",
		Email:      "ada@example.com",
		Address:    "12 St James's Square",
		City:       "London",
		PostalCode: "SW1Y 4JH",
		Country:    "GB",
		Method:     domain.ShippingExpress,
	}
}

func payment() *domain.PaymentData {
	return &domain.PaymentData{CardholderName: "Ada Lovelace", CardNumber: "4242424242424242", Expiry: "12/30", CVV: "123"}
}

func (f *fixture) toReview(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Start(ctx, "cust-1")
	require.NoError(t, err)
	_, err = f.svc.CompleteStep(ctx, "cust-1", "sess-1", domain.StepShipping, domain.StepData{Shipping: shipping()})
	require.NoError(t, err)
	res, err := f.svc.CompleteStep(ctx, "cust-1", "sess-1", domain.StepPayment, domain.StepData{Payment: payment()})
	require.NoError(t, err)
	require.Equal(t, domain.StepReview, res.Session.CurrentStep)
}

func TestService_Start(t *testing.T) {
	f := newFixture(t)

	sess, err := f.svc.Start(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)
	assert.Equal(t, domain.StepShipping, sess.CurrentStep)
	assert.Len(t, sess.Cart, 2)

	stored, err := f.sessions.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, sess, stored)
}

func TestService_StartRejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Start(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = f.svc.Start(context.Background(), "cust-empty")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	f.carts.items["cust-bad"] = []domain.LineItem{{ProductID: "p", SellerID: "s", UnitPrice: decimal.NewFromInt(1), Quantity: 0}}
	_, err = f.svc.Start(context.Background(), "cust-bad")
	assert.ErrorIs(t, err, domain.ErrValidation)

	f.carts.err = errors.New("cart down")
	_, err = f.svc.Start(context.Background(), "cust-1")
	assert.ErrorContains(t, err, "cart down")
}

func TestService_FullFlowPlacesOrder(t *testing.T) {
	f := newFixture(t)
	f.toReview(t)

	res, err := f.svc.CompleteStep(context.Background(), "cust-1", "sess-1", domain.StepReview, domain.StepData{})
	require.NoError(t, err)
	require.NotNil(t, res.Order)

	assert.Equal(t, domain.StepComplete, res.Session.CurrentStep)
	assert.Equal(t, "FND-TEST00001", res.Order.OrderNumber)
	assert.Equal(t, "72.93", res.Order.Total.StringFixed(2))
	assert.Equal(t, now.AddDate(0, 0, 2), res.Order.EstimatedDelivery)
	assert.Equal(t, "**** 4242", res.Order.Payment.CardNumber)

	assert.Contains(t, f.orders.byID, "ord-1")
	assert.Equal(t, []string{"cust-1"}, f.carts.cleared)
	assert.Equal(t, []string{"ord-1"}, f.notifier.orderIDs())

	_, err = f.sessions.Get(context.Background(), "sess-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "completed sessions are handed off")

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OrdersPlaced))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.ConfirmationFailures))
}

func TestService_PlacementFailureKeepsReview(t *testing.T) {
	f := newFixture(t)
	f.toReview(t)
	f.orders.createErr = errors.New("order service unavailable")

	res, err := f.svc.CompleteStep(context.Background(), "cust-1", "sess-1", domain.StepReview, domain.StepData{})
	require.ErrorIs(t, err, domain.ErrOrderPlacementFailed)
	assert.Nil(t, res.Order)
	assert.Equal(t, domain.StepReview, res.Session.CurrentStep)

	stored, err := f.sessions.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepReview, stored.CurrentStep)
	assert.Empty(t, f.carts.cleared)
	assert.Empty(t, f.notifier.orderIDs())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PlacementFailures))

	f.orders.createErr = nil
	res, err = f.svc.CompleteStep(context.Background(), "cust-1", "sess-1", domain.StepReview, domain.StepData{})
	require.NoError(t, err)
	assert.Equal(t, domain.StepComplete, res.Session.CurrentStep)
}

func TestService_ConfirmationFailureIsNotReturned(t *testing.T) {
	f := newFixture(t)
	f.toReview(t)
	f.notifier.err = errors.New("smtp relay down")

	res, err := f.svc.CompleteStep(context.Background(), "cust-1", "sess-1", domain.StepReview, domain.StepData{})
	require.NoError(t, err)
	assert.Equal(t, domain.StepComplete, res.Session.CurrentStep)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ConfirmationFailures))
}

func TestService_CartClearFailureStillCompletes(t *testing.T) {
	f := newFixture(t)
	f.toReview(t)
	f.carts.clearErr = errors.New("cart down")

	res, err := f.svc.CompleteStep(context.Background(), "cust-1", "sess-1", domain.StepReview, domain.StepData{})
	require.NoError(t, err)
	assert.NotNil(t, res.Order)
	assert.Equal(t, domain.StepComplete, res.Session.CurrentStep)
}

func TestService_ConfirmationOutlivesRequestContext(t *testing.T) {
	f := newFixture(t)
	f.toReview(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var errAtSend error
	called := false
	f.notifier.hook = func(confirmCtx context.Context) {
		cancel()
		called = true
		errAtSend = confirmCtx.Err()
	}

	_, err := f.svc.CompleteStep(ctx, "cust-1", "sess-1", domain.StepReview, domain.StepData{})
	require.NoError(t, err)
	require.True(t, called)
	assert.NoError(t, errAtSend)
}

func TestService_WrongStepDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Start(context.Background(), "cust-1")
	require.NoError(t, err)

	_, err = f.svc.CompleteStep(context.Background(), "cust-1", "sess-1", domain.StepReview, domain.StepData{})
	assert.ErrorIs(t, err, domain.ErrInvalidStepTransition)
	assert.Empty(t, f.orders.byID)

	stored, _ := f.sessions.Get(context.Background(), "sess-1")
	assert.Equal(t, domain.StepShipping, stored.CurrentStep)
}

func TestService_ValidationErrorIsReturned(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Start(context.Background(), "cust-1")
	require.NoError(t, err)

	bad := shipping()
	bad.Email = ""
	_, err = f.svc.CompleteStep(context.Background(), "cust-1", "sess-1", domain.StepShipping, domain.StepData{Shipping: bad})

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "is required", vErr.Fields["email"])
}

func TestService_GoBack(t *testing.T) {
	f := newFixture(t)
	f.toReview(t)

	sess, err := f.svc.GoBack(context.Background(), "cust-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepPayment, sess.CurrentStep)

	stored, _ := f.sessions.Get(context.Background(), "sess-1")
	assert.Equal(t, domain.StepPayment, stored.CurrentStep)
	assert.NotNil(t, stored.Payment)
}

func TestService_OtherCustomersSessionIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Start(context.Background(), "cust-1")
	require.NoError(t, err)

	_, err = f.svc.Session(context.Background(), "cust-2", "sess-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = f.svc.CompleteStep(context.Background(), "cust-2", "sess-1", domain.StepShipping, domain.StepData{Shipping: shipping()})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	err = f.svc.Discard(context.Background(), "cust-2", "sess-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestService_Discard(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Start(context.Background(), "cust-1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Discard(context.Background(), "cust-1", "sess-1"))
	_, err = f.svc.Session(context.Background(), "cust-1", "sess-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Empty(t, f.carts.cleared)
}

func TestService_ConcurrentStepIsRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Start(context.Background(), "cust-1")
	require.NoError(t, err)

	unlock, err := f.sessions.Lock(context.Background(), "sess-1")
	require.NoError(t, err)

	_, err = f.svc.CompleteStep(context.Background(), "cust-1", "sess-1", domain.StepShipping, domain.StepData{Shipping: shipping()})
	assert.ErrorIs(t, err, domain.ErrStepInProgress)

	unlock()
	_, err = f.svc.CompleteStep(context.Background(), "cust-1", "sess-1", domain.StepShipping, domain.StepData{Shipping: shipping()})
	assert.NoError(t, err)
}

func TestService_Order(t *testing.T) {
	f := newFixture(t)
	f.toReview(t)
	_, err := f.svc.CompleteStep(context.Background(), "cust-1", "sess-1", domain.StepReview, domain.StepData{})
	require.NoError(t, err)

	o, err := f.svc.Order(context.Background(), "cust-1", "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "FND-TEST00001", o.OrderNumber)

	_, err = f.svc.Order(context.Background(), "cust-2", "ord-1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.svc.Order(context.Background(), "cust-1", "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

type fakeCarts struct {
	mu       sync.Mutex
	items    map[string][]domain.LineItem
	err      error
	clearErr error
	cleared  []string
}

func (c *fakeCarts) Items(_ context.Context, customerID string) ([]domain.LineItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.items[customerID], nil
}

func (c *fakeCarts) Total(_ context.Context, customerID string) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, item := range c.items[customerID] {
		total = total.Add(item.LineTotal())
	}
	return total, nil
}

func (c *fakeCarts) Clear(_ context.Context, customerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clearErr != nil {
		return c.clearErr
	}
	c.cleared = append(c.cleared, customerID)
	delete(c.items, customerID)
	return nil
}

type fakeOrders struct {
	mu        sync.Mutex
	byID      map[string]domain.Order
	createErr error
}

func (o *fakeOrders) Create(_ context.Context, order domain.Order) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.createErr != nil {
		return o.createErr
	}
	o.byID[order.ID] = order
	return nil
}

func (o *fakeOrders) Get(_ context.Context, id string) (domain.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.byID[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

type fakeSessions struct {
	mu     sync.Mutex
	byID   map[string]domain.Session
	locked map[string]bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: map[string]domain.Session{}, locked: map[string]bool{}}
}

func (s *fakeSessions) Get(_ context.Context, id string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *fakeSessions) Save(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[sess.ID] = sess
	return nil
}

func (s *fakeSessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func (s *fakeSessions) Lock(_ context.Context, id string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked[id] {
		return nil, domain.ErrStepInProgress
	}
	s.locked[id] = true
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.locked, id)
	}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	err    error
	hook   func(ctx context.Context)
	placed []domain.Order
}

func (n *fakeNotifier) OrderPlaced(ctx context.Context, o domain.Order) error {
	if n.hook != nil {
		n.hook(ctx)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed = append(n.placed, o)
	return n.err
}

func (n *fakeNotifier) orderIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, 0, len(n.placed))
	for _, o := range n.placed {
		ids = append(ids, o.ID)
	}
	return ids
}
