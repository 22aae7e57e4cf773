package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
	"github.com/dmehra2102/marketplace-checkout/pkg/idempotency"
	"github.com/dmehra2102/marketplace-checkout/pkg/logging"
	"github.com/dmehra2102/marketplace-checkout/pkg/outbox"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) == 0 {
		r.mu.Unlock()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	r.mu.Unlock()
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type recordingHandler struct {
	events []domain.OrderPlaced
	err    error
}

func (h *recordingHandler) OrderPlaced(_ context.Context, evt domain.OrderPlaced) error {
	h.events = append(h.events, evt)
	return h.err
}

func newIdem(t *testing.T) *idempotency.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return idempotency.NewStore(rdb, "notification-test", time.Minute)
}

func orderMsg(offset int64, eventType string) kafka.Message {
	return kafka.Message{
		Topic:     "order.events",
		Partition: 0,
		Offset:    offset,
		Key:       []byte("ord-1"),
		Value:     []byte(`{"order_id":"ord-1","order_number":"FND-ABC123XYZ","items":[{"product_id":"p-1","seller_id":"s-1","quantity":2,"unit_price":"12.50"}],"total":"72.93"}`),
		Headers: []kafka.Header{
			{Key: outbox.EventTypeHeader, Value: []byte(eventType)},
			{Key: "traceparent", Value: []byte("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")},
		},
	}
}

func runUntilDrained(t *testing.T, c *Consumer, r *fakeReader, want int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(r.committedSnapshot()) == want }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.True(t, r.closed)
}

func (r *fakeReader) committedSnapshot() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestConsumer_HandlesOrderPlaced(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{orderMsg(1, domain.EventOrderPlaced)}}
	h := &recordingHandler{}
	c := newConsumer(logging.Discard(), r, h, newIdem(t))

	runUntilDrained(t, c, r, 1)

	require.Len(t, h.events, 1)
	evt := h.events[0]
	assert.Equal(t, "FND-ABC123XYZ", evt.OrderNumber)
	require.Len(t, evt.Items, 1)
	assert.Equal(t, "s-1", evt.Items[0].SellerID)
	assert.Equal(t, "25.00", evt.Items[0].Total().StringFixed(2))
}

func TestConsumer_SkipsDuplicatesAndOtherEvents(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		orderMsg(1, domain.EventOrderPlaced),
		orderMsg(1, domain.EventOrderPlaced),
		orderMsg(2, "OrderShipped"),
		{Topic: "order.events", Offset: 3, Value: []byte(`not json`)},
	}}
	h := &recordingHandler{}
	c := newConsumer(logging.Discard(), r, h, newIdem(t))

	runUntilDrained(t, c, r, 4)

	assert.Len(t, h.events, 1)
	assert.Equal(t, []int64{1, 1, 2, 3}, r.committedSnapshot())
}

func TestConsumer_HandlerErrorCommitsAndAllowsReplay(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{orderMsg(5, domain.EventOrderPlaced), orderMsg(5, domain.EventOrderPlaced)}}
	h := &recordingHandler{err: errors.New("smtp down")}
	c := newConsumer(logging.Discard(), r, h, newIdem(t))

	runUntilDrained(t, c, r, 2)
	assert.Len(t, h.events, 2)
	assert.Equal(t, []int64{5, 5}, r.committedSnapshot())
}
