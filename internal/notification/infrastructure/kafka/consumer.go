package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
	"github.com/dmehra2102/marketplace-checkout/pkg/outbox"
	"github.com/dmehra2102/marketplace-checkout/pkg/tracing"
)

type OrderHandler interface {
	OrderPlaced(ctx context.Context, evt domain.OrderPlaced) error
}

// Deduper is satisfied by idempotency.Store.
type Deduper interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads order events and hands OrderPlaced to the seller alert handler.
type Consumer struct {
	log     *slog.Logger
	reader  reader
	handler OrderHandler
	idem    Deduper
	tracer  trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, handler OrderHandler, idem Deduper) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return newConsumer(log, r, handler, idem)
}

func newConsumer(log *slog.Logger, r reader, handler OrderHandler, idem Deduper) *Consumer {
	return &Consumer{
		log:     log,
		reader:  r,
		handler: handler,
		idem:    idem,
		tracer:  otel.Tracer("notification-consumer"),
	}
}

// Run consumes until ctx is cancelled. Every fetched message is committed once
// handled, including ones that could not be decoded.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		c.handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "topic", msg.Topic, "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	if t := headerValue(msg.Headers, outbox.EventTypeHeader); t != "" && t != domain.EventOrderPlaced {
		return
	}

	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		c.log.Error("idempotency check failed", "key", key, "err", err)
	}
	if seen {
		c.log.Info("duplicate message skipped", "key", key)
		return
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderPlaced")
	defer span.End()

	var evt domain.OrderPlaced
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		c.log.Error("unmarshal failed", "offset", msg.Offset, "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad payload")
		return
	}
	span.SetAttributes(attribute.String("order.id", evt.OrderID))

	if err := c.handler.OrderPlaced(msgCtx, evt); err != nil {
		c.log.Error("seller alerts failed", "order_id", evt.OrderID, "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		// The offset is still committed. Releasing the claim only lets a rewound
		// consumer group retry it.
		if err := c.idem.Forget(context.WithoutCancel(ctx), key); err != nil {
			c.log.Error("idempotency release failed", "key", key, "err", err)
		}
		return
	}
	c.log.Info("order event handled", "order_id", evt.OrderID, "traceparent", headerValue(msg.Headers, tracing.TraceparentHeader))
}

func headerValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
