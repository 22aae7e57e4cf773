package tracing

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/marketplace-checkout/pkg/logging"
)

func TestTraceparentRoundTripThroughKafkaHeaders(t *testing.T) {
	tp, err := Init(context.Background(), "tracing-test", "", logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := otel.Tracer("test").Start(context.Background(), "produce")
	defer span.End()

	tpHeader := Traceparent(ctx)
	require.NotEmpty(t, tpHeader)

	headers := InjectKafkaHeaders(ctx, []kafka.Header{{Key: "source", Value: []byte("test")}})
	got := ExtractKafkaHeaders(context.Background(), headers)

	assert.Equal(t, span.SpanContext().TraceID(), trace.SpanContextFromContext(got).TraceID())
}

func TestTraceparent_EmptyWithoutSpan(t *testing.T) {
	assert.Empty(t, Traceparent(context.Background()))
}
