package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
	"github.com/dmehra2102/marketplace-checkout/internal/notification/provider"
	"github.com/dmehra2102/marketplace-checkout/pkg/metrics"
)

const (
	MaxAttempts = 3
	BatchSize   = 10

	DefaultBaseDelay      = time.Second
	DefaultAttemptTimeout = 10 * time.Second
	DefaultBatchPause     = time.Second
)

// Dispatcher delivers messages through one provider with retries. It holds no
// per-call state and is safe for concurrent use.
type Dispatcher struct {
	log      *slog.Logger
	provider provider.Provider
	metrics  *metrics.DeliveryMetrics

	baseDelay      time.Duration
	attemptTimeout time.Duration
	batchPause     time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

type Option func(*Dispatcher)

func WithBaseDelay(d time.Duration) Option {
	return func(s *Dispatcher) { s.baseDelay = d }
}

func WithAttemptTimeout(d time.Duration) Option {
	return func(s *Dispatcher) {
		if d > 0 {
			s.attemptTimeout = d
		}
	}
}

func WithBatchPause(d time.Duration) Option {
	return func(s *Dispatcher) { s.batchPause = d }
}

func WithMetrics(m *metrics.DeliveryMetrics) Option {
	return func(s *Dispatcher) { s.metrics = m }
}

// WithSleep replaces the wait used for retry backoff and batch pauses.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Dispatcher) { s.sleep = fn }
}

func NewDispatcher(log *slog.Logger, p provider.Provider, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		log:            log,
		provider:       p,
		baseDelay:      DefaultBaseDelay,
		attemptTimeout: DefaultAttemptTimeout,
		batchPause:     DefaultBatchPause,
		sleep:          sleepCtx,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = metrics.NewDeliveryMetrics(prometheus.NewRegistry())
	}
	return d
}

func (d *Dispatcher) Provider() string {
	return d.provider.Name()
}

// Send tries the provider up to MaxAttempts times. After failed attempt n it waits
// n times the base delay. Every kind of failure uses the full attempt budget; the
// kind only shows up in logs and the attempts metric.
func (d *Dispatcher) Send(ctx context.Context, msg domain.Message) domain.Result {
	name := d.provider.Name()
	res := domain.Result{Provider: name}

	if len(msg.Recipients) == 0 {
		res.Error = fmt.Errorf("%w: message has no recipients", domain.ErrRejected).Error()
		d.finish(res)
		return res
	}

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		res.Attempts = attempt
		receipt, err := d.attempt(ctx, msg)
		if err == nil {
			d.metrics.Attempts.WithLabelValues(name, "success").Inc()
			res.Success = true
			res.MessageID = receipt.MessageID
			d.finish(res)
			return res
		}

		lastErr = err
		d.metrics.Attempts.WithLabelValues(name, outcome(err)).Inc()
		d.log.Warn("send attempt failed", "provider", name, "attempt", attempt, "recipients", len(msg.Recipients), "err", err)

		if attempt == MaxAttempts {
			break
		}
		if err := d.sleep(ctx, time.Duration(attempt)*d.baseDelay); err != nil {
			lastErr = fmt.Errorf("%w (retry abandoned: %v)", lastErr, err)
			break
		}
	}

	res.Error = lastErr.Error()
	d.finish(res)
	return res
}

// SendBulk sends msgs in batches of BatchSize. Messages in a batch run concurrently;
// the next batch starts after the previous one has finished and the batch pause
// has passed. Results line up with msgs by index.
func (d *Dispatcher) SendBulk(ctx context.Context, msgs []domain.Message) []domain.Result {
	results := make([]domain.Result, len(msgs))
	for start := 0; start < len(msgs); start += BatchSize {
		if start > 0 {
			if err := d.sleep(ctx, d.batchPause); err != nil {
				d.abandon(results[start:], err)
				return results
			}
		}

		end := min(start+BatchSize, len(msgs))
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = d.Send(ctx, msgs[i])
				return nil
			})
		}
		_ = g.Wait()
		d.log.Debug("bulk batch sent", "provider", d.provider.Name(), "from", start, "to", end)
	}
	return results
}

func (d *Dispatcher) attempt(ctx context.Context, msg domain.Message) (provider.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
	defer cancel()

	receipt, err := d.provider.Send(ctx, msg)
	if err == nil {
		return receipt, nil
	}
	if errors.Is(err, domain.ErrTransport) || domain.Permanent(err) {
		return provider.Receipt{}, err
	}
	// Unclassified errors are treated as retryable.
	return provider.Receipt{}, fmt.Errorf("%w: %v", domain.ErrTransport, err)
}

func (d *Dispatcher) abandon(results []domain.Result, cause error) {
	for i := range results {
		results[i] = domain.Result{
			Provider: d.provider.Name(),
			Error:    fmt.Sprintf("not sent: %v", cause),
		}
		d.finish(results[i])
	}
}

func (d *Dispatcher) finish(res domain.Result) {
	d.metrics.Results.WithLabelValues(res.Provider, fmt.Sprint(res.Success)).Inc()
	if !res.Success {
		d.log.Error("notification delivery failed", "provider", res.Provider, "attempts", res.Attempts, "err", res.Error)
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotImplemented):
		return "not_implemented"
	case errors.Is(err, domain.ErrRejected):
		return "rejected"
	default:
		return "transport"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
