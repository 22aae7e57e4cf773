package provider

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
)

const DefaultMockFailureRate = 0.05

// Mock stands in for a real provider in local development. It waits a little and
// fails a small share of sends with a transport error.
type Mock struct {
	latency     time.Duration
	failureRate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewMock returns a mock provider. A negative failureRate selects the default;
// a nil rnd is seeded randomly.
func NewMock(latency time.Duration, failureRate float64, rnd *rand.Rand) *Mock {
	if failureRate < 0 {
		failureRate = DefaultMockFailureRate
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Mock{latency: latency, failureRate: failureRate, rnd: rnd}
}

func (m *Mock) Name() string { return string(domain.KindMock) }

func (m *Mock) Send(ctx context.Context, msg domain.Message) (Receipt, error) {
	m.mu.Lock()
	var jitter time.Duration
	if m.latency > 0 {
		jitter = time.Duration(m.rnd.Int64N(int64(m.latency)))
	}
	fail := m.rnd.Float64() < m.failureRate
	m.mu.Unlock()

	if delay := m.latency + jitter; delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Receipt{}, fmt.Errorf("%s: %w: %v", m.Name(), domain.ErrTransport, ctx.Err())
		case <-t.C:
		}
	}
	if fail {
		return Receipt{}, fmt.Errorf("%s: %w: simulated failure", m.Name(), domain.ErrTransport)
	}
	return Receipt{MessageID: "mock_" + uuid.NewString()}, nil
}
