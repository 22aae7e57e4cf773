package provider

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
)

// Receipt is what a provider reports for an accepted message.
type Receipt struct {
	MessageID string
}

// Provider sends one message in one attempt. Errors wrap domain.ErrTransport,
// domain.ErrRejected or domain.ErrNotImplemented.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg domain.Message) (Receipt, error)
}

type Config struct {
	Kind       domain.Kind
	APIKey     string
	BaseURL    string
	From       string
	HTTPClient *http.Client

	MockLatency     time.Duration
	MockFailureRate float64
	Rand            *rand.Rand
}

// New maps the configured kind to its provider. Kinds without an integration get a
// provider that fails every send with domain.ErrNotImplemented.
func New(cfg Config) Provider {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	switch cfg.Kind {
	case domain.KindResend:
		return newResend(client, cfg.BaseURL, cfg.APIKey, cfg.From)
	case domain.KindSendGrid:
		return newSendGrid(client, cfg.BaseURL, cfg.APIKey, cfg.From)
	case domain.KindMock:
		return NewMock(cfg.MockLatency, cfg.MockFailureRate, cfg.Rand)
	default:
		return unsupported{kind: cfg.Kind}
	}
}

type unsupported struct {
	kind domain.Kind
}

func (u unsupported) Name() string {
	if u.kind == "" {
		return "unconfigured"
	}
	return string(u.kind)
}

func (u unsupported) Send(context.Context, domain.Message) (Receipt, error) {
	return Receipt{}, fmt.Errorf("%w: %s", domain.ErrNotImplemented, u.Name())
}
