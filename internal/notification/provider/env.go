package provider

import (
	"strings"
	"time"

	"github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
	"github.com/dmehra2102/marketplace-checkout/pkg/config"
)

// ConfigFromEnv reads NOTIFY_* variables. An unrecognised NOTIFY_PROVIDER is kept
// as-is so New falls back to the not-implemented provider.
func ConfigFromEnv() Config {
	raw := config.Env("NOTIFY_PROVIDER", string(domain.KindMock))
	kind, err := domain.ParseKind(raw)
	if err != nil {
		kind = domain.Kind(strings.ToLower(raw))
	}
	return Config{
		Kind:            kind,
		APIKey:          config.Env("NOTIFY_API_KEY", ""),
		BaseURL:         config.Env("NOTIFY_BASE_URL", ""),
		From:            config.Env("NOTIFY_FROM", "orders@marketplace.local"),
		MockLatency:     config.Duration("NOTIFY_MOCK_LATENCY", 100*time.Millisecond),
		MockFailureRate: config.Float("NOTIFY_MOCK_FAILURE_RATE", DefaultMockFailureRate),
	}
}
