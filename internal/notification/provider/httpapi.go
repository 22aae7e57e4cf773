package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
)

const maxErrorBody = 4 << 10

// postJSON sends body to url and classifies the outcome. Non-2xx responses become
// transport errors when retryable (408, 429, 5xx) and rejections otherwise.
func postJSON(ctx context.Context, client *http.Client, name, url, apiKey string, body any) (*http.Response, []byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: encode request: %v", name, domain.ErrRejected, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: build request: %v", name, domain.ErrRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %v", name, domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: read response: %v", name, domain.ErrTransport, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, respBody, nil
	}
	return resp, respBody, statusError(name, resp.StatusCode, respBody)
}

func statusError(name string, status int, body []byte) error {
	kind := domain.ErrRejected
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500 {
		kind = domain.ErrTransport
	}
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		detail = http.StatusText(status)
	}
	return fmt.Errorf("%s: %w: status %d: %s", name, kind, status, detail)
}
