package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestQuote(t *testing.T) {
	out, err := run(t, "quote", "--item", "p-1:s-1:12.50:2", "--item", "p-2:s-2:30.50", "--method", "express", "--at", "2025-03-10")
	require.NoError(t, err)

	assert.Contains(t, out, "55.50")
	assert.Contains(t, out, "12.99")
	assert.Contains(t, out, "4.44")
	assert.Contains(t, out, "72.93")
	assert.Contains(t, out, "Estimated delivery: 2025-03-12")
}

func TestQuote_BadInput(t *testing.T) {
	_, err := run(t, "quote", "--item", "p-1:s-1")
	assert.ErrorContains(t, err, "want product:seller:price")

	_, err = run(t, "quote", "--item", "p-1:s-1:abc")
	assert.ErrorContains(t, err, "price")

	_, err = run(t, "quote", "--item", "p-1:s-1:1.00", "--method", "teleport")
	assert.ErrorContains(t, err, `unknown shipping method "teleport"`)

	_, err = run(t, "quote", "--item", "p-1:s-1:-1.00")
	assert.ErrorContains(t, err, "must not be negative")

	_, err = run(t, "quote", "--item", "p-1:s-1:19.999")
	assert.ErrorContains(t, err, "whole cents")
}

func TestNotify_Mock(t *testing.T) {
	t.Setenv("NOTIFY_MOCK_LATENCY", "0s")
	out, err := run(t, "notify", "--provider", "mock", "--fail-rate", "0", "--to", "ada@example.com", "--count", "3")
	require.NoError(t, err)

	start := bytes.IndexByte([]byte(out), '[')
	require.GreaterOrEqual(t, start, 0)
	var results []domain.Result
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &results))
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Success)
		assert.Equal(t, "mock", r.Provider)
		assert.Equal(t, 1, r.Attempts)
	}
}

func TestNotify_UnimplementedProviderFails(t *testing.T) {
	out, err := run(t, "notify", "--provider", "ses", "--to", "ada@example.com", "--retry-delay", "1ms")
	assert.ErrorContains(t, err, "1 of 1 notifications failed")
	assert.Contains(t, out, "provider not implemented")
	assert.Contains(t, out, `"attempts": 3`)
}
