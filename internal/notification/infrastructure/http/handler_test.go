package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
	"github.com/dmehra2102/marketplace-checkout/pkg/logging"
)

type stubSender struct {
	bulkSizes []int
}

func (s *stubSender) Provider() string { return "stub" }

func (s *stubSender) Send(_ context.Context, msg domain.Message) domain.Result {
	if len(msg.Recipients) == 0 {
		return domain.Result{Provider: "stub", Error: "rejected by provider: message has no recipients"}
	}
	return domain.Result{Success: true, Provider: "stub", MessageID: "id-" + msg.Subject, Attempts: 1}
}

func (s *stubSender) SendBulk(ctx context.Context, msgs []domain.Message) []domain.Result {
	s.bulkSizes = append(s.bulkSizes, len(msgs))
	out := make([]domain.Result, len(msgs))
	for i, m := range msgs {
		out[i] = s.Send(ctx, m)
	}
	return out
}

type stubSellers struct {
	saved []domain.Seller
	err   error
}

func (s *stubSellers) Upsert(_ context.Context, seller domain.Seller) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, seller)
	return nil
}

func serve(h *Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestSend(t *testing.T) {
	h := NewHandler(logging.Discard(), &stubSender{}, &stubSellers{})

	rec := serve(h, http.MethodPost, "/notifications", `{"recipients":["a@example.com"],"subject":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res domain.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, domain.Result{Success: true, Provider: "stub", MessageID: "id-hello", Attempts: 1}, res)
}

func TestSend_FailureIsStillUniform(t *testing.T) {
	h := NewHandler(logging.Discard(), &stubSender{}, &stubSellers{})

	rec := serve(h, http.MethodPost, "/notifications", `{"subject":"nobody"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false,"provider":"stub","error":"rejected by provider: message has no recipients","attempts":0}`, rec.Body.String())
}

func TestSend_BadBody(t *testing.T) {
	h := NewHandler(logging.Discard(), &stubSender{}, &stubSellers{})
	rec := serve(h, http.MethodPost, "/notifications", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid body","code":"invalid_request_body"}`, rec.Body.String())
}

func TestSendBulk(t *testing.T) {
	sender := &stubSender{}
	h := NewHandler(logging.Discard(), sender, &stubSellers{})

	var parts []string
	for i := 0; i < 12; i++ {
		parts = append(parts, fmt.Sprintf(`{"recipients":["r%d@example.com"],"subject":"s%d"}`, i, i))
	}
	parts = append(parts, `{"subject":"empty"}`)
	body := `{"messages":[` + strings.Join(parts, ",") + `]}`

	rec := serve(h, http.MethodPost, "/notifications/bulk", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp bulkResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Results, 13)
	assert.Equal(t, "id-s11", resp.Results[11].MessageID)
	assert.False(t, resp.Results[12].Success)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, []int{13}, sender.bulkSizes)
}

func TestSendBulk_Validation(t *testing.T) {
	h := NewHandler(logging.Discard(), &stubSender{}, &stubSellers{})

	rec := serve(h, http.MethodPost, "/notifications/bulk", `{"messages":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var msgs []string
	for i := 0; i <= maxBulkMessages; i++ {
		msgs = append(msgs, `{"recipients":["a@example.com"]}`)
	}
	rec = serve(h, http.MethodPost, "/notifications/bulk", `{"messages":[`+strings.Join(msgs, ",")+`]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Messages failed max")
}

func TestPutSeller(t *testing.T) {
	sellers := &stubSellers{}
	h := NewHandler(logging.Discard(), &stubSender{}, sellers)

	rec := serve(h, http.MethodPut, "/sellers/s-1", `{"name":"Clay Works","email":"clay@example.com"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []domain.Seller{{ID: "s-1", Name: "Clay Works", Email: "clay@example.com"}}, sellers.saved)

	rec = serve(h, http.MethodPut, "/sellers/s-1", `{"name":"Clay Works","email":"nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	sellers.err = errors.New("db down")
	rec = serve(h, http.MethodPut, "/sellers/s-2", `{"name":"Print Shop","email":"print@example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
