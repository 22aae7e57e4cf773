package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/marketplace-checkout/internal/notification/domain"
)

const maxBulkMessages = 500

const (
	codeInvalidRequestBody = "invalid_request_body"
	codeValidation         = "validation_failed"
	codeInternalError      = "internal_error"
)

type Sender interface {
	Provider() string
	Send(ctx context.Context, msg domain.Message) domain.Result
	SendBulk(ctx context.Context, msgs []domain.Message) []domain.Result
}

type SellerStore interface {
	Upsert(ctx context.Context, s domain.Seller) error
}

type Handler struct {
	log      *slog.Logger
	sender   Sender
	sellers  SellerStore
	validate *validator.Validate
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, sender Sender, sellers SellerStore) *Handler {
	return &Handler{
		log:      log,
		sender:   sender,
		sellers:  sellers,
		validate: validator.New(),
		tracer:   otel.Tracer("notification-http"),
	}
}

type bulkRequest struct {
	Messages []domain.Message `json:"messages" validate:"required,min=1,max=500"`
}

type bulkResponse struct {
	Results []domain.Result `json:"results"`
	Failed  int             `json:"failed"`
}

type sellerRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/notifications", h.send)
	r.Post("/notifications/bulk", h.sendBulk)
	r.Put("/sellers/{id}", h.putSeller)
	return r
}

// send always answers 200 with the uniform result; delivery failure is reported
// in the body, not the status.
func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SendNotification")
	defer span.End()

	var msg domain.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid body")
		return
	}
	res := h.sender.Send(ctx, msg)
	span.SetAttributes(attribute.Bool("notification.success", res.Success), attribute.Int("notification.attempts", res.Attempts))
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) sendBulk(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SendNotificationBulk")
	defer span.End()

	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, validationMessage(err))
		return
	}

	results := h.sender.SendBulk(ctx, req.Messages)
	resp := bulkResponse{Results: results}
	for _, res := range results {
		if !res.Success {
			resp.Failed++
		}
	}
	span.SetAttributes(attribute.Int("notification.count", len(results)), attribute.Int("notification.failed", resp.Failed))
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) putSeller(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PutSeller")
	defer span.End()

	var req sellerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, validationMessage(err))
		return
	}

	seller := domain.Seller{ID: chi.URLParam(r, "id"), Name: req.Name, Email: req.Email}
	if err := h.sellers.Upsert(ctx, seller); err != nil {
		h.log.Error("seller upsert failed", "seller_id", seller.ID, "err", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fe.Field() + " failed " + fe.Tag()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
