package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/marketplace-checkout/internal/checkout/application"
	"github.com/dmehra2102/marketplace-checkout/internal/checkout/domain"
)

const (
	codeInvalidRequestBody = "invalid_request_body"
	codeUnauthenticated    = "unauthenticated"
	codeValidation         = "validation_failed"
	codeEmptyCart          = "empty_cart"
	codeInvalidTransition  = "invalid_step_transition"
	codeStepInProgress     = "step_in_progress"
	codePlacementFailed    = "order_placement_failed"
	codeNotFound           = "not_found"
	codeInternalError      = "internal_error"
)

// Checkout is the use-case surface served over HTTP.
type Checkout interface {
	Start(ctx context.Context, customerID string) (domain.Session, error)
	Session(ctx context.Context, customerID, sessionID string) (domain.Session, error)
	CompleteStep(ctx context.Context, customerID, sessionID string, step domain.Step, data domain.StepData) (application.StepResult, error)
	GoBack(ctx context.Context, customerID, sessionID string) (domain.Session, error)
	Discard(ctx context.Context, customerID, sessionID string) error
	Order(ctx context.Context, customerID, orderID string) (domain.Order, error)
}

type CartWriter interface {
	Replace(ctx context.Context, customerID string, items []domain.LineItem) error
}

type Handler struct {
	log      *slog.Logger
	checkout Checkout
	carts    CartWriter
	auth     *Authenticator
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, checkout Checkout, carts CartWriter, auth *Authenticator) *Handler {
	return &Handler{
		log:      log,
		checkout: checkout,
		carts:    carts,
		auth:     auth,
		tracer:   otel.Tracer("checkout-http"),
	}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

type sessionResponse struct {
	ID          string               `json:"id"`
	CurrentStep domain.Step          `json:"current_step"`
	Shipping    *domain.ShippingData `json:"shipping,omitempty"`
	Payment     *domain.PaymentData  `json:"payment,omitempty"`
	Cart        []domain.LineItem    `json:"cart"`
	Summary     domain.Summary       `json:"summary"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Order       *domain.Order        `json:"order,omitempty"`
}

type cartRequest struct {
	Items []domain.LineItem `json:"items"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.auth.Middleware)

	r.Put("/cart", h.putCart)
	r.Post("/checkout", h.start)
	r.Get("/checkout/{id}", h.getSession)
	r.Post("/checkout/{id}/steps/{step}", h.completeStep)
	r.Post("/checkout/{id}/back", h.goBack)
	r.Delete("/checkout/{id}", h.discard)
	r.Get("/orders/{id}", h.getOrder)
	return r
}

func (h *Handler) putCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ReplaceCart")
	defer span.End()

	var req cartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid body", nil)
		return
	}
	if err := domain.ValidateCart(req.Items); err != nil {
		h.fail(w, span, err)
		return
	}
	if err := h.carts.Replace(ctx, CustomerID(ctx), req.Items); err != nil {
		h.fail(w, span, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "StartCheckout")
	defer span.End()

	sess, err := h.checkout.Start(ctx, CustomerID(ctx))
	if err != nil {
		h.fail(w, span, err)
		return
	}
	span.SetAttributes(attribute.String("checkout.session_id", sess.ID))
	writeJSON(w, http.StatusCreated, view(sess, nil))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetCheckout")
	defer span.End()

	sess, err := h.checkout.Session(ctx, CustomerID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, view(sess, nil))
}

func (h *Handler) completeStep(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompleteCheckoutStep")
	defer span.End()

	step := domain.Step(chi.URLParam(r, "step"))
	span.SetAttributes(attribute.String("checkout.session_id", chi.URLParam(r, "id")), attribute.String("checkout.step", step.String()))

	var data domain.StepData
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid body", nil)
			return
		}
	}

	res, err := h.checkout.CompleteStep(ctx, CustomerID(ctx), chi.URLParam(r, "id"), step, data)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	status := http.StatusOK
	if res.Order != nil {
		status = http.StatusCreated
		span.SetAttributes(attribute.String("order.id", res.Order.ID))
	}
	writeJSON(w, status, view(res.Session, res.Order))
}

func (h *Handler) goBack(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CheckoutGoBack")
	defer span.End()

	sess, err := h.checkout.GoBack(ctx, CustomerID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, view(sess, nil))
}

func (h *Handler) discard(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DiscardCheckout")
	defer span.End()

	if err := h.checkout.Discard(ctx, CustomerID(ctx), chi.URLParam(r, "id")); err != nil {
		h.fail(w, span, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.checkout.Order(ctx, CustomerID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// view never exposes the full card number or CVV held by the session.
func view(sess domain.Session, order *domain.Order) sessionResponse {
	resp := sessionResponse{
		ID:          sess.ID,
		CurrentStep: sess.CurrentStep,
		Shipping:    sess.Shipping,
		Cart:        sess.Cart,
		Summary:     sess.Summary(),
		UpdatedAt:   sess.UpdatedAt,
		Order:       order,
	}
	if sess.Payment != nil {
		masked := sess.Payment.Masked()
		resp.Payment = &masked
	}
	return resp
}

func (h *Handler) fail(w http.ResponseWriter, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, codeValidation, err.Error(), verr.Fields)
	case errors.Is(err, domain.ErrEmptyCart):
		writeError(w, http.StatusUnprocessableEntity, codeEmptyCart, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidStepTransition), errors.Is(err, domain.ErrPlacementRequired):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error(), nil)
	case errors.Is(err, domain.ErrStepInProgress):
		writeError(w, http.StatusConflict, codeStepInProgress, err.Error(), nil)
	case errors.Is(err, domain.ErrOrderPlacementFailed):
		// The underlying store error stays in the log.
		h.log.Error("order placement failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, codePlacementFailed, domain.ErrOrderPlacementFailed.Error(), nil)
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, err.Error(), nil)
	default:
		h.log.Error("checkout request failed", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string, fields map[string]string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code, Fields: fields})
}
