package domain

import "time"

// Session is the in-progress state of one customer's checkout. It is owned by a
// single interaction and must not be mutated concurrently.
type Session struct {
	ID          string        `json:"id"`
	CustomerID  string        `json:"customer_id"`
	CurrentStep Step          `json:"current_step"`
	Shipping    *ShippingData `json:"shipping,omitempty"`
	Payment     *PaymentData  `json:"payment,omitempty"`
	Cart        []LineItem    `json:"cart"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// StepData is the form submitted with a step. Only the field matching the step is read.
type StepData struct {
	Shipping *ShippingData `json:"shipping,omitempty"`
	Payment  *PaymentData  `json:"payment,omitempty"`
}

func NewSession(id, customerID string, cart []LineItem, now time.Time) (Session, error) {
	if customerID == "" {
		return Session{}, ErrUnauthenticated
	}
	if len(cart) == 0 {
		return Session{}, ErrEmptyCart
	}
	return Session{
		ID:          id,
		CustomerID:  customerID,
		CurrentStep: StepShipping,
		Cart:        copyItems(cart),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CompleteStep stores the form for the shipping or payment step and advances one step.
// The session is left untouched when step is not the current step or the form is invalid.
func (s *Session) CompleteStep(step Step, data StepData, now time.Time) error {
	if step != s.CurrentStep {
		return &StepTransitionError{Current: s.CurrentStep, Requested: step, Op: "complete"}
	}

	switch step {
	case StepShipping:
		if data.Shipping == nil {
			return &ValidationError{Step: step, Fields: map[string]string{"shipping": "is required"}}
		}
		if err := data.Shipping.Validate(); err != nil {
			return err
		}
		shipping := *data.Shipping
		s.Shipping = &shipping
	case StepPayment:
		if data.Payment == nil {
			return &ValidationError{Step: step, Fields: map[string]string{"payment": "is required"}}
		}
		if err := data.Payment.Validate(); err != nil {
			return err
		}
		payment := *data.Payment
		s.Payment = &payment
	case StepReview:
		return ErrPlacementRequired
	default:
		return &StepTransitionError{Current: s.CurrentStep, Requested: step, Op: "complete"}
	}

	s.CurrentStep = step.Next()
	s.UpdatedAt = now
	return nil
}

// GoBack moves one step back from payment or review. Submitted forms are kept for re-editing.
func (s *Session) GoBack(now time.Time) error {
	if s.CurrentStep != StepPayment && s.CurrentStep != StepReview {
		return &StepTransitionError{Current: s.CurrentStep, Op: "go back"}
	}
	s.CurrentStep = s.CurrentStep.Prev()
	s.UpdatedAt = now
	return nil
}

// PrepareOrder builds the order for a session at the review step without changing the session.
func (s *Session) PrepareOrder(ids OrderIdentity, now time.Time) (Order, error) {
	if s.CurrentStep != StepReview || s.Shipping == nil || s.Payment == nil {
		return Order{}, &StepTransitionError{Current: s.CurrentStep, Requested: StepReview, Op: "place order at"}
	}

	method := s.Shipping.Method
	summary := Summarize(s.Cart, method)
	return Order{
		ID:                ids.ID,
		OrderNumber:       ids.Number,
		CustomerID:        s.CustomerID,
		Items:             copyItems(s.Cart),
		Subtotal:          summary.Subtotal,
		ShippingCost:      summary.ShippingCost,
		Tax:               summary.Tax,
		Total:             summary.Total,
		Shipping:          *s.Shipping,
		Payment:           s.Payment.Masked(),
		Status:            OrderStatusProcessing,
		CreatedAt:         now,
		EstimatedDelivery: EstimateDelivery(now, method),
	}, nil
}

// MarkComplete moves a reviewed session to the terminal step once its order is placed.
func (s *Session) MarkComplete(now time.Time) error {
	if s.CurrentStep != StepReview {
		return &StepTransitionError{Current: s.CurrentStep, Requested: StepReview, Op: "complete"}
	}
	s.CurrentStep = StepComplete
	s.UpdatedAt = now
	return nil
}

// Summary prices the cart with the chosen shipping method, standard until shipping is submitted.
func (s Session) Summary() Summary {
	method := ShippingStandard
	if s.Shipping != nil && s.Shipping.Method != "" {
		method = s.Shipping.Method
	}
	return Summarize(s.Cart, method)
}
