package domain

import "strings"

type ShippingData struct {
	FullName   string         `json:"full_name" validate:"required,max=100"`
	Email      string         `json:"email" validate:"required,email"`
	Phone      string         `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address    string         `json:"address" validate:"required,max=200"`
	City       string         `json:"city" validate:"required,max=100"`
	State      string         `json:"state,omitempty" validate:"omitempty,max=100"`
	PostalCode string         `json:"postal_code" validate:"required,max=20"`
	Country    string         `json:"country" validate:"required,iso3166_1_alpha2"`
	Method     ShippingMethod `json:"method,omitempty" validate:"omitempty,max=32"`
}

func (d ShippingData) Validate() error {
	if fields := fieldErrors(d); len(fields) > 0 {
		return &ValidationError{Step: StepShipping, Fields: fields}
	}
	return nil
}

// PaymentData is the card form. Card details are only held by the session;
// orders carry the Masked form.
type PaymentData struct {
	CardholderName string `json:"cardholder_name" validate:"required,max=100"`
	CardNumber     string `json:"card_number" validate:"required,credit_card"`
	Expiry         string `json:"expiry" validate:"required,expiry"`
	CVV            string `json:"cvv,omitempty" validate:"required,numeric,min=3,max=4"`
}

func (d PaymentData) Validate() error {
	if fields := fieldErrors(d); len(fields) > 0 {
		return &ValidationError{Step: StepPayment, Fields: fields}
	}
	return nil
}

// Masked keeps the last four card digits and drops the CVV.
func (d PaymentData) Masked() PaymentData {
	digits := strings.ReplaceAll(d.CardNumber, " ", "")
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	d.CardNumber = "**** " + digits
	d.CVV = ""
	return d
}
