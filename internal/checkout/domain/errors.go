package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidStepTransition = errors.New("invalid step transition")
	ErrValidation            = errors.New("validation failed")
	ErrOrderPlacementFailed  = errors.New("order placement failed")
	ErrPlacementRequired     = errors.New("review step completes through order placement")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrUnauthenticated       = errors.New("authenticated customer required")
	ErrSessionNotFound       = errors.New("checkout session not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrStepInProgress        = errors.New("another step is in progress for this session")
)

// StepTransitionError reports an operation that does not match the session's current step.
type StepTransitionError struct {
	Current   Step
	Requested Step
	Op        string
}

func (e *StepTransitionError) Error() string {
	if e.Requested == "" {
		return fmt.Sprintf("%s: cannot %s from %s", ErrInvalidStepTransition, e.Op, e.Current)
	}
	return fmt.Sprintf("%s: cannot %s %s while at %s", ErrInvalidStepTransition, e.Op, e.Requested, e.Current)
}

func (e *StepTransitionError) Unwrap() error {
	return ErrInvalidStepTransition
}

// ValidationError carries per-field messages for a rejected step submission.
type ValidationError struct {
	Step   Step
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Step, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
