package domain

// Step is a position in the checkout flow. Steps are ordered:
// shipping, payment, review, complete.
type Step string

const (
	StepShipping Step = "shipping"
	StepPayment  Step = "payment"
	StepReview   Step = "review"
	StepComplete Step = "complete"
)

var stepOrder = []Step{StepShipping, StepPayment, StepReview, StepComplete}

func (s Step) index() int {
	for i, st := range stepOrder {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Step) Valid() bool {
	return s.index() >= 0
}

func (s Step) IsTerminal() bool {
	return s == StepComplete
}

// Next returns the following step, or s itself when s is terminal or unknown.
func (s Step) Next() Step {
	i := s.index()
	if i < 0 || i == len(stepOrder)-1 {
		return s
	}
	return stepOrder[i+1]
}

// Prev returns the preceding step, or s itself for the first step or an unknown one.
func (s Step) Prev() Step {
	i := s.index()
	if i <= 0 {
		return s
	}
	return stepOrder[i-1]
}

func (s Step) String() string {
	return string(s)
}
