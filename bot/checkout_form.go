package bot

import (
	"strings"

	"restaurant-order/models"
)

type formStep int

const (
	stepName formStep = iota
	stepPhone
	stepAddress
	stepReview
)

// checkoutForm collects the customer fields one message at a time.
type checkoutForm struct {
	Customer models.Customer
	Step     formStep
}

// prompt is the question for the current step; empty once all fields are in.
func (f *checkoutForm) prompt() string {
	switch f.Step {
	case stepName:
		return "What name should we put on the order?"
	case stepPhone:
		return "Send your phone number (or tap the button below)."
	case stepAddress:
		return "Where should we deliver?"
	}
	return ""
}

// accept stores input for the current step and advances. Blank input is
// rejected so the same question is asked again.
func (f *checkoutForm) accept(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" || f.Step == stepReview {
		return false
	}
	switch f.Step {
	case stepName:
		f.Customer.Name = input
	case stepPhone:
		f.Customer.Phone = input
	case stepAddress:
		f.Customer.Address = input
	}
	f.Step++
	return true
}
