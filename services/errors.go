package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrNotInCheckout      = errors.New("session is not in checkout")
	ErrSubmissionInFlight = errors.New("order submission already in progress")
	ErrCheckoutOpen       = errors.New("cart is locked while checkout is open")
	ErrCartChanged        = errors.New("cart changed since checkout began")
)

// CartChangedError carries the line changes made when the cart was
// re-validated right before sending. errors.Is(err, ErrCartChanged) holds.
type CartChangedError struct {
	Changes []LineChange
}

func (e *CartChangedError) Error() string {
	return fmt.Sprintf("%v: %d line(s) updated", ErrCartChanged, len(e.Changes))
}

func (e *CartChangedError) Is(target error) bool { return target == ErrCartChanged }

// MenuLoadError means the menu source could not be fetched. It is distinct
// from a menu that parsed to zero items.
type MenuLoadError struct {
	URL        string
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *MenuLoadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("load menu %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("load menu %s: %v", e.URL, e.Err)
}

func (e *MenuLoadError) Unwrap() error { return e.Err }

// ValidationError lists the customer fields that are missing.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// SubmissionError is a transport failure or an explicit rejection by the webhook.
type SubmissionError struct {
	StatusCode int
	Message    string // "error" field of a success:false response
	Err        error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("submit order: %v", e.Err)
	case e.Message != "":
		return "submit order: rejected: " + e.Message
	default:
		return fmt.Sprintf("submit order: unexpected status %d", e.StatusCode)
	}
}

func (e *SubmissionError) Unwrap() error { return e.Err }
