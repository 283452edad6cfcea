package services

import (
	"errors"
	"strings"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusInfo    = "info"
)

const (
	MsgOrderSubmitted  = "Order submitted! We’ll call you soon. 🎉"
	MsgSubmitFailed    = "Failed to send order. Try again."
	MsgSelectItem      = "Please select at least one item."
	MsgMenuUnavailable = "Menu is unavailable right now. Please try again later."
	MsgNoItems         = "No items on the menu yet."
	MsgAllSoldOut      = "All items are currently out of stock."
	MsgSubmitting      = "Sending your order..."
	MsgFillFields      = "Please fill in: "
	MsgCartChanged     = "Your cart was updated to match the latest menu."
	MsgNotInCheckout   = "Open checkout before placing the order."
	MsgCheckoutOpen    = "Go back to the menu to change the cart."
)

// Status is a user-visible message with its kind.
type Status struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// StatusFor converts any error of the ordering flow into a user-visible status.
func StatusFor(err error) Status {
	if err == nil {
		return Status{Kind: StatusSuccess, Message: MsgOrderSubmitted}
	}
	var (
		ve *ValidationError
		se *SubmissionError
		me *MenuLoadError
	)
	switch {
	case errors.As(err, &ve):
		return Status{Kind: StatusError, Message: MsgFillFields + strings.Join(ve.Fields, ", ")}
	case errors.As(err, &se):
		return Status{Kind: StatusError, Message: MsgSubmitFailed}
	case errors.As(err, &me):
		return Status{Kind: StatusError, Message: MsgMenuUnavailable}
	case errors.Is(err, ErrEmptyCart):
		return Status{Kind: StatusError, Message: MsgSelectItem}
	case errors.Is(err, ErrSubmissionInFlight):
		return Status{Kind: StatusInfo, Message: MsgSubmitting}
	case errors.Is(err, ErrNotInCheckout):
		return Status{Kind: StatusError, Message: MsgNotInCheckout}
	case errors.Is(err, ErrCheckoutOpen):
		return Status{Kind: StatusError, Message: MsgCheckoutOpen}
	case errors.Is(err, ErrCartChanged):
		return Status{Kind: StatusInfo, Message: MsgCartChanged}
	default:
		return Status{Kind: StatusError, Message: MsgSubmitFailed}
	}
}

// MenuStatus describes a menu that cannot be shown as a list of items, if any.
func MenuStatus(menu *Menu, loadErr error) (Status, bool) {
	switch {
	case loadErr != nil && menu.Len() == 0:
		return Status{Kind: StatusError, Message: MsgMenuUnavailable}, true
	case menu.Len() == 0:
		return Status{Kind: StatusInfo, Message: MsgNoItems}, true
	case menu.AllSoldOut():
		return Status{Kind: StatusInfo, Message: MsgAllSoldOut}, true
	}
	return Status{}, false
}
