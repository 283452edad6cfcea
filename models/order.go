package models

import (
	"fmt"
	"strings"
)

// CartLine is one selected item. Quantity is always > 0 while the line is in a cart.
type CartLine struct {
	ItemName  string  `json:"item_name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

func (l CartLine) Subtotal() float64 {
	return float64(l.Quantity) * l.UnitPrice
}

// Customer holds the checkout form fields.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// OrderPayload is the JSON body posted to the order webhook.
type OrderPayload struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Items   string `json:"items"`
}

const ItemsSeparator = ", "

// RenderItems formats lines as "name (xN)" entries joined by ItemsSeparator.
func RenderItems(lines []CartLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%s (x%d)", l.ItemName, l.Quantity))
	}
	return strings.Join(parts, ItemsSeparator)
}

func NewOrderPayload(c Customer, lines []CartLine) OrderPayload {
	return OrderPayload{
		Name:    strings.TrimSpace(c.Name),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
		Items:   RenderItems(lines),
	}
}

// SubmittedOrder is a row of the submitted_orders log.
type SubmittedOrder struct {
	Reference string
	Payload   OrderPayload
	Total     float64
}
