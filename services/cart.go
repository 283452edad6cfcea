package services

import (
	"math"

	"restaurant-order/models"
)

// CartPolicy holds the cart rules that vary per deployment.
type CartPolicy struct {
	// ClampToStock caps a line's quantity at the item's available stock.
	ClampToStock bool
}

// Cart aggregates the customer's selection against the current menu
// snapshot. It is not safe for concurrent use; its owner serializes calls.
type Cart struct {
	policy CartPolicy
	menu   *Menu
	lines  map[string]models.CartLine
	order  []string // item names in first-added order
}

func NewCart(menu *Menu, policy CartPolicy) *Cart {
	return &Cart{
		policy: policy,
		menu:   menu,
		lines:  make(map[string]models.CartLine),
	}
}

// SetMenu swaps in a new snapshot. Existing lines keep their captured prices
// until they are adjusted or reconciled.
func (c *Cart) SetMenu(menu *Menu) {
	c.menu = menu
}

// AdjustQuantity adds delta to the line for itemName. Unknown and
// out-of-stock items are ignored; the quantity floors at zero, which removes
// the line. It reports whether the cart changed.
func (c *Cart) AdjustQuantity(itemName string, delta int) bool {
	item, ok := c.menu.Lookup(itemName)
	if !ok || !item.Available() {
		return false
	}

	existing, had := c.lines[itemName]
	newQty := addQuantity(existing.Quantity, delta)
	if c.policy.ClampToStock && newQty > item.QuantityAvailable {
		newQty = item.QuantityAvailable
	}

	if newQty == 0 {
		if !had {
			return false
		}
		c.remove(itemName)
		return true
	}

	line := models.CartLine{ItemName: itemName, Quantity: newQty, UnitPrice: item.Price}
	if had && line == existing {
		return false
	}
	if !had {
		c.order = append(c.order, itemName)
	}
	c.lines[itemName] = line
	return true
}

// Quantity returns the current quantity for itemName, 0 if absent.
func (c *Cart) Quantity(itemName string) int {
	return c.lines[itemName].Quantity
}

// Lines returns the lines in display order.
func (c *Cart) Lines() []models.CartLine {
	out := make([]models.CartLine, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.lines[name])
	}
	return out
}

func (c *Cart) Len() int {
	return len(c.order)
}

func (c *Cart) IsEmpty() bool {
	return len(c.order) == 0
}

// Total is recomputed on every call at full precision.
func (c *Cart) Total() float64 {
	var total float64
	for _, name := range c.order {
		total += c.lines[name].Subtotal()
	}
	return total
}

func (c *Cart) Clear() {
	c.lines = make(map[string]models.CartLine)
	c.order = nil
}

// LineChange describes what Reconcile did to one line.
type LineChange struct {
	ItemName    string
	Removed     bool
	OldPrice    float64
	NewPrice    float64
	OldQuantity int
	NewQuantity int
}

// Reconcile re-validates every line against the current snapshot: lines for
// vanished or sold-out items are dropped, prices are refreshed and, under
// ClampToStock, quantities are capped.
func (c *Cart) Reconcile() []LineChange {
	var changes []LineChange
	kept := c.order[:0:0]
	for _, name := range c.order {
		line := c.lines[name]
		item, ok := c.menu.Lookup(name)
		if !ok || !item.Available() {
			changes = append(changes, LineChange{
				ItemName: name, Removed: true,
				OldPrice: line.UnitPrice, OldQuantity: line.Quantity,
			})
			delete(c.lines, name)
			continue
		}
		newQty := line.Quantity
		if c.policy.ClampToStock && newQty > item.QuantityAvailable {
			newQty = item.QuantityAvailable
		}
		if newQty != line.Quantity || item.Price != line.UnitPrice {
			changes = append(changes, LineChange{
				ItemName: name,
				OldPrice: line.UnitPrice, NewPrice: item.Price,
				OldQuantity: line.Quantity, NewQuantity: newQty,
			})
			c.lines[name] = models.CartLine{ItemName: name, Quantity: newQty, UnitPrice: item.Price}
		}
		kept = append(kept, name)
	}
	c.order = kept
	return changes
}

// addQuantity adds delta to a non-negative quantity, saturating at
// math.MaxInt and flooring at zero.
func addQuantity(qty, delta int) int {
	switch {
	case delta > 0 && qty > math.MaxInt-delta:
		return math.MaxInt
	case qty+delta < 0:
		return 0
	}
	return qty + delta
}

func (c *Cart) remove(itemName string) {
	delete(c.lines, itemName)
	for i, name := range c.order {
		if name == itemName {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// RoundMoney rounds to 2 decimals for display only.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
