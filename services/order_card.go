package services

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"restaurant-order/models"
)

// Callback data understood by the fronts.
const (
	CallbackCheckout = "checkout"
	CallbackBack     = "back"
	CallbackSubmit   = "submit"
	CallbackReload   = "reload"
	CallbackMenu     = "menu"
	callbackQtyPref  = "qty:"
)

// OrderCardButton is one inline button (text + callback_data).
type OrderCardButton struct {
	Text         string
	CallbackData string
}

// OrderCardContent is the text and optional inline keyboard for a card.
type OrderCardContent struct {
	Text    string
	Buttons [][]OrderCardButton
}

func FormatMoney(v float64) string {
	return fmt.Sprintf("$%.2f", RoundMoney(v))
}

// itemTag fingerprints an item name so a tap on a stale keyboard cannot
// land on whichever item now sits at the same index.
func itemTag(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return strconv.FormatUint(uint64(h.Sum32()), 36)
}

// QtyCallback builds the callback data for adjusting the item at index i.
func QtyCallback(i int, name string, delta int) string {
	return fmt.Sprintf("%s%d:%s:%+d", callbackQtyPref, i, itemTag(name), delta)
}

// ParseQtyCallback resolves a quantity callback against the current menu.
// ok is false for malformed data or a keyboard rendered from another snapshot.
func ParseQtyCallback(data string, menu *Menu) (itemName string, delta int, ok bool) {
	if !strings.HasPrefix(data, callbackQtyPref) {
		return "", 0, false
	}
	parts := strings.Split(strings.TrimPrefix(data, callbackQtyPref), ":")
	if len(parts) != 3 {
		return "", 0, false
	}
	idx, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", 0, false
	}
	delta, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, false
	}
	item, found := menu.At(idx)
	if !found || itemTag(item.Name) != parts[1] {
		return "", 0, false
	}
	return item.Name, delta, true
}

func writeCartLines(b *strings.Builder, cart CartSnapshot) {
	for _, l := range cart.Lines {
		fmt.Fprintf(b, "• %s × %d — %s\n", l.ItemName, l.Quantity, FormatMoney(l.Subtotal()))
	}
	fmt.Fprintf(b, "\nTotal: %s", FormatMoney(cart.Total))
}

// BuildMenuCard renders the menu with +/− controls for orderable items and the current cart.
func BuildMenuCard(menu *Menu, loadErr error, cart CartSnapshot) OrderCardContent {
	var b strings.Builder
	b.WriteString("🍽 Menu\n\n")

	var buttons [][]OrderCardButton
	if st, ok := MenuStatus(menu, loadErr); ok {
		b.WriteString(st.Message + "\n\n")
	}
	qty := make(map[string]int, len(cart.Lines))
	for _, l := range cart.Lines {
		qty[l.ItemName] = l.Quantity
	}
	for i, it := range menu.Items() {
		if !it.Available() {
			fmt.Fprintf(&b, "• %s — %s (unavailable)\n", it.Name, FormatMoney(it.Price))
			continue
		}
		fmt.Fprintf(&b, "• %s — %s\n", it.Name, FormatMoney(it.Price))
		buttons = append(buttons, []OrderCardButton{
			{Text: "−", CallbackData: QtyCallback(i, it.Name, -1)},
			{Text: fmt.Sprintf("%s (%d)", it.Name, qty[it.Name]), CallbackData: QtyCallback(i, it.Name, 1)},
			{Text: "+", CallbackData: QtyCallback(i, it.Name, 1)},
		})
	}

	if len(cart.Lines) > 0 {
		b.WriteString("\n🛒 Cart:\n")
		writeCartLines(&b, cart)
		buttons = append(buttons, []OrderCardButton{{Text: "✅ Checkout", CallbackData: CallbackCheckout}})
	}
	buttons = append(buttons, []OrderCardButton{{Text: "🔄 Reload menu", CallbackData: CallbackReload}})
	return OrderCardContent{Text: strings.TrimRight(b.String(), "\n"), Buttons: buttons}
}

// BuildCheckoutCard renders the order summary with the customer details collected so far.
func BuildCheckoutCard(cart CartSnapshot, customer models.Customer, changes []LineChange) OrderCardContent {
	var b strings.Builder
	b.WriteString("🧾 Your order\n\n")
	if len(changes) > 0 {
		b.WriteString(MsgCartChanged + "\n\n")
	}
	writeCartLines(&b, cart)
	b.WriteString("\n")
	if customer.Name != "" {
		fmt.Fprintf(&b, "\nName: %s", customer.Name)
	}
	if customer.Phone != "" {
		fmt.Fprintf(&b, "\nPhone: %s", customer.Phone)
	}
	if customer.Address != "" {
		fmt.Fprintf(&b, "\nAddress: %s", customer.Address)
	}

	var buttons [][]OrderCardButton
	if ValidateCustomer(customer) == nil {
		buttons = append(buttons, []OrderCardButton{{Text: "📨 Place order", CallbackData: CallbackSubmit}})
	}
	buttons = append(buttons, []OrderCardButton{{Text: "⬅️ Back", CallbackData: CallbackBack}})
	return OrderCardContent{Text: strings.TrimRight(b.String(), "\n"), Buttons: buttons}
}
