package models

// Column names recognized in a menu CSV export.
const (
	ColumnItemName = "Item Name"
	ColumnPrice    = "Price"
	ColumnQuantity = "Quantity"
)

type MenuItem struct {
	Name              string
	Price             float64
	QuantityAvailable int
	Extra             map[string]string // unrecognized columns, passed through untouched
}

// Available reports whether the item can be ordered at all.
func (m MenuItem) Available() bool {
	return m.QuantityAvailable > 0
}
