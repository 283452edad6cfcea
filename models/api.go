package models

// Request and response bodies of the HTTP API.

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type MenuItemResponse struct {
	Name              string            `json:"name"`
	Price             float64           `json:"price"`
	QuantityAvailable int               `json:"quantity_available"`
	Available         bool              `json:"available"`
	Extra             map[string]string `json:"extra,omitempty"`
}

func NewMenuItemResponse(m MenuItem) MenuItemResponse {
	return MenuItemResponse{
		Name:              m.Name,
		Price:             m.Price,
		QuantityAvailable: m.QuantityAvailable,
		Available:         m.Available(),
		Extra:             m.Extra,
	}
}

type MenuResponse struct {
	Items  []MenuItemResponse `json:"items"`
	Notice string             `json:"notice,omitempty"`
}

type CartResponse struct {
	SessionID string     `json:"session_id"`
	State     string     `json:"state"`
	Lines     []CartLine `json:"lines"`
	Total     float64    `json:"total"`
	Notice    string     `json:"notice,omitempty"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type AdjustItemRequest struct {
	ItemName string `json:"item_name" binding:"required"`
	Delta    int    `json:"delta" binding:"required"`
}

type SubmitOrderRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type SubmitOrderResponse struct {
	Reference string  `json:"reference"`
	Items     string  `json:"items"`
	Total     float64 `json:"total"`
	Message   string  `json:"message"`
}

type OrderResponse struct {
	Reference string  `json:"reference"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Address   string  `json:"address"`
	Items     string  `json:"items"`
	Total     float64 `json:"total"`
}
