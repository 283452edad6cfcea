package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"restaurant-order/models"
	"restaurant-order/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubmitter struct {
	mu       sync.Mutex
	err      error
	payloads []models.OrderPayload
}

func (r *recordingSubmitter) SubmitOrder(ctx context.Context, p models.OrderPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	return r.err
}

func setupTestRouter(sub services.OrderSubmitter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	menu := services.DefaultStaticMenu()
	store := services.NewSessionStore[string](services.Deps{
		Menu:      menu,
		Submitter: sub,
		Record:    func(context.Context, models.SubmittedOrder) error { return nil },
	}, services.StoreOptions{})
	return NewRouter(store, menu, []string{"*"})
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var resp models.CreateSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestHealthCheck(t *testing.T) {
	r := setupTestRouter(&recordingSubmitter{})
	w := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestGetMenu(t *testing.T) {
	r := setupTestRouter(&recordingSubmitter{})
	w := doJSON(t, r, http.MethodGet, "/menu", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.MenuResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 4)
	assert.Equal(t, "Margherita Pizza", resp.Items[0].Name)
	assert.True(t, resp.Items[0].Available)
	assert.Empty(t, resp.Notice)
}

func TestGetOrder_WithoutLog(t *testing.T) {
	r := setupTestRouter(&recordingSubmitter{})

	w := doJSON(t, r, http.MethodGet, "/orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// No database configured: nothing is ever found.
	w = doJSON(t, r, http.MethodGet, "/orders/8a4e6f0c-0000-4000-8000-000000000001", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownSession(t *testing.T) {
	r := setupTestRouter(&recordingSubmitter{})
	w := doJSON(t, r, http.MethodGet, "/sessions/nope/cart", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderFlow(t *testing.T) {
	sub := &recordingSubmitter{}
	r := setupTestRouter(sub)
	id := createSession(t, r)
	base := "/sessions/" + id

	w := doJSON(t, r, http.MethodPost, base+"/checkout", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "empty cart cannot check out")

	w = doJSON(t, r, http.MethodPost, base+"/items", models.AdjustItemRequest{ItemName: "Margherita Pizza", Delta: 2})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodPost, base+"/items", models.AdjustItemRequest{ItemName: "Garlic Bread", Delta: 1})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodPost, base+"/items", models.AdjustItemRequest{ItemName: "Garlic Bread", Delta: -1})
	require.Equal(t, http.StatusOK, w.Code)

	var cart models.CartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 24.0, cart.Total)
	assert.Equal(t, services.StateBrowsing, cart.State)

	w = doJSON(t, r, http.MethodPost, base+"/submit", models.SubmitOrderRequest{Name: "Ann", Phone: "1", Address: "x"})
	assert.Equal(t, http.StatusConflict, w.Code, "submit before checkout")

	w = doJSON(t, r, http.MethodPost, base+"/checkout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, base+"/items", models.AdjustItemRequest{ItemName: "Caesar Salad", Delta: 1})
	assert.Equal(t, http.StatusConflict, w.Code, "cart is frozen during checkout")
	var frozen models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &frozen))
	assert.Equal(t, "CHECKOUT_OPEN", frozen.Error)
	assert.Equal(t, services.MsgCheckoutOpen, frozen.Message)

	w = doJSON(t, r, http.MethodPost, base+"/submit", models.SubmitOrderRequest{Name: "Ann"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "Please fill in: phone, address", errResp.Message)

	w = doJSON(t, r, http.MethodPost, base+"/submit", models.SubmitOrderRequest{Name: "Ann", Phone: "555-1234", Address: "1 Main St"})
	require.Equal(t, http.StatusOK, w.Code)
	var res models.SubmitOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Margherita Pizza (x2)", res.Items)
	assert.Equal(t, 24.0, res.Total)
	assert.Equal(t, services.MsgOrderSubmitted, res.Message)
	assert.NotEmpty(t, res.Reference)

	require.Len(t, sub.payloads, 1)
	assert.Equal(t, models.OrderPayload{Name: "Ann", Phone: "555-1234", Address: "1 Main St", Items: "Margherita Pizza (x2)"}, sub.payloads[0])

	w = doJSON(t, r, http.MethodGet, base+"/cart", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	assert.Empty(t, cart.Lines)
	assert.Equal(t, services.StateBrowsing, cart.State)
}

func TestSubmitFailureKeepsCart(t *testing.T) {
	sub := &recordingSubmitter{err: &services.SubmissionError{StatusCode: 500}}
	r := setupTestRouter(sub)
	base := "/sessions/" + createSession(t, r)

	doJSON(t, r, http.MethodPost, base+"/items", models.AdjustItemRequest{ItemName: "Chicken Burger", Delta: 1})
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, base+"/checkout", nil).Code)

	w := doJSON(t, r, http.MethodPost, base+"/submit", models.SubmitOrderRequest{Name: "Ann", Phone: "555-1234", Address: "1 Main St"})
	require.Equal(t, http.StatusBadGateway, w.Code)
	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, services.MsgSubmitFailed, errResp.Message)

	var cart models.CartResponse
	w = doJSON(t, r, http.MethodGet, base+"/cart", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	assert.Equal(t, services.StateCheckout, cart.State)
	assert.Len(t, cart.Lines, 1)

	w = doJSON(t, r, http.MethodPost, base+"/submit", models.SubmitOrderRequest{Name: "Ann", Phone: "555-1234", Address: "1 Main St"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "immediate retry is throttled")
	assert.Len(t, sub.payloads, 1)

	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, base+"/back", nil).Code)
	require.Equal(t, http.StatusNoContent, doJSON(t, r, http.MethodDelete, base, nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, base+"/cart", nil).Code)
}

func TestAdjustItemValidation(t *testing.T) {
	r := setupTestRouter(&recordingSubmitter{})
	base := "/sessions/" + createSession(t, r)

	w := doJSON(t, r, http.MethodPost, base+"/items", map[string]any{"delta": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, base+"/items", models.AdjustItemRequest{ItemName: "Sushi", Delta: 1})
	require.Equal(t, http.StatusOK, w.Code)
	var cart models.CartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	assert.Empty(t, cart.Lines)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"validation", &services.ValidationError{Fields: []string{"name"}}, http.StatusBadRequest, "INVALID_INPUT"},
		{"empty cart", services.ErrEmptyCart, http.StatusConflict, "EMPTY_CART"},
		{"checkout open", services.ErrCheckoutOpen, http.StatusConflict, "CHECKOUT_OPEN"},
		{"cart changed", &services.CartChangedError{Changes: []services.LineChange{{ItemName: "Tea"}}}, http.StatusConflict, "CART_CHANGED"},
		{"webhook", &services.SubmissionError{StatusCode: 500}, http.StatusBadGateway, "SUBMISSION_FAILED"},
		{"menu", &services.MenuLoadError{URL: "x"}, http.StatusBadGateway, "MENU_UNAVAILABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, kind := errorStatus(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}
