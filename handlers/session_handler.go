package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"restaurant-order/models"
	"restaurant-order/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SessionHandler struct {
	sessions *services.SessionStore[string]
	throttle *services.SubmitThrottle
}

func NewSessionHandler(sessions *services.SessionStore[string]) *SessionHandler {
	return &SessionHandler{sessions: sessions, throttle: services.NewSubmitThrottle()}
}

func menuResponse(menu *services.Menu, loadErr error) models.MenuResponse {
	resp := models.MenuResponse{Items: []models.MenuItemResponse{}}
	for _, it := range menu.Items() {
		resp.Items = append(resp.Items, models.NewMenuItemResponse(it))
	}
	if st, ok := services.MenuStatus(menu, loadErr); ok {
		resp.Notice = st.Message
	}
	return resp
}

func cartResponse(s *services.Session, notice string) models.CartResponse {
	snap := s.Cart()
	lines := snap.Lines
	if lines == nil {
		lines = []models.CartLine{}
	}
	return models.CartResponse{
		SessionID: s.ID,
		State:     snap.State,
		Lines:     lines,
		Total:     services.RoundMoney(snap.Total),
		Notice:    notice,
	}
}

// errorStatus maps ordering-flow errors to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	var (
		ve *services.ValidationError
		se *services.SubmissionError
		me *services.MenuLoadError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, services.ErrEmptyCart):
		return http.StatusConflict, "EMPTY_CART"
	case errors.Is(err, services.ErrNotInCheckout):
		return http.StatusConflict, "NOT_IN_CHECKOUT"
	case errors.Is(err, services.ErrSubmissionInFlight):
		return http.StatusConflict, "SUBMISSION_IN_FLIGHT"
	case errors.Is(err, services.ErrCheckoutOpen):
		return http.StatusConflict, "CHECKOUT_OPEN"
	case errors.Is(err, services.ErrCartChanged):
		return http.StatusConflict, "CART_CHANGED"
	case errors.As(err, &se):
		return http.StatusBadGateway, "SUBMISSION_FAILED"
	case errors.As(err, &me):
		return http.StatusBadGateway, "MENU_UNAVAILABLE"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func abortWithError(c *gin.Context, err error) {
	code, kind := errorStatus(err)
	c.JSON(code, models.ErrorResponse{
		Error:   kind,
		Message: services.StatusFor(err).Message,
		Details: err.Error(),
	})
}

func (h *SessionHandler) session(c *gin.Context) (*services.Session, bool) {
	s, ok := h.sessions.Get(c.Param("sessionId"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "NOT_FOUND",
			Message: "Session not found",
		})
		return nil, false
	}
	return s, true
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	s := h.sessions.GetOrCreate(c.Request.Context(), uuid.NewString())
	log.Printf("Created session %s", s.ID)
	c.JSON(http.StatusCreated, models.CreateSessionResponse{SessionID: s.ID})
}

// DeleteSession handles DELETE /sessions/:sessionId
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if _, ok := h.session(c); !ok {
		return
	}
	h.sessions.Delete(c.Param("sessionId"))
	c.Status(http.StatusNoContent)
}

// GetMenu handles GET /sessions/:sessionId/menu: the snapshot the cart is priced against.
func (h *SessionHandler) GetMenu(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, menuResponse(s.Menu(), s.MenuError()))
}

// ReloadMenu handles POST /sessions/:sessionId/menu/reload
func (h *SessionHandler) ReloadMenu(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.ReloadMenu(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, menuResponse(s.Menu(), nil))
}

// GetCart handles GET /sessions/:sessionId/cart
func (h *SessionHandler) GetCart(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cartResponse(s, ""))
}

// AdjustItem handles POST /sessions/:sessionId/items
func (h *SessionHandler) AdjustItem(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req models.AdjustItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "INVALID_INPUT",
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}
	// Unknown or unavailable items leave the cart untouched.
	if _, err := s.AdjustQuantity(req.ItemName, req.Delta); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(s, ""))
}

// Checkout handles POST /sessions/:sessionId/checkout
func (h *SessionHandler) Checkout(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	changes, err := s.BeginCheckout()
	if err != nil {
		abortWithError(c, err)
		return
	}
	notice := ""
	if len(changes) > 0 {
		notice = services.MsgCartChanged
	}
	c.JSON(http.StatusOK, cartResponse(s, notice))
}

// Back handles POST /sessions/:sessionId/back
func (h *SessionHandler) Back(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Back(); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(s, ""))
}

// Submit handles POST /sessions/:sessionId/submit
func (h *SessionHandler) Submit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req models.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "INVALID_INPUT",
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	if wait := h.throttle.WaitSeconds(s.ID); wait > 0 {
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
			Error:   "RETRY_LATER",
			Message: services.MsgSubmitFailed,
			Details: fmt.Sprintf("retry in %d seconds", wait),
		})
		return
	}

	res, err := s.Submit(c.Request.Context(), models.Customer{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	var se *services.SubmissionError
	if errors.As(err, &se) {
		h.throttle.RecordFailure(s.ID)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.throttle.RecordSuccess(s.ID)
	log.Printf("Session %s submitted order %s", s.ID, res.Reference)
	c.JSON(http.StatusOK, models.SubmitOrderResponse{
		Reference: res.Reference,
		Items:     res.Payload.Items,
		Total:     services.RoundMoney(res.Total),
		Message:   services.MsgOrderSubmitted,
	})
}
