package handlers

import (
	"log"
	"net/http"

	"restaurant-order/models"
	"restaurant-order/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetOrder handles GET /orders/:reference from the submitted-order log.
func GetOrder(c *gin.Context) {
	ref := c.Param("reference")
	if _, err := uuid.Parse(ref); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "INVALID_INPUT",
			Message: "Invalid order reference",
			Details: err.Error(),
		})
		return
	}

	o, ok, err := services.GetSubmittedOrder(c.Request.Context(), ref)
	if err != nil {
		log.Printf("get order %s: %v", ref, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "INTERNAL_ERROR",
			Message: "Could not load the order",
		})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "NOT_FOUND",
			Message: "Order not found",
		})
		return
	}
	c.JSON(http.StatusOK, models.OrderResponse{
		Reference: o.Reference,
		Name:      o.Payload.Name,
		Phone:     o.Payload.Phone,
		Address:   o.Payload.Address,
		Items:     o.Payload.Items,
		Total:     services.RoundMoney(o.Total),
	})
}
