package handlers

import (
	"net/http"

	"mesa-system/internal/services/orders"

	"github.com/gin-gonic/gin"
)

// PublicHTTPHandler serves the unauthenticated storefront.
type PublicHTTPHandler struct {
	orders *orders.Service
}

func NewPublicHTTPHandler(orderSvc *orders.Service) *PublicHTTPHandler {
	return &PublicHTTPHandler{orders: orderSvc}
}

type OnlineOrderRequest struct {
	Lines         []orders.LineInput `json:"lines"`
	CustomerName  string             `json:"customer_name"`
	CustomerPhone string             `json:"customer_phone"`
	Notes         string             `json:"notes"`
}

type OnlineOrderResponse struct {
	OrderID     string `json:"order_id"`
	OrderNumber int64  `json:"order_number"`
	TotalCents  int64  `json:"total_cents"`
}

func (h *PublicHTTPHandler) CreateOnlineOrder(c *gin.Context) {
	var req OnlineOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.orders.CreateOnlineOrder(ctx, orders.OnlineOrderInput{
		RestaurantSlug: c.Param("restaurantSlug"),
		LocationSlug:   c.Param("locationSlug"),
		Lines:          req.Lines,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		Notes:          req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Order received", OnlineOrderResponse{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalCents:  order.TotalCents,
	}))
}
