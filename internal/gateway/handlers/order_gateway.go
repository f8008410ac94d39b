package handlers

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"mesa-system/internal/database/models"
	"mesa-system/internal/gateway/middleware"
	"mesa-system/internal/services/orders"

	"github.com/gin-gonic/gin"
)

type OrderHTTPHandler struct {
	orders *orders.Service
}

func NewOrderHTTPHandler(orderSvc *orders.Service) *OrderHTTPHandler {
	return &OrderHTTPHandler{orders: orderSvc}
}

type CreateOrderRequest struct {
	LocationID    string             `json:"location_id" binding:"required"`
	Lines         []orders.LineInput `json:"lines"`
	Notes         string             `json:"notes"`
	CustomerName  string             `json:"customer_name"`
	CustomerPhone string             `json:"customer_phone"`
	DiscountCents int64              `json:"discount_cents"`
}

type CashOrderRequest struct {
	CreateOrderRequest
	PaymentMethod     models.PaymentMethod `json:"payment_method"`
	CashReceivedCents int64                `json:"cash_received_cents"`
}

type UpdateLinesRequest struct {
	Lines         []orders.LineEdit   `json:"lines"`
	Status        *models.OrderStatus `json:"status,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	CustomerName  *string             `json:"customer_name,omitempty"`
	CustomerPhone *string             `json:"customer_phone,omitempty"`
}

type PatchOrderRequest struct {
	Status        *models.OrderStatus `json:"status,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	CustomerName  *string             `json:"customer_name,omitempty"`
	CustomerPhone *string             `json:"customer_phone,omitempty"`
}

type SetStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

func (r CreateOrderRequest) input(mode orders.Mode) orders.CreateOrderInput {
	return orders.CreateOrderInput{
		LocationID:    r.LocationID,
		Mode:          mode,
		Lines:         r.Lines,
		Notes:         r.Notes,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		DiscountCents: r.DiscountCents,
	}
}

// CreateOrder opens a pay-later order.
func (h *OrderHTTPHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.orders.CreateOrder(ctx, middleware.TenantContext(c), req.input(orders.ModeOpen))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Order created successfully", order))
}

// CreateCashOrder creates an order settled with cash on the spot.
func (h *OrderHTTPHandler) CreateCashOrder(c *gin.Context) {
	var req CashOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	in := req.input(orders.ModeImmediateCash)
	in.PaymentMethod = req.PaymentMethod
	in.CashReceivedCents = req.CashReceivedCents
	order, err := h.orders.CreateOrder(ctx, middleware.TenantContext(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Order paid successfully", order))
}

func (h *OrderHTTPHandler) GetOrder(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.orders.GetOrder(ctx, middleware.TenantContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Order retrieved successfully", order))
}

// ListOpenOrders backs the unpaid orders panel of a location.
func (h *OrderHTTPHandler) ListOpenOrders(c *gin.Context) {
	locationID := c.Query("location_id")
	if locationID == "" {
		c.JSON(http.StatusBadRequest, errorResponse("location_id is required"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.orders.ListOpenOrders(ctx, middleware.TenantContext(c), locationID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("Open orders retrieved successfully", list, gin.H{
		"count": len(list),
	}))
}

// ListOrders is the admin order history with location, status, date range
// and text filters.
func (h *OrderHTTPHandler) ListOrders(c *gin.Context) {
	filter, ok := orderFilter(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.orders.ListOrders(ctx, middleware.TenantContext(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("Orders retrieved successfully", list, gin.H{
		"count": len(list),
		"limit": orders.AdminListLimit,
	}))
}

// ExportOrdersCSV streams the filtered order history as a CSV attachment.
func (h *OrderHTTPHandler) ExportOrdersCSV(c *gin.Context) {
	filter, ok := orderFilter(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.orders.ListOrders(ctx, middleware.TenantContext(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := orders.WriteOrdersCSV(&buf, list); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="orders.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func orderFilter(c *gin.Context) (orders.OrderFilter, bool) {
	filter := orders.OrderFilter{
		LocationID: c.Query("location_id"),
		Status:     models.OrderStatus(strings.ToUpper(c.Query("status"))),
		Search:     c.Query("search"),
	}
	if filter.LocationID == "all" {
		filter.LocationID = ""
	}
	var err error
	if filter.From, err = parseDateParam(c.Query("from"), false); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("from must be a date (YYYY-MM-DD) or RFC 3339 time"))
		return filter, false
	}
	if filter.To, err = parseDateParam(c.Query("to"), true); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("to must be a date (YYYY-MM-DD) or RFC 3339 time"))
		return filter, false
	}
	return filter, true
}

// parseDateParam accepts RFC 3339 or a bare UTC date. A bare date used as an
// upper bound covers the whole day.
func parseDateParam(v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func (h *OrderHTTPHandler) UpdateLines(c *gin.Context) {
	var req UpdateLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.orders.UpdateOrderWithLines(ctx, middleware.TenantContext(c), c.Param("id"), orders.UpdateLinesInput{
		Lines: req.Lines,
		AdminPatch: orders.AdminPatch{
			Status:        req.Status,
			Notes:         req.Notes,
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
		},
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Order updated successfully", order))
}

// PatchOrder is the admin edit of status and customer details.
func (h *OrderHTTPHandler) PatchOrder(c *gin.Context) {
	var req PatchOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.orders.UpdateOrderAdmin(ctx, middleware.TenantContext(c), c.Param("id"), orders.AdminPatch{
		Status:        req.Status,
		Notes:         req.Notes,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Order updated successfully", order))
}

func (h *OrderHTTPHandler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.orders.SetStatus(ctx, middleware.TenantContext(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Order status updated", order))
}
