package handlers

import (
	"net/http"

	"mesa-system/internal/gateway/middleware"
	"mesa-system/internal/services/payments"

	"github.com/gin-gonic/gin"
)

type IntegrationHTTPHandler struct {
	payments *payments.Service
}

func NewIntegrationHTTPHandler(paymentSvc *payments.Service) *IntegrationHTTPHandler {
	return &IntegrationHTTPHandler{payments: paymentSvc}
}

type SetEnabledRequest struct {
	IsEnabled *bool `json:"is_enabled" binding:"required"`
}

func (h *IntegrationHTTPHandler) ListIntegrations(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.payments.ListIntegrations(ctx, middleware.TenantContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("Integrations retrieved successfully", list, gin.H{
		"count": len(list),
	}))
}

func (h *IntegrationHTTPHandler) GetIntegration(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := h.payments.GetIntegrationForEdit(ctx, middleware.TenantContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Integration retrieved successfully", view))
}

func (h *IntegrationHTTPHandler) CreateIntegration(c *gin.Context) {
	var req payments.IntegrationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := h.payments.CreateIntegration(ctx, middleware.TenantContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Integration created successfully", view))
}

func (h *IntegrationHTTPHandler) UpdateIntegration(c *gin.Context) {
	var req payments.IntegrationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := h.payments.UpdateIntegration(ctx, middleware.TenantContext(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Integration updated successfully", view))
}

func (h *IntegrationHTTPHandler) SetEnabled(c *gin.Context) {
	var req SetEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	integ, err := h.payments.SetIntegrationEnabled(ctx, middleware.TenantContext(c), c.Param("id"), *req.IsEnabled)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Integration updated successfully", integ))
}

func (h *IntegrationHTTPHandler) DeleteIntegration(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.payments.DeleteIntegration(ctx, middleware.TenantContext(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Integration deleted successfully", nil))
}
