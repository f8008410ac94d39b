package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"mesa-system/internal/payments/providers"
	"mesa-system/internal/services/catalog"
	"mesa-system/internal/services/orders"
	"mesa-system/internal/services/payments"
	"mesa-system/internal/services/staff"
	"mesa-system/internal/tenant"
	"mesa-system/internal/vault"

	"github.com/gin-gonic/gin"
)

const requestTimeout = 10 * time.Second

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// writeError maps service errors onto HTTP answers. Validation messages are
// shown verbatim; anything unrecognized is a 500 without details.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		validation *orders.ValidationError
		input      *staff.InputError
		fallback   *payments.NotImplementedError
		provider   *providers.ProviderError
	)
	switch {
	case errors.As(err, &fallback):
		c.JSON(http.StatusConflict, APIResponse{
			Success: false,
			Message: fallback.Error(),
			Error:   "PROVIDER_NOT_IMPLEMENTED",
			Data: gin.H{
				"provider": fallback.Provider,
				"fallback": fallback.Fallback,
				"order_id": fallback.OrderID,
			},
		})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, errorResponse(validation.Message))
	case errors.As(err, &input):
		c.JSON(http.StatusBadRequest, errorResponse(input.Message))
	case errors.Is(err, catalog.ErrInvalidItem):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, staff.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse(err.Error()))
	case errors.Is(err, tenant.ErrUnauthorized):
		c.JSON(http.StatusForbidden, errorResponse("Unauthorized"))
	case errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, orders.ErrTenantNotFound),
		errors.Is(err, orders.ErrLocationNotFound),
		errors.Is(err, catalog.ErrItemNotFound),
		errors.Is(err, payments.ErrPaymentNotFound),
		errors.Is(err, payments.ErrIntegrationNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, payments.ErrIntegrationConflict),
		errors.Is(err, payments.ErrIntegrationType),
		errors.Is(err, staff.ErrEmailTaken),
		errors.Is(err, staff.ErrSlugTaken):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, providers.ErrUnsupported):
		c.JSON(http.StatusUnprocessableEntity, APIResponse{Message: err.Error(), Error: "PROVIDER_UNSUPPORTED"})
	case errors.As(err, &provider):
		if provider.Retryable() {
			c.JSON(http.StatusServiceUnavailable, APIResponse{Message: "Payment provider unavailable, try again", Error: "PROVIDER_UNAVAILABLE"})
			return
		}
		c.JSON(http.StatusBadGateway, APIResponse{Message: provider.Error(), Error: "PROVIDER_REJECTED"})
	case errors.Is(err, vault.ErrDecrypt), errors.Is(err, vault.ErrInvalidToken):
		c.JSON(http.StatusInternalServerError, errorResponse("Integration configuration could not be read"))
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, errorResponse("Request timed out"))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("Internal server error"))
	}
}
