package handlers

import (
	"context"
	"net/http"
	"time"

	"mesa-system/internal/gateway/middleware"
	"mesa-system/internal/money"
	"mesa-system/internal/payments/providers"
	"mesa-system/internal/services/payments"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

type PaymentHTTPHandler struct {
	payments *payments.Service
}

func NewPaymentHTTPHandler(paymentSvc *payments.Service) *PaymentHTTPHandler {
	return &PaymentHTTPHandler{payments: paymentSvc}
}

// CashPaymentRequest takes the tendered amount in minor units, or as a
// decimal string such as "15.00" when cash_received_cents is omitted.
type CashPaymentRequest struct {
	CashReceivedCents int64  `json:"cash_received_cents"`
	CashReceived      string `json:"cash_received"`
}

type TransferPaymentRequest struct {
	Reference string `json:"reference"`
}

type LinkPaymentRequest struct {
	IntegrationID string `json:"integration_id"`
}

func (h *PaymentHTTPHandler) PayCash(c *gin.Context) {
	var req CashPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	cash := req.CashReceivedCents
	if cash == 0 && req.CashReceived != "" {
		parsed, err := money.ParseMinor(req.CashReceived)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid cash amount"))
			return
		}
		cash = parsed
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.payments.PayOpenOrderWithCash(ctx, middleware.TenantContext(c), c.Param("id"), cash)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Order paid with cash", order))
}

func (h *PaymentHTTPHandler) PayTransfer(c *gin.Context) {
	var req TransferPaymentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
			return
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, payment, err := h.payments.CompleteTransfer(ctx, middleware.TenantContext(c), c.Param("id"), req.Reference)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Transfer recorded", gin.H{
		"order":   order,
		"payment": payment,
	}))
}

func (h *PaymentHTTPHandler) PayTerminal(c *gin.Context) {
	var req payments.TerminalConfirmation
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	payment, err := h.payments.ConfirmTerminal(ctx, middleware.TenantContext(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Card payment confirmed", payment))
}

// PayLink creates a hosted payment link. A provider without link support
// answers 409 PROVIDER_NOT_IMPLEMENTED so the POS can switch to terminal
// capture.
func (h *PaymentHTTPHandler) PayLink(c *gin.Context) {
	var req LinkPaymentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
			return
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	payment, err := h.payments.CreatePaymentLink(ctx, middleware.TenantContext(c), c.Param("id"), req.IntegrationID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Payment link created", payment))
}

func (h *PaymentHTTPHandler) CheckPayment(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	payment, err := h.payments.CheckPaymentStatus(ctx, middleware.TenantContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Payment status retrieved", payment))
}

// Channels lists the payment channels the POS may offer at a location.
func (h *PaymentHTTPHandler) Channels(c *gin.Context) {
	locationID := c.Query("location_id")
	if locationID == "" {
		c.JSON(http.StatusBadRequest, errorResponse("location_id is required"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	channels, err := h.payments.EnabledChannels(ctx, middleware.TenantContext(c), locationID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Channels retrieved", channels))
}

// Webhook hands the untouched body to the provider verifier. The answer has
// no body; only the status code matters to providers.
func (h *PaymentHTTPHandler) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	body, err := c.GetRawData()
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	// Outlives the provider's connection.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out := h.payments.HandleWebhook(ctx, c.Param("provider"), c.Param("tenantId"), providers.WebhookRequest{
		Header: c.Request.Header.Clone(),
		Body:   body,
	})
	c.Status(out.HTTPStatus)
}
