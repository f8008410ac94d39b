package main

import (
	"net/http"
	"time"

	"mesa-system/internal/gateway/handlers"
	"mesa-system/internal/gateway/health"
	"mesa-system/internal/gateway/middleware"
	"mesa-system/internal/services/catalog"
	"mesa-system/internal/services/orders"
	"mesa-system/internal/services/payments"
	"mesa-system/internal/services/staff"
	"mesa-system/internal/utils"

	"github.com/gin-gonic/gin"
)

type services struct {
	orders          *orders.Service
	catalog         *catalog.Store
	payments        *payments.Service
	staff           *staff.Service
	tokens          *utils.TokenIssuer
	health          *health.Checker
	publicRateLimit string
}

func setupRouter(s services) (*gin.Engine, error) {
	limit, err := middleware.RateLimit(s.publicRateLimit)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(middleware.CORS())
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	staffHandler := handlers.NewStaffHTTPHandler(s.staff)
	orderHandler := handlers.NewOrderHTTPHandler(s.orders)
	paymentHandler := handlers.NewPaymentHTTPHandler(s.payments)
	integrationHandler := handlers.NewIntegrationHTTPHandler(s.payments)
	publicHandler := handlers.NewPublicHTTPHandler(s.orders)
	menuHandler := handlers.NewMenuHTTPHandler(s.catalog)

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		public.POST("/auth/login", limit, staffHandler.Login)
		public.POST("/public/:restaurantSlug/:locationSlug/orders", limit, publicHandler.CreateOnlineOrder)
		public.POST("/webhooks/:provider/:tenantId", limit, paymentHandler.Webhook)
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(s.tokens))
	{
		ordersGroup := protected.Group("/orders")
		{
			ordersGroup.GET("", orderHandler.ListOrders)
			ordersGroup.GET("/export.csv", orderHandler.ExportOrdersCSV)
			ordersGroup.POST("", orderHandler.CreateOrder)
			ordersGroup.POST("/cash", orderHandler.CreateCashOrder)
			ordersGroup.GET("/open", orderHandler.ListOpenOrders)
			ordersGroup.GET("/:id", orderHandler.GetOrder)
			ordersGroup.PUT("/:id/lines", orderHandler.UpdateLines)
			ordersGroup.PATCH("/:id", orderHandler.PatchOrder)
			ordersGroup.PUT("/:id/status", orderHandler.SetStatus)
			ordersGroup.POST("/:id/pay/cash", paymentHandler.PayCash)
			ordersGroup.POST("/:id/pay/transfer", paymentHandler.PayTransfer)
			ordersGroup.POST("/:id/pay/terminal", paymentHandler.PayTerminal)
			ordersGroup.POST("/:id/pay/link", paymentHandler.PayLink)
		}

		menu := protected.Group("/menu")
		{
			menu.GET("/items", menuHandler.ListItems)
			menu.PATCH("/items/:id", menuHandler.UpdateItem)
		}

		protected.POST("/payments/:id/check", paymentHandler.CheckPayment)
		protected.GET("/pos/channels", paymentHandler.Channels)

		integrations := protected.Group("/integrations")
		{
			integrations.GET("", integrationHandler.ListIntegrations)
			integrations.POST("", integrationHandler.CreateIntegration)
			integrations.GET("/:id", integrationHandler.GetIntegration)
			integrations.PUT("/:id", integrationHandler.UpdateIntegration)
			integrations.DELETE("/:id", integrationHandler.DeleteIntegration)
			integrations.PUT("/:id/enabled", integrationHandler.SetEnabled)
		}

		staffGroup := protected.Group("/staff")
		{
			staffGroup.GET("", staffHandler.ListStaff)
			staffGroup.POST("", staffHandler.CreateStaff)
		}
	}

	r.GET("/health", healthCheckHandler(s.health))
	r.GET("/health/detailed", detailedHealthCheckHandler(s.health))

	return r, nil
}

func healthCheckHandler(checker *health.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := checker.Last()
		if st.CheckedAt.IsZero() {
			st = checker.Check(c.Request.Context())
		}

		status := "healthy"
		httpStatus := http.StatusOK
		if !st.Healthy {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"status":    status,
			"message":   "Server is running",
			"timestamp": time.Now(),
		})
	}
}

func detailedHealthCheckHandler(checker *health.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := checker.Check(c.Request.Context())

		overallStatus := "healthy"
		if !st.Healthy {
			overallStatus = "degraded"
		}

		c.JSON(http.StatusOK, gin.H{
			"overall_status": overallStatus,
			"services":       st.Components,
			"timestamp":      st.CheckedAt,
		})
	}
}
