package handlers

import (
	"net/http"

	"mesa-system/internal/gateway/middleware"
	"mesa-system/internal/services/staff"

	"github.com/gin-gonic/gin"
)

type StaffHTTPHandler struct {
	staff *staff.Service
}

func NewStaffHTTPHandler(staffSvc *staff.Service) *StaffHTTPHandler {
	return &StaffHTTPHandler{staff: staffSvc}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *StaffHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.staff.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("login successful", res))
}

func (h *StaffHTTPHandler) CreateStaff(c *gin.Context) {
	var req staff.CreateStaffInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.staff.CreateStaff(ctx, middleware.TenantContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Staff member created successfully", user))
}

func (h *StaffHTTPHandler) ListStaff(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.staff.ListStaff(ctx, middleware.TenantContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("Staff retrieved successfully", users, gin.H{
		"count": len(users),
	}))
}
