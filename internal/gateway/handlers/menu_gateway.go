package handlers

import (
	"net/http"

	"mesa-system/internal/gateway/middleware"
	"mesa-system/internal/services/catalog"

	"github.com/gin-gonic/gin"
)

type MenuHTTPHandler struct {
	catalog *catalog.Store
}

func NewMenuHTTPHandler(store *catalog.Store) *MenuHTTPHandler {
	return &MenuHTTPHandler{catalog: store}
}

func (h *MenuHTTPHandler) ListItems(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.catalog.ListItems(ctx, middleware.TenantContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("Menu items retrieved successfully", items, gin.H{
		"count": len(items),
	}))
}

// UpdateItem edits name, price or availability. New order lines pick up the
// change right away; existing lines keep their snapshot.
func (h *MenuHTTPHandler) UpdateItem(c *gin.Context) {
	var req catalog.ItemPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	item, err := h.catalog.UpdateItem(ctx, middleware.TenantContext(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Menu item updated successfully", item))
}
