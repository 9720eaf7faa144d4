package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ls5986/habexa2.0-sub002/internal/api/middleware"
	"github.com/ls5986/habexa2.0-sub002/internal/domain"
)

type productReader interface {
	ListByUser(ctx context.Context, userID string, status domain.DealStatus, limit, offset int) ([]domain.Product, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	UpdateDealStatus(ctx context.Context, id, userID string, status domain.DealStatus) error
}

var validDealStatuses = map[domain.DealStatus]bool{
	domain.DealStatusSourced:  true,
	domain.DealStatusAnalyzed: true,
	domain.DealStatusOrdered:  true,
}

// ProductHandler serves the sourced-deal list.
type ProductHandler struct {
	products productReader
}

// NewProductHandler wires the product endpoints.
func NewProductHandler(products productReader) *ProductHandler {
	return &ProductHandler{products: products}
}

// List handles GET /products with an optional deal status filter.
func (h *ProductHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)

	status := domain.DealStatus(c.Query("status"))
	if status != "" && !validDealStatuses[status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}

	limit, offset := pagination(c)
	products, err := h.products.ListByUser(c.Request.Context(), userID, status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}
	total, err := h.products.CountByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

type updateStatusRequest struct {
	Status domain.DealStatus `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /products/:id/status.
func (h *ProductHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !validDealStatuses[req.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be sourced, analyzed or ordered"})
		return
	}

	err := h.products.UpdateDealStatus(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Status)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": req.Status})
}
