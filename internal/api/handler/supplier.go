package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ls5986/habexa2.0-sub002/internal/api/middleware"
	"github.com/ls5986/habexa2.0-sub002/internal/domain"
)

type supplierStore interface {
	Create(ctx context.Context, supplier *domain.Supplier) error
	ListByUser(ctx context.Context, userID string) ([]domain.Supplier, error)
}

// SupplierHandler manages supplier defaults used by the profitability
// calculator.
type SupplierHandler struct {
	suppliers supplierStore
}

// NewSupplierHandler wires the supplier endpoints.
func NewSupplierHandler(suppliers supplierStore) *SupplierHandler {
	return &SupplierHandler{suppliers: suppliers}
}

type createSupplierRequest struct {
	Name            string  `json:"name" binding:"required"`
	ShipsDirect     bool    `json:"ships_direct"`
	InboundRate     float64 `json:"inbound_rate"`
	DefaultPrepCost float64 `json:"default_prep_cost"`
}

// Create handles POST /suppliers.
func (h *SupplierHandler) Create(c *gin.Context) {
	var req createSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if req.InboundRate < 0 || req.DefaultPrepCost < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rates must not be negative"})
		return
	}

	supplier := &domain.Supplier{
		ID:              uuid.NewString(),
		UserID:          middleware.UserID(c),
		Name:            req.Name,
		ShipsDirect:     req.ShipsDirect,
		InboundRate:     req.InboundRate,
		DefaultPrepCost: req.DefaultPrepCost,
	}
	if err := h.suppliers.Create(c.Request.Context(), supplier); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create supplier"})
		return
	}
	c.JSON(http.StatusCreated, supplier)
}

// List handles GET /suppliers.
func (h *SupplierHandler) List(c *gin.Context) {
	suppliers, err := h.suppliers.ListByUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list suppliers"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suppliers": suppliers})
}
