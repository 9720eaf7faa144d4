package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ls5986/habexa2.0-sub002/internal/api/middleware"
	"github.com/ls5986/habexa2.0-sub002/internal/domain"
)

type jobReader interface {
	GetByIDForUser(ctx context.Context, id, userID string) (*domain.UploadJob, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.UploadJob, error)
}

// JobHandler serves job status for polling clients.
type JobHandler struct {
	jobs jobReader
}

// NewJobHandler wires the job endpoints.
func NewJobHandler(jobs jobReader) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Get handles GET /jobs/:id.
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.jobs.GetByIDForUser(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// List handles GET /jobs, newest first.
func (h *JobHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	jobsList, err := h.jobs.ListByUser(c.Request.Context(), middleware.UserID(c), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobsList, "limit": limit, "offset": offset})
}

// pagination parses limit/offset query params with sane bounds.
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
