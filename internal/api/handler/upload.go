package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ls5986/habexa2.0-sub002/internal/api/middleware"
	"github.com/ls5986/habexa2.0-sub002/internal/domain"
	"github.com/ls5986/habexa2.0-sub002/internal/ingest"
	"github.com/ls5986/habexa2.0-sub002/internal/logger"
	"github.com/ls5986/habexa2.0-sub002/internal/mapper"
	"github.com/ls5986/habexa2.0-sub002/internal/queue"
	"github.com/ls5986/habexa2.0-sub002/internal/storage"
)

// maxUploadBytes caps one catalog file at 100 MB.
const maxUploadBytes = 100 << 20

var allowedExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xlsm": true,
}

type jobCreator interface {
	Create(ctx context.Context, job *domain.UploadJob) error
}

type catalogEnqueuer interface {
	EnqueueCatalogProcess(payload queue.CatalogProcessPayload) error
}

// UploadHandler accepts catalog files and queues them for processing.
type UploadHandler struct {
	jobs  jobCreator
	store storage.ObjectStore
	queue catalogEnqueuer
}

// NewUploadHandler wires the upload endpoints.
func NewUploadHandler(jobs jobCreator, store storage.ObjectStore, enqueuer catalogEnqueuer) *UploadHandler {
	return &UploadHandler{jobs: jobs, store: store, queue: enqueuer}
}

// Upload handles POST /catalogs. The file lands in object storage, a pending
// job row is created, and the task is queued; processing happens entirely in
// the worker.
func (h *UploadHandler) Upload(c *gin.Context) {
	userID := middleware.UserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 100MB limit"})
		return
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported file type %q", ext)})
		return
	}

	mappingJSON := c.PostForm("mapping")
	if mappingJSON != "" {
		var mapping mapper.ColumnMapping
		if err := json.Unmarshal([]byte(mappingJSON), &mapping); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mapping"})
			return
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer file.Close()

	jobID := uuid.NewString()
	objectKey := fmt.Sprintf("uploads/%s/%s%s", userID, jobID, ext)
	ctx := c.Request.Context()

	contentType := fileHeader.Header.Get("Content-Type")
	if err := h.store.Upload(ctx, objectKey, file, fileHeader.Size, contentType); err != nil {
		logger.CtxError(ctx, "catalog upload to storage failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store file"})
		return
	}

	job := &domain.UploadJob{
		ID:          jobID,
		UserID:      userID,
		Kind:        domain.JobKindCatalogUpload,
		Status:      domain.JobStatusPending,
		FileName:    fileHeader.Filename,
		ObjectKey:   objectKey,
		MappingJSON: mappingJSON,
	}
	if err := h.jobs.Create(ctx, job); err != nil {
		logger.CtxError(ctx, "create upload job failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create job"})
		return
	}

	payload := queue.CatalogProcessPayload{
		JobID:      jobID,
		UserID:     userID,
		SupplierID: c.PostForm("supplier_id"),
	}
	if err := h.queue.EnqueueCatalogProcess(payload); err != nil {
		logger.CtxError(ctx, "enqueue catalog task failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue job"})
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// Preview handles POST /catalogs/preview. It reads only the header row and
// returns the inferred column mapping with validation warnings, so the client
// can let the user correct it before committing an upload.
func (h *UploadHandler) Preview(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}

	reader, err := ingest.OpenReader(fileHeader.Filename, file)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	defer reader.Close()

	mapping := mapper.AutoMapColumns(reader.Headers())
	warnings := mapper.ValidateMapping(mapping)
	c.JSON(http.StatusOK, gin.H{
		"headers":  reader.Headers(),
		"mapping":  mapping,
		"warnings": warnings,
	})
}
