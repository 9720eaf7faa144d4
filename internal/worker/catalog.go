package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/ls5986/habexa2.0-sub002/internal/domain"
	"github.com/ls5986/habexa2.0-sub002/internal/ingest"
	"github.com/ls5986/habexa2.0-sub002/internal/jobs"
	"github.com/ls5986/habexa2.0-sub002/internal/logger"
	"github.com/ls5986/habexa2.0-sub002/internal/queue"
	"github.com/ls5986/habexa2.0-sub002/internal/storage"
)

type jobGetter interface {
	GetByID(ctx context.Context, id string) (*domain.UploadJob, error)
}

type supplierGetter interface {
	GetByID(ctx context.Context, id, userID string) (*domain.Supplier, error)
}

// CatalogHandler runs one uploaded catalog through the ingest processor.
type CatalogHandler struct {
	tracker   *jobs.Tracker
	jobs      jobGetter
	suppliers supplierGetter
	store     storage.ObjectStore
	processor *ingest.Processor
	log       *logger.Logger
}

// NewCatalogHandler wires the catalog task handler.
func NewCatalogHandler(
	tracker *jobs.Tracker,
	jobGet jobGetter,
	suppliers supplierGetter,
	store storage.ObjectStore,
	processor *ingest.Processor,
	log *logger.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		tracker:   tracker,
		jobs:      jobGet,
		suppliers: suppliers,
		store:     store,
		processor: processor,
		log:       log,
	}
}

// ProcessTask handles one delivery of a catalog:process task. Redeliveries of
// finished jobs are acknowledged without work; a job left running by a
// crashed attempt is reclaimed and re-run, which is safe because upserts are
// idempotent.
func (h *CatalogHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload queue.CatalogProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", queue.TypeCatalogProcess, err)
	}

	log := h.log.WithFields(logger.Fields{
		logger.FieldJobID:  payload.JobID,
		logger.FieldUserID: payload.UserID,
	})

	job, err := h.tracker.Start(ctx, payload.JobID)
	if errors.Is(err, domain.ErrInvalidState) {
		existing, getErr := h.jobs.GetByID(ctx, payload.JobID)
		if getErr != nil {
			return fmt.Errorf("reload job %s: %w", payload.JobID, getErr)
		}
		if existing.IsTerminal() {
			log.Info("job already finished, acknowledging redelivery")
			return nil
		}
		log.Warn("reclaiming job left running by a previous attempt")
		job = existing
	} else if err != nil {
		return err
	}

	var supplier *domain.Supplier
	if payload.SupplierID != "" {
		supplier, err = h.suppliers.GetByID(ctx, payload.SupplierID, payload.UserID)
		if err != nil {
			log.WithError(err).Warn("supplier lookup failed, proceeding without defaults")
			supplier = nil
		}
	}

	body, err := h.store.Download(ctx, job.ObjectKey)
	if err != nil {
		return h.fail(ctx, log, job.ID, fmt.Errorf("download catalog: %w", err))
	}
	reader, err := ingest.OpenReader(job.FileName, body)
	if err != nil {
		// A malformed file will not improve on retry.
		if ferr := h.tracker.Fail(ctx, job.ID, err.Error()); ferr != nil {
			log.WithError(ferr).Error("failed to mark job failed")
		}
		log.WithError(err).Warn("catalog unreadable")
		return nil
	}
	defer reader.Close()

	result, err := h.processor.Run(ctx, job, reader, supplier)
	if err != nil {
		return h.fail(ctx, log, job.ID, err)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return h.fail(ctx, log, job.ID, fmt.Errorf("encode result: %w", err))
	}
	if err := h.tracker.Complete(ctx, job.ID, string(resultJSON), result.Succeeded, result.Failed); err != nil {
		return fmt.Errorf("complete job %s: %w", job.ID, err)
	}
	return nil
}

// fail marks the job failed only on the final delivery so earlier attempts
// can still be retried against a non-terminal job.
func (h *CatalogHandler) fail(ctx context.Context, log *logger.Logger, jobID string, cause error) error {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retried >= maxRetry {
		if err := h.tracker.Fail(ctx, jobID, cause.Error()); err != nil {
			log.WithError(err).Error("failed to mark job failed")
		}
	}
	return cause
}
