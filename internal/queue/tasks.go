// Package queue defines the background task types and their payloads. Both
// the API (producer) and the worker (consumer) import it, so payload changes
// stay in one place.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TypeCatalogProcess streams one uploaded catalog file into products.
	TypeCatalogProcess = "catalog:process"
	// TypeReprice refreshes marketplace signals for stale products.
	TypeReprice = "product:reprice"
	// TypeTelegramPoll drains pending bot updates for sourced-deal capture.
	TypeTelegramPoll = "telegram:poll"
)

// CatalogProcessPayload carries everything the worker needs to claim and run
// one upload job.
type CatalogProcessPayload struct {
	JobID      string `json:"job_id"`
	UserID     string `json:"user_id"`
	SupplierID string `json:"supplier_id,omitempty"`
}

// RepricePayload bounds one re-pricing sweep.
type RepricePayload struct {
	StaleBefore time.Time `json:"stale_before"`
	Limit       int       `json:"limit"`
}

// NewCatalogProcessTask builds the catalog task. Retries are bounded; each
// attempt restarts the stream from the top and relies on idempotent upserts
// and terminal-state no-ops to make redelivery safe.
func NewCatalogProcessTask(payload CatalogProcessPayload, maxRetry int) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal catalog payload: %w", err)
	}
	return asynq.NewTask(TypeCatalogProcess, data,
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(2*time.Hour),
	), nil
}

// NewRepriceTask builds one re-pricing sweep task.
func NewRepriceTask(payload RepricePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal reprice payload: %w", err)
	}
	return asynq.NewTask(TypeReprice, data,
		asynq.MaxRetry(1),
		asynq.Timeout(30*time.Minute),
	), nil
}

// NewTelegramPollTask builds one bot polling task.
func NewTelegramPollTask() *asynq.Task {
	return asynq.NewTask(TypeTelegramPoll, nil, asynq.MaxRetry(0), asynq.Timeout(time.Minute))
}

// Client enqueues tasks for the worker pool.
type Client struct {
	inner    *asynq.Client
	maxRetry int
}

// NewClient wraps an asynq client with the configured retry budget.
func NewClient(redisOpt asynq.RedisClientOpt, maxRetry int) *Client {
	return &Client{inner: asynq.NewClient(redisOpt), maxRetry: maxRetry}
}

// EnqueueCatalogProcess queues one upload for background processing.
func (c *Client) EnqueueCatalogProcess(payload CatalogProcessPayload) error {
	task, err := NewCatalogProcessTask(payload, c.maxRetry)
	if err != nil {
		return err
	}
	if _, err := c.inner.Enqueue(task); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeCatalogProcess, err)
	}
	return nil
}

// EnqueueReprice queues one re-pricing sweep.
func (c *Client) EnqueueReprice(payload RepricePayload) error {
	task, err := NewRepriceTask(payload)
	if err != nil {
		return err
	}
	if _, err := c.inner.Enqueue(task); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeReprice, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.inner.Close()
}
