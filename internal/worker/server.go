// Package worker consumes background tasks: catalog processing, periodic
// re-pricing and Telegram polling.
package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/ls5986/habexa2.0-sub002/internal/config"
	"github.com/ls5986/habexa2.0-sub002/internal/logger"
	"github.com/ls5986/habexa2.0-sub002/internal/queue"
)

// NewServer builds the asynq server with exponential retry backoff starting
// at cfg.RetryBase and doubling per attempt.
func NewServer(redisOpt asynq.RedisClientOpt, cfg config.WorkerConfig, log *logger.Logger) *asynq.Server {
	base := cfg.RetryBase
	if base <= 0 {
		base = time.Minute
	}
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
			return base << n
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			log.WithFields(logger.Fields{
				"task": task.Type(),
			}).WithError(err).Error("task failed")
		}),
		Logger: asynqLogger{log},
	})
}

// NewMux registers every task handler. Nil handlers are skipped so the
// worker can run with Telegram disabled.
func NewMux(catalog *CatalogHandler, reprice *RepriceHandler, telegram *TelegramHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	if catalog != nil {
		mux.Handle(queue.TypeCatalogProcess, catalog)
	}
	if reprice != nil {
		mux.Handle(queue.TypeReprice, reprice)
	}
	if telegram != nil {
		mux.Handle(queue.TypeTelegramPoll, telegram)
	}
	return mux
}

// asynqLogger adapts the structured logger to asynq's logging interface.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(args...) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(args...) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(args...) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(args...) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Log(logrus.FatalLevel, args...) }
