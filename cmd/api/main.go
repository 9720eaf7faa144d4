package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ls5986/habexa2.0-sub002/internal/api"
	"github.com/ls5986/habexa2.0-sub002/internal/api/handler"
	"github.com/ls5986/habexa2.0-sub002/internal/config"
	"github.com/ls5986/habexa2.0-sub002/internal/logger"
	"github.com/ls5986/habexa2.0-sub002/internal/queue"
	"github.com/ls5986/habexa2.0-sub002/internal/repository"
	"github.com/ls5986/habexa2.0-sub002/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
		ServiceName: cfg.Log.ServiceName + "-api",
	})
	logger.SetDefaultLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("database init failed")
	}

	store, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("object storage init failed")
	}

	queueClient := queue.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Worker.MaxRetry)
	defer queueClient.Close()

	jobRepo := repository.NewJobRepository(db)
	productRepo := repository.NewProductRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)

	router := api.NewRouter(cfg, log, api.Handlers{
		Upload:   handler.NewUploadHandler(jobRepo, store, queueClient),
		Job:      handler.NewJobHandler(jobRepo),
		Product:  handler.NewProductHandler(productRepo),
		Supplier: handler.NewSupplierHandler(supplierRepo),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown incomplete")
	}
}
