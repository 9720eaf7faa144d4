package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ls5986/habexa2.0-sub002/internal/config"
	"github.com/ls5986/habexa2.0-sub002/internal/enrich"
	"github.com/ls5986/habexa2.0-sub002/internal/ingest"
	"github.com/ls5986/habexa2.0-sub002/internal/jobs"
	"github.com/ls5986/habexa2.0-sub002/internal/logger"
	"github.com/ls5986/habexa2.0-sub002/internal/queue"
	"github.com/ls5986/habexa2.0-sub002/internal/ratelimit"
	"github.com/ls5986/habexa2.0-sub002/internal/repository"
	"github.com/ls5986/habexa2.0-sub002/internal/storage"
	"github.com/ls5986/habexa2.0-sub002/internal/telegram"
	"github.com/ls5986/habexa2.0-sub002/internal/worker"
)

// enrichCacheTTL bounds how long provider responses are reused within one
// worker process.
const enrichCacheTTL = time.Hour

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
		ServiceName: cfg.Log.ServiceName + "-worker",
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

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	limiterStore := ratelimit.NewRedisStore(redisClient)
	analyticsLimit := ratelimit.New(limiterStore, "ratelimit:analytics", cfg.Keepa.RequestsPerSec)
	identityLimit := ratelimit.New(limiterStore, "ratelimit:identity", cfg.Identity.RequestsPerSec)

	analytics := enrich.NewCachedAnalyticsClient(enrich.NewAnalyticsClient(cfg.Keepa), enrichCacheTTL)
	identity := enrich.NewCachedIdentityClient(enrich.NewIdentityClient(cfg.Identity), enrichCacheTTL)

	jobRepo := repository.NewJobRepository(db)
	productRepo := repository.NewProductRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	tracker := jobs.NewTracker(jobRepo)

	processor := ingest.NewProcessor(
		productRepo, tracker,
		analytics, identity,
		analyticsLimit, identityLimit,
		cfg.Ingest, log,
	)

	catalogHandler := worker.NewCatalogHandler(tracker, jobRepo, supplierRepo, store, processor, log)
	repriceHandler := worker.NewRepriceHandler(productRepo, supplierRepo, analytics, analyticsLimit, log)

	var telegramHandler *worker.TelegramHandler
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		monitor := telegram.NewMonitor(cfg.Telegram.BotToken, productRepo, identity, telegramUsers(), log)
		telegramHandler = worker.NewTelegramHandler(monitor)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	server := worker.NewServer(redisOpt, cfg.Worker, log)
	mux := worker.NewMux(catalogHandler, repriceHandler, telegramHandler)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	repriceTask, err := queue.NewRepriceTask(queue.RepricePayload{Limit: cfg.Worker.RepricePerUser})
	if err != nil {
		log.WithError(err).Fatal("build reprice task failed")
	}
	if _, err := scheduler.Register(fmt.Sprintf("@every %s", cfg.Worker.RepriceEvery), repriceTask); err != nil {
		log.WithError(err).Fatal("register reprice schedule failed")
	}
	if telegramHandler != nil {
		if _, err := scheduler.Register(fmt.Sprintf("@every %s", cfg.Telegram.PollInterval), queue.NewTelegramPollTask()); err != nil {
			log.WithError(err).Fatal("register telegram schedule failed")
		}
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			log.WithError(err).Fatal("scheduler failed")
		}
	}()
	go func() {
		if err := server.Run(mux); err != nil {
			log.WithError(err).Fatal("worker failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	scheduler.Shutdown()
	server.Shutdown()
}

// telegramUsers reads the chat-to-user mapping from the environment as
// "chatID=userID" pairs separated by commas.
func telegramUsers() telegram.StaticResolver {
	resolver := telegram.StaticResolver{}
	raw := os.Getenv("TELEGRAM_CHAT_USERS")
	if raw == "" {
		return resolver
	}
	for _, pair := range strings.Split(raw, ",") {
		var chatID int64
		var userID string
		if _, err := fmt.Sscanf(strings.TrimSpace(pair), "%d=%s", &chatID, &userID); err == nil {
			resolver[chatID] = userID
		}
	}
	return resolver
}
