package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/solsentinel/pixelterm/internal/config"
	"github.com/solsentinel/pixelterm/internal/database"
	"github.com/solsentinel/pixelterm/internal/gate"
	"github.com/solsentinel/pixelterm/internal/pixelapi"
	"github.com/solsentinel/pixelterm/internal/repository"
	"github.com/solsentinel/pixelterm/internal/server"
	"github.com/solsentinel/pixelterm/internal/service"
	"github.com/solsentinel/pixelterm/internal/storage"
	"github.com/solsentinel/pixelterm/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Gatekeeper stores: in-process by default, shared via Redis when
	// configured so several instances agree on duplicates and ceilings.
	var (
		dedup   gate.DedupStore
		limiter gate.LimiterStore
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			log.Fatalf("redis ping: %v", err)
		}

		dedup = gate.NewRedisDedupStore(rdb, cfg.DedupWindow)
		limiter = gate.NewRedisLimiterStore(rdb, cfg.RateLimitMax, cfg.RateLimitWindow)
		logr.Info("using redis gate stores", "addr", cfg.RedisAddr)
	} else {
		memDedup := gate.NewMemoryDedupStore(cfg.DedupWindow)
		memDedup.StartJanitor(ctx, cfg.SweepInterval)
		memLimiter := gate.NewMemoryLimiterStore(cfg.RateLimitMax, cfg.RateLimitWindow, cfg.RateLimitCooldown)
		memLimiter.StartJanitor(ctx, cfg.SweepInterval)
		dedup = memDedup
		limiter = memLimiter
	}

	var (
		historyLogger service.HistoryLogger
		historyReader server.HistoryReader
	)
	if cfg.MySQLDSN != "" {
		db, err := database.Connect(cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("database connect: %v", err)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("database migrate: %v", err)
		}
		history := repository.NewHistoryRepository(db)
		historyLogger = history
		historyReader = history
		logr.Info("generation history enabled")
	}

	var uploader service.ShareUploader
	if cfg.S3Enabled() {
		up, err := storage.NewUploader(storage.Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
			Prefix:        cfg.S3Prefix,
		})
		if err != nil {
			log.Fatalf("storage uploader: %v", err)
		}
		uploader = up
		logr.Info("share uploads enabled", "bucket", cfg.S3Bucket)
	}

	client := pixelapi.NewClient(cfg, logr)
	generations := service.NewGenerationService(logr, client, historyLogger, uploader)

	srv := server.New(cfg, logr, generations, historyReader, dedup, limiter)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("server stopped", "err", err)
	}
}
