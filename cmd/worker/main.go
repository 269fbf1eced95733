// Package main runs the background email worker (transactional, bulk, reminders).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aspire-webinars/backend/config"
	"github.com/aspire-webinars/backend/internal/emaillogs"
	"github.com/aspire-webinars/backend/internal/notifications"
	"github.com/aspire-webinars/backend/internal/registrations"
	"github.com/aspire-webinars/backend/internal/webinars"
	"github.com/aspire-webinars/backend/internal/worker"
	"github.com/aspire-webinars/backend/pkg/database"
	"github.com/aspire-webinars/backend/pkg/queue"
	"github.com/aspire-webinars/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	registrationRepo := registrations.NewRepository(pool)
	webinarRepo := webinars.NewRepository(pool)
	emailLogsRepo := emaillogs.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	sender := notifications.NewSMTPSender(cfg.Email, logger)
	dispatcher := notifications.NewDispatcher(sender, time.Duration(cfg.Email.BulkDelayMs)*time.Millisecond, logger)
	processor := worker.NewEmailProcessor(registrationRepo, webinarRepo, emailLogsRepo, dispatcher, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
