package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/EgorLis/my-books/internal/config"
	"github.com/EgorLis/my-books/internal/infra/database/postgres"
	"github.com/EgorLis/my-books/internal/infra/queue/redisq"
	"github.com/EgorLis/my-books/internal/worker"
)

// Отдельный бинарь: потребитель очереди просмотров. Живёт независимо
// от API-сервера, можно масштабировать и рестартовать отдельно.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	base := log.New(os.Stdout, "[viewworker] ", log.LstdFlags)
	pgLog := log.New(base.Writer(), base.Prefix()+"[postgres] ", base.Flags())
	queueLog := log.New(base.Writer(), base.Prefix()+"[queue] ", base.Flags())

	cfg, err := config.LoadFromEnv()
	if err != nil {
		base.Fatalf("failed load config: %v", err)
	}

	repo, err := postgres.NewPGRepo(ctx, pgLog, cfg.GetDSN(), cfg.DBScheme)
	if err != nil {
		base.Fatalf("failed init postgres: %v", err)
	}
	defer repo.Close()

	queue := redisq.New(redisq.Config{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		Password: cfg.RedisPassword,
		Key:      cfg.ViewQueueKey,
	}, queueLog)
	defer queue.Close()

	if err := queue.Ping(ctx); err != nil {
		base.Fatalf("failed init queue: %v", err)
	}

	w := worker.NewViewCounter(base, queue, repo)
	w.Run(ctx)
}
