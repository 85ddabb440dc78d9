package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/EgorLis/my-books/internal/auth/blacklist"
	"github.com/EgorLis/my-books/internal/auth/password"
	"github.com/EgorLis/my-books/internal/auth/token"
	"github.com/EgorLis/my-books/internal/books"
	"github.com/EgorLis/my-books/internal/config"
	"github.com/EgorLis/my-books/internal/domain"
	"github.com/EgorLis/my-books/internal/infra/cache/memory"
	redisx "github.com/EgorLis/my-books/internal/infra/cache/redis"
	"github.com/EgorLis/my-books/internal/infra/database/postgres"
	"github.com/EgorLis/my-books/internal/infra/queue/redisq"
	s3storage "github.com/EgorLis/my-books/internal/infra/storage/s3"
	"github.com/EgorLis/my-books/internal/transport/web"
)

type App struct {
	config  *config.Config
	server  *web.Server
	log     *log.Logger
	service *books.Service
	storage domain.CoverStorage
	cache   domain.Cache
	queue   *redisq.Queue
	repo    *postgres.PGRepo
}

func Build(ctx context.Context) (*App, error) {
	base := log.New(os.Stdout, "[app] ", log.LstdFlags)

	serverLog := log.New(base.Writer(), base.Prefix()+"[server] ", base.Flags())
	pgLog := log.New(base.Writer(), base.Prefix()+"[postgres] ", base.Flags())
	s3Log := log.New(base.Writer(), base.Prefix()+"[s3] ", base.Flags())
	cacheLog := log.New(base.Writer(), base.Prefix()+"[cache] ", base.Flags())
	queueLog := log.New(base.Writer(), base.Prefix()+"[queue] ", base.Flags())
	booksLog := log.New(base.Writer(), base.Prefix()+"[books] ", base.Flags())

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed load config: %w", err)
	}
	base.Printf("\n  configuration: %s-------------------", cfg)

	base.Println("init PostgreSQL")
	pgRepo, err := postgres.NewPGRepo(ctx, pgLog, cfg.GetDSN(), cfg.DBScheme)
	if err != nil {
		return nil, fmt.Errorf("failed init postgres: %w", err)
	}
	base.Println("PostgreSQL is initialized")

	base.Println("init S3 storage")
	s3cfg := s3storage.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
		PathStyle: cfg.S3PathStyle,
		PublicURL: cfg.S3PublicURL,
	}
	s3, err := s3storage.New(ctx, s3cfg, s3Log)
	if err != nil {
		return nil, fmt.Errorf("failed init s3: %w", err)
	}

	base.Printf("init cache (%s)", cfg.CacheBackend)
	var cache domain.Cache
	if cfg.CacheBackend == "memory" {
		cache = memory.New(cacheLog)
	} else {
		rc := redisx.New(redisx.Config{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPassword,
		}, cacheLog)
		if err := rc.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed init redis: %w", err)
		}
		cache = rc
	}
	base.Println("cache is initialized")

	base.Println("init view queue")
	queue := redisq.New(redisq.Config{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		Password: cfg.RedisPassword,
		Key:      cfg.ViewQueueKey,
	}, queueLog)

	// Auth primitives
	hasher := password.NewDefault()
	tm := token.New(cfg.AuthJWTSecret, cfg.AuthIssuer, cfg.AuthTokenTTL)
	bl := blacklist.NewStore(cache)

	svc := books.New(booksLog, pgRepo, pgRepo, cache, queue, s3)

	base.Println("init Server")
	rep := web.Repos{Users: pgRepo, History: pgRepo}
	auth := web.AuthDeps{Hasher: hasher, Tokens: tm, Blacklist: bl}
	server := web.New(serverLog, cfg, svc, rep, auth, s3, cache)
	base.Println("Server is initialized")

	base.Println("build ended")
	return &App{
		config:  cfg,
		server:  server,
		log:     base,
		service: svc,
		storage: s3,
		repo:    pgRepo,
		cache:   cache,
		queue:   queue,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Println("start application...")
	go a.server.Run()

	// греем Title Index в фоне, старт сервера не ждёт
	go func() {
		warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := a.service.WarmUp(warmCtx); err != nil {
			a.log.Printf("title index warmup failed: %v", err)
		}
	}()

	<-ctx.Done()
	a.log.Println("stop application...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.server.Close(stopCtx)
	a.repo.Close()
	a.queue.Close()
	a.cache.Close()

	return nil
}
