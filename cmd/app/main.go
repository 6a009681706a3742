package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BuzzLyutic/kanban-board/internal/auth"
	"github.com/BuzzLyutic/kanban-board/internal/cache"
	"github.com/BuzzLyutic/kanban-board/internal/config"
	"github.com/BuzzLyutic/kanban-board/internal/handler"
	"github.com/BuzzLyutic/kanban-board/internal/logger"
	"github.com/BuzzLyutic/kanban-board/internal/metrics"
	"github.com/BuzzLyutic/kanban-board/internal/repo"
	"github.com/BuzzLyutic/kanban-board/internal/service"
	"github.com/BuzzLyutic/kanban-board/internal/worker"
)

// storage — то, что нужно main от выбранного хранилища.
type storage interface {
	repo.TaskRepository
	repo.IdempotencyStore
	repo.UserRepository
	Ping(ctx context.Context) error
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("Failed to load config", zap.Error(err))
	}

	// Подключаем логгер
	log, err := logger.New(cfg.LogDevelopment)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, closeStore := openStorage(ctx, cfg, log)
	defer closeStore()

	m := metrics.New()

	var (
		tasks  repo.TaskRepository = store
		health handler.Pinger      = store
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		taskCache := cache.NewTaskCache(store, rdb, cfg.CacheTTL, log.Named("cache"))
		tasks, health = taskCache, taskCache
		log.Info("Task list cache enabled", zap.String("addr", opts.Addr), zap.Duration("ttl", cfg.CacheTTL))
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	taskService := service.NewTaskService(tasks)
	authService := service.NewAuthService(store, tokens)

	router := handler.NewRouter(handler.RouterConfig{
		Tasks:       handler.NewTaskHandler(taskService, log, m),
		Auth:        handler.NewAuthHandler(authService, log),
		RequireUser: tokens.RequireUser,
		Health:      health,
		Metrics:     m,
		Logger:      log,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{ // Создаем сервер
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	janitor := worker.NewJanitor(store, log.Named("janitor"), m, cfg.JanitorInterval, cfg.IdempotencyTTL)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		janitor.Start(gctx)
		<-gctx.Done()
		janitor.Stop()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done() // Graceful shutdown
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return
	}
	log.Info("Server stopped successfully!")
}

// openStorage подключается к PostgreSQL, а без DATABASE_URL работает в памяти.
func openStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (storage, func()) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL is empty, using in-memory storage")
		return newMemoryStorage(), func() {}
	}

	if cfg.MigrateOnStart {
		if err := repo.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatal("Failed to run migrations", zap.Error(err))
		}
		log.Info("Migrations applied")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL) // Создаем пул соединений к БД
	if err != nil {
		log.Fatal("Failed to connect to Database", zap.Error(err)) // дальнейшая работа теряет смысл
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		log.Fatal("Failed to ping the Database", zap.Error(err))
	}
	log.Info("Successfully connected to the Database!")

	return &pgStorage{TaskRepo: repo.NewTaskRepo(pool), UserRepo: repo.NewUserRepo(pool)}, pool.Close
}

type pgStorage struct {
	*repo.TaskRepo
	*repo.UserRepo
}

func newMemoryStorage() storage {
	return repo.NewMemoryRepo()
}
