package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/kanban-board/internal/model"
	"github.com/BuzzLyutic/kanban-board/internal/repo"
)

// generationTTL только ограничивает жизнь счетчика поколений в Redis.
const generationTTL = 24 * time.Hour

var errStaleFill = errors.New("cache: owner generation changed during read")

// TaskCache wraps a TaskRepository with a Redis copy of each owner's sorted
// task list. Writes evict the owner's entry and bump the owner's generation;
// a list read from the database is cached only if no write happened while it
// was being read. Redis failures fall back to the wrapped repository.
type TaskCache struct {
	repo.TaskRepository
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewTaskCache(base repo.TaskRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *TaskCache {
	if base == nil {
		panic("cache.NewTaskCache: base repository is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &TaskCache{
		TaskRepository: base,
		redis:          client,
		ttl:            ttl,
		logger:         logger,
	}
}

func (c *TaskCache) ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	if tasks, ok := c.load(ctx, ownerID); ok {
		return tasks, nil
	}

	gen, genErr := c.generation(ctx, ownerID)

	tasks, err := c.TaskRepository.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if genErr == nil {
		c.store(ctx, ownerID, gen, tasks)
	}
	return tasks, nil
}

func (c *TaskCache) Create(ctx context.Context, t model.Task) (model.Task, error) {
	created, err := c.TaskRepository.Create(ctx, t)
	if err != nil {
		return model.Task{}, err
	}
	c.evict(ctx, created.OwnerID)
	return created, nil
}

func (c *TaskCache) Update(ctx context.Context, t model.Task) (model.Task, error) {
	updated, err := c.TaskRepository.Update(ctx, t)
	if err != nil {
		return model.Task{}, err
	}
	c.evict(ctx, updated.OwnerID)
	return updated, nil
}

func (c *TaskCache) Delete(ctx context.Context, id string) error {
	// владельца нужно знать до удаления
	existing, getErr := c.TaskRepository.Get(ctx, id)
	if err := c.TaskRepository.Delete(ctx, id); err != nil {
		return err
	}
	if getErr == nil {
		c.evict(ctx, existing.OwnerID)
	}
	return nil
}

// Ping проверяет и базу, и Redis.
func (c *TaskCache) Ping(ctx context.Context) error {
	if p, ok := c.TaskRepository.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	return c.redis.Ping(ctx).Err()
}

func (c *TaskCache) load(ctx context.Context, ownerID string) ([]model.Task, bool) {
	data, err := c.redis.Get(ctx, tasksKey(ownerID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis get failed", zap.String("owner", ownerID), zap.Error(err))
		}
		return nil, false
	}
	var tasks []model.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksKey(ownerID)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *TaskCache) generation(ctx context.Context, ownerID string) (int64, error) {
	gen, err := c.redis.Get(ctx, generationKey(ownerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// store writes the list only while the owner's generation still equals gen,
// so a read that raced with a write never refills the cache with old data.
func (c *TaskCache) store(ctx context.Context, ownerID string, gen int64, tasks []model.Task) {
	if c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}

	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey(ownerID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, tasksKey(ownerID), data, c.ttl)
			return nil
		})
		return err
	}, generationKey(ownerID))

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("skipping stale cache fill", zap.String("owner", ownerID))
	default:
		c.logger.Warn("redis set failed", zap.String("owner", ownerID), zap.Error(err))
	}
}

func (c *TaskCache) evict(ctx context.Context, ownerID string) {
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(ownerID))
		pipe.Expire(ctx, generationKey(ownerID), generationTTL)
		pipe.Del(ctx, tasksKey(ownerID))
		return nil
	})
	if err != nil {
		c.logger.Warn("redis evict failed", zap.String("owner", ownerID), zap.Error(err))
	}
}

func tasksKey(ownerID string) string {
	return "tasks:" + ownerID
}

func generationKey(ownerID string) string {
	return "tasks:gen:" + ownerID
}
