package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/kanban-board/internal/metrics"
	"github.com/BuzzLyutic/kanban-board/internal/repo"
)

// Janitor периодически удаляет ключи идемпотентности старше ttl.
type Janitor struct {
	store    repo.IdempotencyStore
	logger   *zap.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

func NewJanitor(store repo.IdempotencyStore, logger *zap.Logger, m *metrics.Metrics, interval, ttl time.Duration) *Janitor {
	return &Janitor{
		store:    store,
		logger:   logger,
		metrics:  m,
		interval: interval,
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("Starting idempotency janitor",
		zap.Duration("interval", j.interval),
		zap.Duration("ttl", j.ttl),
	)

	j.wg.Add(1)
	go j.loop(ctx)
}

// Stop ждет завершения текущего прохода. Повторный вызов безопасен.
func (j *Janitor) Stop() {
	j.once.Do(func() {
		j.logger.Info("Stopping idempotency janitor...")
		close(j.stop)
	})
	j.wg.Wait()
}

func (j *Janitor) loop(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil && ctx.Err() == nil {
				j.logger.Error("janitor sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep удаляет просроченные ключи один раз.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	n, err := j.store.PurgeIdempotencyKeys(ctx, j.now().Add(-j.ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.logger.Info("Purged idempotency keys", zap.Int64("count", n))
		if j.metrics != nil {
			j.metrics.KeysPurged.Add(float64(n))
		}
	}
	return n, nil
}
