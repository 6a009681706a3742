package repo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/BuzzLyutic/kanban-board/internal/model"
)

type idempotencyEntry struct {
	taskID    string
	createdAt time.Time
}

// MemoryRepo хранит задачи и пользователей в памяти процесса.
// Используется в тестах и при запуске без DATABASE_URL.
type MemoryRepo struct {
	mu    sync.RWMutex
	tasks map[string]model.Task
	users map[string]model.User
	keys  map[string]idempotencyEntry
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		tasks: make(map[string]model.Task),
		users: make(map[string]model.User),
		keys:  make(map[string]idempotencyEntry),
		now:   time.Now,
	}
}

func (r *MemoryRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; ok {
		return model.Task{}, ErrorConflict
	}
	now := r.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	r.tasks[t.ID] = t
	return t, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return model.Task{}, ErrorNotFound
	}
	return t, nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]model.Task, 0)
	for _, t := range r.tasks {
		if t.OwnerID == ownerID {
			tasks = append(tasks, t)
		}
	}
	model.SortTasks(tasks)
	return tasks, nil
}

func (r *MemoryRepo) MaxOrder(ctx context.Context, ownerID string, status model.Status) (int64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		max   int64
		found bool
	)
	for _, t := range r.tasks {
		if t.OwnerID != ownerID || t.Status != status {
			continue
		}
		if !found || t.Order > max {
			max = t.Order
			found = true
		}
	}
	return max, found, nil
}

func (r *MemoryRepo) Update(ctx context.Context, t model.Task) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.tasks[t.ID]
	if !ok {
		return model.Task{}, ErrorNotFound
	}
	t.OwnerID = existing.OwnerID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = r.now()
	r.tasks[t.ID] = t
	return t, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return ErrorNotFound
	}
	delete(r.tasks, id)
	return nil
}

func idempotencyMapKey(ownerID, key string) string {
	return ownerID + "\x00" + key
}

func (r *MemoryRepo) SaveIdempotencyKey(ctx context.Context, ownerID, key, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := idempotencyMapKey(ownerID, key)
	if _, ok := r.keys[k]; !ok {
		r.keys[k] = idempotencyEntry{taskID: taskID, createdAt: r.now()}
	}
	return nil
}

func (r *MemoryRepo) GetIdempotencyKey(ctx context.Context, ownerID, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.keys[idempotencyMapKey(ownerID, key)]
	if !ok {
		return "", ErrorNotFound
	}
	return e.taskID, nil
}

func (r *MemoryRepo) PurgeIdempotencyKeys(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for k, e := range r.keys {
		if e.createdAt.Before(before) {
			delete(r.keys, k)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return model.User{}, ErrorConflict
		}
	}
	u.CreatedAt = r.now()
	r.users[u.ID] = u
	return u, nil
}

func (r *MemoryRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, ErrorNotFound
}

func (r *MemoryRepo) GetUser(ctx context.Context, id string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return model.User{}, ErrorNotFound
	}
	return u, nil
}

func (r *MemoryRepo) Ping(ctx context.Context) error {
	return nil
}
