package repo

import (
	"context"
	"time"

	"github.com/BuzzLyutic/kanban-board/internal/model"
)

// TaskRepository определяет интерфейс для работы с задачами.
// Все выборки списков ограничены владельцем.
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, id string) (model.Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error)
	// MaxOrder returns the highest order in the owner's column and false when the column is empty.
	MaxOrder(ctx context.Context, ownerID string, status model.Status) (int64, bool, error)
	Update(ctx context.Context, t model.Task) (model.Task, error)
	Delete(ctx context.Context, id string) error
	SaveIdempotencyKey(ctx context.Context, ownerID, key, taskID string) error
	GetIdempotencyKey(ctx context.Context, ownerID, key string) (string, error)
}

// IdempotencyStore is the part of the task storage the janitor needs.
type IdempotencyStore interface {
	PurgeIdempotencyKeys(ctx context.Context, before time.Time) (int64, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
}
