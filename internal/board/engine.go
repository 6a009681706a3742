package board

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/kanban-board/internal/model"
)

var (
	ErrUnknownTask   = errors.New("task is not on the board")
	ErrInvalidStatus = errors.New("invalid status")
)

// Engine applies user intents to the local Store and the remote API.
//
// Moves are shown before the server answers; a failed move reloads the list
// from the server, and if that fails as well only the moved task goes back. Create, edit and delete change the Store only
// after the server confirms. Overlapping moves are not de-duplicated.
type Engine struct {
	api    API
	store  *Store
	notify Notifier
	logger *zap.Logger
}

func NewEngine(api API, store *Store, notify Notifier, logger *zap.Logger) *Engine {
	if notify == nil {
		notify = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{api: api, store: store, notify: notify, logger: logger}
}

func (e *Engine) Store() *Store {
	return e.store
}

// Refresh replaces the local list with the server's. On failure the store is left as is.
func (e *Engine) Refresh(ctx context.Context) error {
	tasks, err := e.api.ListTasks(ctx)
	if err != nil {
		e.logger.Warn("failed to load tasks", zap.Error(err))
		e.notify.Error("Failed to load tasks")
		return err
	}
	e.store.ReplaceAll(tasks)
	return nil
}

// MoveTask moves a task to another column. Moving into the column the task
// is already in does nothing and returns a nil mutation.
func (e *Engine) MoveTask(ctx context.Context, id string, dest model.Status) (*Mutation, error) {
	if !dest.Valid() {
		return nil, ErrInvalidStatus
	}
	task, ok := e.store.Get(id)
	if !ok {
		return nil, ErrUnknownTask
	}
	if task.Status == dest {
		return nil, nil
	}

	prev := task.Status
	m := newMutation(MutationMove, id)
	e.store.SetStatus(id, dest)

	updated, err := e.api.UpdateTask(ctx, id, model.TaskPatch{Status: &dest})
	if err != nil {
		_ = m.Rollback(err)
		e.logger.Warn("move failed", zap.String("task_id", id), zap.String("status", string(dest)), zap.Error(err))
		e.notify.Error("Failed to move task")
		e.resync(ctx, id, prev, dest)
		return m, err
	}

	e.store.Replace(updated)
	_ = m.Commit()
	e.notify.Success("Task moved successfully")
	return m, nil
}

// resync reloads the whole list after a failed move. The reload does not
// inherit the caller's cancellation. If it fails too, the moved task returns
// to prev unless something has moved it away from dest in the meantime;
// the rest of the list is left alone.
func (e *Engine) resync(ctx context.Context, id string, prev, dest model.Status) {
	tasks, err := e.api.ListTasks(context.WithoutCancel(ctx))
	if err != nil {
		e.logger.Warn("resync failed, reverting moved task", zap.String("task_id", id), zap.Error(err))
		e.notify.Error("Failed to load tasks")
		e.store.SwapStatus(id, dest, prev)
		return
	}
	e.store.ReplaceAll(tasks)
}

// CreateTask adds the server's task to the front of the local list.
func (e *Engine) CreateTask(ctx context.Context, in model.CreateTaskInput) (*Mutation, error) {
	m := newMutation(MutationCreate, "")

	created, err := e.api.CreateTask(ctx, in)
	if err != nil {
		_ = m.Rollback(err)
		e.notify.Error("Failed to create task")
		return m, err
	}

	m.TaskID = created.ID
	e.store.Prepend(created)
	_ = m.Commit()
	e.notify.Success("Task created successfully")
	return m, nil
}

func (e *Engine) EditTask(ctx context.Context, id string, patch model.TaskPatch) (*Mutation, error) {
	if _, ok := e.store.Get(id); !ok {
		return nil, ErrUnknownTask
	}
	m := newMutation(MutationEdit, id)

	updated, err := e.api.UpdateTask(ctx, id, patch)
	if err != nil {
		_ = m.Rollback(err)
		e.notify.Error("Failed to update task")
		return m, err
	}

	e.store.Replace(updated)
	_ = m.Commit()
	e.notify.Success("Task updated successfully")
	return m, nil
}

// DeleteTask removes the task once the server has deleted it.
func (e *Engine) DeleteTask(ctx context.Context, id string) (*Mutation, error) {
	if _, ok := e.store.Get(id); !ok {
		return nil, ErrUnknownTask
	}
	m := newMutation(MutationDelete, id)

	if err := e.api.DeleteTask(ctx, id); err != nil {
		_ = m.Rollback(err)
		e.notify.Error("Failed to delete task")
		return m, err
	}

	e.store.Remove(id)
	_ = m.Commit()
	e.notify.Success("Task deleted successfully")
	return m, nil
}
