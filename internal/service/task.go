package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/kanban-board/internal/model"
	"github.com/BuzzLyutic/kanban-board/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")
	ErrForbidden  = errors.New("forbidden")
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 500
)

type TaskService struct {
	repo  repo.TaskRepository
	newID func() string
}

func NewTaskService(repo repo.TaskRepository) *TaskService {
	return &TaskService{repo: repo, newID: uuid.NewString}
}

// Create кладет задачу в конец колонки todo владельца.
// Чтение максимума и вставка не в транзакции: два параллельных запроса могут получить одинаковый order.
func (s *TaskService) Create(ctx context.Context, ownerID string, in model.CreateTaskInput, idempKey string) (model.Task, error) {
	if err := validateCreate(in); err != nil {
		return model.Task{}, err
	}

	if idempKey != "" { // повторный запрос с тем же ключом возвращает уже созданную задачу
		if existingID, err := s.repo.GetIdempotencyKey(ctx, ownerID, idempKey); err == nil {
			t, err := s.repo.Get(ctx, existingID)
			if errors.Is(err, repo.ErrorNotFound) {
				// задачу по этому ключу уже удалили
				return model.Task{}, fmt.Errorf("%w: idempotency key was used for a deleted task", repo.ErrorConflict)
			}
			return t, err
		} else if !errors.Is(err, repo.ErrorNotFound) {
			return model.Task{}, err
		}
	}

	max, found, err := s.repo.MaxOrder(ctx, ownerID, model.StatusTodo)
	if err != nil {
		return model.Task{}, err
	}
	var order int64
	if found {
		order = max + 1
	}

	created, err := s.repo.Create(ctx, model.Task{
		ID:          s.newID(),
		Title:       in.Title,
		Description: in.Description,
		Status:      model.StatusTodo,
		Priority:    in.Priority,
		Order:       order,
		OwnerID:     ownerID,
	})
	if err != nil {
		return model.Task{}, err
	}

	if idempKey != "" {
		if err := s.repo.SaveIdempotencyKey(ctx, ownerID, idempKey, created.ID); err != nil {
			return created, err
		}
	}
	return created, nil
}

// List returns the owner's board in display order.
func (s *TaskService) List(ctx context.Context, ownerID string) ([]model.Task, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Get returns one of the owner's tasks.
func (s *TaskService) Get(ctx context.Context, ownerID, id string) (model.Task, error) {
	return s.owned(ctx, ownerID, id)
}

// Update applies only the fields present in the patch. Concurrent updates are last write wins.
func (s *TaskService) Update(ctx context.Context, ownerID, id string, patch model.TaskPatch) (model.Task, error) {
	if err := validatePatch(patch); err != nil {
		return model.Task{}, err
	}

	t, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return model.Task{}, err
	}
	patch.Apply(&t)
	return s.repo.Update(ctx, t)
}

func (s *TaskService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *TaskService) Stats(ctx context.Context, ownerID string) (model.Stats, error) {
	tasks, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return model.Stats{}, err
	}
	return model.Summarize(tasks), nil
}

// owned загружает задачу и проверяет владельца: сначала 404, потом 403.
func (s *TaskService) owned(ctx context.Context, ownerID, id string) (model.Task, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if t.OwnerID != ownerID {
		return model.Task{}, ErrForbidden
	}
	return t, nil
}

func validateCreate(in model.CreateTaskInput) error {
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if err := validateDescription(in.Description); err != nil {
		return err
	}
	if !in.Priority.Valid() {
		return fmt.Errorf("%w: priority must be one of low, medium, high", ErrValidation)
	}
	return nil
}

func validatePatch(p model.TaskPatch) error {
	if p.Empty() {
		return fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: status must be one of todo, in_progress, done", ErrValidation)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: priority must be one of low, medium, high", ErrValidation)
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return fmt.Errorf("%w: title too long", ErrValidation)
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return fmt.Errorf("%w: description too long", ErrValidation)
	}
	return nil
}
