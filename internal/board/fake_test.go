package board

import (
	"context"
	"errors"
	"sync"

	"github.com/BuzzLyutic/kanban-board/internal/model"
)

var errNetwork = errors.New("network down")

// fakeAPI — серверная сторона в памяти с управляемыми сбоями.
type fakeAPI struct {
	mu      sync.Mutex
	tasks   []model.Task
	failOn  map[string]error
	calls   map[string]int
	patches []model.TaskPatch
}

func newFakeAPI(tasks ...model.Task) *fakeAPI {
	return &fakeAPI{
		tasks:  append([]model.Task(nil), tasks...),
		failOn: make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeAPI) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[method] = err
}

func (f *fakeAPI) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeAPI) enter(ctx context.Context, method string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.failOn[method]
}

func (f *fakeAPI) ListTasks(ctx context.Context) ([]model.Task, error) {
	if err := f.enter(ctx, "ListTasks"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]model.Task(nil), f.tasks...)
	model.SortTasks(out)
	return out, nil
}

func (f *fakeAPI) CreateTask(ctx context.Context, in model.CreateTaskInput) (model.Task, error) {
	if err := f.enter(ctx, "CreateTask"); err != nil {
		return model.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var order int64
	for _, t := range f.tasks {
		if t.Status == model.StatusTodo && t.Order >= order {
			order = t.Order + 1
		}
	}
	t := model.Task{
		ID:       "srv-" + in.Title,
		Title:    in.Title,
		Priority: in.Priority,
		Status:   model.StatusTodo,
		Order:    order,
	}
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *fakeAPI) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	if err := f.enter(ctx, "UpdateTask"); err != nil {
		return model.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			patch.Apply(&f.tasks[i])
			return f.tasks[i], nil
		}
	}
	return model.Task{}, &APIError{Status: 404, Message: "Task not found"}
}

func (f *fakeAPI) DeleteTask(ctx context.Context, id string) error {
	if err := f.enter(ctx, "DeleteTask"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return &APIError{Status: 404, Message: "Task not found"}
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}
