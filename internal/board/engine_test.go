package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/kanban-board/internal/model"
)

func seedTasks() []model.Task {
	now := time.Now()
	return []model.Task{
		{ID: "a", Title: "A", Status: model.StatusTodo, Order: 0, CreatedAt: now},
		{ID: "b", Title: "B", Status: model.StatusTodo, Order: 1, CreatedAt: now.Add(time.Second)},
	}
}

func newTestEngine(t *testing.T) (*Engine, *fakeAPI, *recordingNotifier) {
	t.Helper()

	api := newFakeAPI(seedTasks()...)
	n := &recordingNotifier{}
	e := NewEngine(api, NewStore(), n, nil)
	require.NoError(t, e.Refresh(context.Background()))
	return e, api, n
}

func TestEngine_MoveTask_Success(t *testing.T) {
	e, api, n := newTestEngine(t)

	m, err := e.MoveTask(context.Background(), "a", model.StatusInProgress)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, Committed, m.State)
	assert.Equal(t, MutationMove, m.Kind)

	got, ok := e.Store().Get("a")
	require.True(t, ok)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.Equal(t, int64(0), got.Order, "move does not recompute order")

	dest := model.StatusInProgress
	require.Len(t, api.patches, 1)
	assert.Equal(t, model.TaskPatch{Status: &dest}, api.patches[0], "request carries only status")
	assert.Equal(t, []string{"Task moved successfully"}, n.successes)
}

func TestEngine_MoveTask_SameStatusIsNoop(t *testing.T) {
	e, api, n := newTestEngine(t)
	before := e.Store().All()

	m, err := e.MoveTask(context.Background(), "a", model.StatusTodo)
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Equal(t, 0, api.count("UpdateTask"))
	assert.Equal(t, before, e.Store().All())
	assert.Empty(t, n.successes)
}

func TestEngine_MoveTask_Rejects(t *testing.T) {
	e, api, _ := newTestEngine(t)

	_, err := e.MoveTask(context.Background(), "missing", model.StatusDone)
	assert.ErrorIs(t, err, ErrUnknownTask)

	_, err = e.MoveTask(context.Background(), "a", model.Status("archived"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	assert.Equal(t, 0, api.count("UpdateTask"))
}

func TestEngine_MoveTask_FailureResyncs(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
	}{
		{"network error", errNetwork},
		{"non-2xx", &APIError{Status: 500, Message: "Internal server error"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e, api, n := newTestEngine(t)
			ctx := context.Background()

			// сервер успел измениться с момента загрузки
			_, err := api.CreateTask(ctx, model.CreateTaskInput{Title: "C", Priority: model.PriorityLow})
			require.NoError(t, err)
			api.fail("UpdateTask", tc.err)

			m, err := e.MoveTask(ctx, "a", model.StatusDone)
			assert.ErrorIs(t, err, tc.err)
			require.NotNil(t, m)
			assert.Equal(t, RolledBack, m.State)
			assert.ErrorIs(t, m.Err, tc.err)

			fresh, err := api.ListTasks(ctx)
			require.NoError(t, err)
			assert.Equal(t, fresh, e.Store().All(), "local list equals a fresh fetch")
			assert.Equal(t, []string{"Failed to move task"}, n.errors)
			assert.Equal(t, 1, api.count("UpdateTask"), "no retry")
		})
	}
}

func TestEngine_MoveTask_FailedResyncRevertsOnlyMovedTask(t *testing.T) {
	e, api, n := newTestEngine(t)
	before := e.Store().All()

	api.fail("UpdateTask", errNetwork)
	api.fail("ListTasks", errNetwork)

	m, err := e.MoveTask(context.Background(), "a", model.StatusDone)
	assert.Error(t, err)
	assert.Equal(t, RolledBack, m.State)
	assert.Equal(t, before, e.Store().All())
	assert.Equal(t, []string{"Failed to move task", "Failed to load tasks"}, n.errors)
}

// slowUpdateAPI держит UpdateTask, пока тест не отпустит его.
type slowUpdateAPI struct {
	*fakeAPI
	entered chan struct{}
	release chan struct{}
}

func (s *slowUpdateAPI) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	close(s.entered)
	<-s.release
	return s.fakeAPI.UpdateTask(ctx, id, patch)
}

func TestEngine_MoveTask_FailedResyncKeepsConcurrentCreate(t *testing.T) {
	api := &slowUpdateAPI{
		fakeAPI: newFakeAPI(seedTasks()...),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	n := &recordingNotifier{}
	e := NewEngine(api, NewStore(), n, nil)
	ctx := context.Background()
	require.NoError(t, e.Refresh(ctx))

	done := make(chan error)
	go func() {
		_, err := e.MoveTask(ctx, "a", model.StatusDone)
		done <- err
	}()

	<-api.entered
	got, _ := e.Store().Get("a")
	assert.Equal(t, model.StatusDone, got.Status, "move is shown before the server answers")

	_, err := e.CreateTask(ctx, model.CreateTaskInput{Title: "C", Priority: model.PriorityLow})
	require.NoError(t, err)

	api.fail("UpdateTask", errNetwork)
	api.fail("ListTasks", errNetwork)
	close(api.release)
	assert.ErrorIs(t, <-done, errNetwork)

	_, ok := e.Store().Get("srv-C")
	assert.True(t, ok, "task confirmed during the move survives")
	got, _ = e.Store().Get("a")
	assert.Equal(t, model.StatusTodo, got.Status)
	assert.Equal(t, 3, e.Store().Len())
	assert.Equal(t, []string{"Failed to move task", "Failed to load tasks"}, n.errors)
}

func TestEngine_MoveTask_CancelledContextStillResyncs(t *testing.T) {
	e, api, n := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := e.MoveTask(ctx, "a", model.StatusDone)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, RolledBack, m.State)

	fresh, err := api.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, e.Store().All())
	assert.Equal(t, 2, api.count("ListTasks"), "refresh plus resync")
	assert.Equal(t, []string{"Failed to move task"}, n.errors)
}

func TestEngine_CreateTask(t *testing.T) {
	e, api, n := newTestEngine(t)
	ctx := context.Background()

	m, err := e.CreateTask(ctx, model.CreateTaskInput{Title: "C", Priority: model.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, Committed, m.State)
	assert.Equal(t, "srv-C", m.TaskID)

	all := e.Store().All()
	require.Len(t, all, 3)
	assert.Equal(t, "srv-C", all[0].ID, "new task is prepended")
	assert.Equal(t, int64(2), all[0].Order)
	assert.Equal(t, []string{"Task created successfully"}, n.successes)

	api.fail("CreateTask", errNetwork)
	m, err = e.CreateTask(ctx, model.CreateTaskInput{Title: "D", Priority: model.PriorityLow})
	assert.ErrorIs(t, err, errNetwork)
	assert.Equal(t, RolledBack, m.State)
	assert.Equal(t, 3, e.Store().Len(), "failure leaves state unchanged")
	assert.Equal(t, 1, api.count("ListTasks"), "create failure does not refetch")
}

func TestEngine_EditTask(t *testing.T) {
	e, api, n := newTestEngine(t)
	ctx := context.Background()
	title := "A renamed"

	m, err := e.EditTask(ctx, "a", model.TaskPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, Committed, m.State)
	got, _ := e.Store().Get("a")
	assert.Equal(t, title, got.Title)

	api.fail("UpdateTask", &APIError{Status: 400, Message: "validation error"})
	other := "nope"
	before := e.Store().All()
	m, err = e.EditTask(ctx, "a", model.TaskPatch{Title: &other})
	assert.Error(t, err)
	assert.Equal(t, RolledBack, m.State)
	assert.Equal(t, before, e.Store().All())
	assert.Equal(t, []string{"Failed to update task"}, n.errors)

	_, err = e.EditTask(ctx, "missing", model.TaskPatch{Title: &title})
	assert.ErrorIs(t, err, ErrUnknownTask)
}

// blockingAPI держит DeleteTask, пока тест не отпустит его.
type blockingAPI struct {
	*fakeAPI
	entered chan struct{}
	release chan struct{}
}

func (b *blockingAPI) DeleteTask(ctx context.Context, id string) error {
	close(b.entered)
	<-b.release
	return b.fakeAPI.DeleteTask(ctx, id)
}

func TestEngine_DeleteTask_RemovesAfterConfirmation(t *testing.T) {
	api := &blockingAPI{
		fakeAPI: newFakeAPI(seedTasks()...),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	e := NewEngine(api, NewStore(), nil, nil)
	require.NoError(t, e.Refresh(context.Background()))

	done := make(chan *Mutation)
	go func() {
		m, _ := e.DeleteTask(context.Background(), "b")
		done <- m
	}()

	<-api.entered
	_, ok := e.Store().Get("b")
	assert.True(t, ok, "task stays while the request is in flight")

	close(api.release)
	m := <-done
	assert.Equal(t, Committed, m.State)
	_, ok = e.Store().Get("b")
	assert.False(t, ok)
}

func TestEngine_DeleteTask_Failure(t *testing.T) {
	e, api, n := newTestEngine(t)
	api.fail("DeleteTask", &APIError{Status: 403, Message: "Forbidden"})

	m, err := e.DeleteTask(context.Background(), "a")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Status)
	assert.Equal(t, RolledBack, m.State)
	assert.Equal(t, 2, e.Store().Len())
	assert.Equal(t, []string{"Failed to delete task"}, n.errors)
}

func TestEngine_Refresh_FailureKeepsState(t *testing.T) {
	e, api, n := newTestEngine(t)
	before := e.Store().All()

	api.fail("ListTasks", errNetwork)
	assert.ErrorIs(t, e.Refresh(context.Background()), errNetwork)
	assert.Equal(t, before, e.Store().All())
	assert.Equal(t, []string{"Failed to load tasks"}, n.errors)
}
