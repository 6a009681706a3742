package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/kanban-board/internal/model"
)

func TestMemoryRepo_MaxOrder(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	_, found, err := r.MaxOrder(ctx, "alice", model.StatusTodo)
	require.NoError(t, err)
	assert.False(t, found, "empty column has no max")

	for i, tc := range []struct {
		owner  string
		status model.Status
		order  int64
	}{
		{"alice", model.StatusTodo, 3},
		{"alice", model.StatusTodo, 1},
		{"alice", model.StatusDone, 10},
		{"bob", model.StatusTodo, 42},
	} {
		_, err := r.Create(ctx, model.Task{ID: string(rune('a' + i)), OwnerID: tc.owner, Status: tc.status, Order: tc.order})
		require.NoError(t, err)
	}

	max, found, err := r.MaxOrder(ctx, "alice", model.StatusTodo)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(3), max)
}

func TestMemoryRepo_ListByOwner(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	base := time.Now()
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	seed := []model.Task{
		{ID: "d", OwnerID: "alice", Status: model.StatusDone, Order: 0},
		{ID: "t1", OwnerID: "alice", Status: model.StatusTodo, Order: 1},
		{ID: "t0", OwnerID: "alice", Status: model.StatusTodo, Order: 0},
		{ID: "p", OwnerID: "alice", Status: model.StatusInProgress, Order: 0},
		{ID: "other", OwnerID: "bob", Status: model.StatusTodo, Order: 0},
	}
	for _, task := range seed {
		_, err := r.Create(ctx, task)
		require.NoError(t, err)
	}

	tasks, err := r.ListByOwner(ctx, "alice")
	require.NoError(t, err)

	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"t0", "t1", "p", "d"}, ids)
}

func TestMemoryRepo_UpdateDelete(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	created, err := r.Create(ctx, model.Task{ID: "x", OwnerID: "alice", Title: "Old", Status: model.StatusTodo})
	require.NoError(t, err)

	created.Title = "New"
	created.OwnerID = "mallory"
	updated, err := r.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, "alice", updated.OwnerID, "owner is immutable")

	_, err = r.Update(ctx, model.Task{ID: "missing"})
	assert.ErrorIs(t, err, ErrorNotFound)

	require.NoError(t, r.Delete(ctx, "x"))
	assert.ErrorIs(t, r.Delete(ctx, "x"), ErrorNotFound)
	_, err = r.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrorNotFound)
}

func TestMemoryRepo_IdempotencyKeys(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now()
	r.now = func() time.Time { return now }

	require.NoError(t, r.SaveIdempotencyKey(ctx, "alice", "k1", "task-1"))
	require.NoError(t, r.SaveIdempotencyKey(ctx, "alice", "k1", "task-2"))

	id, err := r.GetIdempotencyKey(ctx, "alice", "k1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", id, "first write wins")

	_, err = r.GetIdempotencyKey(ctx, "bob", "k1")
	assert.ErrorIs(t, err, ErrorNotFound, "keys are scoped to the owner")

	n, err := r.PurgeIdempotencyKeys(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = r.GetIdempotencyKey(ctx, "alice", "k1")
	assert.ErrorIs(t, err, ErrorNotFound)
}

func TestMemoryRepo_Users(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	_, err := r.CreateUser(ctx, model.User{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)
	_, err = r.CreateUser(ctx, model.User{ID: "u2", Email: "A@example.com"})
	assert.ErrorIs(t, err, ErrorConflict)

	u, err := r.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = r.GetUser(ctx, "nope")
	assert.ErrorIs(t, err, ErrorNotFound)
}
