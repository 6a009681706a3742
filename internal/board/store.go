// Package board is the client side of the Kanban board: a local copy of the
// user's tasks, the move/create/edit/delete engine that keeps it in step with
// the server, and the search and stats helpers a front end renders from.
package board

import (
	"sync"

	"github.com/BuzzLyutic/kanban-board/internal/model"
)

// Store is the local copy of the board. The list keeps insertion order;
// ByStatus gives the sorted column view.
type Store struct {
	mu    sync.RWMutex
	tasks []model.Task
}

func NewStore(tasks ...model.Task) *Store {
	s := &Store{}
	s.ReplaceAll(tasks)
	return s
}

func (s *Store) All() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *Store) Get(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.index(id); i >= 0 {
		return s.tasks[i], true
	}
	return model.Task{}, false
}

// ByStatus returns one column sorted by order, newest first on ties.
func (s *Store) ByStatus(status model.Status) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := make([]model.Task, 0)
	for _, t := range s.tasks {
		if t.Status == status {
			col = append(col, t)
		}
	}
	model.SortTasks(col)
	return col
}

func (s *Store) Prepend(t model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = append([]model.Task{t}, s.tasks...)
}

// Replace swaps the task with the same id. Reports false if it is not in the store.
func (s *Store) Replace(t model.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(t.ID)
	if i < 0 {
		return false
	}
	s.tasks[i] = t
	return true
}

func (s *Store) SetStatus(id string, status model.Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return false
	}
	s.tasks[i].Status = status
	return true
}

// SwapStatus sets the status to next only if it is currently old.
func (s *Store) SwapStatus(id string, old, next model.Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 || s.tasks[i].Status != old {
		return false
	}
	s.tasks[i].Status = next
	return true
}

func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return false
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return true
}

// ReplaceAll discards local state in favour of tasks.
func (s *Store) ReplaceAll(tasks []model.Task) {
	next := make([]model.Task, len(tasks))
	copy(next, tasks)

	s.mu.Lock()
	s.tasks = next
	s.mu.Unlock()
}

// Stats summarizes the whole board. Filters do not apply.
func (s *Store) Stats() model.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Summarize(s.tasks)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func (s *Store) index(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
