package board

import (
	"strings"

	"github.com/BuzzLyutic/kanban-board/internal/model"
)

// PriorityAll matches every priority.
const PriorityAll model.Priority = "all"

// Filter is the board's search box plus the priority toggle.
type Filter struct {
	Query    string
	Priority model.Priority
}

func (f Filter) Match(t model.Task) bool {
	if f.Priority != "" && f.Priority != PriorityAll && t.Priority != f.Priority {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

// Apply keeps the matching tasks in their original order.
func (f Filter) Apply(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
