package board

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid mutation transition")

type MutationKind string

const (
	MutationMove   MutationKind = "move"
	MutationCreate MutationKind = "create"
	MutationEdit   MutationKind = "edit"
	MutationDelete MutationKind = "delete"
)

type MutationState int

const (
	Pending MutationState = iota
	Committed
	RolledBack
)

func (s MutationState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	}
	return fmt.Sprintf("MutationState(%d)", int(s))
}

// Mutation tracks one change sent to the server: Pending until the
// response, then Committed or RolledBack. Both end states are final.
type Mutation struct {
	Kind   MutationKind
	TaskID string
	State  MutationState
	Err    error
}

func newMutation(kind MutationKind, taskID string) *Mutation {
	return &Mutation{Kind: kind, TaskID: taskID, State: Pending}
}

func (m *Mutation) Commit() error {
	if m.State != Pending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.State, Committed)
	}
	m.State = Committed
	return nil
}

func (m *Mutation) Rollback(cause error) error {
	if m.State != Pending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.State, RolledBack)
	}
	m.State = RolledBack
	m.Err = cause
	return nil
}

func (m *Mutation) Done() bool {
	return m.State != Pending
}
