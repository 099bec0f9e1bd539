package optimistic

import (
	"context"
	"sync"

	"github.com/fastygo/taskboard/domain"
)

// State is the lifecycle of a tentative change.
type State int

const (
	Pending State = iota
	Confirmed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Kind names the operation a mutation performs.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Outcome describes a settled mutation. Task is the authoritative record on confirmation.
type Outcome struct {
	Kind   Kind
	TaskID string
	State  State
	Task   *domain.Task
	Err    error
}

// Mutation tracks one tentative change until it is confirmed or rolled back.
type Mutation struct {
	kind   Kind
	taskID string

	once    sync.Once
	done    chan struct{}
	mu      sync.Mutex
	outcome Outcome
}

func newMutation(kind Kind, taskID string) *Mutation {
	return &Mutation{
		kind:    kind,
		taskID:  taskID,
		done:    make(chan struct{}),
		outcome: Outcome{Kind: kind, TaskID: taskID, State: Pending},
	}
}

// TaskID is the id the mutation targets. For creates this is the placeholder id.
func (m *Mutation) TaskID() string { return m.taskID }

func (m *Mutation) Kind() Kind { return m.kind }

// Done is closed once the mutation has settled.
func (m *Mutation) Done() <-chan struct{} { return m.done }

// Outcome returns the current outcome; State is Pending until Done is closed.
func (m *Mutation) Outcome() Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcome
}

// Wait blocks until the mutation settles or ctx ends.
func (m *Mutation) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-m.done:
		return m.Outcome(), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// settle records the outcome once. It reports whether this call won.
func (m *Mutation) settle(state State, task *domain.Task, err error) bool {
	won := false
	m.once.Do(func() {
		m.mu.Lock()
		m.outcome.State = state
		m.outcome.Task = task
		m.outcome.Err = err
		m.mu.Unlock()
		close(m.done)
		won = true
	})
	return won
}
