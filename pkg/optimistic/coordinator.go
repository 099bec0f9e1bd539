// Package optimistic keeps a client-side view of one board's tasks and applies changes to it
// before the server answers. Each change is confirmed in place or rolled back to the view as it
// was right before the change, with the changes confirmed since then replayed on top.
package optimistic

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
)

// PlaceholderPrefix marks tasks that exist only in the view.
const PlaceholderPrefix = "pending-"

// Remote is the authoritative side. Both the in-process use case and the HTTP client satisfy it.
type Remote interface {
	ListTasks(ctx context.Context, boardID string) ([]domain.Task, error)
	CreateTask(ctx context.Context, in domain.TaskInput) (*domain.Task, error)
	UpdateTask(ctx context.Context, id string, in domain.TaskUpdateInput) (*domain.Task, error)
	DeleteTask(ctx context.Context, id string) (*domain.Task, error)
}

type Option func(*Coordinator)

// WithLogger sets the logger used for settle events.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOnSettle registers a callback that receives every outcome exactly once.
func WithOnSettle(fn func(Outcome)) Option {
	return func(c *Coordinator) { c.onSettle = fn }
}

type Coordinator struct {
	remote   Remote
	logger   *zap.Logger
	onSettle func(Outcome)
	now      func() time.Time

	mu      sync.Mutex
	boardID string
	tasks   []domain.Task
	pending int

	// confirmed holds effects settled while other mutations were pending. Entry i has
	// sequence number confirmedBase+i; it is cleared whenever nothing is pending.
	confirmed     []effect
	confirmedBase int
}

// effect is a confirmed server answer that a later rollback must not undo.
type effect struct {
	kind Kind
	id   string
	task domain.Task
}

func New(remote Remote, opts ...Option) *Coordinator {
	c := &Coordinator{
		remote: remote,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load replaces the view with the authoritative list for boardID.
func (c *Coordinator) Load(ctx context.Context, boardID string) error {
	tasks, err := c.remote.ListTasks(ctx, boardID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.boardID = boardID
	c.tasks = slices.Clone(tasks)
	c.mu.Unlock()
	return nil
}

// Tasks returns a copy of the current view.
func (c *Coordinator) Tasks() []domain.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.tasks)
}

func (c *Coordinator) BoardID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boardID
}

// Pending returns the number of mutations that have not settled yet.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// CreateTask inserts a placeholder task and asks the remote to create it. The placeholder id
// is sent as the idempotency key unless the caller set one.
func (c *Coordinator) CreateTask(ctx context.Context, in domain.TaskInput) *Mutation {
	draft, err := domain.ValidateTaskInput(in)
	if err != nil {
		return c.reject(KindCreate, "", err)
	}

	placeholder := PlaceholderPrefix + uuid.NewString()
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = placeholder
	}
	ts := c.now()
	draft.ID = placeholder
	draft.CreatedAt = ts
	draft.UpdatedAt = ts

	m := newMutation(KindCreate, placeholder)
	snapshot, mark := c.apply(func(tasks []domain.Task, boardID string) []domain.Task {
		if draft.BoardID != boardID {
			return tasks
		}
		tasks = append(tasks, *draft)
		domain.SortTasks(tasks)
		return tasks
	})

	go c.settle(ctx, m, snapshot, mark, func(ctx context.Context) (*domain.Task, error) {
		return c.remote.CreateTask(ctx, in)
	})
	return m
}

// UpdateTask applies the patch to the task in the view and asks the remote to persist it.
func (c *Coordinator) UpdateTask(ctx context.Context, id string, in domain.TaskUpdateInput) *Mutation {
	patch, err := domain.ValidateTaskUpdate(in)
	if err != nil {
		return c.reject(KindUpdate, id, err)
	}

	m := newMutation(KindUpdate, id)
	ts := c.now()
	snapshot, mark := c.apply(func(tasks []domain.Task, _ string) []domain.Task {
		i := indexOf(tasks, id)
		if i < 0 {
			return tasks
		}
		tasks[i].Apply(patch, ts)
		return tasks
	})

	go c.settle(ctx, m, snapshot, mark, func(ctx context.Context) (*domain.Task, error) {
		return c.remote.UpdateTask(ctx, id, in)
	})
	return m
}

// DeleteTask removes the task from the view and asks the remote to delete it.
func (c *Coordinator) DeleteTask(ctx context.Context, id string) *Mutation {
	m := newMutation(KindDelete, id)
	snapshot, mark := c.apply(func(tasks []domain.Task, _ string) []domain.Task {
		if i := indexOf(tasks, id); i >= 0 {
			return slices.Delete(tasks, i, i+1)
		}
		return tasks
	})

	go c.settle(ctx, m, snapshot, mark, func(ctx context.Context) (*domain.Task, error) {
		return c.remote.DeleteTask(ctx, id)
	})
	return m
}

// apply snapshots the view and runs change on a private copy, which then becomes the view.
// mark is the sequence number the next confirmed effect will get.
func (c *Coordinator) apply(change func(tasks []domain.Task, boardID string) []domain.Task) ([]domain.Task, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := slices.Clone(c.tasks)
	c.tasks = change(slices.Clone(c.tasks), c.boardID)
	c.pending++
	return snapshot, c.confirmedBase + len(c.confirmed)
}

type result struct {
	task *domain.Task
	err  error
}

func (c *Coordinator) settle(ctx context.Context, m *Mutation, snapshot []domain.Task, mark int, call func(context.Context) (*domain.Task, error)) {
	// buffered so a late answer never blocks the caller goroutine
	results := make(chan result, 1)
	go func() {
		task, err := call(ctx)
		results <- result{task: task, err: err}
	}()

	select {
	case <-ctx.Done():
		c.rollback(m, snapshot, mark, ctx.Err())
	case r := <-results:
		if r.err != nil {
			c.rollback(m, snapshot, mark, r.err)
			return
		}
		c.confirm(m, r.task)
	}
}

func (c *Coordinator) confirm(m *Mutation, task *domain.Task) {
	c.mu.Lock()
	if task != nil {
		e := effect{kind: m.kind, id: m.taskID, task: *task}
		c.tasks = e.applyTo(c.tasks, c.boardID)
		c.confirmed = append(c.confirmed, e)
	}
	c.done()
	c.mu.Unlock()

	c.finish(m, Confirmed, task, nil)
}

// rollback restores the pre-mutation snapshot and replays every effect confirmed after it was
// taken, so a placeholder confirmed in the meantime is not brought back.
func (c *Coordinator) rollback(m *Mutation, snapshot []domain.Task, mark int, err error) {
	c.mu.Lock()
	tasks := snapshot
	for i := max(mark-c.confirmedBase, 0); i < len(c.confirmed); i++ {
		tasks = c.confirmed[i].applyTo(tasks, c.boardID)
	}
	c.tasks = tasks
	c.done()
	c.mu.Unlock()

	c.logger.Warn("optimistic change rolled back",
		zap.String("kind", string(m.kind)),
		zap.String("task_id", m.taskID),
		zap.Error(err),
	)
	c.finish(m, RolledBack, nil, err)
}

// done marks one mutation settled. Callers hold mu.
func (c *Coordinator) done() {
	c.pending--
	if c.pending == 0 {
		c.confirmedBase += len(c.confirmed)
		c.confirmed = nil
	}
}

func (e effect) applyTo(tasks []domain.Task, boardID string) []domain.Task {
	switch e.kind {
	case KindCreate, KindUpdate:
		return replace(tasks, e.id, e.task, boardID)
	case KindDelete:
		if i := indexOf(tasks, e.task.ID); i >= 0 {
			return slices.Delete(slices.Clone(tasks), i, i+1)
		}
	}
	return tasks
}

// reject settles a mutation that failed local validation; the view is never touched.
func (c *Coordinator) reject(kind Kind, id string, err error) *Mutation {
	m := newMutation(kind, id)
	c.finish(m, RolledBack, nil, err)
	return m
}

func (c *Coordinator) finish(m *Mutation, state State, task *domain.Task, err error) {
	if !m.settle(state, task, err) {
		return
	}
	if c.onSettle != nil {
		c.onSettle(m.Outcome())
	}
}

func indexOf(tasks []domain.Task, id string) int {
	return slices.IndexFunc(tasks, func(t domain.Task) bool { return t.ID == id })
}

// replace swaps the record with id for task at the same index. When the record is gone from
// the view the task is inserted in order, provided it belongs to the loaded board.
func replace(tasks []domain.Task, id string, task domain.Task, boardID string) []domain.Task {
	if i := indexOf(tasks, id); i >= 0 {
		tasks = slices.Clone(tasks)
		tasks[i] = task
		return tasks
	}
	if task.BoardID != boardID || indexOf(tasks, task.ID) >= 0 {
		return tasks
	}
	tasks = append(slices.Clone(tasks), task)
	domain.SortTasks(tasks)
	return tasks
}
