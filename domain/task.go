package domain

import (
	"cmp"
	"encoding/json"
	"slices"
	"time"
)

// Task represents a unit of work belonging to exactly one board.
// Pointer fields are replaced, never mutated in place, so a shallow copy is a snapshot.
type Task struct {
	ID          string     `json:"id"`
	BoardID     string     `json:"boardId"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    *Priority  `json:"priority,omitempty"`
	AssignedTo  *string    `json:"assignedTo,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Position    *int       `json:"position,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskPatch carries validated, typed changes. Only set fields are applied.
type TaskPatch struct {
	Title       Optional[string]
	Description Optional[string]
	Status      Optional[Status]
	Priority    Optional[Priority]
	AssignedTo  Optional[string]
	DueDate     Optional[time.Time]
	Position    Optional[int]
}

func (p TaskPatch) IsEmpty() bool {
	return !p.Title.IsSet() && !p.Description.IsSet() && !p.Status.IsSet() && !p.Priority.IsSet() &&
		!p.AssignedTo.IsSet() && !p.DueDate.IsSet() && !p.Position.IsSet()
}

// Apply merges the patch into t and advances UpdatedAt.
func (t *Task) Apply(p TaskPatch, now time.Time) {
	if v, ok := p.Title.Get(); ok {
		t.Title = v
	}
	if p.Description.IsSet() {
		t.Description = p.Description.Ptr()
	}
	if v, ok := p.Status.Get(); ok {
		t.Status = v
	}
	if p.Priority.IsSet() {
		t.Priority = p.Priority.Ptr()
	}
	if p.AssignedTo.IsSet() {
		t.AssignedTo = p.AssignedTo.Ptr()
	}
	if p.DueDate.IsSet() {
		t.DueDate = p.DueDate.Ptr()
	}
	if p.Position.IsSet() {
		t.Position = p.Position.Ptr()
	}
	t.UpdatedAt = now
}

// TaskInput is the caller-facing create payload. Status is deliberately absent: new tasks start as todo.
type TaskInput struct {
	BoardID     Optional[string] `json:"boardId"`
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	Priority    Optional[string] `json:"priority"`
	AssignedTo  Optional[string] `json:"assignedTo"`
	DueDate     Optional[string] `json:"dueDate"`
	Position    Optional[int]    `json:"position"`

	// IdempotencyKey travels out of band (Idempotency-Key header).
	IdempotencyKey string `json:"-"`
}

func (in TaskInput) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 7)
	putOptional(m, "boardId", in.BoardID)
	putOptional(m, "title", in.Title)
	putOptional(m, "description", in.Description)
	putOptional(m, "priority", in.Priority)
	putOptional(m, "assignedTo", in.AssignedTo)
	putOptional(m, "dueDate", in.DueDate)
	putOptional(m, "position", in.Position)
	return json.Marshal(m)
}

// TaskUpdateInput is the caller-facing partial update payload.
type TaskUpdateInput struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	Status      Optional[string] `json:"status"`
	Priority    Optional[string] `json:"priority"`
	AssignedTo  Optional[string] `json:"assignedTo"`
	DueDate     Optional[string] `json:"dueDate"`
	Position    Optional[int]    `json:"position"`
}

func (in TaskUpdateInput) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 7)
	putOptional(m, "title", in.Title)
	putOptional(m, "description", in.Description)
	putOptional(m, "status", in.Status)
	putOptional(m, "priority", in.Priority)
	putOptional(m, "assignedTo", in.AssignedTo)
	putOptional(m, "dueDate", in.DueDate)
	putOptional(m, "position", in.Position)
	return json.Marshal(m)
}

// CompareTasks orders by position ascending (positioned tasks first), then newest first, then id.
func CompareTasks(a, b Task) int {
	switch {
	case a.Position != nil && b.Position == nil:
		return -1
	case a.Position == nil && b.Position != nil:
		return 1
	case a.Position != nil && b.Position != nil && *a.Position != *b.Position:
		return cmp.Compare(*a.Position, *b.Position)
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortTasks sorts in place using CompareTasks.
func SortTasks(tasks []Task) {
	slices.SortStableFunc(tasks, CompareTasks)
}
