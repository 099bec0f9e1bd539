package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTaskApplyOnlyTouchesPresentFields(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	desc := "draft"
	high := PriorityHigh
	task := Task{
		ID:          "t1",
		BoardID:     "b1",
		Title:       "Write copy",
		Description: &desc,
		Status:      StatusTodo,
		Priority:    &high,
		CreatedAt:   created,
		UpdatedAt:   created,
	}

	now := created.Add(time.Hour)
	task.Apply(TaskPatch{Status: Some(StatusDone), Priority: Null[Priority]()}, now)

	if task.Status != StatusDone {
		t.Fatalf("expected done, got %s", task.Status)
	}
	if task.Priority != nil {
		t.Fatalf("expected priority cleared, got %v", *task.Priority)
	}
	if task.Title != "Write copy" || task.Description == nil || *task.Description != "draft" {
		t.Fatalf("untouched fields changed: %+v", task)
	}
	if !task.UpdatedAt.Equal(now) || !task.CreatedAt.Equal(created) {
		t.Fatalf("unexpected timestamps: %+v", task)
	}
}

func TestTaskApplyEmptyPatchOnlyAdvancesUpdatedAt(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	task := Task{ID: "t1", Title: "x", Status: StatusInProgress, CreatedAt: created, UpdatedAt: created}
	before := task

	now := created.Add(time.Minute)
	task.Apply(TaskPatch{}, now)

	before.UpdatedAt = now
	if task != before {
		t.Fatalf("empty patch changed more than updatedAt: %+v", task)
	}
}

func TestSortTasks(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	one, two := 1, 2
	tasks := []Task{
		{ID: "old", CreatedAt: base},
		{ID: "p2", Position: &two, CreatedAt: base},
		{ID: "new", CreatedAt: base.Add(time.Hour)},
		{ID: "p1", Position: &one, CreatedAt: base},
		{ID: "b-tie", CreatedAt: base},
		{ID: "a-tie", CreatedAt: base},
	}

	SortTasks(tasks)

	var ids []string
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	got := strings.Join(ids, ",")
	want := "p1,p2,new,a-tie,b-tie,old"
	if got != want {
		t.Fatalf("unexpected order: got %s want %s", got, want)
	}
}

func TestTaskUpdateInputDistinguishesAbsentAndNull(t *testing.T) {
	var in TaskUpdateInput
	if err := json.Unmarshal([]byte(`{"status":"done","priority":null}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := in.Status.Get(); !ok || v != "done" {
		t.Fatalf("expected status done, got %+v", in.Status)
	}
	if !in.Priority.IsNull() {
		t.Fatalf("expected explicit null priority")
	}
	if in.Title.IsSet() || in.DueDate.IsSet() {
		t.Fatalf("absent fields reported as set: %+v", in)
	}

	out, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"priority":null,"status":"done"}` {
		t.Fatalf("unexpected wire form %s", out)
	}
}

func TestTaskJSONUsesCamelCase(t *testing.T) {
	payload, err := json.Marshal(Task{ID: "t1", BoardID: "b1", Title: "x", Status: StatusTodo})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"boardId":"b1"`, `"status":"todo"`, `"createdAt"`} {
		if !strings.Contains(string(payload), key) {
			t.Fatalf("expected %s in %s", key, payload)
		}
	}
	if strings.Contains(string(payload), "priority") {
		t.Fatalf("nil priority should be omitted: %s", payload)
	}
}
