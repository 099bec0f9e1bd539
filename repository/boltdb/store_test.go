package boltdb

import (
	"context"
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/taskboard/domain"
	boltInfra "github.com/fastygo/taskboard/internal/infrastructure/boltdb"
	"github.com/fastygo/taskboard/repository"
)

func openTestDB(t *testing.T) *bolt.DB {
	t.Helper()
	db, err := boltInfra.Open(filepath.Join(t.TempDir(), "store.db"), Buckets...)
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDeleteCascadeRemovesEveryTask(t *testing.T) {
	db := openTestDB(t)
	boards := NewBoardRepository(db)
	tasks := NewTaskRepository(db)
	ctx := context.Background()

	launch, err := boards.Create(ctx, &domain.Board{Name: "Launch"})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	other, err := boards.Create(ctx, &domain.Board{Name: "Other"})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		task, err := tasks.Create(ctx, &domain.Task{BoardID: launch.ID, Title: title, Status: domain.StatusTodo})
		if err != nil {
			t.Fatalf("create task: %v", err)
		}
		ids = append(ids, task.ID)
	}
	survivor, err := tasks.Create(ctx, &domain.Task{BoardID: other.ID, Title: "keep", Status: domain.StatusTodo})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	deleted, removed, err := boards.DeleteCascade(ctx, launch.ID)
	if err != nil {
		t.Fatalf("delete cascade: %v", err)
	}
	if deleted.Name != "Launch" || removed != 3 {
		t.Fatalf("unexpected cascade result: %+v removed=%d", deleted, removed)
	}

	for _, id := range ids {
		if _, err := tasks.GetByID(ctx, id); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			t.Fatalf("task %s survived the cascade: %v", id, err)
		}
	}
	left, err := tasks.List(ctx, repository.TaskFilter{BoardID: launch.ID})
	if err != nil || len(left) != 0 {
		t.Fatalf("expected no tasks for deleted board, got %v err=%v", left, err)
	}
	if _, err := tasks.GetByID(ctx, survivor.ID); err != nil {
		t.Fatalf("unrelated task removed: %v", err)
	}

	if _, _, err := boards.DeleteCascade(ctx, launch.ID); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND on second delete, got %v", err)
	}
}

func TestCreateTaskRequiresBoard(t *testing.T) {
	db := openTestDB(t)
	tasks := NewTaskRepository(db)

	_, err := tasks.Create(context.Background(), &domain.Task{BoardID: "missing", Title: "x", Status: domain.StatusTodo})
	if !domain.IsDomainError(err, domain.ErrCodeBoardNotFound) {
		t.Fatalf("expected BOARD_NOT_FOUND, got %v", err)
	}
}

func TestTaskUpdateAndDelete(t *testing.T) {
	db := openTestDB(t)
	boards := NewBoardRepository(db)
	tasks := NewTaskRepository(db)
	ctx := context.Background()

	board, _ := boards.Create(ctx, &domain.Board{Name: "b"})
	created, err := tasks.Create(ctx, &domain.Task{BoardID: board.ID, Title: "Write copy", Status: domain.StatusTodo})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	updated, err := tasks.Update(ctx, created.ID, domain.TaskPatch{Status: domain.Some(domain.StatusDone)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.StatusDone || updated.Title != "Write copy" {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Fatalf("updatedAt went backwards")
	}

	snapshot, err := tasks.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if snapshot.Status != domain.StatusDone {
		t.Fatalf("expected last-known snapshot, got %+v", snapshot)
	}
	if _, err := tasks.Delete(ctx, created.ID); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if _, err := tasks.Update(ctx, "ghost", domain.TaskPatch{}); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestListOrdersByPositionThenNewest(t *testing.T) {
	db := openTestDB(t)
	boards := NewBoardRepository(db)
	tasks := NewTaskRepository(db)
	ctx := context.Background()

	board, _ := boards.Create(ctx, &domain.Board{Name: "b"})
	first := 1
	plain, _ := tasks.Create(ctx, &domain.Task{BoardID: board.ID, Title: "plain", Status: domain.StatusTodo})
	pinned, _ := tasks.Create(ctx, &domain.Task{BoardID: board.ID, Title: "pinned", Status: domain.StatusDone, Position: &first})

	list, err := tasks.List(ctx, repository.TaskFilter{BoardID: board.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != pinned.ID || list[1].ID != plain.ID {
		t.Fatalf("unexpected order: %+v", list)
	}

	done, err := tasks.List(ctx, repository.TaskFilter{BoardID: board.ID, Status: domain.StatusDone})
	if err != nil || len(done) != 1 || done[0].ID != pinned.ID {
		t.Fatalf("status filter failed: %+v err=%v", done, err)
	}
}
