package task

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fastygo/taskboard/domain"
	boltInfra "github.com/fastygo/taskboard/internal/infrastructure/boltdb"
	"github.com/fastygo/taskboard/repository"
	"github.com/fastygo/taskboard/repository/boltdb"
)

type fixture struct {
	uc     *UseCase
	tasks  repository.TaskRepository
	boards repository.BoardRepository
}

func newFixture(t *testing.T, idem repository.IdempotencyRepository) fixture {
	t.Helper()
	db, err := boltInfra.Open(filepath.Join(t.TempDir(), "tasks.db"), boltdb.Buckets...)
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	tasks := boltdb.NewTaskRepository(db)
	boards := boltdb.NewBoardRepository(db)
	return fixture{uc: New(tasks, boards, idem, nil), tasks: tasks, boards: boards}
}

func (f fixture) board(t *testing.T, name string) *domain.Board {
	t.Helper()
	b, err := f.boards.Create(context.Background(), &domain.Board{Name: name})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	return b
}

type memoryKeys struct {
	mu   sync.Mutex
	keys map[string]string
}

func (m *memoryKeys) Reserve(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = make(map[string]string)
	}
	if id, ok := m.keys[key]; ok {
		return id, false, nil
	}
	m.keys[key] = ""
	return "", true, nil
}

func (m *memoryKeys) Complete(ctx context.Context, key, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = taskID
	return nil
}

func (m *memoryKeys) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type countingTasks struct {
	repository.TaskRepository
	err   error
	calls int
}

func (c *countingTasks) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	c.calls++
	return nil, c.err
}

func (c *countingTasks) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	c.calls++
	return nil, c.err
}

type knownBoards struct {
	repository.BoardRepository
}

func (knownBoards) Exists(ctx context.Context, id string) (bool, error) { return true, nil }

func TestCreateThenUpdateScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	launch := f.board(t, "Launch")

	created, err := f.uc.CreateTask(ctx, domain.TaskInput{
		BoardID:  domain.Some(launch.ID),
		Title:    domain.Some("Write copy"),
		Priority: domain.Some("high"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != domain.StatusTodo || created.Priority == nil || *created.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected created task: %+v", created)
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("timestamps should match on create: %+v", created)
	}

	list, err := f.uc.ListTasks(ctx, launch.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("created task should appear exactly once: %+v", list)
	}

	updated, err := f.uc.UpdateTask(ctx, created.ID, domain.TaskUpdateInput{Status: domain.Some("in_progress")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.StatusInProgress || updated.Title != "Write copy" || *updated.Priority != domain.PriorityHigh {
		t.Fatalf("partial update touched other fields: %+v", updated)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("unexpected timestamps: %+v", updated)
	}
}

func TestCreatedTaskStartsAsTodo(t *testing.T) {
	f := newFixture(t, nil)
	board := f.board(t, "b")

	var in domain.TaskInput
	in.BoardID = domain.Some(board.ID)
	in.Title = domain.Some("x")

	created, err := f.uc.CreateTask(context.Background(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != domain.StatusTodo {
		t.Fatalf("expected todo, got %s", created.Status)
	}
}

func TestCreateRejectsUnknownPriorityWithoutWriting(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	board := f.board(t, "b")

	_, err := f.uc.CreateTask(ctx, domain.TaskInput{
		BoardID:  domain.Some(board.ID),
		Title:    domain.Some("x"),
		Priority: domain.Some("urgent"),
	})
	if !domain.IsDomainError(err, domain.ErrCodeInvalidEnum) {
		t.Fatalf("expected INVALID_ENUM, got %v", err)
	}

	list, _ := f.uc.ListTasks(ctx, board.ID)
	if len(list) != 0 {
		t.Fatalf("no task should be stored: %+v", list)
	}
}

func TestCreateUnknownBoard(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.uc.CreateTask(ctx, domain.TaskInput{BoardID: domain.Some("nope"), Title: domain.Some("x")})
	if !domain.IsDomainError(err, domain.ErrCodeBoardNotFound) {
		t.Fatalf("expected BOARD_NOT_FOUND, got %v", err)
	}

	list, err := f.uc.ListTasks(ctx, "nope")
	if err != nil || len(list) != 0 {
		t.Fatalf("unknown board should list empty, got %+v err=%v", list, err)
	}
}

func TestUpdateGhostTask(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.uc.UpdateTask(context.Background(), "ghost", domain.TaskUpdateInput{Title: domain.Some("x")})
	if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestUpdateValidatesBeforeExistence(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.uc.UpdateTask(context.Background(), "ghost", domain.TaskUpdateInput{Status: domain.Some("blocked")})
	if !domain.IsDomainError(err, domain.ErrCodeInvalidEnum) {
		t.Fatalf("expected INVALID_ENUM before existence check, got %v", err)
	}
}

func TestUpdateInvalidEnumLeavesTaskUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	board := f.board(t, "b")
	created, _ := f.uc.CreateTask(ctx, domain.TaskInput{BoardID: domain.Some(board.ID), Title: domain.Some("x")})

	_, err := f.uc.UpdateTask(ctx, created.ID, domain.TaskUpdateInput{Title: domain.Some("y"), Priority: domain.Some("urgent")})
	if !domain.IsDomainError(err, domain.ErrCodeInvalidEnum) {
		t.Fatalf("expected INVALID_ENUM, got %v", err)
	}

	got, err := f.uc.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "x" || !got.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("rejected update mutated the task: %+v", got)
	}
}

func TestDeleteReturnsSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	board := f.board(t, "b")
	created, _ := f.uc.CreateTask(ctx, domain.TaskInput{BoardID: domain.Some(board.ID), Title: domain.Some("x")})

	deleted, err := f.uc.DeleteTask(ctx, created.ID)
	if err != nil || deleted.ID != created.ID {
		t.Fatalf("delete: %+v err=%v", deleted, err)
	}
	if _, err := f.uc.DeleteTask(ctx, created.ID); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestListRequiresBoardID(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.uc.ListTasks(context.Background(), " "); !domain.IsDomainError(err, domain.ErrCodeMissingParameter) {
		t.Fatalf("expected MISSING_PARAMETER, got %v", err)
	}
	_, err := f.uc.FilterTasks(context.Background(), repository.TaskFilter{BoardID: "b", Status: "blocked"})
	if !domain.IsDomainError(err, domain.ErrCodeInvalidEnum) {
		t.Fatalf("expected INVALID_ENUM, got %v", err)
	}
}

func TestStoreFailureIsWrappedAndNotRetried(t *testing.T) {
	boom := errors.New("connection reset")
	store := &countingTasks{err: boom}
	uc := New(store, knownBoards{}, nil, nil)
	ctx := context.Background()

	_, err := uc.ListTasks(ctx, "b1")
	if !domain.IsDomainError(err, domain.ErrCodeStoreUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("expected STORE_UNAVAILABLE wrapping the cause, got %v", err)
	}

	_, err = uc.CreateTask(ctx, domain.TaskInput{BoardID: domain.Some("b1"), Title: domain.Some("x")})
	if !domain.IsDomainError(err, domain.ErrCodeStoreUnavailable) {
		t.Fatalf("expected STORE_UNAVAILABLE, got %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("store failures must not be retried, got %d calls", store.calls)
	}
}

func TestIdempotentCreate(t *testing.T) {
	keys := &memoryKeys{}
	f := newFixture(t, keys)
	ctx := context.Background()
	board := f.board(t, "b")

	in := domain.TaskInput{BoardID: domain.Some(board.ID), Title: domain.Some("x"), IdempotencyKey: "pending-1"}
	first, err := f.uc.CreateTask(ctx, in)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := f.uc.CreateTask(ctx, in)
	if err != nil {
		t.Fatalf("replayed create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("replay created a duplicate: %s vs %s", first.ID, second.ID)
	}

	list, _ := f.uc.ListTasks(ctx, board.ID)
	if len(list) != 1 {
		t.Fatalf("expected exactly one task, got %d", len(list))
	}

	keys.keys["pending-2"] = ""
	in.IdempotencyKey = "pending-2"
	if _, err := f.uc.CreateTask(ctx, in); !domain.IsDomainError(err, domain.ErrCodeConflict) {
		t.Fatalf("expected CONFLICT for in-flight key, got %v", err)
	}
}

func TestFailedCreateReleasesKey(t *testing.T) {
	keys := &memoryKeys{}
	uc := New(&countingTasks{err: errors.New("down")}, knownBoards{}, keys, nil)

	in := domain.TaskInput{BoardID: domain.Some("b1"), Title: domain.Some("x"), IdempotencyKey: "k"}
	if _, err := uc.CreateTask(context.Background(), in); err == nil {
		t.Fatalf("expected failure")
	}
	if _, held := keys.keys["k"]; held {
		t.Fatalf("failed create should release its key")
	}
}
