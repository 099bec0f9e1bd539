package breaker

import (
	"context"
	"errors"
	"testing"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

type flakyTasks struct {
	repository.TaskRepository
	err   error
	calls int
}

func (f *flakyTasks) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Task{ID: id}, nil
}

func TestBreakerOpensOnStoreFailures(t *testing.T) {
	base := &flakyTasks{err: errors.New("connection refused")}
	repo := NewTaskRepository(base, New("tasks", Settings{ConsecutiveFailures: 2}, nil))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := repo.GetByID(ctx, "t1"); err == nil {
			t.Fatalf("expected store error")
		}
	}

	_, err := repo.GetByID(ctx, "t1")
	if !domain.IsDomainError(err, domain.ErrCodeStoreUnavailable) {
		t.Fatalf("expected STORE_UNAVAILABLE from open breaker, got %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("open breaker must not reach the store, got %d calls", base.calls)
	}
}

func TestBreakerIgnoresDomainErrors(t *testing.T) {
	base := &flakyTasks{err: domain.ErrTaskNotFound}
	repo := NewTaskRepository(base, New("tasks", Settings{ConsecutiveFailures: 1}, nil))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.GetByID(ctx, "ghost"); !errors.Is(err, domain.ErrTaskNotFound) {
			t.Fatalf("expected NOT_FOUND passthrough, got %v", err)
		}
	}
	if base.calls != 3 {
		t.Fatalf("domain errors must not trip the breaker, got %d calls", base.calls)
	}

	base.err = nil
	task, err := repo.GetByID(ctx, "t1")
	if err != nil || task.ID != "t1" {
		t.Fatalf("unexpected result %+v err=%v", task, err)
	}
}
