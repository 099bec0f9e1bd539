// Package task manages the task lifecycle: create, list, get, update and delete, with all
// validation done before the record store is touched.
package task

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	appLogger "github.com/fastygo/taskboard/pkg/logger"
	"github.com/fastygo/taskboard/repository"
)

type UseCase struct {
	tasks  repository.TaskRepository
	boards repository.BoardRepository
	idem   repository.IdempotencyRepository
	logger *zap.Logger
}

// New wires the lifecycle manager. idem may be nil, in which case idempotency keys are ignored.
func New(tasks repository.TaskRepository, boards repository.BoardRepository, idem repository.IdempotencyRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:  tasks,
		boards: boards,
		idem:   idem,
		logger: logger,
	}
}

func (uc *UseCase) ListTasks(ctx context.Context, boardID string) ([]domain.Task, error) {
	return uc.FilterTasks(ctx, repository.TaskFilter{BoardID: boardID})
}

// FilterTasks lists a board's tasks, optionally narrowed to one status.
func (uc *UseCase) FilterTasks(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	filter.BoardID = strings.TrimSpace(filter.BoardID)
	if filter.BoardID == "" {
		return nil, domain.MissingParameter("boardId")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.InvalidEnum("status", string(filter.Status), domain.Statuses)
	}

	tasks, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, domain.AsStoreError(err)
	}
	return tasks, nil
}

func (uc *UseCase) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, domain.AsStoreError(err)
	}
	return task, nil
}

func (uc *UseCase) CreateTask(ctx context.Context, in domain.TaskInput) (*domain.Task, error) {
	draft, err := domain.ValidateTaskInput(in)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateBoardReference(ctx, draft.BoardID, uc.boards.Exists); err != nil {
		return nil, domain.AsStoreError(err)
	}

	// key stays set only while this request holds the reservation
	var key string
	if k := strings.TrimSpace(in.IdempotencyKey); k != "" && uc.idem != nil {
		existing, reserved, err := uc.reserve(ctx, k)
		if err != nil || existing != nil {
			return existing, err
		}
		if reserved {
			key = k
		}
	}

	created, err := uc.tasks.Create(ctx, draft)
	if err != nil {
		if key != "" {
			if relErr := uc.idem.Release(ctx, key); relErr != nil {
				uc.log(ctx).Warn("failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
			}
		}
		return nil, domain.AsStoreError(err)
	}

	if key != "" {
		if err := uc.idem.Complete(ctx, key, created.ID); err != nil {
			uc.log(ctx).Warn("failed to record idempotency key", zap.String("key", key), zap.Error(err))
		}
	}

	uc.log(ctx).Info("task created", zap.String("task_id", created.ID), zap.String("board_id", created.BoardID))
	return created, nil
}

// reserve claims key. A replayed key yields the task of the first request; a key whose first
// request is still running yields CONFLICT. When the key store itself fails the create goes ahead
// without deduplication.
func (uc *UseCase) reserve(ctx context.Context, key string) (*domain.Task, bool, error) {
	taskID, reserved, err := uc.idem.Reserve(ctx, key)
	if err != nil {
		uc.log(ctx).Warn("idempotency store unavailable", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	if reserved {
		return nil, true, nil
	}
	if taskID == "" {
		return nil, false, domain.ErrKeyInFlight
	}

	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, false, domain.AsStoreError(err)
	}
	uc.log(ctx).Info("replayed idempotent create", zap.String("key", key), zap.String("task_id", taskID))
	return task, false, nil
}

func (uc *UseCase) UpdateTask(ctx context.Context, id string, in domain.TaskUpdateInput) (*domain.Task, error) {
	patch, err := domain.ValidateTaskUpdate(in)
	if err != nil {
		return nil, err
	}
	if _, err := uc.tasks.GetByID(ctx, id); err != nil {
		return nil, domain.AsStoreError(err)
	}

	updated, err := uc.tasks.Update(ctx, id, patch)
	if err != nil {
		return nil, domain.AsStoreError(err)
	}
	return updated, nil
}

func (uc *UseCase) DeleteTask(ctx context.Context, id string) (*domain.Task, error) {
	deleted, err := uc.tasks.Delete(ctx, id)
	if err != nil {
		return nil, domain.AsStoreError(err)
	}
	uc.log(ctx).Info("task deleted", zap.String("task_id", id))
	return deleted, nil
}

func (uc *UseCase) log(ctx context.Context) *zap.Logger {
	return appLogger.WithRequestID(ctx, uc.logger)
}
