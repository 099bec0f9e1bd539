// Package breaker guards the record store with a circuit breaker. Domain errors such as NOT_FOUND
// are answers, not failures, and never count towards tripping.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

// Settings configures the breaker thresholds.
type Settings struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// New builds a named breaker that logs state changes.
func New(name string, s Settings, logger *zap.Logger) *gobreaker.CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.MaxRequests == 0 {
		s.MaxRequests = 1
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var dErr *domain.Error
	return errors.As(err, &dErr)
}

func run[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	out, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, domain.StoreUnavailable(err)
		}
		return zero, err
	}
	return out.(T), nil
}

type taskRepository struct {
	base repository.TaskRepository
	cb   *gobreaker.CircuitBreaker
}

// NewTaskRepository wraps base so every call passes through cb.
func NewTaskRepository(base repository.TaskRepository, cb *gobreaker.CircuitBreaker) repository.TaskRepository {
	return &taskRepository{base: base, cb: cb}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return run(r.cb, func() (*domain.Task, error) { return r.base.GetByID(ctx, id) })
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	return run(r.cb, func() ([]domain.Task, error) { return r.base.List(ctx, filter) })
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	return run(r.cb, func() (*domain.Task, error) { return r.base.Create(ctx, task) })
}

func (r *taskRepository) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	return run(r.cb, func() (*domain.Task, error) { return r.base.Update(ctx, id, patch) })
}

func (r *taskRepository) Delete(ctx context.Context, id string) (*domain.Task, error) {
	return run(r.cb, func() (*domain.Task, error) { return r.base.Delete(ctx, id) })
}

type boardRepository struct {
	base repository.BoardRepository
	cb   *gobreaker.CircuitBreaker
}

// NewBoardRepository wraps base so every call passes through cb.
func NewBoardRepository(base repository.BoardRepository, cb *gobreaker.CircuitBreaker) repository.BoardRepository {
	return &boardRepository{base: base, cb: cb}
}

func (r *boardRepository) GetByID(ctx context.Context, id string) (*domain.Board, error) {
	return run(r.cb, func() (*domain.Board, error) { return r.base.GetByID(ctx, id) })
}

func (r *boardRepository) Exists(ctx context.Context, id string) (bool, error) {
	return run(r.cb, func() (bool, error) { return r.base.Exists(ctx, id) })
}

func (r *boardRepository) List(ctx context.Context) ([]domain.Board, error) {
	return run(r.cb, func() ([]domain.Board, error) { return r.base.List(ctx) })
}

func (r *boardRepository) Create(ctx context.Context, board *domain.Board) (*domain.Board, error) {
	return run(r.cb, func() (*domain.Board, error) { return r.base.Create(ctx, board) })
}

func (r *boardRepository) Update(ctx context.Context, id string, patch domain.BoardPatch) (*domain.Board, error) {
	return run(r.cb, func() (*domain.Board, error) { return r.base.Update(ctx, id, patch) })
}

type cascadeResult struct {
	board   *domain.Board
	removed int
}

func (r *boardRepository) DeleteCascade(ctx context.Context, id string) (*domain.Board, int, error) {
	res, err := run(r.cb, func() (cascadeResult, error) {
		board, removed, err := r.base.DeleteCascade(ctx, id)
		return cascadeResult{board: board, removed: removed}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return res.board, res.removed, nil
}
