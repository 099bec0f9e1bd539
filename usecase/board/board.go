package board

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	appLogger "github.com/fastygo/taskboard/pkg/logger"
	"github.com/fastygo/taskboard/repository"
)

type UseCase struct {
	boards repository.BoardRepository
	logger *zap.Logger
}

func New(boards repository.BoardRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{boards: boards, logger: logger}
}

func (uc *UseCase) ListBoards(ctx context.Context) ([]domain.Board, error) {
	boards, err := uc.boards.List(ctx)
	if err != nil {
		return nil, domain.AsStoreError(err)
	}
	return boards, nil
}

func (uc *UseCase) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	board, err := uc.boards.GetByID(ctx, id)
	if err != nil {
		return nil, domain.AsStoreError(err)
	}
	return board, nil
}

func (uc *UseCase) CreateBoard(ctx context.Context, in domain.BoardInput) (*domain.Board, error) {
	draft, err := domain.ValidateBoardInput(in)
	if err != nil {
		return nil, err
	}
	created, err := uc.boards.Create(ctx, draft)
	if err != nil {
		return nil, domain.AsStoreError(err)
	}
	uc.log(ctx).Info("board created", zap.String("board_id", created.ID))
	return created, nil
}

func (uc *UseCase) UpdateBoard(ctx context.Context, id string, in domain.BoardInput) (*domain.Board, error) {
	patch, err := domain.ValidateBoardUpdate(in)
	if err != nil {
		return nil, err
	}
	updated, err := uc.boards.Update(ctx, id, patch)
	if err != nil {
		return nil, domain.AsStoreError(err)
	}
	return updated, nil
}

// DeleteBoard removes the board together with every task on it.
func (uc *UseCase) DeleteBoard(ctx context.Context, id string) (*domain.Board, error) {
	deleted, removed, err := uc.boards.DeleteCascade(ctx, id)
	if err != nil {
		return nil, domain.AsStoreError(err)
	}
	uc.log(ctx).Info("board deleted", zap.String("board_id", id), zap.Int("tasks_removed", removed))
	return deleted, nil
}

func (uc *UseCase) log(ctx context.Context) *zap.Logger {
	return appLogger.WithRequestID(ctx, uc.logger)
}
