package repository

import (
	"context"

	"github.com/fastygo/taskboard/domain"
)

// BoardRepository is the board side of the record store.
type BoardRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Board, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]domain.Board, error)
	Create(ctx context.Context, board *domain.Board) (*domain.Board, error)
	Update(ctx context.Context, id string, patch domain.BoardPatch) (*domain.Board, error)
	// DeleteCascade removes the board and every task referencing it in one unit of work.
	DeleteCascade(ctx context.Context, id string) (*domain.Board, int, error)
}
