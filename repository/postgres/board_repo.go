package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

const boardColumns = `id, name, description, color, created_at, updated_at`

type boardRepository struct {
	pool *pgxpool.Pool
}

// NewBoardRepository returns a Postgres-backed implementation of BoardRepository.
func NewBoardRepository(pool *pgxpool.Pool) repository.BoardRepository {
	return &boardRepository{pool: pool}
}

func (r *boardRepository) GetByID(ctx context.Context, id string) (*domain.Board, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+boardColumns+` FROM boards WHERE id = $1`, id)
	return scanBoard(row)
}

func (r *boardRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM boards WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *boardRepository) List(ctx context.Context) ([]domain.Board, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+boardColumns+` FROM boards ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	boards := make([]domain.Board, 0)
	for rows.Next() {
		board, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, *board)
	}
	return boards, rows.Err()
}

func (r *boardRepository) Create(ctx context.Context, board *domain.Board) (*domain.Board, error) {
	if board == nil {
		return nil, domain.ErrInvalidPayload
	}
	if board.ID == "" {
		board.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO boards (id, name, description, color)
	VALUES ($1, $2, $3, $4)
	RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		board.ID,
		board.Name,
		board.Description,
		board.Color,
	).Scan(&board.CreatedAt, &board.UpdatedAt); err != nil {
		return nil, err
	}
	return board, nil
}

func (r *boardRepository) Update(ctx context.Context, id string, patch domain.BoardPatch) (*domain.Board, error) {
	b := buildBoardUpdate(patch)
	set, idArg := b.clause()
	query := `UPDATE boards SET ` + set + ` WHERE id = ` + idArg + ` RETURNING ` + boardColumns

	row := r.pool.QueryRow(ctx, query, append(b.args, id)...)
	return scanBoard(row)
}

// DeleteCascade removes the tasks and the board inside one transaction.
func (r *boardRepository) DeleteCascade(ctx context.Context, id string) (*domain.Board, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE board_id = $1`, id)
	if err != nil {
		return nil, 0, err
	}

	board, err := scanBoard(tx.QueryRow(ctx, `DELETE FROM boards WHERE id = $1 RETURNING `+boardColumns, id))
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}
	return board, int(tag.RowsAffected()), nil
}

func scanBoard(row rowScanner) (*domain.Board, error) {
	var board domain.Board
	if err := row.Scan(
		&board.ID,
		&board.Name,
		&board.Description,
		&board.Color,
		&board.CreatedAt,
		&board.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBoardNotFound
		}
		return nil, err
	}
	return &board, nil
}
