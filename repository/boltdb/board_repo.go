package boltdb

import (
	"context"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

type boardRepository struct {
	db *bolt.DB
}

// NewBoardRepository returns a bbolt-backed implementation of BoardRepository.
func NewBoardRepository(db *bolt.DB) repository.BoardRepository {
	return &boardRepository{db: db}
}

func (r *boardRepository) GetByID(ctx context.Context, id string) (*domain.Board, error) {
	var board domain.Board
	err := r.db.View(func(tx *bolt.Tx) error {
		found, err := getJSON(tx.Bucket(boardsBucket), id, &board)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrBoardNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &board, nil
}

func (r *boardRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(boardsBucket).Get([]byte(id)) != nil
		return nil
	})
	return exists, err
}

func (r *boardRepository) List(ctx context.Context) ([]domain.Board, error) {
	boards := make([]domain.Board, 0)
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(boardsBucket).ForEach(func(k, _ []byte) error {
			var board domain.Board
			if _, err := getJSON(tx.Bucket(boardsBucket), string(k), &board); err != nil {
				return err
			}
			boards = append(boards, board)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	domain.SortBoards(boards)
	return boards, nil
}

func (r *boardRepository) Create(ctx context.Context, board *domain.Board) (*domain.Board, error) {
	if board == nil {
		return nil, domain.ErrInvalidPayload
	}
	if board.ID == "" {
		board.ID = uuid.NewString()
	}
	ts := now()
	board.CreatedAt = ts
	board.UpdatedAt = ts

	err := r.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(boardsBucket), board.ID, board)
	})
	if err != nil {
		return nil, err
	}
	return board, nil
}

func (r *boardRepository) Update(ctx context.Context, id string, patch domain.BoardPatch) (*domain.Board, error) {
	var board domain.Board
	err := r.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boardsBucket)
		found, err := getJSON(bucket, id, &board)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrBoardNotFound
		}
		board.Apply(patch, now())
		return putJSON(bucket, id, &board)
	})
	if err != nil {
		return nil, err
	}
	return &board, nil
}

func (r *boardRepository) DeleteCascade(ctx context.Context, id string) (*domain.Board, int, error) {
	var (
		board   domain.Board
		removed int
	)
	err := r.db.Update(func(tx *bolt.Tx) error {
		boards := tx.Bucket(boardsBucket)
		found, err := getJSON(boards, id, &board)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrBoardNotFound
		}

		index := tx.Bucket(boardTasksBucket)
		if idx := index.Bucket([]byte(id)); idx != nil {
			tasks := tx.Bucket(tasksBucket)
			if err := idx.ForEach(func(k, _ []byte) error {
				removed++
				return tasks.Delete(k)
			}); err != nil {
				return err
			}
			if err := index.DeleteBucket([]byte(id)); err != nil {
				return err
			}
		}
		return boards.Delete([]byte(id))
	})
	if err != nil {
		return nil, 0, err
	}
	return &board, removed, nil
}
