package mongodb

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

type boardRepository struct {
	client *mongo.Client
	boards *mongo.Collection
	tasks  *mongo.Collection
}

// NewBoardRepository returns a MongoDB-backed implementation of BoardRepository.
func NewBoardRepository(db *mongo.Database) repository.BoardRepository {
	return &boardRepository{
		client: db.Client(),
		boards: db.Collection(boardsCollection),
		tasks:  db.Collection(tasksCollection),
	}
}

func (r *boardRepository) GetByID(ctx context.Context, id string) (*domain.Board, error) {
	var doc boardDocument
	if err := r.boards.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, mapBoardErr(err)
	}
	board := boardFromDocument(doc)
	return &board, nil
}

func (r *boardRepository) Exists(ctx context.Context, id string) (bool, error) {
	count, err := r.boards.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *boardRepository) List(ctx context.Context) ([]domain.Board, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.boards.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	boards := make([]domain.Board, 0)
	for cursor.Next(ctx) {
		var doc boardDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		boards = append(boards, boardFromDocument(doc))
	}
	return boards, cursor.Err()
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

	if _, err := r.boards.InsertOne(ctx, boardToDocument(board)); err != nil {
		return nil, err
	}
	return board, nil
}

func (r *boardRepository) Update(ctx context.Context, id string, patch domain.BoardPatch) (*domain.Board, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc boardDocument
	if err := r.boards.FindOneAndUpdate(ctx, bson.M{"_id": id}, boardUpdateDocument(patch, now()), opts).Decode(&doc); err != nil {
		return nil, mapBoardErr(err)
	}
	board := boardFromDocument(doc)
	return &board, nil
}

type cascadeResult struct {
	board   domain.Board
	removed int
}

func (r *boardRepository) DeleteCascade(ctx context.Context, id string) (*domain.Board, int, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return nil, 0, err
	}
	defer session.EndSession(ctx)

	out, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var doc boardDocument
		if err := r.boards.FindOneAndDelete(sc, bson.M{"_id": id}).Decode(&doc); err != nil {
			return nil, mapBoardErr(err)
		}
		res, err := r.tasks.DeleteMany(sc, bson.M{"board_id": id})
		if err != nil {
			return nil, err
		}
		return cascadeResult{board: boardFromDocument(doc), removed: int(res.DeletedCount)}, nil
	})
	if err != nil {
		return nil, 0, err
	}

	result := out.(cascadeResult)
	return &result.board, result.removed, nil
}

func mapBoardErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrBoardNotFound
	}
	return err
}
