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

type taskRepository struct {
	client *mongo.Client
	boards *mongo.Collection
	tasks  *mongo.Collection
}

// NewTaskRepository returns a MongoDB-backed implementation of TaskRepository.
func NewTaskRepository(db *mongo.Database) repository.TaskRepository {
	return &taskRepository{
		client: db.Client(),
		boards: db.Collection(boardsCollection),
		tasks:  db.Collection(tasksCollection),
	}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var doc taskDocument
	if err := r.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, mapTaskErr(err)
	}
	task := taskFromDocument(doc)
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	query := bson.M{"board_id": filter.BoardID}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}

	cursor, err := r.tasks.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tasks := make([]domain.Task, 0)
	for cursor.Next(ctx) {
		var doc taskDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		tasks = append(tasks, taskFromDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	domain.SortTasks(tasks)
	return tasks, nil
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	ts := now()
	task.CreatedAt = ts
	task.UpdatedAt = ts

	session, err := r.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	// The board write conflicts with a concurrent DeleteCascade, so the insert
	// either lands before the cascade or sees the board gone.
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.boards.UpdateOne(sc, bson.M{"_id": task.BoardID}, boardGuardUpdate())
		if err != nil {
			return nil, err
		}
		if err := checkBoardGuard(res, task.BoardID); err != nil {
			return nil, err
		}
		return r.tasks.InsertOne(sc, taskToDocument(task))
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDocument
	if err := r.tasks.FindOneAndUpdate(ctx, bson.M{"_id": id}, taskUpdateDocument(patch, now()), opts).Decode(&doc); err != nil {
		return nil, mapTaskErr(err)
	}
	task := taskFromDocument(doc)
	return &task, nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) (*domain.Task, error) {
	var doc taskDocument
	if err := r.tasks.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, mapTaskErr(err)
	}
	task := taskFromDocument(doc)
	return &task, nil
}

func mapTaskErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrTaskNotFound
	}
	return err
}
