package boltdb

import (
	"context"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

type taskRepository struct {
	db *bolt.DB
}

// NewTaskRepository returns a bbolt-backed implementation of TaskRepository.
func NewTaskRepository(db *bolt.DB) repository.TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	err := r.db.View(func(tx *bolt.Tx) error {
		found, err := getJSON(tx.Bucket(tasksBucket), id, &task)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrTaskNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0)
	err := r.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket(boardTasksBucket).Bucket([]byte(filter.BoardID))
		if idx == nil {
			return nil
		}
		all := tx.Bucket(tasksBucket)
		return idx.ForEach(func(k, _ []byte) error {
			var task domain.Task
			found, err := getJSON(all, string(k), &task)
			if err != nil || !found {
				return err
			}
			if filter.Status != "" && task.Status != filter.Status {
				return nil
			}
			tasks = append(tasks, task)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	domain.SortTasks(tasks)
	return tasks, nil
}

// Create refuses to insert a task whose board is missing, mirroring a foreign key.
func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	err := r.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(boardsBucket).Get([]byte(task.BoardID)) == nil {
			return domain.BoardNotFound(task.BoardID)
		}
		ts := now()
		task.CreatedAt = ts
		task.UpdatedAt = ts
		if err := putJSON(tx.Bucket(tasksBucket), task.ID, task); err != nil {
			return err
		}
		idx, err := tx.Bucket(boardTasksBucket).CreateBucketIfNotExists([]byte(task.BoardID))
		if err != nil {
			return err
		}
		return idx.Put([]byte(task.ID), indexMarker)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	var task domain.Task
	err := r.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(tasksBucket)
		found, err := getJSON(bucket, id, &task)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrTaskNotFound
		}
		task.Apply(patch, now())
		return putJSON(bucket, id, &task)
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	err := r.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(tasksBucket)
		found, err := getJSON(bucket, id, &task)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrTaskNotFound
		}
		if err := bucket.Delete([]byte(id)); err != nil {
			return err
		}
		if idx := tx.Bucket(boardTasksBucket).Bucket([]byte(task.BoardID)); idx != nil {
			return idx.Delete([]byte(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}
