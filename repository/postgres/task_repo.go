package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

// foreignKeyViolation is raised when the board disappears between the existence check and the insert.
const foreignKeyViolation = "23503"

const taskColumns = `id, board_id, title, description, status, priority, assigned_to, due_date, position, created_at, updated_at`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE board_id = $1
	  AND ($2 = '' OR status = $2)
	ORDER BY position ASC NULLS LAST, created_at DESC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, filter.BoardID, string(filter.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (id, board_id, title, description, status, priority, assigned_to, due_date, position)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.BoardID,
		task.Title,
		task.Description,
		string(task.Status),
		priorityArg(task.Priority),
		task.AssignedTo,
		task.DueDate,
		task.Position,
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, domain.BoardNotFound(task.BoardID)
		}
		return nil, err
	}

	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	b := buildTaskUpdate(patch)
	set, idArg := b.clause()
	query := `UPDATE tasks SET ` + set + ` WHERE id = ` + idArg + ` RETURNING ` + taskColumns

	row := r.pool.QueryRow(ctx, query, append(b.args, id)...)
	return scanTask(row)
}

func (r *taskRepository) Delete(ctx context.Context, id string) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, `DELETE FROM tasks WHERE id = $1 RETURNING `+taskColumns, id)
	return scanTask(row)
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var (
		status   string
		priority *string
		due      *time.Time
	)

	if err := row.Scan(
		&task.ID,
		&task.BoardID,
		&task.Title,
		&task.Description,
		&status,
		&priority,
		&task.AssignedTo,
		&due,
		&task.Position,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.Status = domain.Status(status)
	if priority != nil {
		p := domain.Priority(*priority)
		task.Priority = &p
	}
	task.DueDate = due

	return &task, nil
}
