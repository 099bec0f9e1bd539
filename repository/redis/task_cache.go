package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

var codec = sonic.ConfigStd

// allStatuses is the hash field used for unfiltered listings.
const allStatuses = "*"

// generationTTL outlives any single store read by a wide margin.
const generationTTL = 24 * time.Hour

var errStaleFill = errors.New("task cache: listing changed while loading")

// TaskCache wraps a TaskRepository with a Redis read-through cache for board listings.
// Each board owns one hash keyed by status filter, so a single DEL evicts every variant.
type TaskCache struct {
	base   repository.TaskRepository
	client *redislib.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewTaskCache creates the caching decorator. Cache failures are logged and never surface to callers.
func NewTaskCache(base repository.TaskRepository, client *redislib.Client, ttl time.Duration, logger *zap.Logger) *TaskCache {
	if base == nil {
		panic("redis.NewTaskCache: base repository is nil")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskCache{
		base:   base,
		client: client,
		prefix: "tasks:",
		ttl:    ttl,
		logger: logger,
	}
}

func (c *TaskCache) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return c.base.GetByID(ctx, id)
}

func (c *TaskCache) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	field := allStatuses
	if filter.Status != "" {
		field = string(filter.Status)
	}

	if tasks, ok := c.load(ctx, filter.BoardID, field); ok {
		return tasks, nil
	}

	// The generation is read before the store so a write that lands while we
	// are reading bumps it and the fill below is dropped.
	gen, genErr := c.generation(ctx, filter.BoardID)

	tasks, err := c.base.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	if genErr == nil {
		c.store(ctx, filter.BoardID, field, gen, tasks)
	}
	return tasks, nil
}

func (c *TaskCache) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	created, err := c.base.Create(ctx, task)
	if err != nil {
		return nil, err
	}
	c.Evict(ctx, created.BoardID)
	return created, nil
}

func (c *TaskCache) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	updated, err := c.base.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	c.Evict(ctx, updated.BoardID)
	return updated, nil
}

func (c *TaskCache) Delete(ctx context.Context, id string) (*domain.Task, error) {
	deleted, err := c.base.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Evict(ctx, deleted.BoardID)
	return deleted, nil
}

// Evict drops every cached listing of the board and invalidates fills already in flight.
func (c *TaskCache) Evict(ctx context.Context, boardID string) {
	genKey := c.genKey(boardID)
	_, err := c.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, c.key(boardID))
		return nil
	})
	if err != nil {
		c.logger.Warn("task cache eviction failed", zap.String("board_id", boardID), zap.Error(err))
	}
}

func (c *TaskCache) generation(ctx context.Context, boardID string) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(boardID)).Int64()
	if err == redislib.Nil {
		return 0, nil
	}
	if err != nil {
		c.logger.Warn("task cache read failed", zap.String("board_id", boardID), zap.Error(err))
	}
	return gen, err
}

func (c *TaskCache) load(ctx context.Context, boardID, field string) ([]domain.Task, bool) {
	payload, err := c.client.HGet(ctx, c.key(boardID), field).Bytes()
	if err != nil {
		if err != redislib.Nil {
			c.logger.Warn("task cache read failed", zap.String("board_id", boardID), zap.Error(err))
		}
		return nil, false
	}

	var tasks []domain.Task
	if err := codec.Unmarshal(payload, &tasks); err != nil {
		c.logger.Warn("task cache entry corrupt", zap.String("board_id", boardID), zap.Error(err))
		return nil, false
	}
	return tasks, true
}

func (c *TaskCache) store(ctx context.Context, boardID, field string, gen int64, tasks []domain.Task) {
	payload, err := codec.Marshal(tasks)
	if err != nil {
		return
	}

	key, genKey := c.key(boardID), c.genKey(boardID)
	err = c.client.Watch(ctx, func(tx *redislib.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && err != redislib.Nil {
			return err
		}
		if current != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
			pipe.HSet(ctx, key, field, payload)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redislib.TxFailedErr):
		c.logger.Debug("task cache fill skipped after concurrent write", zap.String("board_id", boardID))
	default:
		c.logger.Warn("task cache write failed", zap.String("board_id", boardID), zap.Error(err))
	}
}

func (c *TaskCache) key(boardID string) string {
	return fmt.Sprintf("%s%s", c.prefix, boardID)
}

func (c *TaskCache) genKey(boardID string) string {
	return fmt.Sprintf("%sgen:%s", c.prefix, boardID)
}

// BoardCache evicts cached task listings when a board cascade removes its tasks.
type BoardCache struct {
	repository.BoardRepository
	tasks *TaskCache
}

// NewBoardCache wraps base so DeleteCascade evicts through tasks.
func NewBoardCache(base repository.BoardRepository, tasks *TaskCache) *BoardCache {
	return &BoardCache{BoardRepository: base, tasks: tasks}
}

func (b *BoardCache) DeleteCascade(ctx context.Context, id string) (*domain.Board, int, error) {
	board, removed, err := b.BoardRepository.DeleteCascade(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	b.tasks.Evict(ctx, id)
	return board, removed, nil
}
