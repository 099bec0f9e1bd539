package repository

import "context"

// IdempotencyRepository remembers which task a client-supplied key produced.
type IdempotencyRepository interface {
	// Reserve claims key. When the key was already claimed it returns reserved=false and the
	// recorded task id, which is empty while the first request is still running.
	Reserve(ctx context.Context, key string) (taskID string, reserved bool, err error)
	Complete(ctx context.Context, key, taskID string) error
	Release(ctx context.Context, key string) error
}
