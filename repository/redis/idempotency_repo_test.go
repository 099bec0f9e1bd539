package redis

import (
	"context"
	"testing"
	"time"
)

func TestIdempotencyReserveCompleteRelease(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewIdempotencyRepository(client, time.Hour, time.Minute)
	ctx := context.Background()

	taskID, reserved, err := repo.Reserve(ctx, "k1")
	if err != nil || !reserved || taskID != "" {
		t.Fatalf("first reserve: id=%q reserved=%v err=%v", taskID, reserved, err)
	}

	taskID, reserved, err = repo.Reserve(ctx, "k1")
	if err != nil || reserved || taskID != "" {
		t.Fatalf("in-flight reserve: id=%q reserved=%v err=%v", taskID, reserved, err)
	}

	if err := repo.Complete(ctx, "k1", "task-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	taskID, reserved, err = repo.Reserve(ctx, "k1")
	if err != nil || reserved || taskID != "task-1" {
		t.Fatalf("replayed reserve: id=%q reserved=%v err=%v", taskID, reserved, err)
	}
	if ttl := mr.TTL("idem:k1"); ttl <= 0 {
		t.Fatalf("expected ttl on key, got %v", ttl)
	}

	if err := repo.Release(ctx, "k1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, reserved, _ := repo.Reserve(ctx, "k1"); !reserved {
		t.Fatalf("released key should be reservable again")
	}
}

func TestIdempotencyKeysExpire(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewIdempotencyRepository(client, time.Hour, time.Minute)
	ctx := context.Background()

	if _, reserved, _ := repo.Reserve(ctx, "k2"); !reserved {
		t.Fatalf("expected reservation")
	}
	mr.FastForward(2 * time.Minute)
	if _, reserved, _ := repo.Reserve(ctx, "k2"); !reserved {
		t.Fatalf("expired key should be reservable again")
	}
}

func TestIdempotencyPendingReservationUsesShortTTL(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewIdempotencyRepository(client, time.Hour, 10*time.Second)
	ctx := context.Background()

	if _, reserved, _ := repo.Reserve(ctx, "k3"); !reserved {
		t.Fatalf("expected reservation")
	}
	if ttl := mr.TTL("idem:k3"); ttl > 10*time.Second {
		t.Fatalf("pending reservation should use the short ttl, got %v", ttl)
	}

	if err := repo.Complete(ctx, "k3", "task-3"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if ttl := mr.TTL("idem:k3"); ttl <= 10*time.Second {
		t.Fatalf("completed key should carry the full ttl, got %v", ttl)
	}
	mr.FastForward(time.Minute)
	if taskID, reserved, _ := repo.Reserve(ctx, "k3"); reserved || taskID != "task-3" {
		t.Fatalf("completed key should still replay, id=%q reserved=%v", taskID, reserved)
	}

	if _, reserved, _ := repo.Reserve(ctx, "k4"); !reserved {
		t.Fatalf("expected reservation")
	}
	mr.FastForward(11 * time.Second)
	if _, reserved, _ := repo.Reserve(ctx, "k4"); !reserved {
		t.Fatalf("abandoned reservation should free the key after the pending ttl")
	}
}
