package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestShutdownRunsHooksInReverse(t *testing.T) {
	m := New(time.Second, nil)
	var order []string
	m.Register("store", func(ctx context.Context) error {
		order = append(order, "store")
		return nil
	})
	m.Closer("redis", func() error {
		order = append(order, "redis")
		return errors.New("already closed")
	})
	m.Register("http_server", func(ctx context.Context) error {
		order = append(order, "http_server")
		return nil
	})

	err := m.Shutdown(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already closed") {
		t.Fatalf("expected joined hook error, got %v", err)
	}
	if strings.Join(order, ",") != "http_server,redis,store" {
		t.Fatalf("unexpected order %v", order)
	}

	if err := m.Shutdown(context.Background()); err != nil || len(order) != 3 {
		t.Fatalf("second shutdown should be a no-op, got err=%v order=%v", err, order)
	}
}

func TestShutdownHonoursTimeout(t *testing.T) {
	m := New(10*time.Millisecond, nil)
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if err := m.Shutdown(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
