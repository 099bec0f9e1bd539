package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CheckFunc probes one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name     string
	fn       CheckFunc
	required bool
}

// Monitor refreshes dependency health on a cron schedule and serves the last result.
type Monitor struct {
	checks   []check
	interval time.Duration
	cron     *cron.Cron
	logger   *zap.Logger

	mu     sync.RWMutex
	status Status
}

func New(interval time.Duration, logger *zap.Logger) *Monitor {
	if interval < time.Second {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		interval: interval,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
	}
}

// Register adds a named probe. Required probes decide whether the service is online.
func (m *Monitor) Register(name string, required bool, fn CheckFunc) {
	if fn == nil {
		return
	}
	m.checks = append(m.checks, check{name: name, fn: fn, required: required})
}

// Start runs the first refresh synchronously and then schedules the rest.
func (m *Monitor) Start() error {
	m.Refresh(context.Background())

	schedule := fmt.Sprintf("@every %ds", int(m.interval.Seconds()))
	if _, err := m.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.interval)
		defer cancel()
		m.Refresh(ctx)
	}); err != nil {
		return err
	}
	m.cron.Start()
	return nil
}

// Stop waits for a running refresh to finish or ctx to end.
func (m *Monitor) Stop(ctx context.Context) {
	stopCtx := m.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Online
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.clone()
}

// Refresh probes every registered dependency once.
func (m *Monitor) Refresh(ctx context.Context) {
	status := Status{
		Online:    true,
		Services:  make(map[string]bool, len(m.checks)),
		LastCheck: time.Now().UTC(),
	}

	for _, c := range m.checks {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := c.fn(probeCtx)
		cancel()

		healthy := err == nil
		status.Services[c.name] = healthy
		if !healthy {
			m.logger.Warn("dependency check failed", zap.String("service", c.name), zap.Error(err))
			if c.required {
				status.Online = false
			}
		}
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

// Names returns the registered probe names in sorted order.
func (m *Monitor) Names() []string {
	names := make([]string, 0, len(m.checks))
	for _, c := range m.checks {
		names = append(names, c.name)
	}
	sort.Strings(names)
	return names
}
