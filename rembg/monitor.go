package rembg

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultHealthSchedule = "@every 30s"
	defaultProbeTimeout   = 5 * time.Second
)

type HealthChecker interface {
	Health(ctx context.Context) (*HealthStatus, error)
}

// Snapshot 最近一次探测的结果
type Snapshot struct {
	Healthy   bool
	CheckedAt time.Time
	Err       string
}

// HealthMonitor 按 cron 计划探测模型服务，健康 ⟺ 探测成功且模型已加载
type HealthMonitor struct {
	checker  HealthChecker
	schedule string
	timeout  time.Duration
	cron     *cron.Cron

	mu   sync.RWMutex
	snap Snapshot
}

func NewHealthMonitor(checker HealthChecker, schedule string) *HealthMonitor {
	if schedule == "" {
		schedule = DefaultHealthSchedule
	}
	return &HealthMonitor{
		checker:  checker,
		schedule: schedule,
		timeout:  defaultProbeTimeout,
		cron:     cron.New(),
	}
}

// Start 先同步探测一次，再按计划周期探测
func (m *HealthMonitor) Start() error {
	m.Probe(context.Background())

	_, err := m.cron.AddFunc(m.schedule, func() {
		m.Probe(context.Background())
	})
	if err != nil {
		return fmt.Errorf("add health job %q: %w", m.schedule, err)
	}

	m.cron.Start()
	return nil
}

// Stop 停止调度并等待正在执行的探测结束
func (m *HealthMonitor) Stop() {
	<-m.cron.Stop().Done()
}

func (m *HealthMonitor) Probe(ctx context.Context) Snapshot {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	snap := Snapshot{CheckedAt: time.Now()}
	status, err := m.checker.Health(ctx)
	switch {
	case err != nil:
		snap.Err = err.Error()
	case status == nil || !status.ModelLoaded:
		snap.Err = "model not loaded"
	default:
		snap.Healthy = true
	}

	m.mu.Lock()
	changed := m.snap.Healthy != snap.Healthy || m.snap.CheckedAt.IsZero()
	m.snap = snap
	m.mu.Unlock()

	if changed {
		slog.Info("remote remover health changed", "healthy", snap.Healthy, "error", snap.Err)
	} else {
		slog.Debug("remote remover probed", "healthy", snap.Healthy)
	}

	return snap
}

func (m *HealthMonitor) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Healthy
}

func (m *HealthMonitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}
