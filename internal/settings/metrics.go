package settings

import (
	"sort"
	"sync"
	"time"
)

// MetricsSnapshot 单个配置域的统计信息
type MetricsSnapshot struct {
	Key              string    `json:"key"`
	Reads            int64     `json:"reads"`
	Writes           int64     `json:"writes"`
	NoopWrites       int64     `json:"noop_writes"`
	CoalescedWrites  int64     `json:"coalesced_writes"`
	SkippedRefreshes int64     `json:"skipped_refreshes"`
	DiscardedReads   int64     `json:"discarded_reads"`
	ExternalApplies  int64     `json:"external_applies"`
	Failures         int64     `json:"failures"`
	LastError        string    `json:"last_error,omitempty"`
	LastErrorAt      time.Time `json:"last_error_at,omitempty"`
	WindowStart      time.Time `json:"window_start"`
}

// Metrics 收集所有配置域的读写指标
type Metrics struct {
	mu      sync.RWMutex
	domains map[string]*domainMetrics
	window  time.Duration
	now     func() time.Time
}

// domainMetrics 单个配置域的计数器
type domainMetrics struct {
	reads            int64
	writes           int64
	noopWrites       int64
	coalescedWrites  int64
	skippedRefreshes int64
	discardedReads   int64
	externalApplies  int64
	failures         int64

	lastError   string
	lastErrorAt time.Time

	// 时间窗口统计
	windowStart time.Time
}

// NewMetrics 创建指标收集器，计数器每 window 重置一次；window 为 0 表示不重置
func NewMetrics(window time.Duration) *Metrics {
	return &Metrics{
		domains: make(map[string]*domainMetrics),
		window:  window,
		now:     time.Now,
	}
}

func (m *Metrics) record(key string, fn func(dm *domainMetrics)) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.getOrCreate(key))
}

func (m *Metrics) recordRead(key string)           { m.record(key, func(dm *domainMetrics) { dm.reads++ }) }
func (m *Metrics) recordWrite(key string)          { m.record(key, func(dm *domainMetrics) { dm.writes++ }) }
func (m *Metrics) recordNoopWrite(key string)      { m.record(key, func(dm *domainMetrics) { dm.noopWrites++ }) }
func (m *Metrics) recordCoalescedWrite(key string) { m.record(key, func(dm *domainMetrics) { dm.coalescedWrites++ }) }
func (m *Metrics) recordSkippedRefresh(key string) { m.record(key, func(dm *domainMetrics) { dm.skippedRefreshes++ }) }
func (m *Metrics) recordDiscardedRead(key string)  { m.record(key, func(dm *domainMetrics) { dm.discardedReads++ }) }
func (m *Metrics) recordExternalApply(key string)  { m.record(key, func(dm *domainMetrics) { dm.externalApplies++ }) }

func (m *Metrics) recordFailure(key string, err error) {
	m.record(key, func(dm *domainMetrics) {
		dm.failures++
		dm.lastError = err.Error()
		dm.lastErrorAt = m.now()
	})
}

// Get 获取单个配置域的指标
func (m *Metrics) Get(key string) MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{Key: key}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	dm, exists := m.domains[key]
	if !exists {
		return MetricsSnapshot{Key: key}
	}
	return dm.snapshot(key)
}

// All 获取所有配置域的指标，按 key 排序
func (m *Metrics) All() []MetricsSnapshot {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]MetricsSnapshot, 0, len(m.domains))
	for key, dm := range m.domains {
		result = append(result, dm.snapshot(key))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// Reset 重置指定配置域的指标
func (m *Metrics) Reset(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.domains, key)
}

func (dm *domainMetrics) snapshot(key string) MetricsSnapshot {
	return MetricsSnapshot{
		Key:              key,
		Reads:            dm.reads,
		Writes:           dm.writes,
		NoopWrites:       dm.noopWrites,
		CoalescedWrites:  dm.coalescedWrites,
		SkippedRefreshes: dm.skippedRefreshes,
		DiscardedReads:   dm.discardedReads,
		ExternalApplies:  dm.externalApplies,
		Failures:         dm.failures,
		LastError:        dm.lastError,
		LastErrorAt:      dm.lastErrorAt,
		WindowStart:      dm.windowStart,
	}
}

// getOrCreate 获取或创建配置域指标，调用方需持有写锁
func (m *Metrics) getOrCreate(key string) *domainMetrics {
	dm, exists := m.domains[key]
	if !exists {
		dm = &domainMetrics{windowStart: m.now()}
		m.domains[key] = dm
	}

	// 检查是否需要重置窗口
	if m.window > 0 && m.now().Sub(dm.windowStart) > m.window {
		*dm = domainMetrics{windowStart: m.now()}
	}
	return dm
}
