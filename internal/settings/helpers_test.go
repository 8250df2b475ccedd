package settings

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"inkcloud/internal/kv"
	"inkcloud/internal/store"
)

// fakeClock fires timers only when Advance moves past their deadline.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// instrumentedStore counts backend calls and can block or fail them.
type instrumentedStore struct {
	*store.MemoryStore

	gets atomic.Int64
	sets atomic.Int64

	mu       sync.Mutex
	getBlock chan struct{}
	setBlock chan struct{}
	getErr   error
	setErr   error
}

func newInstrumentedStore() *instrumentedStore {
	return &instrumentedStore{MemoryStore: store.NewMemoryStore()}
}

func (s *instrumentedStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.gets.Add(1)
	s.mu.Lock()
	block, err := s.getBlock, s.getErr
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *instrumentedStore) Set(ctx context.Context, key string, value []byte) error {
	s.sets.Add(1)
	s.mu.Lock()
	block, err := s.setBlock, s.setErr
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	if err != nil {
		return err
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *instrumentedStore) blockSets() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setBlock = make(chan struct{})
	return s.setBlock
}

func (s *instrumentedStore) blockGets() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getBlock = make(chan struct{})
	return s.getBlock
}

func (s *instrumentedStore) failSets(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErr = err
}

func (s *instrumentedStore) failGets(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr = err
}

func (s *instrumentedStore) raw(key string) string {
	data, err := s.MemoryStore.Get(context.Background(), key)
	if err != nil {
		return ""
	}
	return string(data)
}

type thresholds struct {
	Warn int `json:"warn"`
	Ban  int `json:"ban"`
}

type prefs struct {
	Theme      string     `json:"theme"`
	Scale      int        `json:"scale"`
	Thresholds thresholds `json:"thresholds"`
}

func defaultPrefs() prefs {
	return prefs{Theme: "dark", Scale: 100, Thresholds: thresholds{Warn: 50, Ban: 50}}
}

func newPrefsStore(backend store.Store, clock Clock, validate func(prefs) error) *Store[prefs] {
	return New(kv.New(backend, kv.Options{}), Options[prefs]{
		Key:      "test.prefs",
		Default:  defaultPrefs(),
		Validate: validate,
		Clock:    clock,
		Metrics:  NewMetrics(0),
	})
}

// statusRecorder collects the statuses a store emits.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (r *statusRecorder) record(snap Snapshot[prefs]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, snap.Status)
}

func (r *statusRecorder) all() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.statuses...)
}
