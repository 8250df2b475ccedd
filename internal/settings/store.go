// Package settings holds the generic controller that owns one configuration domain: it loads the
// value through the persistence adapter, applies mutations optimistically, persists them one write
// at a time and reports a status lifecycle for the dashboard.
package settings

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	app_errors "inkcloud/internal/errors"
	"inkcloud/internal/kv"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/singleflight"
)

// Options configures a Store.
type Options[T any] struct {
	Key     string
	Default T
	// Validate rejects values that must never be stored. Nil accepts everything.
	Validate func(T) error
	// Normalize canonicalizes a value before validation and comparison.
	Normalize  func(T) T
	Clock      Clock
	ResetDelay time.Duration
	Metrics    *Metrics
}

// Store is the controller of one configuration domain.
type Store[T any] struct {
	key        string
	adapter    *kv.Adapter
	def        T
	validate   func(T) error
	normalize  func(T) T
	clock      Clock
	resetDelay time.Duration
	metrics    *Metrics
	logger     *logrus.Entry

	mu         sync.Mutex
	value      T
	status     Status
	errMsg     string
	msgID      string
	version    uint64 // bumped by every local mutation and accepted external value
	persisted  uint64 // highest version known to match the durable copy
	saving     int    // mutations applied in memory but not yet settled
	loaded     bool
	closed     bool
	updatedAt  time.Time
	resetTimer Timer
	resetSeq   uint64
	seq        uint64 // orders emitted snapshots

	listenerMu   sync.Mutex
	listeners    map[int]func(Snapshot[T])
	nextListener int
	deliveredSeq uint64

	writeMu sync.Mutex
	flight  singleflight.Group
}

// New creates a store in StatusLoading holding the default value. Call Refresh to load it.
func New[T any](adapter *kv.Adapter, opts Options[T]) *Store[T] {
	s := &Store[T]{
		key:        opts.Key,
		adapter:    adapter,
		validate:   opts.Validate,
		normalize:  opts.Normalize,
		clock:      opts.Clock,
		resetDelay: opts.ResetDelay,
		metrics:    opts.Metrics,
		logger:     logrus.WithField("key", opts.Key),
		status:     StatusLoading,
		listeners:  make(map[int]func(Snapshot[T])),
	}
	if s.clock == nil {
		s.clock = RealClock()
	}
	if s.resetDelay <= 0 {
		s.resetDelay = DefaultResetDelay
	}
	s.def = s.canonical(kv.MustClone(opts.Default))
	s.value = kv.MustClone(s.def)
	s.updatedAt = s.clock.Now()
	return s
}

// Key returns the storage key of the domain.
func (s *Store[T]) Key() string { return s.key }

// Default returns a copy of the domain default.
func (s *Store[T]) Default() T { return kv.MustClone(s.def) }

func (s *Store[T]) canonical(v T) T {
	if s.normalize != nil {
		return s.normalize(v)
	}
	return v
}

func (s *Store[T]) check(v T) error {
	if s.validate == nil {
		return nil
	}
	return s.validate(v)
}

// Snapshot returns a copy of the current state.
func (s *Store[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Value returns a copy of the current value.
func (s *Store[T]) Value() T {
	return s.Snapshot().Value
}

// Status returns the current status.
func (s *Store[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Store[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Key:       s.key,
		Value:     kv.MustClone(s.value),
		Status:    s.status,
		Error:     s.errMsg,
		MessageID: s.msgID,
		Version:   s.version,
		UpdatedAt: s.updatedAt,
	}
}

// Subscribe registers fn to receive a snapshot after every state change. The returned function
// removes the listener. Listeners run on the goroutine that changed the state.
func (s *Store[T]) Subscribe(fn func(Snapshot[T])) (cancel func()) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenerMu.Lock()
			defer s.listenerMu.Unlock()
			delete(s.listeners, id)
		})
	}
}

// changedLocked records a state change and returns the pending notification.
// The caller must invoke the result after releasing s.mu.
func (s *Store[T]) changedLocked() func() {
	if s.closed {
		return func() {}
	}
	s.seq++
	s.updatedAt = s.clock.Now()
	seq := s.seq
	snap := s.snapshotLocked()
	return func() { s.emit(seq, snap) }
}

func (s *Store[T]) emit(seq uint64, snap Snapshot[T]) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	// A newer snapshot may already have been delivered by a concurrent change.
	if seq <= s.deliveredSeq {
		return
	}
	s.deliveredSeq = seq

	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		s.listeners[id](snap)
	}
}

func (s *Store[T]) setStatusLocked(status Status, msg, msgID string) {
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	s.status = status
	s.errMsg = msg
	s.msgID = msgID
}

// scheduleResetLocked reverts StatusSuccess to StatusIdle after the reset delay.
func (s *Store[T]) scheduleResetLocked() {
	s.resetSeq++
	token := s.resetSeq
	s.resetTimer = s.clock.AfterFunc(s.resetDelay, func() {
		s.mu.Lock()
		if s.closed || s.status != StatusSuccess || s.resetSeq != token {
			s.mu.Unlock()
			return
		}
		s.resetTimer = nil
		s.status = StatusIdle
		s.msgID = ""
		notify := s.changedLocked()
		s.mu.Unlock()
		notify()
	})
}

// Refresh reloads the value from storage. Concurrent calls share one read. A read that completes
// after a newer local mutation is discarded.
func (s *Store[T]) Refresh(ctx context.Context) error {
	_, err, _ := s.flight.Do("refresh", func() (any, error) {
		return nil, s.refresh(ctx)
	})
	return err
}

// RefreshIfIdle refreshes unless a save is in flight. It reports whether a refresh ran.
func (s *Store[T]) RefreshIfIdle(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, nil
	}
	if s.saving > 0 || s.status == StatusSaving {
		s.mu.Unlock()
		s.metrics.recordSkippedRefresh(s.key)
		s.logger.Debug("Skipping background refresh while saving")
		return false, nil
	}
	s.mu.Unlock()

	return true, s.Refresh(ctx)
}

func (s *Store[T]) refresh(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return app_errors.ErrClosed
	}
	start := s.version
	prevStatus := s.status
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	s.status = StatusLoading
	notify := s.changedLocked()
	s.mu.Unlock()
	notify()

	return s.load(ctx, start, prevStatus, true)
}

// load reads the durable copy and installs it unless the in-memory value moved past start.
// clearError controls whether a successful read resets an error status.
func (s *Store[T]) load(ctx context.Context, start uint64, prevStatus Status, clearError bool) error {
	s.metrics.recordRead(s.key)
	value, readErr := kv.Read(ctx, s.adapter, s.key, s.def)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return app_errors.ErrClosed
	}

	if s.version != start {
		s.metrics.recordDiscardedRead(s.key)
		if s.status == StatusLoading {
			s.status = restoreStatus(prevStatus, s.errMsg)
		}
		notify := s.changedLocked()
		s.mu.Unlock()
		notify()
		return nil
	}

	if readErr != nil {
		// A backend outage keeps what we already have; anything else falls back to the default.
		if !stderrors.Is(readErr, app_errors.ErrReadFailure) || !s.loaded {
			s.value = value
		}
		msgID := MsgLoadFailed
		if stderrors.Is(readErr, app_errors.ErrCorruptValue) {
			msgID = MsgCorruptValue
			s.loaded = true
		}
		s.setStatusLocked(StatusError, readErr.Error(), msgID)
		notify := s.changedLocked()
		s.mu.Unlock()
		notify()

		s.metrics.recordFailure(s.key, readErr)
		s.logger.WithError(readErr).Warn("Failed to load settings")
		return readErr
	}

	value = s.canonical(value)
	if err := s.check(value); err != nil {
		s.logger.WithError(err).Warn("Stored settings failed validation, using default")
		value = kv.MustClone(s.def)
	}

	s.value = value
	s.loaded = true
	s.persisted = s.version
	if clearError {
		s.setStatusLocked(StatusIdle, "", "")
	} else {
		s.status = restoreStatus(prevStatus, s.errMsg)
	}
	notify := s.changedLocked()
	s.mu.Unlock()
	notify()
	return nil
}

func restoreStatus(prev Status, errMsg string) Status {
	switch {
	case errMsg != "":
		return StatusError
	case prev == StatusSaving:
		return StatusSaving
	default:
		// The success reset timer was stopped when loading began.
		return StatusIdle
	}
}

// Set replaces the whole value.
func (s *Store[T]) Set(ctx context.Context, value T) error {
	return s.commit(ctx, func(T) (T, error) {
		return kv.MustClone(value), nil
	})
}

// Update applies fn to a copy of the current value and persists the result.
func (s *Store[T]) Update(ctx context.Context, fn func(*T)) error {
	return s.commit(ctx, func(current T) (T, error) {
		fn(&current)
		return current, nil
	})
}

// SetField replaces the value at a dotted path such as "thresholds.warn".
func (s *Store[T]) SetField(ctx context.Context, path string, value any) error {
	return s.Patch(ctx, map[string]any{path: value})
}

// Patch replaces several paths in one write. Paths are applied in lexical order.
func (s *Store[T]) Patch(ctx context.Context, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return s.commit(ctx, func(current T) (T, error) {
		return patchValue(current, fields)
	})
}

// Field returns the JSON at path in the current value.
func (s *Store[T]) Field(path string) (json.RawMessage, bool) {
	s.mu.Lock()
	data, err := json.Marshal(s.value)
	s.mu.Unlock()
	if err != nil {
		return nil, false
	}

	result := gjson.GetBytes(data, path)
	if !result.Exists() {
		return nil, false
	}
	return json.RawMessage(result.Raw), true
}

func patchValue[T any](current T, fields map[string]any) (T, error) {
	var zero T
	data, err := json.Marshal(current)
	if err != nil {
		return zero, err
	}

	paths := make([]string, 0, len(fields))
	for path := range fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if path == "" {
			return zero, fmt.Errorf("%w: empty path", app_errors.ErrValidationFailure)
		}
		if !gjson.GetBytes(data, path).Exists() {
			return zero, fmt.Errorf("%w: unknown field %q", app_errors.ErrValidationFailure, path)
		}
		data, err = sjson.SetBytes(data, path, fields[path])
		if err != nil {
			return zero, fmt.Errorf("%w: %s: %v", app_errors.ErrValidationFailure, path, err)
		}
	}

	next, err := decodeStrict[T](data)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", app_errors.ErrValidationFailure, err)
	}
	return next, nil
}

func decodeStrict[T any](data []byte) (T, error) {
	var out T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// commit applies a mutation in memory and persists it. Writes are serialized per store; a
// mutation that arrives while a write is in flight is folded into the next write.
func (s *Store[T]) commit(ctx context.Context, mutate func(current T) (T, error)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return app_errors.ErrClosed
	}

	next, err := mutate(kv.MustClone(s.value))
	if err == nil {
		next = s.canonical(next)
		if verr := s.check(next); verr != nil {
			err = fmt.Errorf("%w: %v", app_errors.ErrValidationFailure, verr)
		}
	}
	if err != nil {
		if !stderrors.Is(err, app_errors.ErrValidationFailure) {
			err = fmt.Errorf("%w: %v", app_errors.ErrValidationFailure, err)
		}
		s.setStatusLocked(StatusError, err.Error(), MsgValidationFailed)
		notify := s.changedLocked()
		s.mu.Unlock()
		notify()
		s.metrics.recordFailure(s.key, err)
		return err
	}

	// Only a durable value makes an identical update a no-op; after a failed save it is a retry.
	if equalJSON(next, s.value) && s.persisted == s.version && s.status != StatusError {
		s.mu.Unlock()
		s.metrics.recordNoopWrite(s.key)
		return nil
	}

	s.value = next
	s.version++
	mine := s.version
	s.saving++
	s.setStatusLocked(StatusSaving, s.errMsg, s.msgID)
	notify := s.changedLocked()
	s.mu.Unlock()
	notify()

	return s.persist(ctx, mine)
}

func (s *Store[T]) persist(ctx context.Context, mine uint64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.saving--
		s.mu.Unlock()
		return app_errors.ErrClosed
	}
	if s.persisted >= mine {
		s.saving--
		s.settleLocked()
		notify := s.changedLocked()
		s.mu.Unlock()
		notify()
		s.metrics.recordCoalescedWrite(s.key)
		return nil
	}
	latest := s.version
	data, err := json.Marshal(s.value)
	s.mu.Unlock()

	if err == nil {
		err = s.adapter.WriteRaw(ctx, s.key, data)
	}

	s.mu.Lock()
	s.saving--
	if s.closed {
		s.mu.Unlock()
		return err
	}

	if err != nil {
		if !stderrors.Is(err, app_errors.ErrWriteFailure) {
			err = fmt.Errorf("%w: %s: %v", app_errors.ErrWriteFailure, s.key, err)
		}
		s.setStatusLocked(StatusError, err.Error(), MsgSaveFailed)
		pending := s.saving
		start := s.version
		notify := s.changedLocked()
		s.mu.Unlock()
		notify()

		s.metrics.recordFailure(s.key, err)
		s.logger.WithError(err).Error("Failed to save settings")

		// Queued mutations will retry with the newest value; otherwise resync with storage.
		if pending == 0 {
			if rerr := s.load(ctx, start, StatusError, false); rerr != nil && !stderrors.Is(rerr, app_errors.ErrClosed) {
				s.logger.WithError(rerr).Warn("Failed to reconcile settings after a failed save")
			}
		}
		return err
	}

	if latest > s.persisted {
		s.persisted = latest
	}
	s.metrics.recordWrite(s.key)
	s.settleLocked()
	notify := s.changedLocked()
	s.mu.Unlock()
	notify()

	s.logger.WithField("version", latest).Debug("Settings saved")
	return nil
}

// settleLocked moves to StatusSuccess once no mutation is pending.
func (s *Store[T]) settleLocked() {
	if s.saving > 0 {
		return
	}
	s.setStatusLocked(StatusSuccess, "", MsgSaved)
	s.scheduleResetLocked()
}

// ApplyExternal installs a value written by another context. It is ignored while a save is in
// flight, when the value fails validation or when it equals the current value. It reports
// whether the value was applied.
func (s *Store[T]) ApplyExternal(value T) bool {
	value = s.canonical(value)
	if err := s.check(value); err != nil {
		s.logger.WithError(err).Debug("Ignoring invalid external settings value")
		return false
	}

	s.mu.Lock()
	if s.closed || s.saving > 0 {
		s.mu.Unlock()
		return false
	}
	if equalJSON(value, s.value) {
		s.mu.Unlock()
		return false
	}

	s.value = kv.MustClone(value)
	s.version++
	s.persisted = s.version
	s.loaded = true
	notify := s.changedLocked()
	s.mu.Unlock()
	notify()

	s.metrics.recordExternalApply(s.key)
	return true
}

// Close stops the reset timer, drops listeners and suppresses every later state change.
func (s *Store[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	s.mu.Unlock()

	s.listenerMu.Lock()
	s.listeners = make(map[int]func(Snapshot[T]))
	s.listenerMu.Unlock()
}

// Closed reports whether Close was called.
func (s *Store[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Metrics returns the counters of this store.
func (s *Store[T]) Metrics() MetricsSnapshot {
	return s.metrics.Get(s.key)
}

func equalJSON[T any](a, b T) bool {
	left, err := json.Marshal(a)
	if err != nil {
		return false
	}
	right, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}
