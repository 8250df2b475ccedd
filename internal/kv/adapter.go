// Package kv reads and writes JSON values under string keys on top of a backing store.
//
// Reads never fail to produce a value: absent or unreadable entries yield a deep copy of the
// caller's fallback, and the returned error only says why the fallback was used.
package kv

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"

	app_errors "inkcloud/internal/errors"
	"inkcloud/internal/encryption"
	"inkcloud/internal/store"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// DefaultChannel is the pub/sub channel change events are published on.
const DefaultChannel = "inkcloud:settings:changed"

// envelopeField marks a value stored encrypted.
const envelopeField = "$enc"

// ChangeEvent announces that the value under Key was replaced.
type ChangeEvent struct {
	Key     string `json:"key"`
	Origin  string `json:"origin"`
	Version uint64 `json:"version,omitempty"`
}

// DecodeEvent parses a change event payload.
func DecodeEvent(payload []byte) (ChangeEvent, error) {
	var event ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return ChangeEvent{}, err
	}
	if event.Key == "" {
		return ChangeEvent{}, fmt.Errorf("change event without key")
	}
	return event, nil
}

type envelope struct {
	Enc string `json:"$enc"`
}

// Options configures an Adapter.
type Options struct {
	// Channel overrides DefaultChannel.
	Channel string
	// Encryption protects the keys listed in Sensitive. Nil disables encryption.
	Encryption encryption.Service
	Sensitive  []string
}

// Adapter is the persistence adapter shared by every settings store of a process.
type Adapter struct {
	store   store.Store
	channel string
	origin  string
	enc     encryption.Service

	mu        sync.Mutex
	locks     map[string]*sync.Mutex
	sensitive map[string]bool

	seq atomic.Uint64
}

// New creates an adapter over s.
func New(s store.Store, opts Options) *Adapter {
	channel := opts.Channel
	if channel == "" {
		channel = DefaultChannel
	}

	a := &Adapter{
		store:     s,
		channel:   channel,
		origin:    uuid.NewString(),
		enc:       opts.Encryption,
		locks:     make(map[string]*sync.Mutex),
		sensitive: make(map[string]bool),
	}
	for _, key := range opts.Sensitive {
		a.sensitive[key] = true
	}
	return a
}

// Store returns the backing store.
func (a *Adapter) Store() store.Store { return a.store }

// Channel returns the channel change events are published on.
func (a *Adapter) Channel() string { return a.channel }

// Origin identifies this process in change events.
func (a *Adapter) Origin() string { return a.origin }

// MarkSensitive stores key encrypted from the next write on.
func (a *Adapter) MarkSensitive(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sensitive[key] = true
}

func (a *Adapter) isSensitive(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sensitive[key]
}

func (a *Adapter) keyLock(key string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[key]
	if !ok {
		l = &sync.Mutex{}
		a.locks[key] = l
	}
	return l
}

// ReadRaw returns the plaintext JSON stored under key. found is false for absent keys.
func (a *Adapter) ReadRaw(ctx context.Context, key string) (data []byte, found bool, err error) {
	raw, err := a.store.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: %s: %w", app_errors.ErrReadFailure, key, err)
	}

	plain, err := a.open(raw)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %s: %w", app_errors.ErrCorruptValue, key, err)
	}
	if !json.Valid(plain) {
		return nil, true, fmt.Errorf("%w: %s: invalid JSON", app_errors.ErrCorruptValue, key)
	}
	return plain, true, nil
}

// WriteRaw stores plaintext JSON under key and announces the change.
func (a *Adapter) WriteRaw(ctx context.Context, key string, data []byte) error {
	l := a.keyLock(key)
	l.Lock()
	defer l.Unlock()
	return a.writeLocked(ctx, key, data)
}

// Remove deletes key and announces the change.
func (a *Adapter) Remove(ctx context.Context, key string) error {
	l := a.keyLock(key)
	l.Lock()
	defer l.Unlock()

	if err := a.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: %s: %w", app_errors.ErrWriteFailure, key, err)
	}
	a.publish(ctx, key)
	return nil
}

// Keys lists stored keys with the given prefix.
func (a *Adapter) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := a.store.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", app_errors.ErrReadFailure, err)
	}
	return keys, nil
}

func (a *Adapter) writeLocked(ctx context.Context, key string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("%w: %s: invalid JSON", app_errors.ErrWriteFailure, key)
	}

	sealed, err := a.seal(key, data)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", app_errors.ErrWriteFailure, key, err)
	}
	if err := a.store.Set(ctx, key, sealed); err != nil {
		return fmt.Errorf("%w: %s: %w", app_errors.ErrWriteFailure, key, err)
	}

	a.publish(ctx, key)
	return nil
}

// publish is best effort; a lost announcement only delays other contexts until their next refresh.
func (a *Adapter) publish(ctx context.Context, key string) {
	payload, err := json.Marshal(ChangeEvent{Key: key, Origin: a.origin, Version: a.seq.Add(1)})
	if err != nil {
		return
	}
	if err := a.store.Publish(ctx, a.channel, payload); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to publish settings change")
	}
}

func (a *Adapter) seal(key string, data []byte) ([]byte, error) {
	if a.enc == nil || !a.enc.Enabled() || !a.isSensitive(key) {
		return data, nil
	}
	ciphertext, err := a.enc.Encrypt(string(data))
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Enc: ciphertext})
}

func (a *Adapter) open(raw []byte) ([]byte, error) {
	ciphertext, sealed := envelopeValue(raw)
	if !sealed {
		return raw, nil
	}
	if a.enc == nil || !a.enc.Enabled() {
		return nil, fmt.Errorf("value is encrypted but no encryption key is configured")
	}
	plain, err := a.enc.Decrypt(ciphertext)
	if err != nil {
		return nil, err
	}
	return []byte(plain), nil
}

// envelopeValue reports whether raw is an encryption envelope and returns its ciphertext.
func envelopeValue(raw []byte) (string, bool) {
	result := gjson.ParseBytes(raw)
	if !result.IsObject() {
		return "", false
	}

	var (
		fields     int
		ciphertext string
		found      bool
	)
	result.ForEach(func(k, v gjson.Result) bool {
		fields++
		if k.String() == envelopeField && v.Type == gjson.String {
			ciphertext = v.String()
			found = true
		}
		return true
	})
	return ciphertext, found && fields == 1
}

// Clone deep-copies v through its JSON form.
func Clone[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

// MustClone is Clone for values known to round-trip; it returns v itself otherwise.
func MustClone[T any](v T) T {
	out, err := Clone(v)
	if err != nil {
		return v
	}
	return out
}

// Read returns a deep copy of the value under key, or a deep copy of fallback when the key is
// absent or unusable. The error is nil for absent keys, wraps ErrCorruptValue when the stored
// value cannot be decoded and ErrReadFailure when the backend failed.
func Read[T any](ctx context.Context, a *Adapter, key string, fallback T) (T, error) {
	raw, found, err := a.ReadRaw(ctx, key)
	if err != nil {
		if stderrors.Is(err, app_errors.ErrCorruptValue) {
			logrus.WithError(err).WithField("key", key).Warn("Stored setting is corrupt, using default")
		}
		return MustClone(fallback), err
	}
	if !found {
		return MustClone(fallback), nil
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Stored setting has an unexpected shape, using default")
		return MustClone(fallback), fmt.Errorf("%w: %s: %w", app_errors.ErrCorruptValue, key, err)
	}
	return value, nil
}

// ReadStrict decodes the value under key without falling back. found is false for absent keys.
func ReadStrict[T any](ctx context.Context, a *Adapter, key string) (value T, found bool, err error) {
	raw, found, err := a.ReadRaw(ctx, key)
	if err != nil || !found {
		return value, found, err
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, true, fmt.Errorf("%w: %s: %w", app_errors.ErrCorruptValue, key, err)
	}
	return value, true, nil
}

// Write serializes value, stores it under key and returns a deep copy of what was written.
func Write[T any](ctx context.Context, a *Adapter, key string, value T) (T, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return value, fmt.Errorf("%w: %s: %w", app_errors.ErrWriteFailure, key, err)
	}
	if err := a.WriteRaw(ctx, key, data); err != nil {
		return value, err
	}
	return decodeWritten(data, value), nil
}

// Update performs read-modify-write on key while holding the key's lock, so concurrent updates
// in this process are applied one after another.
func Update[T any](ctx context.Context, a *Adapter, key string, fallback T, updater func(T) T) (T, error) {
	l := a.keyLock(key)
	l.Lock()
	defer l.Unlock()

	current, err := Read(ctx, a, key, fallback)
	if err != nil && stderrors.Is(err, app_errors.ErrReadFailure) {
		return current, err
	}

	next := updater(current)
	data, err := json.Marshal(next)
	if err != nil {
		return current, fmt.Errorf("%w: %s: %w", app_errors.ErrWriteFailure, key, err)
	}
	if err := a.writeLocked(ctx, key, data); err != nil {
		return current, err
	}
	return decodeWritten(data, next), nil
}

func decodeWritten[T any](data []byte, value T) T {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return value
	}
	return out
}
