package settings

import (
	"context"
	"fmt"
	"time"

	app_errors "inkcloud/internal/errors"

	"github.com/goccy/go-json"
)

// RawSnapshot is a Snapshot with the value left as JSON.
type RawSnapshot struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Status    Status          `json:"status"`
	Error     string          `json:"error,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
	Version   uint64          `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Controller is the type-erased view of a Store used by the HTTP layer, the notifier, the
// scheduler and the CLI.
type Controller interface {
	Key() string
	Status() Status
	RawSnapshot() RawSnapshot
	RawDefault() json.RawMessage
	SubscribeRaw(fn func(RawSnapshot)) (cancel func())
	SetRaw(ctx context.Context, data []byte) error
	ValidateRaw(data []byte) error
	ApplyExternalRaw(data []byte) bool
	Patch(ctx context.Context, fields map[string]any) error
	SetField(ctx context.Context, path string, value any) error
	Field(path string) (json.RawMessage, bool)
	Refresh(ctx context.Context) error
	RefreshIfIdle(ctx context.Context) (bool, error)
	Metrics() MetricsSnapshot
	Close()
}

var _ Controller = (*Store[string])(nil)

func toRaw[T any](snap Snapshot[T]) RawSnapshot {
	value, err := json.Marshal(snap.Value)
	if err != nil {
		value = json.RawMessage("null")
	}
	return RawSnapshot{
		Key:       snap.Key,
		Value:     value,
		Status:    snap.Status,
		Error:     snap.Error,
		MessageID: snap.MessageID,
		Version:   snap.Version,
		UpdatedAt: snap.UpdatedAt,
	}
}

// RawSnapshot returns the current state with the value encoded as JSON.
func (s *Store[T]) RawSnapshot() RawSnapshot {
	return toRaw(s.Snapshot())
}

// RawDefault returns the domain default encoded as JSON.
func (s *Store[T]) RawDefault() json.RawMessage {
	data, err := json.Marshal(s.def)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// SubscribeRaw is Subscribe for type-erased listeners.
func (s *Store[T]) SubscribeRaw(fn func(RawSnapshot)) func() {
	return s.Subscribe(func(snap Snapshot[T]) { fn(toRaw(snap)) })
}

// decode parses data strictly into T, normalizes it and validates it.
func (s *Store[T]) decode(data []byte) (T, error) {
	value, err := decodeStrict[T](data)
	if err != nil {
		return value, fmt.Errorf("%w: %v", app_errors.ErrValidationFailure, err)
	}
	value = s.canonical(value)
	if err := s.check(value); err != nil {
		return value, fmt.Errorf("%w: %v", app_errors.ErrValidationFailure, err)
	}
	return value, nil
}

// ValidateRaw reports whether data would be accepted by SetRaw.
func (s *Store[T]) ValidateRaw(data []byte) error {
	_, err := s.decode(data)
	return err
}

// SetRaw decodes data and stores it through Set. Undecodable input puts the store in
// StatusError like any other validation failure.
func (s *Store[T]) SetRaw(ctx context.Context, data []byte) error {
	value, err := decodeStrict[T](data)
	if err != nil {
		return s.commit(ctx, func(T) (T, error) {
			return value, fmt.Errorf("%w: %v", app_errors.ErrValidationFailure, err)
		})
	}
	return s.Set(ctx, value)
}

// ApplyExternalRaw decodes data and passes it to ApplyExternal. Undecodable data is ignored.
func (s *Store[T]) ApplyExternalRaw(data []byte) bool {
	value, err := s.decode(data)
	if err != nil {
		s.logger.WithError(err).Debug("Ignoring undecodable external settings value")
		return false
	}
	return s.ApplyExternal(value)
}
