package settings

import "time"

// Status is the operation status shown next to a settings form.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSaving  Status = "saving"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Message ids attached to snapshots so the dashboard can localize status text.
const (
	MsgLoadFailed       = "settings.load_failed"
	MsgCorruptValue     = "settings.corrupt_value"
	MsgSaveFailed       = "settings.save_failed"
	MsgValidationFailed = "settings.validation_failed"
	MsgSaved            = "settings.saved"
)

// DefaultResetDelay is how long StatusSuccess is held before reverting to StatusIdle.
const DefaultResetDelay = 1700 * time.Millisecond

// Snapshot is a read-only copy of a store's state.
type Snapshot[T any] struct {
	Key       string    `json:"key"`
	Value     T         `json:"value"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}
