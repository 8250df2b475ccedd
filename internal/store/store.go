package store

import (
	"context"
	"errors"
)

// ErrNotFound is the error returned when a key is not found in the store.
var ErrNotFound = errors.New("store: key not found")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Message is the struct for received pub/sub messages.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription represents an active subscription to a pub/sub channel.
type Subscription interface {
	Channel() <-chan *Message
	Close() error
}

// Store is a generic key-value store interface.
type Store interface {
	// Get retrieves a value by its key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a key-value pair, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a value by its key.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in the store.
	Exists(ctx context.Context, key string) (bool, error)

	// Keys lists the keys that start with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Publish sends a message to a given channel.
	Publish(ctx context.Context, channel string, message []byte) error

	// Subscribe listens for messages on a given channel.
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	// Close closes the store and releases any underlying resources.
	Close() error
}

// Backend names accepted by NewStore.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendDatabase = "database"
	BackendRedis    = "redis"
)
