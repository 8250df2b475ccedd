package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory key-value store that is safe for concurrent use.
// It is the fallback when no persistent backend can be used.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	broker *broker
}

// NewMemoryStore creates and returns a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:   make(map[string][]byte),
		broker: newBroker(),
	}
}

// Close drops every subscription.
func (s *MemoryStore) Close() error {
	s.broker.close()
	return nil
}

// Set stores a copy of value under key.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Get retrieves a copy of the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.data[key]
	if !exists {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Delete removes a value by its key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Exists checks if a key exists.
func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.data[key]
	return exists, nil
}

// Keys lists stored keys with the given prefix in lexical order.
func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Publish sends a message to all subscribers of a channel.
func (s *MemoryStore) Publish(_ context.Context, channel string, message []byte) error {
	s.broker.publish(channel, message)
	return nil
}

// Subscribe listens for messages on a given channel.
func (s *MemoryStore) Subscribe(_ context.Context, channel string) (Subscription, error) {
	return s.broker.subscribe(channel)
}
