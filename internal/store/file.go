package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const (
	fileSuffix = ".json"
	tempSuffix = ".tmp"
)

// Watcher is implemented by stores that can observe writes made by other processes.
type Watcher interface {
	// Watch calls onChange with the key of every externally modified entry.
	// It blocks until ctx is cancelled.
	Watch(ctx context.Context, onChange func(key string)) error
}

// FileStore keeps one JSON file per key inside a directory. Several processes may share the
// directory; each one sees the others' writes through Watch.
type FileStore struct {
	dir    string
	mu     sync.RWMutex
	own    map[string][]byte // last content this process wrote per key, nil after a local delete
	broker *broker
}

// NewFileStore creates the directory if needed and returns a FileStore rooted at it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dir, err)
	}

	// Check writability so callers can fall back early instead of failing on first save.
	check, err := os.CreateTemp(dir, ".writable-*"+tempSuffix)
	if err != nil {
		return nil, fmt.Errorf("data directory %s is not writable: %w", dir, err)
	}
	check.Close()
	os.Remove(check.Name())

	return &FileStore{
		dir:    dir,
		own:    make(map[string][]byte),
		broker: newBroker(),
	}, nil
}

// Dir returns the directory backing the store.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+fileSuffix)
}

func keyFromFilename(name string) (string, bool) {
	if !strings.HasSuffix(name, fileSuffix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(name, fileSuffix))
	if err != nil {
		return "", false
	}
	return key, true
}

// Get reads the file stored for key.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set writes value atomically via a temp file and rename.
func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".write-*"+tempSuffix)
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", key, err)
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", key, err)
	}

	s.own[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes the file stored for key.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.own[key] = nil
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Exists checks if a file exists for key.
func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Keys lists the stored keys with the given prefix.
func (s *FileStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, ok := keyFromFilename(entry.Name())
		if ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Publish sends a message to subscribers inside this process.
func (s *FileStore) Publish(_ context.Context, channel string, message []byte) error {
	s.broker.publish(channel, message)
	return nil
}

// Subscribe listens for messages published inside this process.
func (s *FileStore) Subscribe(_ context.Context, channel string) (Subscription, error) {
	return s.broker.subscribe(channel)
}

// Close drops every subscription.
func (s *FileStore) Close() error {
	s.broker.close()
	return nil
}

// Watch monitors the data directory and reports keys written by other processes.
// It blocks until the context is cancelled.
func (s *FileStore) Watch(ctx context.Context, onChange func(key string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch data dir: %w", err)
	}

	logrus.WithField("dir", s.dir).Debug("Watching settings directory for external changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if key, external := s.classify(event); external {
				onChange(key)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logrus.WithError(err).Warn("Settings directory watcher error")
		}
	}
}

// classify decides whether an fsnotify event is a change made by someone else.
func (s *FileStore) classify(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}

	key, ok := keyFromFilename(filepath.Base(event.Name))
	if !ok {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	own, tracked := s.own[key]
	data, err := os.ReadFile(event.Name)
	if err != nil {
		// Gone. A nil entry means this process deleted it.
		return key, !(tracked && own == nil)
	}
	if tracked && bytes.Equal(data, own) {
		return "", false
	}
	return key, true
}
