// Package notifier applies settings written by other processes to the local stores.
//
// Change events arrive on the backing store's pub/sub channel, or from the file watcher when the
// store keeps one file per key. Each event only names a key; the value is re-read from storage
// and handed to the owning store, which drops anything that fails validation.
package notifier

import (
	"context"
	"sync"

	"inkcloud/internal/kv"
	"inkcloud/internal/store"

	"github.com/sirupsen/logrus"
)

// OriginFile marks events produced by the file watcher.
const OriginFile = "file"

// Target is a store that accepts values written elsewhere.
type Target interface {
	Key() string
	ApplyExternalRaw(data []byte) bool
}

// Notifier routes change events to registered targets.
type Notifier struct {
	adapter *kv.Adapter

	mu      sync.RWMutex
	targets map[string]Target

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a notifier reading through adapter.
func New(adapter *kv.Adapter) *Notifier {
	return &Notifier{
		adapter: adapter,
		targets: make(map[string]Target),
	}
}

// Register adds targets. A later target for the same key replaces the earlier one.
func (n *Notifier) Register(targets ...Target) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, t := range targets {
		n.targets[t.Key()] = t
	}
}

// Start subscribes to the change channel and, when available, the file watcher.
func (n *Notifier) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	sub, err := n.adapter.Store().Subscribe(ctx, n.adapter.Channel())
	if err != nil {
		cancel()
		return err
	}
	n.cancel = cancel

	n.wg.Add(1)
	go n.consume(ctx, sub)

	if watcher, ok := n.adapter.Store().(store.Watcher); ok {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			err := watcher.Watch(ctx, func(key string) {
				n.Handle(ctx, kv.ChangeEvent{Key: key, Origin: OriginFile})
			})
			if err != nil {
				logrus.WithError(err).Warn("Settings file watcher stopped")
			}
		}()
	}

	logrus.WithField("channel", n.adapter.Channel()).Debug("Settings change notifier started")
	return nil
}

func (n *Notifier) consume(ctx context.Context, sub store.Subscription) {
	defer n.wg.Done()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			event, err := kv.DecodeEvent(msg.Payload)
			if err != nil {
				logrus.WithError(err).Debug("Ignoring malformed settings change event")
				continue
			}
			n.Handle(ctx, event)
		}
	}
}

// Handle applies one change event and reports whether a store took the new value.
func (n *Notifier) Handle(ctx context.Context, event kv.ChangeEvent) bool {
	if event.Origin == n.adapter.Origin() {
		return false
	}

	n.mu.RLock()
	target, ok := n.targets[event.Key]
	n.mu.RUnlock()
	if !ok {
		return false
	}

	logger := logrus.WithFields(logrus.Fields{"key": event.Key, "origin": event.Origin})

	raw, found, err := n.adapter.ReadRaw(ctx, event.Key)
	if err != nil {
		logger.WithError(err).Debug("Ignoring unreadable external settings change")
		return false
	}
	if !found {
		return false
	}

	if !target.ApplyExternalRaw(raw) {
		return false
	}
	logger.Info("Applied settings change from another context")
	return true
}

// Stop ends the subscription and the watcher.
func (n *Notifier) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	n.wg.Wait()
}
