package store

import (
	"sync"
	"time"
)

// publishTimeout bounds how long a slow subscriber can hold up one delivery.
const publishTimeout = time.Second

// broker is the in-process pub/sub used by stores without a native one.
type broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *Message]struct{}
	closed      bool
}

func newBroker() *broker {
	return &broker{
		subscribers: make(map[string]map[chan *Message]struct{}),
	}
}

// brokerSubscription implements the Subscription interface for the in-process broker.
type brokerSubscription struct {
	broker  *broker
	channel string
	msgChan chan *Message
	once    sync.Once
}

// Channel returns the message channel for the subscription.
func (bs *brokerSubscription) Channel() <-chan *Message {
	return bs.msgChan
}

// Close removes the subscription from the broker.
func (bs *brokerSubscription) Close() error {
	bs.once.Do(func() {
		bs.broker.mu.Lock()
		defer bs.broker.mu.Unlock()

		if subs, ok := bs.broker.subscribers[bs.channel]; ok {
			if _, present := subs[bs.msgChan]; present {
				delete(subs, bs.msgChan)
				close(bs.msgChan)
			}
			if len(subs) == 0 {
				delete(bs.broker.subscribers, bs.channel)
			}
		}
	})
	return nil
}

// publish sends a message to all subscribers of a channel.
func (b *broker) publish(channel string, payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	msg := &Message{
		Channel: channel,
		Payload: payload,
	}

	for subCh := range b.subscribers[channel] {
		select {
		case subCh <- msg:
		case <-time.After(publishTimeout):
		}
	}
}

// subscribe registers a buffered channel for the given pub/sub channel.
func (b *broker) subscribe(channel string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	msgChan := make(chan *Message, 16)

	if _, ok := b.subscribers[channel]; !ok {
		b.subscribers[channel] = make(map[chan *Message]struct{})
	}
	b.subscribers[channel][msgChan] = struct{}{}

	return &brokerSubscription{
		broker:  b,
		channel: channel,
		msgChan: msgChan,
	}, nil
}

// close drops every subscription, closing their channels.
func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for channel, subs := range b.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(b.subscribers, channel)
	}
}
