package pubsub

import (
	"context"
	"errors"
	"sync"
)

// DefaultBufferSize is the per-subscription channel buffer used when no
// explicit size is given.
const DefaultBufferSize = 100

// ErrShutdown is returned by Subscribe after Shutdown has been called.
var ErrShutdown = errors.New("pubsub: shut down")

// PubSub provides publish/subscribe fan-out for change notifications
type PubSub struct {
	subscribers map[string]map[*Subscription]bool
	bufferSize  int
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
}

// Subscription represents a subscription to a topic
type Subscription struct {
	topic     string
	channel   chan any
	ps        *PubSub
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once // Ensures channel is only closed once
}

// NewPubSub creates a new PubSub instance. bufferSize is the channel
// buffer per subscription; values <= 0 fall back to DefaultBufferSize.
func NewPubSub(bufferSize int) *PubSub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &PubSub{
		subscribers: make(map[string]map[*Subscription]bool),
		bufferSize:  bufferSize,
		shutdown:    make(chan struct{}),
	}
}

// Subscribe creates a new subscription to a topic
func (ps *PubSub) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return nil, ErrShutdown
	}
	ps.shutdownMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:   topic,
		channel: make(chan any, ps.bufferSize),
		ps:      ps,
		ctx:     subCtx,
		cancel:  cancel,
	}

	// Add to subscribers
	ps.mu.Lock()
	if ps.subscribers[topic] == nil {
		ps.subscribers[topic] = make(map[*Subscription]bool)
	}
	ps.subscribers[topic][sub] = true
	ps.mu.Unlock()

	// Monitor context cancellation
	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-ps.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish sends a message to all subscribers of a topic. It reports how
// many subscribers received the message and how many were skipped
// because their buffer was full, so callers can account for drops.
// Uses a snapshot copy to avoid holding the lock during channel sends.
func (ps *PubSub) Publish(topic string, message any) (delivered, dropped int) {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return 0, 0
	}
	ps.shutdownMu.Unlock()

	// Take a snapshot of subscribers under lock to avoid race condition
	// during iteration (concurrent Unsubscribe could modify the map)
	ps.mu.RLock()
	topicSubs := ps.subscribers[topic]
	if len(topicSubs) == 0 {
		ps.mu.RUnlock()
		return 0, 0
	}
	subs := make([]*Subscription, 0, len(topicSubs))
	for sub := range topicSubs {
		subs = append(subs, sub)
	}
	ps.mu.RUnlock()

	// Send message to all subscribers (outside lock to avoid blocking)
	for _, sub := range subs {
		select {
		case sub.channel <- message:
			delivered++
		default:
			// Channel full, skip (non-blocking)
			dropped++
		}
	}

	return delivered, dropped
}

// GetSubscriberCount returns the number of subscribers for a topic
func (ps *PubSub) GetSubscriberCount(topic string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.subscribers[topic] == nil {
		return 0
	}

	return len(ps.subscribers[topic])
}

// TotalSubscribers returns the number of subscriptions across all topics
func (ps *PubSub) TotalSubscribers() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	total := 0
	for _, subs := range ps.subscribers {
		total += len(subs)
	}
	return total
}

// Shutdown closes all subscriptions and shuts down the PubSub
func (ps *PubSub) Shutdown() {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return
	}
	ps.isShutdown = true
	ps.shutdownMu.Unlock()

	close(ps.shutdown)

	// Close all subscription channels
	ps.mu.Lock()
	for topic := range ps.subscribers {
		for sub := range ps.subscribers[topic] {
			sub.close()
		}
		delete(ps.subscribers, topic)
	}
	ps.mu.Unlock()
}

// Topic returns the topic the subscription listens on
func (s *Subscription) Topic() string {
	return s.topic
}

// Channel returns the subscription's message channel
func (s *Subscription) Channel() <-chan any {
	return s.channel
}

// Unsubscribe removes the subscription
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.ps.mu.Lock()
	defer s.ps.mu.Unlock()

	if s.ps.subscribers[s.topic] != nil {
		delete(s.ps.subscribers[s.topic], s)
		if len(s.ps.subscribers[s.topic]) == 0 {
			delete(s.ps.subscribers, s.topic)
		}
	}

	s.close()
}

// close closes the subscription channel safely (idempotent)
func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
