// Package events is a small in-process pub/sub bus. It replaces the pattern of
// installing feed-interaction callbacks on a shared global namespace: components
// that need to observe feed changes subscribe explicitly.
package events

import "sync"

// Topic names published by the feed engine.
const (
	TopicFeedRefreshed    = "feed.refreshed"
	TopicPostUpdated      = "post.updated"
	TopicCommentsReloaded = "comments.reloaded"
)

// Event is a published notification.
type Event struct {
	Topic   string
	GroupID int64
	PostID  int64
	Payload any
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(Event)

// Bus fans events out to subscribed handlers.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]subscription
	next int
}

type subscription struct {
	id int
	fn Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers a handler for a topic and returns an unsubscribe func.
func (b *Bus) Subscribe(topic string, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	b.subs[topic] = append(b.subs[topic], subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[topic]
		for i, s := range subs {
			if s.id == id {
				b.subs[topic] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the event to every handler subscribed to its topic.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[e.Topic]))
	copy(subs, b.subs[e.Topic])
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(e)
	}
}
