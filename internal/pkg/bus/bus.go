package bus

import "sync"

// Handler receives a published payload.
type Handler func(payload any)

type subscriber struct {
	id int64
	fn Handler
}

// Bus is a synchronous publish-subscribe dispatcher. Handlers for a
// topic run in registration order on the publisher's goroutine.
type Bus struct {
	mu     sync.RWMutex
	nextID int64
	topics map[string][]subscriber
	closed bool
}

func New() *Bus {
	return &Bus{
		topics: make(map[string][]subscriber),
	}
}

// Subscribe registers h for topic and returns an unsubscribe
// capability. Calling the capability more than once is a no-op.
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], subscriber{id: id, fn: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.remove(topic, id)
		})
	}
}

func (b *Bus) remove(topic string, id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[topic]
	for i, s := range subs {
		if s.id == id {
			b.topics[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish dispatches payload to every subscriber of topic, in
// registration order.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.topics[topic]))
	copy(subs, b.topics[topic])
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(payload)
	}
}

// Close drops all subscribers. Subsequent Subscribe calls are inert.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = make(map[string][]subscriber)
	b.closed = true
}
