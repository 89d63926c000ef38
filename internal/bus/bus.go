package bus

import "sync"

// Topic names a collection that may have changed. Subscribers receive no
// payload: each one re-fetches or re-reads the cache mirror on its own.
type Topic string

const (
	TopicInternships   Topic = "internships_changed"
	TopicApplications  Topic = "applications_changed"
	TopicVerifications Topic = "verifications_changed"
)

type subscriber struct {
	id int
	fn func()
}

// Bus is an in-process publish/subscribe signal shared by the portals.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[Topic][]subscriber
}

func New() *Bus {
	return &Bus{subs: map[Topic][]subscriber{}}
}

// Subscribe registers fn for topic and returns its unsubscribe function.
// Handlers fire in subscription order. A component must call the returned
// function on teardown so a publish never reaches removed view state.
func (b *Bus) Subscribe(topic Topic, fn func()) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscriber{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[topic]
		for i, s := range list {
			if s.id == id {
				b.subs[topic] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish invokes every current subscriber of topic once, in subscription
// order. Publishing with no subscribers is a no-op.
func (b *Bus) Publish(topic Topic) {
	b.mu.Lock()
	list := make([]subscriber, len(b.subs[topic]))
	copy(list, b.subs[topic])
	b.mu.Unlock()

	for _, s := range list {
		s.fn()
	}
}
