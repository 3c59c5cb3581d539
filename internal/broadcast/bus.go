package broadcast

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Topics consumed by the playback core.
const (
	TopicKillAllPlayback      = "killAllPlayback"
	TopicAppEnteredBackground = "appEnteredBackground"
	TopicAppEnteredForeground = "appEnteredForeground"
)

var (
	// ErrBusClosed is returned when operations are attempted on a closed bus.
	ErrBusClosed = errors.New("broadcast bus is closed")

	// ErrNilChannel is returned when Subscribe is called with a nil channel.
	ErrNilChannel = errors.New("subscriber channel cannot be nil")

	// ErrSubscriberExists is returned when a subscriber id is already
	// registered for a topic.
	ErrSubscriberExists = errors.New("subscriber id already exists for topic")
)

// Signal is one delivered broadcast. Kill and lifecycle topics carry no
// payload beyond the topic itself; Seq and Time exist for logging and
// trace output.
type Signal struct {
	Topic string
	Seq   uint64
	Time  time.Time
}

// Stats is a snapshot of bus delivery counters.
type Stats struct {
	TotalPublished uint64
	TotalSent      uint64
	TotalDropped   uint64
}

// Bus fans signals out to subscribers with a non-blocking drop policy.
// All methods are safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[string]*subscriber
	closed bool

	seq       atomic.Uint64
	published atomic.Uint64
	sent      atomic.Uint64
	dropped   atomic.Uint64
}

type subscriber struct {
	ch chan<- Signal
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		topics: make(map[string]map[string]*subscriber),
	}
}

// Subscribe registers ch to receive signals for topic. The returned
// Subscription must be cancelled when the subscriber goes away; Cancel
// is idempotent and safe to call after the bus is closed.
func (b *Bus) Subscribe(topic, id string, ch chan<- Signal) (*Subscription, error) {
	if ch == nil {
		return nil, ErrNilChannel
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	subs := b.topics[topic]
	if subs == nil {
		subs = make(map[string]*subscriber)
		b.topics[topic] = subs
	}
	if _, exists := subs[id]; exists {
		return nil, ErrSubscriberExists
	}

	subs[id] = &subscriber{ch: ch}

	return &Subscription{bus: b, topic: topic, id: id}, nil
}

// Publish sends a signal to every subscriber of topic without blocking.
// Subscribers with full channels miss the signal (counted as dropped).
// Publishing on a closed bus is a no-op.
func (b *Bus) Publish(topic string, now time.Time) {
	sig := Signal{
		Topic: topic,
		Seq:   b.seq.Add(1),
		Time:  now,
	}
	b.published.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.topics[topic] {
		select {
		case sub.ch <- sig:
			b.sent.Add(1)
		default:
			// Channel full - subscriber misses this signal.
			b.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of live subscriptions for topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Stats returns a snapshot of delivery counters.
func (b *Bus) Stats() Stats {
	return Stats{
		TotalPublished: b.published.Load(),
		TotalSent:      b.sent.Load(),
		TotalDropped:   b.dropped.Load(),
	}
}

// Close stops the bus. Subsequent Subscribe calls return ErrBusClosed
// and Publish becomes a no-op. Subscriber channels are never closed by
// the bus - channel lifecycle belongs to the subscriber. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.topics = make(map[string]map[string]*subscriber)
}

func (b *Bus) unsubscribe(topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs := b.topics[topic]; subs != nil {
		delete(subs, id)
		if len(subs) == 0 {
			delete(b.topics, topic)
		}
	}
}

// Subscription is a scoped handle to one (topic, subscriber) registration.
// Releasing it guarantees no further delivery to the channel.
type Subscription struct {
	bus   *Bus
	topic string
	id    string
	once  sync.Once
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string { return s.topic }

// Cancel removes the registration. Idempotent.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.bus.unsubscribe(s.topic, s.id)
	})
}
