package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

type EventKind string

const (
	EventCreated   EventKind = "created"
	EventEscalated EventKind = "escalated"
	EventUpdated   EventKind = "updated"
	EventResolved  EventKind = "resolved"
	EventCancelled EventKind = "cancelled"
)

// Event is one alert change pushed to stream subscribers.
type Event struct {
	Kind  EventKind    `json:"kind"`
	Alert models.Alert `json:"-"`
	At    time.Time    `json:"at"`
}

const subscriberBuffer = 100

type Broadcaster struct {
	subscribers map[uint64]chan *Event
	nextID      atomic.Uint64
	dropped     atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan *Event),
	}
}

func (b *Broadcaster) Subscribe() (uint64, chan *Event) {
	id := b.nextID.Add(1)
	ch := make(chan *Event, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Publish sends a copy of alert to every subscriber. Subscribers with a full
// buffer miss the event.
func (b *Broadcaster) Publish(kind EventKind, alert models.Alert) {
	ev := &Event{Kind: kind, Alert: alert.Clone(), At: time.Now().UTC()}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels so streams exit.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
