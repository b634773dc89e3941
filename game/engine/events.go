package engine

import "sync"

// EventType names a game notification
type EventType string

const (
	EventGameStart       EventType = "game_start"
	EventGameEnd         EventType = "game_end"
	EventPieceMoved      EventType = "piece_moved"
	EventPieceCaptured   EventType = "piece_captured"
	EventCommandRejected EventType = "command_rejected"
)

// Event is a notification emitted by the tick loop. Fields that do not apply
// to a type are left empty.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp int64       `json:"timestamp"`
	PieceID   string      `json:"piece_id,omitempty"`
	PieceType string      `json:"piece_type,omitempty"`
	Side      Side        `json:"side,omitempty"`
	Command   CommandType `json:"command,omitempty"`
	From      *Cell       `json:"from,omitempty"`
	To        *Cell       `json:"to,omitempty"`
	By        string      `json:"by,omitempty"`
	Winner    Side        `json:"winner,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

// EventSink receives every event a game emits. Implementations must not block
// the tick loop.
type EventSink interface {
	Publish(ev Event)
}

// Subscriber reacts to events it subscribed to
type Subscriber interface {
	OnEvent(ev Event)
}

// SubscriberFunc adapts a function to Subscriber
type SubscriberFunc func(ev Event)

// OnEvent calls f(ev)
func (f SubscriberFunc) OnEvent(ev Event) { f(ev) }

// Broker fans events out to per-type subscribers
type Broker struct {
	mu     sync.RWMutex
	byType map[EventType][]Subscriber
	all    []Subscriber
}

// NewBroker creates a broker with no subscribers
func NewBroker() *Broker {
	return &Broker{byType: make(map[EventType][]Subscriber)}
}

// Subscribe registers sub for one event type
func (b *Broker) Subscribe(t EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byType[t] = append(b.byType[t], sub)
}

// SubscribeAll registers sub for every event type
func (b *Broker) SubscribeAll(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, sub)
}

// Publish delivers ev synchronously, type subscribers first
func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.byType[ev.Type])+len(b.all))
	subs = append(subs, b.byType[ev.Type]...)
	subs = append(subs, b.all...)
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.OnEvent(ev)
	}
}
