// Package natsbus mirrors game events onto NATS subjects so services outside
// the process can follow games without holding a websocket.
//
// Every event is wrapped in an Envelope and published on
// <prefix>.<session_id>.<event_type>, e.g. kungfu.ab12.piece_captured.
// Subscribers can use kungfu.*.game_end or kungfu.ab12.> as usual.
package natsbus

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	nats "github.com/nats-io/nats.go"
	"github.com/wricardo/kungfu-chess/game/engine"
)

// DefaultPrefix is the first subject token when none is configured
const DefaultPrefix = "kungfu"

// EnvelopeVersion is bumped when the payload shape changes
const EnvelopeVersion = 1

// Envelope is the JSON document written to NATS
type Envelope struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Source    string       `json:"source"`
	SessionID string       `json:"session_id"`
	EventType string       `json:"event_type"`
	Version   int          `json:"version"`
	Event     engine.Event `json:"event"`
}

// Conn is the part of *nats.Conn the publisher needs
type Conn interface {
	Publish(subject string, data []byte) error
}

// Stats counts publish outcomes
type Stats struct {
	Published uint64
	Failed    uint64
}

// Publisher turns game events into NATS messages
type Publisher struct {
	conn   Conn
	nc     *nats.Conn
	prefix string
	source string

	published uint64
	failed    uint64
}

// Option customises a Publisher
type Option func(*Publisher)

// WithPrefix changes the first subject token
func WithPrefix(prefix string) Option {
	return func(p *Publisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithSource sets the envelope source, usually the host name
func WithSource(source string) Option {
	return func(p *Publisher) { p.source = source }
}

// NewPublisher publishes through conn
func NewPublisher(conn Conn, opts ...Option) *Publisher {
	p := &Publisher{conn: conn, prefix: DefaultPrefix, source: "kungfu-chess"}
	if nc, ok := conn.(*nats.Conn); ok {
		p.nc = nc
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect dials url and returns a publisher owning the connection
func Connect(url string, opts ...Option) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("kungfu-chess"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[NATS] disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[NATS] reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return NewPublisher(nc, opts...), nil
}

// Subject returns the subject an event of a session is published on
func (p *Publisher) Subject(sessionID string, t engine.EventType) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, sessionID, t)
}

// PublishEvent wraps ev and sends it. Publishing is buffered by the NATS
// client and does not wait for the server.
func (p *Publisher) PublishEvent(sessionID string, ev engine.Event) error {
	env := Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    p.source,
		SessionID: sessionID,
		EventType: string(ev.Type),
		Version:   EnvelopeVersion,
		Event:     ev,
	}
	data, err := json.Marshal(env)
	if err != nil {
		atomic.AddUint64(&p.failed, 1)
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := p.conn.Publish(p.Subject(sessionID, ev.Type), data); err != nil {
		atomic.AddUint64(&p.failed, 1)
		return err
	}
	atomic.AddUint64(&p.published, 1)
	return nil
}

// SinkFor returns the event sink for one session. It matches
// session.SinkFactory.
func (p *Publisher) SinkFor(sessionID string) engine.EventSink {
	return sessionSink{p: p, sessionID: sessionID}
}

type sessionSink struct {
	p         *Publisher
	sessionID string
}

func (s sessionSink) Publish(ev engine.Event) {
	if err := s.p.PublishEvent(s.sessionID, ev); err != nil {
		log.Printf("[NATS] publish %s for session %s failed: %v", ev.Type, s.sessionID, err)
	}
}

// Stats returns the publish counters
func (p *Publisher) Stats() Stats {
	return Stats{
		Published: atomic.LoadUint64(&p.published),
		Failed:    atomic.LoadUint64(&p.failed),
	}
}

// Close drains the connection when the publisher owns one
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
