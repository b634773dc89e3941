package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/kungfu-chess/game/engine"
	"github.com/wricardo/kungfu-chess/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
	ErrNoSessionID          = errors.New("no free session ID")
)

// maxIDAttempts bounds random draws before Create gives up
const maxIDAttempts = 64

// SinkFactory builds the event sink for a new session
type SinkFactory func(sessionID string) engine.EventSink

// TickObserver is called after every tick of every session
type TickObserver func(sessionID string, res engine.TickResult)

// Option customises a Manager
type Option func(*Manager)

// WithSinkFactory routes each session's events to the sink fn returns
func WithSinkFactory(fn SinkFactory) Option {
	return func(m *Manager) { m.sinks = fn }
}

// WithTickObserver registers fn for tick results of all sessions
func WithTickObserver(fn TickObserver) Option {
	return func(m *Manager) { m.observer = fn }
}

// WithGameOptions appends engine options used for every new game
func WithGameOptions(opts ...engine.Option) Option {
	return func(m *Manager) { m.gameOpts = append(m.gameOpts, opts...) }
}

// WithManualTicks creates sessions without starting their loop. Callers
// drive Game.Tick themselves.
func WithManualTicks() Option {
	return func(m *Manager) { m.manual = true }
}

// Manager handles game session lifecycle
type Manager struct {
	sessions map[string]*service.Session
	sinks    SinkFactory
	observer TickObserver
	gameOpts []engine.Option
	manual   bool
	newID    func() (string, error)
	mu       sync.RWMutex
}

// NewManager creates a new session manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*service.Session),
		newID:    generateSessionID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create creates a new session with the given ID and configuration and
// starts ticking it
func (m *Manager) Create(id string, config *engine.GameConfig) (*service.Session, error) {
	if strings.TrimSpace(id) != id || strings.ContainsAny(id, "/?# ") {
		return nil, ErrInvalidSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		var err error
		if id, err = m.freeSessionID(); err != nil {
			return nil, err
		}
	} else if m.sessionExists(id) {
		// Check if session already exists (case-insensitive)
		return nil, ErrSessionAlreadyExists
	}

	opts := append([]engine.Option{}, m.gameOpts...)
	if m.sinks != nil {
		if sink := m.sinks(id); sink != nil {
			opts = append(opts, engine.WithSink(sink))
		}
	}
	if m.observer != nil {
		observer, sid := m.observer, id
		opts = append(opts, engine.WithTickHook(func(res engine.TickResult) { observer(sid, res) }))
	}

	game, err := engine.NewGame(config, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	var stop func()
	if !m.manual {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			err := game.Run(ctx, 0)
			if err == nil {
				log.Printf("session %s: game over, winner %q", id, game.Winner())
			}
		}()
		stop = func() {
			cancel()
			<-done
		}
	}

	session := service.NewSession(id, game, config, stop)
	m.sessions[strings.ToLower(id)] = session
	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id string, config *engine.GameConfig) (*service.Session, error) {
	// Try to get existing session first
	session, err := m.Get(id)
	if err == nil {
		return session, nil
	}

	// Create new session if not found
	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, config)
	}

	return nil, err
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}

	return result
}

// Delete stops a session's loop and removes it
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	lowerID := strings.ToLower(id)
	session, exists := m.sessions[lowerID]
	if exists {
		delete(m.sessions, lowerID)
	}
	m.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}
	session.Stop()
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}

	session.Touch(time.Now())
	return nil
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	cutoff := time.Now().Add(-maxAge)
	var expired []*service.Session

	for id, session := range m.sessions {
		if session.LastAccessed().Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, session)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		session.Stop()
	}
	return len(expired)
}

// Shutdown stops and removes every session
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*service.Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Stop()
	}
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// freeSessionID draws IDs until one is unused. Callers hold mu.
func (m *Manager) freeSessionID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := m.newID()
		if err != nil {
			return "", fmt.Errorf("failed to generate session ID: %w", err)
		}
		if !m.sessionExists(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts (%d sessions)", ErrNoSessionID, maxIDAttempts, len(m.sessions))
}

// generateSessionID generates a random 4-character session ID
func generateSessionID() (string, error) {
	// Generate 2 random bytes (4 hex characters)
	bytes := make([]byte, 2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// sessionExists checks if a session exists (case-insensitive)
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}
