package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wricardo/kungfu-chess/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	SubmitCommand(ctx context.Context, sessionID string, req CommandRequest) (*CommandResult, error)
	LegalMoves(ctx context.Context, sessionID, from string) (*LegalMovesResult, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Session represents an active game session and the loop ticking it
type Session struct {
	ID             string
	Game           *engine.Game
	Config         *engine.GameConfig
	CreatedAt      time.Time

	lastAccessed atomic.Int64 // unix nanos
	stop         func()
	stopOnce     sync.Once
}

// NewSession wraps a game. stop, if not nil, halts the goroutine running it.
func NewSession(id string, game *engine.Game, config *engine.GameConfig, stop func()) *Session {
	now := time.Now()
	s := &Session{
		ID:        id,
		Game:      game,
		Config:    config,
		CreatedAt: now,
		stop:      stop,
	}
	s.Touch(now)
	return s
}

// Touch records an access at t
func (s *Session) Touch(t time.Time) {
	s.lastAccessed.Store(t.UnixNano())
}

// LastAccessed returns the time of the latest access
func (s *Session) LastAccessed() time.Time {
	return time.Unix(0, s.lastAccessed.Load())
}

// Stop halts the tick loop; later calls do nothing
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}
