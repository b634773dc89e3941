package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wricardo/kungfu-chess/game/engine"
)

// ErrInvalidCommand marks a request that cannot be turned into a command
var ErrInvalidCommand = errors.New("invalid command")

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	// Fallback: return as-is or "default"
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *gameServiceImpl) sessionInfo(sess *Session, configID string) *SessionInfo {
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		GameState:      sess.Game.Snapshot(),
		GameConfig:     sess.Config,
	}
}

// CreateSession creates a new game session and starts its tick loop
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return s.sessionInfo(session, configName), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return s.sessionInfo(session, ""), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, ""))
	}
	return result, nil
}

// DeleteSession stops the session's loop and removes it
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// SubmitCommand turns a request into a timestamped command and queues it for
// the session's next tick
func (s *gameServiceImpl) SubmitCommand(ctx context.Context, sessionID string, req CommandRequest) (*CommandResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	cmd, err := buildCommand(sess.Game, req)
	if err != nil {
		return nil, err
	}

	snap := sess.Game.Snapshot()
	if view, ok := snap.PieceAt(cmd.Origin()); ok {
		cmd.PieceID = view.ID
	}

	if err := sess.Game.Enqueue(cmd); err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	result := &CommandResult{
		Queued:  true,
		Command: cmd,
		PieceID: cmd.PieceID,
		Tick:    snap.Tick,
		Message: fmt.Sprintf("%s %s -> %s queued", cmd.Type, cmd.Origin(), cmd.Destination()),
	}
	if cmd.PieceID == "" {
		result.Message = fmt.Sprintf("%s queued; no piece on %s at tick %d", cmd.Type, cmd.Origin(), snap.Tick)
	}
	return result, nil
}

// buildCommand validates notation and fills defaults
func buildCommand(game *engine.Game, req CommandRequest) (engine.Command, error) {
	typ := engine.CommandType(strings.ToLower(strings.TrimSpace(req.Type)))
	if typ == "" {
		typ = engine.CommandMove
	}
	if typ != engine.CommandMove && typ != engine.CommandJump {
		return engine.Command{}, fmt.Errorf("%w: %w %q, use move or jump", ErrInvalidCommand, engine.ErrUnsupportedCommand, req.Type)
	}

	board := game.Board()
	from, err := board.AlgebraicToCell(strings.TrimSpace(req.From))
	if err != nil {
		return engine.Command{}, fmt.Errorf("%w: from: %v", ErrInvalidCommand, err)
	}

	to := from
	if req.To != "" {
		to, err = board.AlgebraicToCell(strings.TrimSpace(req.To))
		if err != nil {
			return engine.Command{}, fmt.Errorf("%w: to: %v", ErrInvalidCommand, err)
		}
	} else if typ == engine.CommandMove {
		return engine.Command{}, fmt.Errorf("%w: move needs a destination", ErrInvalidCommand)
	}

	return engine.Command{
		Timestamp: game.Now(),
		Type:      typ,
		Params:    [2]engine.Cell{from, to},
	}, nil
}

// LegalMoves previews the destinations for the piece on "from"
func (s *gameServiceImpl) LegalMoves(ctx context.Context, sessionID, from string) (*LegalMovesResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	cell, err := sess.Game.Board().AlgebraicToCell(strings.TrimSpace(from))
	if err != nil {
		return nil, fmt.Errorf("%w: from: %v", ErrInvalidCommand, err)
	}

	cells, err := sess.Game.LegalMoves(cell)
	if err != nil {
		return nil, err
	}

	result := &LegalMovesResult{From: cell.String(), Moves: make([]string, 0, len(cells))}
	if view, ok := sess.Game.Snapshot().PieceAt(cell); ok {
		result.PieceID = view.ID
	}
	for _, c := range cells {
		result.Moves = append(result.Moves, c.String())
	}
	return result, nil
}

// GetGameState returns the last published snapshot
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Game.Snapshot(), nil
}

// ListConfigs returns available configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a configuration
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}
