package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/kungfu-chess/game/config"
	"github.com/wricardo/kungfu-chess/game/engine"
	"github.com/wricardo/kungfu-chess/game/metrics"
	"github.com/wricardo/kungfu-chess/game/service"
	"github.com/wricardo/kungfu-chess/game/session"
	"github.com/wricardo/kungfu-chess/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Game Operations
	SubmitCommandFunc func(ctx context.Context, sessionID string, req service.CommandRequest) (*service.CommandResult, error)
	LegalMovesFunc    func(ctx context.Context, sessionID, from string) (*service.LegalMovesResult, error)

	// Game State
	GetGameStateFunc func(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, config *engine.GameConfig) error
}

func (m *MockGameService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{ID: "test-session", ConfigName: configName, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ConfigName: "test-config", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) SubmitCommand(ctx context.Context, sessionID string, req service.CommandRequest) (*service.CommandResult, error) {
	if m.SubmitCommandFunc != nil {
		return m.SubmitCommandFunc(ctx, sessionID, req)
	}
	return &service.CommandResult{Queued: true}, nil
}

func (m *MockGameService) LegalMoves(ctx context.Context, sessionID, from string) (*service.LegalMovesResult, error) {
	if m.LegalMovesFunc != nil {
		return m.LegalMovesFunc(ctx, sessionID, from)
	}
	return &service.LegalMovesResult{From: from}, nil
}

func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return &engine.Snapshot{Rows: 8, Cols: 8}, nil
}

func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return &engine.GameConfig{Name: configName, Description: "Test config"}, nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, config)
	}
	return nil
}

// Test helpers
func setupTestServer(mockService *MockGameService) *Server {
	hub := websocket.NewHub()
	go hub.Run()
	return NewServer(mockService, hub)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"session missing", fmt.Errorf("session ab12: %w", session.ErrSessionNotFound), http.StatusNotFound},
		{"config missing", fmt.Errorf("config 'x' not found: %w", config.ErrConfigNotFound), http.StatusNotFound},
		{"duplicate session", session.ErrSessionAlreadyExists, http.StatusConflict},
		{"bad notation", fmt.Errorf("%w: from", service.ErrInvalidCommand), http.StatusBadRequest},
		{"bad config", config.ErrInvalidConfig, http.StatusBadRequest},
		{"game over", engine.ErrGameOver, http.StatusBadRequest},
		{"empty origin", fmt.Errorf("%w: c3", engine.ErrOriginEmpty), http.StatusBadRequest},
		{"out of bounds", engine.ErrOutOfBounds, http.StatusBadRequest},
		{"anything else", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    map[string]string
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with default config",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "" {
						t.Errorf("Expected empty config name, got %s", configName)
					}
					return &service.SessionInfo{ID: "ab12", ConfigName: "classic", CreatedAt: time.Now()}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" {
					t.Errorf("Expected session ID ab12, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with config_id",
			requestBody: map[string]string{"config_id": "blitz"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "cd34", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ConfigName != "blitz" {
					t.Errorf("Expected config blitz, got %s", resp.ConfigName)
				}
			},
		},
		{
			name:        "Deprecated config_name still works",
			requestBody: map[string]string{"config_name": "blitz"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "cd34", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Unknown config",
			requestBody: map[string]string{"config_id": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("config 'nope' not found: %w", config.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	sessions := func() []*service.SessionInfo {
		return []*service.SessionInfo{
			{ID: "old", CreatedAt: now.Add(-3 * time.Hour), LastAccessedAt: now.Add(-1 * time.Minute)},
			{ID: "mid", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-3 * time.Minute)},
			{ID: "new", CreatedAt: now.Add(-1 * time.Hour), LastAccessedAt: now.Add(-2 * time.Minute)},
		}
	}

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"default sorts by access desc", "", []string{"old", "new", "mid"}},
		{"created asc", "?sort=created&order=asc", []string{"old", "mid", "new"}},
		{"created desc with limit", "?sort=created&limit=2", []string{"new", "mid"}},
		{"invalid limit ignored", "?limit=abc", []string{"old", "new", "mid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(&MockGameService{
				ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
					return sessions(), nil
				},
			})
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			var got []string
			for _, s := range resp.Sessions {
				got = append(got, s.ID)
			}
			if strings.Join(got, ",") != strings.Join(tt.expected, ",") {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
			if resp.Count != len(tt.expected) || resp.Total != 3 {
				t.Errorf("Unexpected count/total %d/%d", resp.Count, resp.Total)
			}
		})
	}
}

func TestGetSession(t *testing.T) {
	server := setupTestServer(&MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID == "missing" {
				return nil, fmt.Errorf("session %s: %w", sessionID, session.ErrSessionNotFound)
			}
			return &service.SessionInfo{ID: sessionID}, nil
		},
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	var deleted string
	server := setupTestServer(&MockGameService{
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID == "missing" {
				return session.ErrSessionNotFound
			}
			deleted = sessionID
			return nil
		},
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("DELETE", "/api/sessions/ab12", nil))
	if w.Code != http.StatusOK || deleted != "ab12" {
		t.Errorf("Expected ab12 deleted, got status %d deleted %q", w.Code, deleted)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("DELETE", "/api/sessions/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

// Game Operation Tests

func TestSubmitCommand(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		err            error
		expectedStatus int
	}{
		{"queued", map[string]string{"type": "move", "from": "e2", "to": "e4"}, nil, http.StatusAccepted},
		{"jump", map[string]string{"type": "jump", "from": "e2"}, nil, http.StatusAccepted},
		{"bad notation", map[string]string{"from": "z9", "to": "e4"}, fmt.Errorf("%w: from", service.ErrInvalidCommand), http.StatusBadRequest},
		{"game over", map[string]string{"from": "e2", "to": "e4"}, engine.ErrGameOver, http.StatusBadRequest},
		{"unknown session", map[string]string{"from": "e2", "to": "e4"}, session.ErrSessionNotFound, http.StatusNotFound},
		{"not json", "not-json", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.CommandRequest
			server := setupTestServer(&MockGameService{
				SubmitCommandFunc: func(ctx context.Context, sessionID string, req service.CommandRequest) (*service.CommandResult, error) {
					got = req
					if tt.err != nil {
						return nil, tt.err
					}
					return &service.CommandResult{Queued: true, PieceID: "PW_5"}, nil
				},
			})

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/commands", tt.body))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if w.Code == http.StatusAccepted {
				var resp service.CommandResult
				parseResponse(t, w, &resp)
				if !resp.Queued || got.From != "e2" {
					t.Errorf("Unexpected result %+v for request %+v", resp, got)
				}
			}
		})
	}
}

func TestLegalMoves(t *testing.T) {
	server := setupTestServer(&MockGameService{
		LegalMovesFunc: func(ctx context.Context, sessionID, from string) (*service.LegalMovesResult, error) {
			if from == "c3" {
				return nil, fmt.Errorf("%w: c3", engine.ErrOriginEmpty)
			}
			return &service.LegalMovesResult{From: from, PieceID: "PW_5", Moves: []string{"e4", "e3"}}, nil
		},
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/moves?from=e2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp service.LegalMovesResult
	parseResponse(t, w, &resp)
	if len(resp.Moves) != 2 {
		t.Errorf("Expected 2 moves, got %v", resp.Moves)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/moves", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without from, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/moves?from=c3", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty origin, got %d", w.Code)
	}
}

func TestGetGameState(t *testing.T) {
	server := setupTestServer(&MockGameService{
		GetGameStateFunc: func(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
			return &engine.Snapshot{Tick: 12, Rows: 8, Cols: 8, Started: true}, nil
		},
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/state", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var snap engine.Snapshot
	parseResponse(t, w, &snap)
	if snap.Tick != 12 || !snap.Started {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
}

// Configuration Tests

func TestListConfigs(t *testing.T) {
	server := setupTestServer(&MockGameService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "classic", Name: "Classic", Rows: 8, Cols: 8, PieceCount: 32}}, nil
		},
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/configs", nil))
	var resp []service.ConfigInfo
	parseResponse(t, w, &resp)
	if len(resp) != 1 || resp[0].PieceCount != 32 {
		t.Errorf("Unexpected configs %+v", resp)
	}
}

func TestGetConfig(t *testing.T) {
	server := setupTestServer(&MockGameService{
		LoadConfigFunc: func(ctx context.Context, configName string) (*engine.GameConfig, error) {
			if configName == "missing" {
				return nil, config.ErrConfigNotFound
			}
			return &engine.GameConfig{Name: configName}, nil
		},
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/configs/classic", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/configs/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestCreateConfig(t *testing.T) {
	var savedAs string
	server := setupTestServer(&MockGameService{
		SaveConfigFunc: func(ctx context.Context, configName string, cfg *engine.GameConfig) error {
			if cfg.Rows == 0 {
				return fmt.Errorf("%w: rows", config.ErrInvalidConfig)
			}
			savedAs = configName
			return nil
		},
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]interface{}{"name": "My Board", "rows": 8, "cols": 8}))
	if w.Code != http.StatusCreated || savedAs != "my_board" {
		t.Errorf("Expected my_board saved, got status %d name %q", w.Code, savedAs)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]interface{}{"config_id": "x", "name": "X"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid config, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]interface{}{"rows": 8}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without name, got %d", w.Code)
	}
}

func TestUnifiedSessions(t *testing.T) {
	now := time.Now()
	server := setupTestServer(&MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "b", ConfigName: "blitz", CreatedAt: now, GameState: &engine.Snapshot{GameOver: true, Winner: engine.White}},
				{ID: "a", ConfigName: "classic", CreatedAt: now.Add(-time.Minute), GameState: &engine.Snapshot{}},
			}, nil
		},
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/unified", nil))
	var resp struct {
		Count    int                      `json:"count"`
		Running  int                      `json:"running"`
		Sessions []map[string]interface{} `json:"sessions"`
	}
	parseResponse(t, w, &resp)
	if resp.Count != 2 || resp.Running != 1 || resp.Sessions[0]["session_id"] != "a" {
		t.Errorf("Unexpected unified response %+v", resp)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/unified?configName=blitz", nil))
	parseResponse(t, w, &resp)
	if resp.Count != 1 {
		t.Errorf("Expected 1 blitz session, got %d", resp.Count)
	}
}

func TestHealth(t *testing.T) {
	server := setupTestServer(&MockGameService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("Unexpected health response %d %s", w.Code, w.Body.String())
	}
}

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{
			name:           "Missing session parameter",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Invalid session",
			queryParams: "?session=invalid",
			setupMock: func(m *MockGameService) {
				m.GetSessionFunc = func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
					return nil, session.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest("GET", "/ws"+tt.queryParams, nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestWebSocketCommands(t *testing.T) {
	server := setupTestServer(&MockGameService{
		SubmitCommandFunc: func(ctx context.Context, sessionID string, req service.CommandRequest) (*service.CommandResult, error) {
			return &service.CommandResult{Queued: true, PieceID: "PW_5"}, nil
		},
	})

	res, err := server.WebSocketCommands("ab12", []byte(`{"type":"move","from":"e2","to":"e4"}`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r, ok := res.(*service.CommandResult); !ok || r.PieceID != "PW_5" {
		t.Errorf("Unexpected result %#v", res)
	}

	if _, err := server.WebSocketCommands("ab12", []byte("{")); statusFor(err) != http.StatusBadRequest {
		t.Errorf("Expected invalid command error, got %v", err)
	}
}

// End-to-end through the real managers with manually driven ticks

func newIntegrationServer(t *testing.T) (*Server, *session.Manager, *metrics.Recorder) {
	t.Helper()
	dir := t.TempDir()
	cfgMgr, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	rec := metrics.NewRecorder()
	sessions := session.NewManager(
		session.WithManualTicks(),
		session.WithGameOptions(engine.WithQuietRejections()),
		session.WithTickObserver(rec.ObserveTick),
	)
	svc := service.NewGameService(sessions, cfgMgr)
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return NewServer(svc, hub, WithMetrics(rec)), sessions, rec
}

func TestIntegration_CommandFlow(t *testing.T) {
	server, sessions, _ := newIntegrationServer(t)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var info service.SessionInfo
	parseResponse(t, w, &info)

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/"+info.ID+"/moves?from=e2", nil))
	var moves service.LegalMovesResult
	parseResponse(t, w, &moves)
	if strings.Join(moves.Moves, ",") != "e4,e3" {
		t.Errorf("Expected e4,e3, got %v", moves.Moves)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/"+info.ID+"/commands", map[string]string{"from": "e2", "to": "e4"}))
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}

	sess, err := sessions.Get(info.ID)
	if err != nil {
		t.Fatalf("Session missing: %v", err)
	}
	sess.Game.Tick(sess.Game.Now() + 10)

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/"+info.ID+"/state", nil))
	var snap engine.Snapshot
	parseResponse(t, w, &snap)
	e2, _ := engine.AlgebraicToCell("e2")
	view, ok := snap.PieceAt(e2)
	if !ok || view.State != engine.StateMove {
		t.Errorf("Expected the e2 pawn to be moving, got %+v", view)
	}
}

func TestIntegration_Metrics(t *testing.T) {
	server, sessions, _ := newIntegrationServer(t)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions", nil))
	var info service.SessionInfo
	parseResponse(t, w, &info)

	sess, _ := sessions.Get(info.ID)
	sess.Game.Tick(10)

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/metrics", nil))
	body := w.Body.String()
	if !strings.Contains(body, "kungfu_ticks_total 1") {
		t.Error("Expected tick counter in /metrics")
	}
	if !strings.Contains(body, `route="/api/sessions"`) {
		t.Error("Expected request metrics labelled by route template")
	}
}
