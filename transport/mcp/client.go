package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/kungfu-chess/game/engine"
	"github.com/wricardo/kungfu-chess/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Kung Fu Chess",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Kung Fu Chess - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Chess without turns: both sides move whenever their pieces are idle. Capture
the enemy king to win.

AVAILABLE TOOLS:
- create_session: Create new game session
- list_sessions: List all active sessions
- get_session: Get session details
- game_state: Board, piece states and cooldowns
- move: Queue a move (from/to in algebraic notation) - requires intent explanation
- jump: Queue a jump in place to dodge a capture
- legal_moves: Destinations a piece may take right now
- list_configs: List available configurations
- game_instructions: Rules and timing

NOTE: Commands are only queued. Call game_state afterwards to see the outcome.`),
	)

	// Register all tools
	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func cellProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"pattern":     "^[a-hA-H][1-8]$",
		"description": description,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the config to use (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to retrieve",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board with every piece's state",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Queue a move for the piece on 'from'. Legality is checked on the next tick.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"from":       cellProperty("Origin cell, e.g. e2"),
				"to":         cellProperty("Destination cell, e.g. e4"),
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "from", "to"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "jump",
		Description: "Queue a jump in place. A jumping piece cannot be captured.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"from":       cellProperty("Cell of the piece that jumps"),
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this jump",
				},
			},
			Required: []string{"session_id", "from"},
		},
	}, c.handleJump)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "legal_moves",
		Description: "List the cells the piece on 'from' may currently move to",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"from":       cellProperty("Cell of the piece"),
			},
			Required: []string{"session_id", "from"},
		},
	}, c.handleLegalMoves)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func stringArg(request mcp.CallToolRequest, key string) string {
	args, _ := request.Params.Arguments.(map[string]interface{})
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if configID := stringArg(request, "config_id"); configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.GameState != nil {
		result += "\n" + formatSnapshot(session.GameState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "running"
		if s.GameState != nil && s.GameState.GameOver {
			status = "over"
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Created: %s, %s)\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"), status)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(request, "session_id")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(request, "session_id")

	var state engine.Snapshot
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.submit(ctx, stringArg(request, "session_id"), service.CommandRequest{
		Type: string(engine.CommandMove),
		From: stringArg(request, "from"),
		To:   stringArg(request, "to"),
	})
}

func (c *Client) handleJump(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.submit(ctx, stringArg(request, "session_id"), service.CommandRequest{
		Type: string(engine.CommandJump),
		From: stringArg(request, "from"),
	})
}

// intent serves as rubber duck debugging and is not forwarded
func (c *Client) submit(ctx context.Context, sessionID string, req service.CommandRequest) (*mcp.CallToolResult, error) {
	var result service.CommandResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/commands"), req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatCommandResult(&result)), nil
}

func (c *Client) handleLegalMoves(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(request, "session_id")
	from := stringArg(request, "from")

	var result service.LegalMovesResult
	path := sessionPath(sessionID, "/moves?from="+url.QueryEscape(from))
	if err := c.apiCall(ctx, "GET", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(result.Moves) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("%s on %s has no legal moves right now", result.PieceID, result.From)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s on %s can move to: %s",
		result.PieceID, result.From, strings.Join(result.Moves, ", "))), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Board: %dx%d, Pieces: %d\n\n",
			config.Name, config.ConfigID, config.Description, config.Rows, config.Cols, config.PieceCount)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Kung Fu Chess - Complete Instructions

GAME OBJECTIVE:
Capture the enemy king. There are no turns and no check: any idle piece may be
ordered at any time.

BOARD:
• Rows print top to bottom from rank 8 to rank 1, columns a to h left to right
• Smaller boards keep the same names: the top row is always rank 8 and column a,
  so a 6x6 board runs from rank 8 down to rank 3 and from column a to column f
• Always use the labels printed next to the board (or the cells listed by game_state)
• Pieces are shown as type + side: KW is the white king, PB a black pawn
• White pawns move up the board (towards rank 8), black pawns move down

PIECE STATES:
• idle: ready for a command
• move: travelling towards its destination, it lands when the time is up
• jump: in the air over its own cell, it cannot be captured
• short_rest: cooldown after a jump
• long_rest: cooldown after a move

TIMING (classic defaults):
• Moves start after a short delay and travel at a fixed speed, so longer moves take longer
• A jump lasts one second
• Resting pieces ignore commands

CAPTURES:
• Whichever piece ends up on a cell owns it. The piece that was there is captured
• A moving piece can be captured while it travels
• Landing on a friendly piece is rejected

COMMANDS:
• move: from and to in algebraic notation, e.g. e2 to e4
• jump: from only
• legal_moves: ask before moving, rejected commands only show up as events

STRATEGY:
• Check game_state often, the board changes while you think
• Jump pieces that are about to be captured
• Long moves leave a piece exposed for longer

VICTORY CONDITIONS:
The game ends as soon as a king is captured. Commands after that are refused.

Good luck, and strike first!`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatSnapshot(session.GameState))
}

func formatSnapshot(state *engine.Snapshot) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder

	fmt.Fprintf(&result, "Tick: %d | Time: %dms | White: %d | Black: %d | Pending: %d\n\n",
		state.Tick, state.Time, state.Count(engine.White), state.Count(engine.Black), state.Pending)

	// Board, rank 8 first. Ranks are fixed to the 8x8 notation, so a
	// smaller board stops above rank 1.
	for row := 0; row < state.Rows; row++ {
		fmt.Fprintf(&result, "%d ", engine.NotationSize-row)
		for col := 0; col < state.Cols; col++ {
			if p, ok := state.PieceAt(engine.Cell{Row: row, Col: col}); ok {
				result.WriteString(p.Type)
			} else {
				result.WriteString("..")
			}
			result.WriteString(" ")
		}
		result.WriteString("\n")
	}
	result.WriteString("  ")
	for col := 0; col < state.Cols; col++ {
		fmt.Fprintf(&result, "%c  ", 'a'+col)
	}
	result.WriteString("\n")

	// Busy pieces
	var busy []string
	for _, p := range state.Pieces {
		if p.State == engine.StateIdle {
			continue
		}
		line := fmt.Sprintf("- %s on %s: %s", p.ID, p.Cell, p.State)
		if p.DurationMs > 0 {
			line += fmt.Sprintf(" (%d/%dms)", p.ElapsedMs, p.DurationMs)
		}
		busy = append(busy, line)
	}
	if len(busy) > 0 {
		result.WriteString("\nBusy pieces:\n")
		result.WriteString(strings.Join(busy, "\n"))
		result.WriteString("\n")
	}

	// Status
	if state.GameOver {
		if state.Winner != "" {
			fmt.Fprintf(&result, "\n🏆 GAME OVER - %s wins", state.Winner)
		} else {
			result.WriteString("\n🏁 GAME OVER - no winner")
		}
	}

	return result.String()
}

func formatCommandResult(result *service.CommandResult) string {
	response := ""
	if result.Queued {
		response = "✓ Command queued\n"
	} else {
		response = "✗ Command not queued\n"
	}

	cmd := result.Command
	response += fmt.Sprintf("%s %s %s", result.PieceID, cmd.Type, cmd.Origin())
	if cmd.Type == engine.CommandMove {
		response += fmt.Sprintf(" → %s", cmd.Destination())
	}
	response += fmt.Sprintf(" (tick %d)\n", result.Tick)

	if result.Message != "" {
		response += result.Message + "\n"
	}
	return response
}
