// Package mcp provides a Model Context Protocol server for Kung Fu Chess.
//
// The server is a thin client: every tool call is proxied to the REST API,
// so agents see the same sessions as browsers and websocket clients.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - game_state: board rendering plus the pieces that are moving or resting
//   - move, jump: queue a command; the outcome is decided on the next tick
//   - legal_moves: destinations the piece on a cell may take right now
//   - list_configs, game_instructions
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST /mcp handled by GetMCPServer().HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
