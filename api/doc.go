// Package api provides HTTP REST API handlers for Kung Fu Chess.
//
// The api package implements:
//   - Session management endpoints
//   - Command submission and legal move queries
//   - Configuration listing, lookup and upload
//   - WebSocket upgrade handling
//   - Prometheus metrics when a recorder is installed
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"config_id":"classic"})
//   - GET /api/sessions - List sessions (sort=created|accessed, order, limit)
//   - GET /api/sessions/unified - Summary rows for a multi-board view
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Stop and remove a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Latest snapshot
//   - POST /api/sessions/{id}/commands - Queue a move or jump
//   - GET /api/sessions/{id}/moves?from=e2 - Destinations the piece may take
//
// Configuration:
//   - GET /api/configs - List available configurations
//   - GET /api/configs/{name} - Load one configuration
//   - POST /api/configs - Save a configuration
//
// Commands:
//
// Commands are queued, not executed. The response is 202 Accepted and the
// outcome is decided on the next tick; subscribers see a piece_moved or
// command_rejected event.
//
//	{"type": "move", "from": "e2", "to": "e4"}
//	{"type": "jump", "from": "g1"}
//
// Error Handling:
//
// Errors are returned as JSON with a status derived from the error:
//
//	{"error": "session not found"}
//
// Unknown sessions and configs are 404, malformed commands, rejected moves
// and finished games are 400.
package api
