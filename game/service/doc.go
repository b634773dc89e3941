// Package service provides the business logic layer for Kung Fu Chess.
//
// The service package implements:
//   - Multi-session game management
//   - Configuration management and loading
//   - Command parsing from algebraic notation
//   - Legal move previews
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns one engine.Game whose tick loop runs in
// its own goroutine. SubmitCommand only queues: whether a command is accepted
// is decided on the next tick, and the outcome arrives as a piece_moved or
// command_rejected event.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := gameService.SubmitCommand(ctx, info.ID, service.CommandRequest{
//		Type: "move", From: "e2", To: "e4",
//	})
//
// Errors:
//
// ErrInvalidCommand wraps malformed notation or command types. Engine
// rejections such as engine.ErrGameOver are passed through unchanged so
// callers can match them with errors.Is.
package service
