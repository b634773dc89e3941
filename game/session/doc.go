// Package session provides session management for Kung Fu Chess games.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - One tick loop goroutine per session
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each session wraps an engine.Game. Create starts a goroutine running
// Game.Run at the configured tick interval; Delete, CleanupExpiredSessions
// and Shutdown stop it and wait for it to exit.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. Lookups are
// case-insensitive.
//
// Events:
//
// WithSinkFactory gives each game its own event sink, which is how the
// websocket hub and the NATS publisher receive piece_moved, piece_captured
// and the other game events. WithTickObserver sees every TickResult and feeds
// the metrics recorder.
//
// Usage:
//
//	manager := session.NewManager(
//		session.WithSinkFactory(hub.SinkFor),
//		session.WithTickObserver(recorder.ObserveTick),
//	)
//	defer manager.Shutdown()
//
//	sess, err := manager.Create("", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sessionID)
//
// Tests use WithManualTicks and drive Game.Tick directly.
package session
