// Package websocket provides WebSocket transport for Kung Fu Chess.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - Event fan-out from running games
//   - Snapshot pushes on ticks where something happened
//   - Optional command frames from clients
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a read and a
// write goroutine. Every hub mutation happens on the Run goroutine; game
// loops only enqueue onto a buffered channel and never block. When the
// queue is full the message is dropped.
//
// Message Protocol:
//
// Outgoing messages are JSON objects:
//
//	{"session_id":"ab12","event":"piece_moved","data":{...engine.Event...}}
//	{"session_id":"ab12","event":"state_update","state":{...engine.Snapshot...}}
//
// Incoming text frames are passed to the CommandFunc installed with
// HandleCommands, e.g. {"type":"move","from":"e2","to":"e4"}. The sender gets
// a command_queued or error reply.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	sessions := session.NewManager(
//		session.WithSinkFactory(hub.SinkFor),
//		session.WithTickObserver(hub.ObserveTick),
//	)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
