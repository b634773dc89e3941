// Package config provides configuration management for Kung Fu Chess.
//
// The config package handles:
//   - Loading game configurations from JSON or YAML files
//   - Attaching per piece type move rules from pieces/<CODE>/moves.txt
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// A configuration names the board size, the pixel size of a cell, the tick
// interval, the physics timings and the starting layout. Layout rows are comma
// separated piece codes; an empty field is an empty cell:
//
//	{
//	  "name": "classic",
//	  "rows": 8,
//	  "cols": 8,
//	  "physics": {"speed_m_per_sec": 1.0, "move_delay_ms": 300},
//	  "layout": ["RB,NB,BB,QB,KB,BB,NB,RB", "..."]
//	}
//
// Rules for a code are read from <config dir>/pieces/<CODE>/moves.txt unless
// the config defines them inline under "moves". Missing fields take the stock
// defaults (80px cells, 16ms ticks, 1 m/s, 300ms delay, 1000ms jump, 500ms and
// 1500ms rests).
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("blitz")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
package config
