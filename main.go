// Command kungfu-chess starts the Kung Fu Chess server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, /metrics and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, config directory, debug logging, an optional NATS
// event mirror, and optional ngrok tunneling for easy external access during
// development. Every flag can also be set from the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/kungfu-chess/api"
	"github.com/wricardo/kungfu-chess/game/config"
	"github.com/wricardo/kungfu-chess/game/engine"
	"github.com/wricardo/kungfu-chess/game/metrics"
	"github.com/wricardo/kungfu-chess/game/service"
	"github.com/wricardo/kungfu-chess/game/session"
	"github.com/wricardo/kungfu-chess/transport/mcp"
	"github.com/wricardo/kungfu-chess/transport/natsbus"
	"github.com/wricardo/kungfu-chess/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Kung Fu Chess Server"
)

const (
	sessionMaxAge        = 24 * time.Hour
	sessionCleanupPeriod = 1 * time.Hour
	sessionGaugePeriod   = 15 * time.Second
)

// options holds the resolved flag values
type options struct {
	host       string
	port       int
	configDir  string
	debug      bool
	natsURL    string
	natsPrefix string

	ngrok       bool
	ngrokAuth   string
	ngrokDomain string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.host, o.port)
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		host:        cmd.String("host"),
		port:        int(cmd.Int("port")),
		configDir:   cmd.String("config-dir"),
		debug:       cmd.Bool("debug"),
		natsURL:     cmd.String("nats-url"),
		natsPrefix:  cmd.String("nats-prefix"),
		ngrok:       cmd.Bool("ngrok"),
		ngrokAuth:   cmd.String("ngrok-auth"),
		ngrokDomain: cmd.String("ngrok-domain"),
	}
}

// newApp builds the command tree. Flags are shared by every mode.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "kungfu-chess",
		Usage:   "real-time chess server with REST, WebSocket and MCP interfaces",
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "Mirror game events to this NATS server (optional)",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-prefix",
				Value:   natsbus.DefaultPrefix,
				Usage:   "First subject token for mirrored events",
				Sources: cli.EnvVars("NATS_PREFIX"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, metrics and MCP endpoint (default)",
				Action:  serverAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  stdioAction,
			},
		},
		Action: serverAction,
	}
}

// main loads .env and runs the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogging(debug bool) {
	if debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

func serverAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	setupLogging(opts.debug)
	log.Printf("Starting %s v%s (mode: server)", AppName, Version)

	svcs, err := initializeServices(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.Close()

	return runHTTPServer(ctx, opts, svcs)
}

func stdioAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	setupLogging(opts.debug)
	// stdout carries the MCP protocol
	log.SetOutput(os.Stderr)
	log.Printf("Starting %s v%s (mode: stdio-mcp)", AppName, Version)

	svcs, err := initializeServices(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.Close()

	return runStdioMCPWithInternalServer(opts, svcs)
}

// services is everything a mode needs to serve games
type services struct {
	game     service.GameService
	sessions *session.Manager
	hub      *websocket.Hub
	metrics  *metrics.Recorder
	bus      *natsbus.Publisher

	stop context.CancelFunc
}

// Close stops background routines, then every game loop, then the fan-out
func (s *services) Close() {
	s.stop()
	s.sessions.Shutdown()
	s.hub.Stop()
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			log.Printf("[NATS] close: %v", err)
		}
	}
}

// initializeServices wires config and session managers, the websocket hub,
// metrics and the optional NATS mirror into the game service. It also starts
// the background routine that prunes stale sessions.
func initializeServices(opts options) (*services, error) {
	configManager, err := config.NewManager(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	recorder := metrics.NewRecorder()

	var bus *natsbus.Publisher
	if opts.natsURL != "" {
		host, _ := os.Hostname()
		bus, err = natsbus.Connect(opts.natsURL, natsbus.WithPrefix(opts.natsPrefix), natsbus.WithSource(host))
		if err != nil {
			log.Printf("WARNING: NATS disabled: %v", err)
			bus = nil
		} else {
			log.Printf("[NATS] mirroring events to %s under %s.>", opts.natsURL, opts.natsPrefix)
		}
	}

	sessionManager := session.NewManager(
		session.WithSinkFactory(eventSinks(hub, recorder, bus)),
		session.WithTickObserver(func(id string, res engine.TickResult) {
			hub.ObserveTick(id, res)
			recorder.ObserveTick(id, res)
		}),
	)

	gameService := service.NewGameService(sessionManager, configManager)

	ctx, cancel := context.WithCancel(context.Background())
	go sessionCleanupRoutine(ctx, sessionManager, recorder)

	return &services{
		game:     gameService,
		sessions: sessionManager,
		hub:      hub,
		metrics:  recorder,
		bus:      bus,
		stop:     cancel,
	}, nil
}

// eventSinks fans each session's events out to websocket clients, metrics and
// NATS through one broker per session
func eventSinks(hub *websocket.Hub, recorder *metrics.Recorder, bus *natsbus.Publisher) session.SinkFactory {
	return func(sessionID string) engine.EventSink {
		broker := engine.NewBroker()
		broker.SubscribeAll(engine.SubscriberFunc(hub.SinkFor(sessionID).Publish))
		broker.SubscribeAll(recorder)
		if bus != nil {
			broker.SubscribeAll(engine.SubscriberFunc(bus.SinkFor(sessionID).Publish))
		}
		broker.Subscribe(engine.EventGameEnd, engine.SubscriberFunc(func(ev engine.Event) {
			winner := "draw"
			if ev.Winner != "" {
				winner = ev.Winner.String()
			}
			log.Printf("[GAME] session=%s finished winner=%s", sessionID, winner)
		}))
		return broker
	}
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the retention window and keeps the session gauge current.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, recorder *metrics.Recorder) {
	cleanup := time.NewTicker(sessionCleanupPeriod)
	defer cleanup.Stop()
	gauge := time.NewTicker(sessionGaugePeriod)
	defer gauge.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			removed := manager.CleanupExpiredSessions(sessionMaxAge)
			if removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
			recorder.SetSessions(manager.Count())
		case <-gauge.C:
			recorder.SetSessions(manager.Count())
		}
	}
}

// newMainRouter mounts the API server at root and the MCP proxy at /mcp
func newMainRouter(apiServer *api.Server, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, metrics and an /mcp proxy endpoint.
// If ngrok is enabled it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, opts options, svcs *services) error {
	apiServer := api.NewServer(svcs.game, svcs.hub, api.WithMetrics(svcs.metrics))
	svcs.hub.HandleCommands(apiServer.WebSocketCommands)

	addr := opts.addr()
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newMainRouter(apiServer, mcpClient)

	// No WriteTimeout: websocket connections are long lived
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("Metrics: http://%s/metrics", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if opts.ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, opts, mainRouter)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		log.Printf("Received shutdown signal. Shutting down...")
	case err = <-serveErr:
		stop()
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
	return err
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx is done
func runNgrokTunnel(ctx context.Context, opts options, handler http.Handler) {
	if opts.ngrokAuth == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if opts.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.ngrokDomain))
		log.Printf("Using custom ngrok domain: %s", opts.ngrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.ngrokAuth))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// probeExternalAPI reports whether a server is already answering on baseURL
func probeExternalAPI(baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API on the configured address; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(opts options, svcs *services) error {
	externalURL := fmt.Sprintf("http://%s", opts.addr())
	log.Printf("Checking for external API server at %s...", externalURL)

	baseURL := externalURL
	if probeExternalAPI(externalURL) {
		log.Printf("External API server found at %s, using it for MCP", externalURL)
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internalAddr := listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		apiServer := api.NewServer(svcs.game, svcs.hub, api.WithMetrics(svcs.metrics))
		svcs.hub.HandleCommands(apiServer.WebSocketCommands)

		httpServer := &http.Server{Handler: apiServer}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Printf("MCP stdio server ready (API at %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
