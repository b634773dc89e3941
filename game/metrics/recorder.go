// Package metrics exports Prometheus counters for running games.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wricardo/kungfu-chess/game/engine"
)

const namespace = "kungfu"

// Recorder holds the game and HTTP collectors
type Recorder struct {
	registry *prometheus.Registry

	ticks          prometheus.Counter
	commands       *prometheus.CounterVec
	captures       prometheus.Counter
	gamesFinished  *prometheus.CounterVec
	sessions       prometheus.Gauge
	events         *prometheus.CounterVec
	reqDuration    *prometheus.HistogramVec
	reqStatusCodes *prometheus.CounterVec
}

// NewRecorder creates a recorder with its own registry. Go runtime and
// process collectors are included so /metrics is useful on its own.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Game ticks executed across all sessions.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands drained from session queues by outcome.",
		}, []string{"outcome"}),
		captures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Pieces removed by reconciliation.",
		}),
		gamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games that ended, by winner.",
		}, []string{"winner"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently held by the server.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Game events published, by type.",
		}, []string{"type"}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reqStatusCodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by status code.",
		}, []string{"method", "code"}),
	}

	reg.MustRegister(
		r.ticks, r.commands, r.captures, r.gamesFinished,
		r.sessions, r.events, r.reqDuration, r.reqStatusCodes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry exposes the underlying registry, mainly for tests
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveTick records one tick result. It matches session.TickObserver.
func (r *Recorder) ObserveTick(_ string, res engine.TickResult) {
	r.ticks.Inc()
	if res.Accepted > 0 {
		r.commands.WithLabelValues("accepted").Add(float64(res.Accepted))
	}
	if res.Rejected > 0 {
		r.commands.WithLabelValues("rejected").Add(float64(res.Rejected))
	}
	if n := len(res.Captured); n > 0 {
		r.captures.Add(float64(n))
	}
}

// Publish counts events; it lets the recorder sit on an engine.Broker
func (r *Recorder) Publish(ev engine.Event) {
	r.events.WithLabelValues(string(ev.Type)).Inc()
	if ev.Type == engine.EventGameEnd {
		winner := string(ev.Winner)
		if winner == "" {
			winner = "draw"
		}
		r.gamesFinished.WithLabelValues(winner).Inc()
	}
}

// OnEvent makes the recorder an engine.Subscriber
func (r *Recorder) OnEvent(ev engine.Event) { r.Publish(ev) }

// SetSessions updates the active session gauge
func (r *Recorder) SetSessions(n int) {
	r.sessions.Set(float64(n))
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working behind the middleware
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Middleware times requests. route names the label so path parameters such
// as session ids do not explode cardinality.
func (r *Recorder) Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, req)

			name := req.URL.Path
			if route != nil {
				name = route(req)
			}
			r.reqDuration.WithLabelValues(req.Method, name).Observe(time.Since(start).Seconds())
			r.reqStatusCodes.WithLabelValues(req.Method, strconv.Itoa(rec.status)).Inc()
		})
	}
}
