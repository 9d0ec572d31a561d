// Package httpapi assembles the public HTTP surface: health, metrics and the
// MCP endpoint behind a shared middleware stack.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tudescuento/mcp-server-go/internal/logctx"
	"github.com/tudescuento/mcp-server-go/internal/metrics"
)

// MCPPath is where the MCP endpoint is mounted.
const MCPPath = "/mcp"

const requestIDHeader = "X-Request-Id"

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Count() int
}

type Options struct {
	ServerName    string
	ServerVersion string
	Sessions      SessionCounter
	MCP           http.Handler
	Metrics       *metrics.Metrics
	CORSOrigins   []string
	Logger        *slog.Logger
	Clock         clockwork.Clock
}

// API is the root router.
type API struct {
	chi.Router
	opts Options
	log  *slog.Logger
}

// New builds the router. Nil Logger and Clock fall back to discarding logs and
// the real clock.
func New(o Options) *API {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if len(o.CORSOrigins) == 0 {
		o.CORSOrigins = []string{"*"}
	}

	a := &API{
		Router: chi.NewMux(),
		opts:   o,
		log:    logctx.Wrap(o.Logger),
	}

	a.Use(middleware.RealIP)
	a.Use(a.accessLog)
	a.Use(middleware.Recoverer)
	a.Use(cors.New(cors.Options{
		AllowedOrigins:   o.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Mcp-Session-Id", "Mcp-Protocol-Version", "Last-Event-ID"},
		ExposedHeaders:   []string{"Mcp-Session-Id", "Mcp-Protocol-Version", requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)

	a.Get("/health", a.health)
	if o.Metrics != nil {
		a.Method(http.MethodGet, "/metrics", o.Metrics.Handler())
	}
	if o.MCP != nil {
		a.Handle(MCPPath, o.MCP)
	}

	return a
}

type healthResponse struct {
	Status         string `json:"status"`
	Server         string `json:"server"`
	Version        string `json:"version"`
	Timestamp      string `json:"timestamp"`
	ActiveSessions int    `json:"activeSessions"`
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	active := 0
	if a.opts.Sessions != nil {
		active = a.opts.Sessions.Count()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:         "ok",
		Server:         a.opts.ServerName,
		Version:        a.opts.ServerVersion,
		Timestamp:      a.opts.Clock.Now().UTC().Format(time.RFC3339),
		ActiveSessions: active,
	})
}

// accessLog tags the request with an id and logs its outcome once the handler
// returns. Long-lived SSE streams are logged when they close.
func (a *API) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
			RequestID:  id,
			Method:     r.Method,
			UserAgent:  r.UserAgent(),
			RemoteAddr: r.RemoteAddr,
			Path:       r.URL.Path,
		})
		r = r.WithContext(ctx)

		m := httpsnoop.CaptureMetrics(next, w, r)

		level := slog.LevelInfo
		switch {
		case m.Code >= 500:
			level = slog.LevelError
		case r.URL.Path == "/health" || r.URL.Path == "/metrics":
			level = slog.LevelDebug
		}
		a.log.Log(ctx, level, "http.request.done",
			slog.Int("status", m.Code),
			slog.Int64("bytes", m.Written),
			slog.Duration("dur", m.Duration),
		)
	})
}
