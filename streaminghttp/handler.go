package streaminghttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"github.com/tudescuento/mcp-server-go/internal/jsonrpc"
	"github.com/tudescuento/mcp-server-go/internal/logctx"
	"github.com/tudescuento/mcp-server-go/internal/metrics"
	"github.com/tudescuento/mcp-server-go/mcp"
	"github.com/tudescuento/mcp-server-go/sessions"
)

var _ http.Handler = (*Handler)(nil)

var (
	jsonMediaType         = contenttype.NewMediaType("application/json")
	eventStreamMediaType  = contenttype.NewMediaType("text/event-stream")
	eventStreamMediaTypes = []contenttype.MediaType{eventStreamMediaType}
)

const (
	mcpSessionIDHeader       = "Mcp-Session-Id"
	mcpProtocolVersionHeader = "Mcp-Protocol-Version"
)

const (
	// DefaultMaxBodyBytes caps POST bodies.
	DefaultMaxBodyBytes int64 = 10 << 20
	// DefaultKeepAlive is the interval between SSE comment frames.
	DefaultKeepAlive = 15 * time.Second
)

// Dispatcher produces the reply for one message, or nil when none is owed.
type Dispatcher interface {
	Dispatch(ctx context.Context, sess *sessions.Session, msg *jsonrpc.AnyMessage) *jsonrpc.Response
}

// writeJSONError emits a transport-level rejection. These happen before a
// JSON-RPC exchange is possible, so the body is not a JSON-RPC envelope.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Option configures the Handler.
type Option func(*config)

type config struct {
	strategy  Strategy
	logger    *slog.Logger
	metrics   *metrics.Metrics
	keepAlive time.Duration
	maxBody   int64
	clock     clockwork.Clock
}

// WithStrategy selects the delivery strategy. Defaults to StrategyBatch.
func WithStrategy(s Strategy) Option {
	return func(c *config) { c.strategy = s }
}

// WithLogger sets the logger. If not provided, logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithKeepAlive sets the interval between SSE keep-alive comments.
func WithKeepAlive(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.keepAlive = d
		}
	}
}

// WithMaxBodyBytes caps the size of POST bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithClock drives the keep-alive ticker. Tests use a fake clock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *config) { c.clock = clock }
}

// Handler serves the MCP endpoint.
type Handler struct {
	store     sessions.Store
	eng       Dispatcher
	strategy  Strategy
	log       *slog.Logger
	metrics   *metrics.Metrics
	keepAlive time.Duration
	maxBody   int64
	clock     clockwork.Clock

	mu       sync.Mutex
	closing  bool
	deferred conc.WaitGroup
	done     chan struct{}
	doneOnce sync.Once
}

// New builds a Handler resolving sessions in store and dispatching through eng.
func New(store sessions.Store, eng Dispatcher, opts ...Option) *Handler {
	cfg := &config{
		strategy:  StrategyBatch,
		logger:    slog.New(slog.DiscardHandler),
		keepAlive: DefaultKeepAlive,
		maxBody:   DefaultMaxBodyBytes,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Handler{
		store:     store,
		eng:       eng,
		strategy:  cfg.strategy,
		log:       logctx.Wrap(cfg.logger),
		metrics:   cfg.metrics,
		keepAlive: cfg.keepAlive,
		maxBody:   cfg.maxBody,
		clock:     cfg.clock,
		done:      make(chan struct{}),
	}
}

// Strategy reports the active delivery strategy.
func (h *Handler) Strategy() Strategy { return h.strategy }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := logctx.RequestDataFrom(ctx); !ok {
		ctx = logctx.WithRequestData(ctx, &logctx.RequestData{
			RequestID:  uuid.NewString(),
			Method:     r.Method,
			UserAgent:  r.UserAgent(),
			RemoteAddr: r.RemoteAddr,
			Path:       r.URL.Path,
		})
		r = r.WithContext(ctx)
	}

	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodGet:
		if h.strategy != StrategySSE {
			w.Header().Set("Allow", h.strategy.allowedMethods())
			writeJSONError(w, http.StatusMethodNotAllowed, "GET is only available with the sse transport")
			h.log.InfoContext(ctx, "http.get.not_allowed")
			return
		}
		h.handleGet(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		w.Header().Set("Allow", h.strategy.allowedMethods())
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handlePost runs the shared POST pipeline and hands the parsed messages to
// the active strategy.
func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.DebugContext(ctx, "http.post.start")

	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		writeJSONError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		h.log.WarnContext(ctx, "content_type.unsupported")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			h.log.WarnContext(ctx, "http.post.too_large", slog.Int64("limit", tooLarge.Limit))
			return
		}
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		h.log.WarnContext(ctx, "http.post.read.fail", slog.String("err", err.Error()))
		return
	}

	msgs, isBatch, err := jsonrpc.ParseBatch(body)
	if err != nil {
		h.writeEnvelope(ctx, w, http.StatusBadRequest, jsonrpc.NewParseErrorResponse(err.Error()))
		h.log.InfoContext(ctx, "jsonrpc.parse.fail", slog.String("err", err.Error()))
		return
	}
	if len(msgs) == 0 {
		h.writeEnvelope(ctx, w, http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeInvalidRequest, jsonrpc.ErrorCodeInvalidRequest.Message(), "empty batch"))
		h.log.InfoContext(ctx, "jsonrpc.batch.empty")
		return
	}

	if !isBatch && msgs[0].Kind() == jsonrpc.KindInvalid {
		resp := jsonrpc.NewInvalidRequestResponse(msgs[0])
		h.writeEnvelope(ctx, w, http.StatusBadRequest, resp)
		h.log.InfoContext(ctx, "jsonrpc.message.invalid", slog.Any("detail", resp.Error.Data))
		return
	}

	sess, ok := h.resolveSession(w, r)
	if !ok {
		return
	}
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID:       sess.SessionID(),
		ProtocolVersion: sess.ProtocolVersion(),
		State:           string(sess.State()),
	})

	switch h.strategy {
	case StrategySync:
		h.deliverSync(ctx, w, sess, msgs, isBatch)
	case StrategySSE:
		h.deliverSSE(ctx, w, sess, msgs, isBatch)
	default:
		h.deliverBatch(ctx, w, sess, msgs)
	}

	h.log.InfoContext(ctx, "http.post.ok", slog.Int("messages", len(msgs)), slog.Duration("dur", time.Since(start)))
}

// resolveSession looks up or creates the session named by the request header
// and echoes its id. It writes the rejection itself when it returns false.
func (h *Handler) resolveSession(w http.ResponseWriter, r *http.Request) (*sessions.Session, bool) {
	ctx := r.Context()
	sess, created, err := h.store.Resolve(ctx, r.Header.Get(mcpSessionIDHeader))
	if err != nil {
		switch {
		case errors.Is(err, sessions.ErrInvalidSessionID):
			writeJSONError(w, http.StatusBadRequest, "invalid Mcp-Session-Id header")
			h.log.WarnContext(ctx, "session.id.invalid")
		case errors.Is(err, sessions.ErrSessionLimit), errors.Is(err, sessions.ErrStoreClosed):
			writeJSONError(w, http.StatusServiceUnavailable, "no session capacity available")
			h.log.WarnContext(ctx, "session.resolve.unavailable", slog.String("err", err.Error()))
		default:
			writeJSONError(w, http.StatusInternalServerError, "failed to resolve session")
			h.log.ErrorContext(ctx, "session.resolve.fail", slog.String("err", err.Error()))
		}
		return nil, false
	}
	if created {
		h.log.InfoContext(ctx, "session.create.ok", slog.String("session_id", sess.SessionID()))
	}
	w.Header().Set(mcpSessionIDHeader, sess.SessionID())
	w.Header().Set(mcpProtocolVersionHeader, mcp.ProtocolVersion)
	return sess, true
}

// deliverSync answers one message per request.
func (h *Handler) deliverSync(ctx context.Context, w http.ResponseWriter, sess *sessions.Session, msgs []*jsonrpc.AnyMessage, isBatch bool) {
	if isBatch {
		h.writeEnvelope(ctx, w, http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeInvalidRequest, jsonrpc.ErrorCodeInvalidRequest.Message(), "batches are not supported by this transport"))
		h.log.InfoContext(ctx, "jsonrpc.batch.forbidden")
		return
	}

	resp := h.eng.Dispatch(ctx, sess, msgs[0])
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	h.writeEnvelope(ctx, w, http.StatusOK, resp)
}

// deliverBatch dispatches every message in order and returns the collected
// replies: none at all for response-only batches, a bare object for one
// reply, an array otherwise.
func (h *Handler) deliverBatch(ctx context.Context, w http.ResponseWriter, sess *sessions.Session, msgs []*jsonrpc.AnyMessage) {
	hasRequests := jsonrpc.HasRequests(msgs)

	replies := make([]*jsonrpc.Response, 0, len(msgs))
	for _, msg := range msgs {
		if resp := h.eng.Dispatch(ctx, sess, msg); resp != nil {
			replies = append(replies, resp)
		}
	}

	switch {
	case !hasRequests:
		w.WriteHeader(http.StatusAccepted)
	case len(replies) == 0:
		h.writeEnvelope(ctx, w, http.StatusInternalServerError, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeInternalError, jsonrpc.ErrorCodeInternalError.Message(), "no response produced for request batch"))
		h.log.ErrorContext(ctx, "jsonrpc.batch.no_reply")
	case len(replies) == 1:
		h.writeEnvelope(ctx, w, http.StatusOK, replies[0])
	default:
		h.writeJSON(ctx, w, http.StatusOK, replies)
	}
}

// deliverSSE acknowledges the message and dispatches it after the response
// has been written. Requests are refused up front when the session has no
// stream to carry the reply.
func (h *Handler) deliverSSE(ctx context.Context, w http.ResponseWriter, sess *sessions.Session, msgs []*jsonrpc.AnyMessage, isBatch bool) {
	if isBatch {
		h.writeEnvelope(ctx, w, http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeInvalidRequest, jsonrpc.ErrorCodeInvalidRequest.Message(), "batches are not supported by this transport"))
		h.log.InfoContext(ctx, "jsonrpc.batch.forbidden")
		return
	}
	msg := msgs[0]

	if _, ok := sess.PushChannel(); !ok && msg.Kind() == jsonrpc.KindRequest {
		h.writeEnvelope(ctx, w, http.StatusOK, jsonrpc.NewErrorResponse(msg.ID, jsonrpc.ErrorCodeNoActiveConnection, jsonrpc.ErrorCodeNoActiveConnection.Message(), nil))
		h.log.InfoContext(ctx, "sse.channel.missing")
		return
	}

	// The dispatch outlives the POST, so it must not inherit its cancellation.
	dctx := context.WithoutCancel(ctx)
	if !h.schedule(dctx, func() { h.dispatchAndPush(dctx, sess, msg) }) {
		writeJSONError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) dispatchAndPush(ctx context.Context, sess *sessions.Session, msg *jsonrpc.AnyMessage) {
	resp := h.eng.Dispatch(ctx, sess, msg)
	if resp == nil {
		return
	}

	ch, ok := sess.PushChannel()
	if !ok {
		h.metrics.SSEPushFailed()
		h.log.WarnContext(ctx, "sse.push.no_channel")
		return
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		h.log.ErrorContext(ctx, "sse.encode.fail", slog.String("err", err.Error()))
		return
	}
	if err := ch.Push(ctx, "message", payload); err != nil {
		h.store.DetachPush(ctx, sess.SessionID(), ch)
		h.metrics.SSEPushFailed()
		h.log.WarnContext(ctx, "sse.write.fail", slog.String("err", err.Error()))
		return
	}
	h.log.DebugContext(ctx, "sse.message.deliver")
}

// schedule runs fn on the deferred-dispatch group. It reports false once
// Shutdown has begun.
func (h *Handler) schedule(ctx context.Context, fn func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.deferred.Go(func() {
		var pc panics.Catcher
		pc.Try(fn)
		if rec := pc.Recovered(); rec != nil {
			h.log.ErrorContext(ctx, "sse.dispatch.panic", slog.String("err", rec.String()))
		}
	})
	return true
}

// handleGet opens the push channel for a session and holds it until the
// client disconnects or the handler shuts down.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	if _, _, err := contenttype.GetAcceptableMediaType(r, eventStreamMediaTypes); err != nil {
		writeJSONError(w, http.StatusNotAcceptable, "client must accept text/event-stream")
		h.log.WarnContext(ctx, "http.get.not_acceptable")
		return
	}

	f, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		h.log.ErrorContext(ctx, "sse.flusher.missing")
		return
	}

	ch := newSSEChannel(w, f)
	sess, err := h.store.AttachPush(ctx, r.Header.Get(mcpSessionIDHeader), ch)
	if err != nil {
		if errors.Is(err, sessions.ErrInvalidSessionID) {
			writeJSONError(w, http.StatusBadRequest, "invalid Mcp-Session-Id header")
		} else {
			writeJSONError(w, http.StatusServiceUnavailable, "no session capacity available")
		}
		h.log.WarnContext(ctx, "sse.attach.fail", slog.String("err", err.Error()))
		return
	}
	id := sess.SessionID()
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID:       id,
		ProtocolVersion: sess.ProtocolVersion(),
		State:           string(sess.State()),
	})
	defer func() {
		ch.Close()
		h.store.DetachPush(context.WithoutCancel(ctx), id, ch)
		h.log.InfoContext(ctx, "sse.stream.end", slog.Duration("dur", time.Since(start)))
	}()

	w.Header().Set(mcpSessionIDHeader, id)
	w.Header().Set(mcpProtocolVersionHeader, mcp.ProtocolVersion)
	w.Header().Set("Content-Type", eventStreamMediaType.String())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	connected, _ := json.Marshal(map[string]string{"sessionId": id})
	if err := ch.Push(ctx, "connected", connected); err != nil {
		h.log.WarnContext(ctx, "sse.write.fail", slog.String("err", err.Error()))
		return
	}
	h.log.InfoContext(ctx, "sse.stream.start")

	ticker := h.clock.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ch.Done():
			return
		case <-ticker.Chan():
			if err := ch.ping(); err != nil {
				h.log.InfoContext(ctx, "sse.keepalive.fail", slog.String("err", err.Error()))
				return
			}
		}
	}
}

// handleDelete ends a session explicitly.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.Header.Get(mcpSessionIDHeader)
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "missing Mcp-Session-Id header")
		h.log.WarnContext(ctx, "session.id.missing")
		return
	}

	if !h.store.Delete(ctx, id) {
		writeJSONError(w, http.StatusNotFound, "unknown session")
		h.log.InfoContext(ctx, "session.delete.miss")
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.log.InfoContext(ctx, "session.delete.ok", slog.String("session_id", id))
}

// Shutdown stops accepting deferred work, waits for in-flight dispatches to
// push their replies and then releases open streams. It returns ctx.Err() if
// the dispatches do not finish in time.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		h.deferred.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = ctx.Err()
	}
	h.doneOnce.Do(func() { close(h.done) })
	return err
}

func (h *Handler) writeEnvelope(ctx context.Context, w http.ResponseWriter, status int, resp *jsonrpc.Response) {
	h.writeJSON(ctx, w, status, resp)
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WarnContext(ctx, "http.response.write.fail", slog.String("err", err.Error()))
	}
}
