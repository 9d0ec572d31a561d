// Package engine routes decoded JSON-RPC messages to the MCP registries and
// builds the correlated response envelopes. It is transport agnostic: callers
// resolve the session and decide how the returned envelope is delivered.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tudescuento/mcp-server-go/internal/jsonrpc"
	"github.com/tudescuento/mcp-server-go/internal/logctx"
	"github.com/tudescuento/mcp-server-go/internal/metrics"
	"github.com/tudescuento/mcp-server-go/mcp"
	"github.com/tudescuento/mcp-server-go/mcpservice"
	"github.com/tudescuento/mcp-server-go/sessions"
)

// requestHandler produces the result value for a request. A non-nil
// *jsonrpc.Error is returned verbatim; any other error is a registry failure.
type requestHandler func(ctx context.Context, sess *sessions.Session, params json.RawMessage) (any, error)

// notificationHandler consumes a notification. Notifications never produce
// envelopes, so its error is only logged.
type notificationHandler func(ctx context.Context, sess *sessions.Session, params json.RawMessage) error

// Engine dispatches messages for every session. It holds no per-session state
// of its own; protocol state lives on the *sessions.Session.
type Engine struct {
	reg          mcpservice.Registries
	serverInfo   mcp.ImplementationInfo
	instructions string

	log     *slog.Logger
	metrics *metrics.Metrics

	requests      map[mcp.Method]requestHandler
	notifications map[mcp.Method]notificationHandler
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger for the Engine.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = logctx.Wrap(l)
		}
	}
}

// WithServerInfo sets the implementation info returned from initialize.
func WithServerInfo(info mcp.ImplementationInfo) EngineOption {
	return func(e *Engine) { e.serverInfo = info }
}

// WithInstructions sets the optional instructions returned from initialize.
func WithInstructions(s string) EngineOption {
	return func(e *Engine) { e.instructions = s }
}

// WithMetrics reports dispatch counts and latencies to m.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine builds the dispatch tables once. Missing registries are served as
// empty catalogs.
func NewEngine(reg mcpservice.Registries, opts ...EngineOption) *Engine {
	if reg.Tools == nil {
		reg.Tools = mcpservice.NewToolsContainer()
	}
	if reg.Prompts == nil {
		reg.Prompts = mcpservice.NewStaticPrompts()
	}
	if reg.Resources == nil {
		reg.Resources = mcpservice.NewStaticResources()
	}

	e := &Engine{
		reg:        reg,
		serverInfo: mcp.ImplementationInfo{Name: "mcp-server", Version: "0.0.0"},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.requests = map[mcp.Method]requestHandler{
		mcp.InitializeMethod:    e.handleInitialize,
		mcp.PingMethod:          e.handlePing,
		mcp.ToolsListMethod:     e.handleToolsList,
		mcp.ToolsCallMethod:     e.handleToolsCall,
		mcp.PromptsListMethod:   e.handlePromptsList,
		mcp.PromptsGetMethod:    e.handlePromptsGet,
		mcp.ResourcesListMethod: e.handleResourcesList,
		mcp.ResourcesReadMethod: e.handleResourcesRead,
	}
	e.notifications = map[mcp.Method]notificationHandler{
		mcp.InitializedNotificationMethod: e.handleInitialized,
		mcp.CancelledNotificationMethod:   e.handleCancelled,
	}

	return e
}

// Dispatch handles one message for sess. It returns nil for notifications and
// inbound responses; for requests it always returns an envelope carrying the
// request's id, and invalid messages get an Invalid Request envelope. Dispatch never panics on registry failures: they become
// internal-error envelopes.
func (e *Engine) Dispatch(ctx context.Context, sess *sessions.Session, msg *jsonrpc.AnyMessage) *jsonrpc.Response {
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: msg.Method,
		ID:     msg.ID.String(),
		Type:   msg.Type(),
	})
	if sess != nil {
		ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
			SessionID:       sess.SessionID(),
			ProtocolVersion: sess.ProtocolVersion(),
			State:           string(sess.State()),
		})
	}

	switch msg.Kind() {
	case jsonrpc.KindRequest:
		return e.dispatchRequest(ctx, sess, msg)
	case jsonrpc.KindNotification:
		e.dispatchNotification(ctx, sess, msg)
		return nil
	case jsonrpc.KindResponse:
		// The server never originates requests, so there is nothing to correlate.
		e.log.DebugContext(ctx, "engine.dispatch.response_ignored")
		return nil
	default:
		e.log.InfoContext(ctx, "engine.dispatch.invalid_request")
		return jsonrpc.NewInvalidRequestResponse(msg)
	}
}

func (e *Engine) dispatchRequest(ctx context.Context, sess *sessions.Session, msg *jsonrpc.AnyMessage) *jsonrpc.Response {
	start := time.Now()
	method := mcp.Method(msg.Method)

	h, ok := e.requests[method]
	if !ok {
		e.metrics.ObserveDispatch("unknown", metrics.OutcomeUnknownMethod, time.Since(start))
		e.log.InfoContext(ctx, "engine.dispatch.unknown_method", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(msg.ID, jsonrpc.ErrorCodeMethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method), nil)
	}

	result, err := h(ctx, sess, msg.Params)
	if err != nil {
		if rpcErr, ok := err.(*jsonrpc.Error); ok {
			e.metrics.ObserveDispatch(msg.Method, metrics.OutcomeInvalidParams, time.Since(start))
			e.log.InfoContext(ctx, "engine.dispatch.invalid", slog.String("err", rpcErr.Message), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			return jsonrpc.NewErrorResponse(msg.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		}
		e.metrics.ObserveDispatch(msg.Method, metrics.OutcomeError, time.Since(start))
		e.log.ErrorContext(ctx, "engine.dispatch.fail", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return internalError(msg.ID, err)
	}

	res, err := jsonrpc.NewResultResponse(msg.ID, result)
	if err != nil {
		e.metrics.ObserveDispatch(msg.Method, metrics.OutcomeError, time.Since(start))
		e.log.ErrorContext(ctx, "engine.dispatch.encode.fail", slog.String("err", err.Error()))
		return internalError(msg.ID, err)
	}

	e.metrics.ObserveDispatch(msg.Method, metrics.OutcomeOK, time.Since(start))
	e.log.InfoContext(ctx, "engine.dispatch.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
	return res
}

func (e *Engine) dispatchNotification(ctx context.Context, sess *sessions.Session, msg *jsonrpc.AnyMessage) {
	h, ok := e.notifications[mcp.Method(msg.Method)]
	if !ok {
		e.log.DebugContext(ctx, "engine.notification.ignored")
		return
	}
	if err := h(ctx, sess, msg.Params); err != nil {
		e.log.InfoContext(ctx, "engine.notification.fail", slog.String("err", err.Error()))
		return
	}
	e.log.DebugContext(ctx, "engine.notification.ok")
}

func internalError(id *jsonrpc.RequestID, err error) *jsonrpc.Response {
	return jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInternalError, jsonrpc.ErrorCodeInternalError.Message(), err.Error())
}

func invalidParams(err error) *jsonrpc.Error {
	return &jsonrpc.Error{
		Code:    jsonrpc.ErrorCodeInvalidParams,
		Message: jsonrpc.ErrorCodeInvalidParams.Message(),
		Data:    err.Error(),
	}
}

// decodeParams unmarshals params into dst. Absent or null params leave dst
// untouched.
func decodeParams(params json.RawMessage, dst any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return invalidParams(err)
	}
	return nil
}
