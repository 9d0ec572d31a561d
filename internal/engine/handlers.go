package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/tudescuento/mcp-server-go/internal/logctx"
	"github.com/tudescuento/mcp-server-go/mcp"
	"github.com/tudescuento/mcp-server-go/sessions"
)

func (e *Engine) handleInitialize(ctx context.Context, sess *sessions.Session, params json.RawMessage) (any, error) {
	var req mcp.InitializeRequest
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}

	// The requested version is only recorded; the server always answers with
	// the revision it implements and the client decides whether to proceed.
	if sess != nil {
		sess.MarkInitialized(req.ProtocolVersion, sessions.ClientInfo{Name: req.ClientInfo.Name, Version: req.ClientInfo.Version})
	}
	e.log.InfoContext(ctx, "engine.session.initialize",
		slog.String("client_name", req.ClientInfo.Name),
		slog.String("client_version", req.ClientInfo.Version),
		slog.String("requested_version", req.ProtocolVersion),
	)

	return &mcp.InitializeResult{
		ProtocolVersion: mcp.ProtocolVersion,
		Capabilities: mcp.ServerCapabilities{
			Tools:     &mcp.CapabilityFlags{},
			Prompts:   &mcp.CapabilityFlags{},
			Resources: &mcp.CapabilityFlags{},
		},
		ServerInfo:   e.serverInfo,
		Instructions: e.instructions,
	}, nil
}

func (e *Engine) handlePing(ctx context.Context, _ *sessions.Session, _ json.RawMessage) (any, error) {
	return mcp.EmptyResult{}, nil
}

func (e *Engine) handleToolsList(ctx context.Context, _ *sessions.Session, _ json.RawMessage) (any, error) {
	tools, err := e.reg.Tools.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	if tools == nil {
		tools = []mcp.Tool{}
	}
	return &mcp.ListToolsResult{Tools: tools}, nil
}

func (e *Engine) handleToolsCall(ctx context.Context, sess *sessions.Session, params json.RawMessage) (any, error) {
	var req mcp.CallToolRequestReceived
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalidParams(errors.New("missing tool name"))
	}

	ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{ToolName: req.Name})
	res, err := e.reg.Tools.CallTool(ctx, sess, &req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &mcp.CallToolResult{}
	}
	if res.IsError {
		e.log.InfoContext(ctx, "engine.tool.is_error")
	}
	if res.Content == nil {
		res.Content = []mcp.ContentBlock{}
	}
	return res, nil
}

func (e *Engine) handlePromptsList(ctx context.Context, _ *sessions.Session, _ json.RawMessage) (any, error) {
	prompts, err := e.reg.Prompts.ListPrompts(ctx)
	if err != nil {
		return nil, err
	}
	if prompts == nil {
		prompts = []mcp.Prompt{}
	}
	return &mcp.ListPromptsResult{Prompts: prompts}, nil
}

func (e *Engine) handlePromptsGet(ctx context.Context, sess *sessions.Session, params json.RawMessage) (any, error) {
	var req mcp.GetPromptRequestReceived
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalidParams(errors.New("missing prompt name"))
	}
	return e.reg.Prompts.GetPrompt(ctx, sess, &req)
}

func (e *Engine) handleResourcesList(ctx context.Context, _ *sessions.Session, _ json.RawMessage) (any, error) {
	resources, err := e.reg.Resources.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	if resources == nil {
		resources = []mcp.Resource{}
	}
	return &mcp.ListResourcesResult{Resources: resources}, nil
}

func (e *Engine) handleResourcesRead(ctx context.Context, sess *sessions.Session, params json.RawMessage) (any, error) {
	var req mcp.ReadResourceRequest
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.URI) == "" {
		return nil, invalidParams(errors.New("missing resource uri"))
	}
	contents, err := e.reg.Resources.ReadResource(ctx, sess, req.URI)
	if err != nil {
		return nil, err
	}
	if contents == nil {
		contents = []mcp.ResourceContents{}
	}
	return &mcp.ReadResourceResult{Contents: contents}, nil
}

func (e *Engine) handleInitialized(ctx context.Context, sess *sessions.Session, _ json.RawMessage) error {
	e.log.InfoContext(ctx, "engine.session.initialized")
	return nil
}

func (e *Engine) handleCancelled(ctx context.Context, _ *sessions.Session, params json.RawMessage) error {
	var note mcp.CancelledNotification
	if err := decodeParams(params, &note); err != nil {
		return err
	}
	// In-flight registry calls are not interruptible; the cancellation is
	// recorded and the eventual result is still delivered.
	e.log.InfoContext(ctx, "engine.request.cancelled", slog.Any("request_id", note.RequestID), slog.String("reason", note.Reason))
	return nil
}
