package mcpservice

import (
	"context"
	"errors"

	"github.com/tudescuento/mcp-server-go/mcp"
	"github.com/tudescuento/mcp-server-go/sessions"
)

// ErrNotFound is wrapped by every registry when a name or uri is unknown.
var ErrNotFound = errors.New("not found")

// ToolRegistry lists and invokes tools.
type ToolRegistry interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, sess *sessions.Session, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error)
}

// PromptRegistry lists and materializes prompts.
type PromptRegistry interface {
	ListPrompts(ctx context.Context) ([]mcp.Prompt, error)
	GetPrompt(ctx context.Context, sess *sessions.Session, req *mcp.GetPromptRequestReceived) (*mcp.GetPromptResult, error)
}

// ResourceRegistry lists and reads resources.
type ResourceRegistry interface {
	ListResources(ctx context.Context) ([]mcp.Resource, error)
	ReadResource(ctx context.Context, sess *sessions.Session, uri string) ([]mcp.ResourceContents, error)
}

// Registries bundles the three catalogs handed to the dispatcher. A nil
// member is served as an empty catalog.
type Registries struct {
	Tools     ToolRegistry
	Prompts   PromptRegistry
	Resources ResourceRegistry
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
