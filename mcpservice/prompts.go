package mcpservice

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tudescuento/mcp-server-go/mcp"
	"github.com/tudescuento/mcp-server-go/sessions"
)

// PromptHandler handles a prompt get request to produce messages.
type PromptHandler func(ctx context.Context, sess *sessions.Session, req *mcp.GetPromptRequestReceived) (*mcp.GetPromptResult, error)

// StaticPrompt pairs a prompt descriptor with a handler that can materialize it.
type StaticPrompt struct {
	Descriptor mcp.Prompt
	Handler    PromptHandler
}

// StaticPrompts owns a threadsafe set of prompt descriptors and handlers.
type StaticPrompts struct {
	mu       sync.RWMutex
	prompts  []mcp.Prompt
	handlers map[string]PromptHandler
}

var _ PromptRegistry = (*StaticPrompts)(nil)

// NewStaticPrompts constructs a new StaticPrompts container with the given definitions.
func NewStaticPrompts(defs ...StaticPrompt) *StaticPrompts {
	sp := &StaticPrompts{handlers: make(map[string]PromptHandler, len(defs))}
	for _, d := range defs {
		sp.Add(d)
	}
	return sp
}

// Add registers a new prompt if it doesn't duplicate an existing name.
// Returns true if added.
func (sp *StaticPrompts) Add(def StaticPrompt) bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	name := def.Descriptor.Name
	if name == "" || def.Handler == nil {
		return false
	}
	if _, exists := sp.handlers[name]; exists {
		return false
	}
	sp.prompts = append(sp.prompts, def.Descriptor)
	sp.handlers[name] = def.Handler
	return true
}

// ListPrompts returns a copy of every registered descriptor.
func (sp *StaticPrompts) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	out := make([]mcp.Prompt, len(sp.prompts))
	copy(out, sp.prompts)
	return out, nil
}

// GetPrompt checks required arguments and dispatches to the named handler.
func (sp *StaticPrompts) GetPrompt(ctx context.Context, sess *sessions.Session, req *mcp.GetPromptRequestReceived) (*mcp.GetPromptResult, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("invalid prompt request: missing name")
	}
	sp.mu.RLock()
	h := sp.handlers[req.Name]
	var desc mcp.Prompt
	for _, p := range sp.prompts {
		if p.Name == req.Name {
			desc = p
			break
		}
	}
	sp.mu.RUnlock()
	if h == nil {
		return nil, fmt.Errorf("prompt %q: %w", req.Name, ErrNotFound)
	}
	for _, arg := range desc.Arguments {
		if arg.Required && strings.TrimSpace(req.Arguments[arg.Name]) == "" {
			return nil, fmt.Errorf("prompt %q: missing required argument %q", req.Name, arg.Name)
		}
	}
	return h(ctx, sess, req)
}

// UserText is a convenience for single-message prompts.
func UserText(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages:    []mcp.PromptMessage{{Role: mcp.RoleUser, Content: mcp.TextContent(text)}},
	}
}
