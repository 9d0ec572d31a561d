package mcpservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tudescuento/mcp-server-go/mcp"
)

// ToolResponseWriter accumulates the text a tool handler produces. Everything
// a tool emits ends up as text blocks of a single CallToolResult; a failed
// tool still returns normally and is flagged through Fail.
type ToolResponseWriter interface {
	AppendText(text string) error
	// Fail marks the result as a tool error and appends the given message.
	Fail(format string, a ...any) error
	Failed() bool
	// Result finalizes and returns the accumulated result. It is idempotent.
	Result() *mcp.CallToolResult
}

// ErrFinalized is returned when writing after Result was called.
var ErrFinalized = errors.New("result already finalized")

type toolResponseWriter struct {
	ctx context.Context

	mu        sync.Mutex
	finalized bool
	texts     []string
	failed    bool
}

var _ ToolResponseWriter = (*toolResponseWriter)(nil)

func newToolResponseWriter(ctx context.Context) *toolResponseWriter {
	return &toolResponseWriter{ctx: ctx}
}

func (w *toolResponseWriter) AppendText(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	// A cancelled call produces nothing further; the engine reports ctx.Err.
	if err := w.ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finalized {
		return ErrFinalized
	}
	w.texts = append(w.texts, text)
	return nil
}

func (w *toolResponseWriter) Fail(format string, a ...any) error {
	w.mu.Lock()
	w.failed = true
	w.mu.Unlock()
	if len(a) == 0 {
		return w.AppendText(format)
	}
	return w.AppendText(fmt.Sprintf(format, a...))
}

func (w *toolResponseWriter) Failed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failed
}

func (w *toolResponseWriter) Result() *mcp.CallToolResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.finalized = true
	content := make([]mcp.ContentBlock, 0, len(w.texts))
	for _, t := range w.texts {
		content = append(content, mcp.TextContent(t))
	}
	return &mcp.CallToolResult{Content: content, IsError: w.failed}
}
