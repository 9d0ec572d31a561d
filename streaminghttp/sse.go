package streaminghttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/tudescuento/mcp-server-go/sessions"
)

// ErrStreamClosed is returned by pushes to a stream whose client went away.
var ErrStreamClosed = errors.New("sse stream closed")

// lockedWriteFlusher serializes writes and flushes on a streaming response.
// Once closed, writes fail instead of touching a ResponseWriter whose handler
// may already have returned.
type lockedWriteFlusher struct {
	w      io.Writer
	f      http.Flusher
	mu     sync.Mutex
	closed bool
}

func (l *lockedWriteFlusher) writeFrame(frame []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrStreamClosed
	}
	if _, err := l.w.Write(frame); err != nil {
		l.closed = true
		return err
	}
	l.f.Flush()
	return nil
}

func (l *lockedWriteFlusher) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

// sseChannel is the push channel attached to a session for the lifetime of
// one GET stream.
type sseChannel struct {
	wf        *lockedWriteFlusher
	done      chan struct{}
	closeOnce sync.Once
}

var _ sessions.PushChannel = (*sseChannel)(nil)

func newSSEChannel(w io.Writer, f http.Flusher) *sseChannel {
	return &sseChannel{
		wf:   &lockedWriteFlusher{w: w, f: f},
		done: make(chan struct{}),
	}
}

// Push writes one event frame. A failed write closes the channel.
func (c *sseChannel) Push(ctx context.Context, event string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrStreamClosed
	default:
	}
	if err := c.wf.writeFrame(sseFrame(event, data)); err != nil {
		c.Close()
		return fmt.Errorf("write %s event: %w", event, err)
	}
	return nil
}

func (c *sseChannel) Done() <-chan struct{} { return c.done }

func (c *sseChannel) ping() error {
	if err := c.wf.writeFrame([]byte(": ping\n\n")); err != nil {
		c.Close()
		return err
	}
	return nil
}

func (c *sseChannel) Close() {
	c.closeOnce.Do(func() {
		c.wf.close()
		close(c.done)
	})
}

// sseFrame renders a single event. data must not contain newlines, which
// holds for anything produced by json.Marshal.
func sseFrame(event string, data []byte) []byte {
	b := make([]byte, 0, len(event)+len(data)+16)
	b = append(b, "event: "...)
	b = append(b, event...)
	b = append(b, "\ndata: "...)
	b = append(b, data...)
	b = append(b, "\n\n"...)
	return b
}
