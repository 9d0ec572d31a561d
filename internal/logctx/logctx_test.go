package logctx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestHandlerAddsContextGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewLogger(&buf, slog.LevelDebug, "json")

	ctx := WithRequestData(context.Background(), &RequestData{RequestID: "r-1", Method: "POST", Path: "/mcp"})
	ctx = WithSessionData(ctx, &SessionData{SessionID: "s-1", State: "initialized"})
	ctx = WithRPCMessage(ctx, &RPCMessage{Method: "tools/list", ID: "7", Type: "request"})

	log.With(slog.String("component", "test")).InfoContext(ctx, "engine.dispatch.ok")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}

	req, _ := rec["req"].(map[string]any)
	if want, got := "r-1", req["id"]; want != got {
		t.Fatalf("unexpected req.id: want %v got %v", want, got)
	}
	sess, _ := rec["sess"].(map[string]any)
	if want, got := "s-1", sess["id"]; want != got {
		t.Fatalf("unexpected sess.id: want %v got %v", want, got)
	}
	rpc, _ := rec["rpc"].(map[string]any)
	if want, got := "tools/list", rpc["method"]; want != got {
		t.Fatalf("unexpected rpc.method: want %v got %v", want, got)
	}
	if want, got := "test", rec["component"]; want != got {
		t.Fatalf("unexpected component attr: want %v got %v", want, got)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	} {
		if got := ParseLevel(in); want != got {
			t.Fatalf("ParseLevel(%q): want %v got %v", in, want, got)
		}
	}
}

func TestWrapIsIdempotent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := Wrap(Wrap(slog.New(slog.NewJSONHandler(&buf, nil))))
	ctx := WithToolCallData(context.Background(), &ToolCallData{ToolName: "create_lead"})
	log.InfoContext(ctx, "tool.call.ok")

	if want, got := 1, bytes.Count(buf.Bytes(), []byte(`"tool":`)); want != got {
		t.Fatalf("tool group count: want %d got %d in %s", want, got, buf.String())
	}
}
