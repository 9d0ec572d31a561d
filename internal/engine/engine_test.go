package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tudescuento/mcp-server-go/internal/jsonrpc"
	"github.com/tudescuento/mcp-server-go/mcp"
	"github.com/tudescuento/mcp-server-go/mcpservice"
	"github.com/tudescuento/mcp-server-go/sessions"
)

type echoArgs struct {
	Message string `json:"message"`
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	tools := mcpservice.NewToolsContainer(
		mcpservice.NewTool("echo", func(ctx context.Context, sess *sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[echoArgs]) error {
			return w.AppendText(r.Args().Message)
		}, mcpservice.WithToolDescription("Echo a message")),
		mcpservice.NewTool("broken", func(ctx context.Context, sess *sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[struct{}]) error {
			return errors.New("crm unreachable")
		}),
	)
	prompts := mcpservice.NewStaticPrompts(mcpservice.StaticPrompt{
		Descriptor: mcp.Prompt{Name: "hello"},
		Handler: func(ctx context.Context, _ *sessions.Session, req *mcp.GetPromptRequestReceived) (*mcp.GetPromptResult, error) {
			return mcpservice.UserText("", "hola"), nil
		},
	})
	resources := mcpservice.NewStaticResources(mcpservice.TextResource("x://info", "info", "", "text/plain", "body"))

	return NewEngine(mcpservice.Registries{Tools: tools, Prompts: prompts, Resources: resources},
		WithServerInfo(mcp.ImplementationInfo{Name: "test-server", Version: "1.2.3"}),
	)
}

func mustMessage(t *testing.T, raw string) *jsonrpc.AnyMessage {
	t.Helper()
	var msg jsonrpc.AnyMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return &msg
}

func mustEncode(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func newSession() *sessions.Session {
	return sessions.New("sess-1", time.Now())
}

func TestDispatchEchoesIDIncludingZero(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	for _, tc := range []struct {
		name   string
		raw    string
		wantID string
	}{
		{"zero", `{"jsonrpc":"2.0","id":0,"method":"ping"}`, `0`},
		{"number", `{"jsonrpc":"2.0","id":42,"method":"ping"}`, `42`},
		{"string", `{"jsonrpc":"2.0","id":"42","method":"ping"}`, `"42"`},
		{"unknown method", `{"jsonrpc":"2.0","id":0,"method":"nope"}`, `0`},
		{"registry error", `{"jsonrpc":"2.0","id":"abc","method":"tools/call","params":{"name":"broken"}}`, `"abc"`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res := e.Dispatch(context.Background(), newSession(), mustMessage(t, tc.raw))
			if res == nil {
				t.Fatalf("expected a response")
			}
			if want, got := tc.wantID, mustEncode(t, res.ID); want != got {
				t.Fatalf("unexpected id: want %s got %s", want, got)
			}
		})
	}
}

func TestDispatchNotificationsProduceNothing(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	for _, raw := range []string{
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":1}}`,
		`{"jsonrpc":"2.0","method":"tools/list","id":null}`,
		`{"method":"x"}`,
		`{"jsonrpc":"2.0","id":1,"result":{}}`,
	} {
		if res := e.Dispatch(context.Background(), newSession(), mustMessage(t, raw)); res != nil {
			t.Fatalf("%s: expected no response, got %+v", raw, res)
		}
	}
}

func TestDispatchToolsListMatchesRegistry(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	res := e.Dispatch(context.Background(), newSession(), mustMessage(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	if res.Error != nil {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	var got mcp.ListToolsResult
	if err := json.Unmarshal(res.Result, &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	want, _ := e.reg.Tools.ListTools(context.Background())
	if diff := cmp.Diff(want, got.Tools); diff != "" {
		t.Fatalf("tools mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	res := e.Dispatch(context.Background(), newSession(), mustMessage(t, `{"jsonrpc":"2.0","id":2,"method":"unknown/method"}`))
	if res.Error == nil {
		t.Fatalf("expected error response")
	}
	if want, got := jsonrpc.ErrorCodeMethodNotFound, res.Error.Code; want != got {
		t.Fatalf("unexpected code: want %d got %d", want, got)
	}
	if !strings.Contains(res.Error.Message, "unknown/method") {
		t.Fatalf("message should name the method: %q", res.Error.Message)
	}
}

func TestDispatchEmptyMethodIsNotFound(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	res := e.Dispatch(context.Background(), newSession(), mustMessage(t, `{"jsonrpc":"2.0","id":5,"method":""}`))
	if res == nil || res.Error == nil {
		t.Fatalf("expected an error reply, got %+v", res)
	}
	if want, got := jsonrpc.ErrorCodeMethodNotFound, res.Error.Code; want != got {
		t.Fatalf("code: want %d got %d", want, got)
	}
	if want, got := `{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found: "},"id":5}`, mustEncode(t, res); want != got {
		t.Fatalf("envelope: want %s got %s", want, got)
	}
}

func TestDispatchInvalidMessage(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	res := e.Dispatch(context.Background(), newSession(), mustMessage(t, `{"jsonrpc":"2.0","id":4}`))
	if res == nil || res.Error == nil {
		t.Fatalf("expected an error reply, got %+v", res)
	}
	if want, got := jsonrpc.ErrorCodeInvalidRequest, res.Error.Code; want != got {
		t.Fatalf("code: want %d got %d", want, got)
	}
	if want, got := "4", res.ID.String(); want != got {
		t.Fatalf("id: want %s got %s", want, got)
	}
}

func TestDispatchRegistryFailureIsInternalError(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	for _, tc := range []struct {
		raw      string
		wantData string
	}{
		{`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"broken"}}`, "crm unreachable"},
		{`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"missing"}}`, `tool "missing": not found`},
		{`{"jsonrpc":"2.0","id":5,"method":"prompts/get","params":{"name":"missing"}}`, `prompt "missing": not found`},
		{`{"jsonrpc":"2.0","id":6,"method":"resources/read","params":{"uri":"x://missing"}}`, `resource "x://missing": not found`},
	} {
		res := e.Dispatch(context.Background(), newSession(), mustMessage(t, tc.raw))
		if res.Error == nil {
			t.Fatalf("%s: expected error", tc.raw)
		}
		if want, got := jsonrpc.ErrorCodeInternalError, res.Error.Code; want != got {
			t.Fatalf("%s: unexpected code: want %d got %d", tc.raw, want, got)
		}
		if want, got := tc.wantData, res.Error.Data; want != got {
			t.Fatalf("%s: unexpected data: want %v got %v", tc.raw, want, got)
		}
	}
}

func TestDispatchInvalidParams(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	for _, raw := range []string{
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":[1,2]}`,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{}}`,
		`{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":""}}`,
	} {
		res := e.Dispatch(context.Background(), newSession(), mustMessage(t, raw))
		if res.Error == nil || res.Error.Code != jsonrpc.ErrorCodeInvalidParams {
			t.Fatalf("%s: expected invalid params, got %+v", raw, res)
		}
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	sess := newSession()
	raw := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"c","version":"1"}}}`

	first := e.Dispatch(context.Background(), sess, mustMessage(t, raw))
	second := e.Dispatch(context.Background(), sess, mustMessage(t, raw))

	if diff := cmp.Diff(mustEncode(t, first), mustEncode(t, second)); diff != "" {
		t.Fatalf("initialize results differ (-first +second):\n%s", diff)
	}

	want := `{"jsonrpc":"2.0","result":{"protocolVersion":"2025-03-26","capabilities":{"prompts":{},"resources":{},"tools":{}},"serverInfo":{"name":"test-server","version":"1.2.3"}},"id":1}`
	if got := mustEncode(t, first); want != got {
		t.Fatalf("unexpected initialize envelope:\nwant %s\ngot  %s", want, got)
	}

	if !sess.Initialized() {
		t.Fatalf("session should be marked initialized")
	}
	if want, got := "2024-11-05", sess.ProtocolVersion(); want != got {
		t.Fatalf("unexpected recorded version: want %s got %s", want, got)
	}
}

func TestDispatchSuccessPaths(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	for _, tc := range []struct {
		raw  string
		want string
	}{
		{`{"jsonrpc":"2.0","id":1,"method":"ping"}`, `{}`},
		{`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"message":"hola"}}}`, `{"content":[{"type":"text","text":"hola"}]}`},
		{`{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`, `{"prompts":[{"name":"hello"}]}`},
		{`{"jsonrpc":"2.0","id":1,"method":"prompts/get","params":{"name":"hello"}}`, `{"messages":[{"role":"user","content":{"type":"text","text":"hola"}}]}`},
		{`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, `{"resources":[{"uri":"x://info","name":"info","mimeType":"text/plain"}]}`},
		{`{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"x://info"}}`, `{"contents":[{"uri":"x://info","mimeType":"text/plain","text":"body"}]}`},
	} {
		res := e.Dispatch(context.Background(), newSession(), mustMessage(t, tc.raw))
		if res.Error != nil {
			t.Fatalf("%s: unexpected error %+v", tc.raw, res.Error)
		}
		if want, got := tc.want, string(res.Result); want != got {
			t.Fatalf("%s: unexpected result:\nwant %s\ngot  %s", tc.raw, want, got)
		}
	}
}

func TestEmptyRegistriesListAsEmptyArrays(t *testing.T) {
	t.Parallel()
	e := NewEngine(mcpservice.Registries{})

	res := e.Dispatch(context.Background(), newSession(), mustMessage(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	if want, got := `{"tools":[]}`, string(res.Result); want != got {
		t.Fatalf("unexpected result: want %s got %s", want, got)
	}
}
