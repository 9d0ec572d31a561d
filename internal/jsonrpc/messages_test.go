package jsonrpc

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAnyMessageKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Kind
	}{
		{name: "request", in: `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, want: KindRequest},
		{name: "request with zero id", in: `{"jsonrpc":"2.0","id":0,"method":"tools/list"}`, want: KindRequest},
		{name: "request with string id", in: `{"jsonrpc":"2.0","id":"abc","method":"ping"}`, want: KindRequest},
		{name: "notification", in: `{"jsonrpc":"2.0","method":"notifications/initialized"}`, want: KindNotification},
		{name: "notification with null id", in: `{"jsonrpc":"2.0","id":null,"method":"x"}`, want: KindNotification},
		{name: "notification without version", in: `{"method":"x"}`, want: KindNotification},
		{name: "result response", in: `{"jsonrpc":"2.0","id":3,"result":{}}`, want: KindResponse},
		{name: "error response", in: `{"jsonrpc":"2.0","id":3,"error":{"code":-32603,"message":"boom"}}`, want: KindResponse},
		{name: "request with empty method", in: `{"jsonrpc":"2.0","id":1,"method":""}`, want: KindRequest},
		{name: "notification with empty method", in: `{"jsonrpc":"2.0","method":""}`, want: KindNotification},
		{name: "empty object", in: `{}`, want: KindInvalid},
		{name: "id only", in: `{"jsonrpc":"2.0","id":7}`, want: KindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg AnyMessage
			if err := json.Unmarshal([]byte(tt.in), &msg); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if want, got := tt.want, msg.Kind(); want != got {
				t.Fatalf("unexpected kind: want %s got %s", want, got)
			}
		})
	}
}

func TestAnyMessageRecordsIDPresence(t *testing.T) {
	t.Parallel()

	var withNull AnyMessage
	if err := json.Unmarshal([]byte(`{"id":null,"method":"x"}`), &withNull); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !withNull.HasID() {
		t.Fatalf("expected null id to be recorded as present")
	}

	var without AnyMessage
	if err := json.Unmarshal([]byte(`{"method":"x"}`), &without); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if without.HasID() {
		t.Fatalf("expected absent id to be recorded as absent")
	}
}

func TestRequestIDPreservesType(t *testing.T) {
	t.Parallel()

	var zero AnyMessage
	if err := json.Unmarshal([]byte(`{"id":0,"method":"ping"}`), &zero); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if want, got := int64(0), zero.ID.Value(); want != got {
		t.Fatalf("unexpected id value: want %v got %v", want, got)
	}

	var str AnyMessage
	if err := json.Unmarshal([]byte(`{"id":"123","method":"ping"}`), &str); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if want, got := "123", str.ID.Value(); want != got {
		t.Fatalf("unexpected id value: want %#v got %#v", want, got)
	}

	resp, err := NewResultResponse(str.ID, map[string]any{})
	if err != nil {
		t.Fatalf("build response: %v", err)
	}
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want, got := `{"jsonrpc":"2.0","result":{},"id":"123"}`, string(b); want != got {
		t.Fatalf("unexpected encoding:\nwant %s\ngot  %s", want, got)
	}
}

func TestRequestIDRejectsObjects(t *testing.T) {
	t.Parallel()

	var msg AnyMessage
	if err := json.Unmarshal([]byte(`{"id":{"a":1},"method":"ping"}`), &msg); err == nil {
		t.Fatalf("expected error for object id")
	}
}

func TestParseErrorResponseHasNullID(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(NewParseErrorResponse(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want, got := `{"jsonrpc":"2.0","error":{"code":-32700,"message":"Parse error"},"id":null}`, string(b); want != got {
		t.Fatalf("unexpected encoding:\nwant %s\ngot  %s", want, got)
	}
}

func TestParseBatch(t *testing.T) {
	t.Parallel()

	t.Run("single", func(t *testing.T) {
		msgs, isBatch, err := ParseBatch([]byte(` {"jsonrpc":"2.0","id":1,"method":"tools/list"} `))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if isBatch {
			t.Fatalf("expected singleton")
		}
		if want, got := 1, len(msgs); want != got {
			t.Fatalf("unexpected message count: want %d got %d", want, got)
		}
	})

	t.Run("array preserves order", func(t *testing.T) {
		msgs, isBatch, err := ParseBatch([]byte(`[{"id":1,"method":"a"},{"method":"b"},{"id":"z","method":"c"}]`))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if !isBatch {
			t.Fatalf("expected batch")
		}
		var methods []string
		for _, m := range msgs {
			methods = append(methods, m.Method)
		}
		if want, got := "a,b,c", strings.Join(methods, ","); want != got {
			t.Fatalf("unexpected order: want %s got %s", want, got)
		}
		if !HasRequests(msgs) {
			t.Fatalf("expected batch to contain requests")
		}
	})

	t.Run("notifications only", func(t *testing.T) {
		msgs, _, err := ParseBatch([]byte(`[{"method":"x"}]`))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if HasRequests(msgs) {
			t.Fatalf("expected no requests")
		}
	})

	for name, body := range map[string]string{
		"malformed":      `{"jsonrpc":`,
		"not json":       `hello`,
		"empty":          ``,
		"truncated list": `[{"id":1,"method":"a"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseBatch([]byte(body))
			if !errors.Is(err, ErrParse) {
				t.Fatalf("expected ErrParse, got %v", err)
			}
		})
	}
}

func TestParseBatchKeepsValidSiblings(t *testing.T) {
	t.Parallel()

	msgs, isBatch, err := ParseBatch([]byte(`[{"jsonrpc":"2.0","id":1,"method":"ping"}, 5, {"id":true,"method":"ping"}, {"method":7}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !isBatch {
		t.Fatalf("expected batch form")
	}
	var kinds []Kind
	for _, m := range msgs {
		kinds = append(kinds, m.Kind())
	}
	if diff := cmp.Diff([]Kind{KindRequest, KindInvalid, KindInvalid, KindInvalid}, kinds); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(msgs[1].Err().Error(), "element 1") {
		t.Fatalf("error should name the element: %v", msgs[1].Err())
	}
	if !HasRequests(msgs[1:2]) {
		t.Fatalf("an invalid element is owed a reply")
	}
}

func TestParseBatchSingleInvalidValue(t *testing.T) {
	t.Parallel()

	msgs, isBatch, err := ParseBatch([]byte(`42`))
	if err != nil {
		t.Fatalf("valid JSON must not be a parse error: %v", err)
	}
	if isBatch || len(msgs) != 1 {
		t.Fatalf("want one non-batch message, got %d (batch=%v)", len(msgs), isBatch)
	}
	if want, got := KindInvalid, msgs[0].Kind(); want != got {
		t.Fatalf("kind: want %s got %s", want, got)
	}
}

func TestNewInvalidRequestResponse(t *testing.T) {
	t.Parallel()

	msgs, _, err := ParseBatch([]byte(`[{"jsonrpc":"2.0","id":9}, "x"]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	withID := NewInvalidRequestResponse(msgs[0])
	if want, got := ErrorCodeInvalidRequest, withID.Error.Code; want != got {
		t.Fatalf("code: want %d got %d", want, got)
	}
	b, _ := json.Marshal(withID)
	if !strings.Contains(string(b), `"id":9`) {
		t.Fatalf("decoded id should be echoed: %s", b)
	}

	b, _ = json.Marshal(NewInvalidRequestResponse(msgs[1]))
	if !strings.Contains(string(b), `"id":null`) {
		t.Fatalf("undecodable element should get a null id: %s", b)
	}
}
