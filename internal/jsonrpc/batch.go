package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrParse is returned by ParseBatch when the body is not valid JSON.
// Callers answer with a single parse-error envelope and dispatch nothing.
var ErrParse = errors.New("jsonrpc: parse error")

// ParseBatch decodes an HTTP body into the messages it carries. A top-level
// array is a batch of independently dispatchable messages; any other value is
// a batch of one. isBatch reports which form was used so replies can mirror it.
//
// Only a body that is not valid JSON fails as a whole. A well-formed value
// that is not a usable envelope becomes a KindInvalid message, so the rest of
// its batch is still dispatched.
func ParseBatch(body []byte) (msgs []*AnyMessage, isBatch bool, err error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("%w: empty body", ErrParse)
	}
	if !json.Valid(trimmed) {
		var v any
		err := json.Unmarshal(trimmed, &v)
		return nil, trimmed[0] == '[', fmt.Errorf("%w: %v", ErrParse, err)
	}

	if trimmed[0] != '[' {
		return []*AnyMessage{decodeElement(trimmed, -1)}, false, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrParse, err)
	}

	msgs = make([]*AnyMessage, 0, len(raws))
	for i, raw := range raws {
		msgs = append(msgs, decodeElement(raw, i))
	}
	return msgs, true, nil
}

func decodeElement(raw []byte, index int) *AnyMessage {
	var msg AnyMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		if index >= 0 {
			err = fmt.Errorf("element %d: %w", index, err)
		}
		return invalidMessage(err)
	}
	return &msg
}

// HasRequests reports whether any message in the batch is owed a reply:
// requests and invalid messages are, notifications and responses are not.
func HasRequests(msgs []*AnyMessage) bool {
	for _, msg := range msgs {
		if k := msg.Kind(); k == KindRequest || k == KindInvalid {
			return true
		}
	}
	return false
}
