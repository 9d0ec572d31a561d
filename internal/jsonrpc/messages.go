package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the supported JSON-RPC protocol version.
const ProtocolVersion = "2.0"

// Kind classifies an inbound JSON-RPC message.
type Kind int

const (
	// KindInvalid is a JSON value that is not a usable envelope: not an
	// object, a malformed id or method, or neither a method nor a
	// result/error. It is answered with an Invalid Request error.
	KindInvalid Kind = iota
	// KindRequest carries a method and a non-null id; exactly one reply is owed.
	KindRequest
	// KindNotification carries a method and no id (absent or null); no reply is owed.
	KindNotification
	// KindResponse carries a result or error and no method. It is never dispatched.
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindResponse:
		return "response"
	default:
		return "invalid"
	}
}

// AnyMessage is a generic JSON-RPC message (request, notification, or response).
//
// Decoding is deliberately lenient about the jsonrpc version member: peers that
// omit it are still classified and dispatched. Structural problems that make
// the payload unusable (non-object values, ids that are neither string nor
// number, non-string methods) are reported as errors by UnmarshalJSON;
// ParseBatch turns them into KindInvalid messages instead.
type AnyMessage struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method,omitempty"`
	Params         json.RawMessage `json:"params,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`

	idPresent     bool
	methodPresent bool
	invalid       error
}

func invalidMessage(err error) *AnyMessage {
	return &AnyMessage{invalid: err}
}

// Err reports why the message could not be decoded, or nil.
func (m *AnyMessage) Err() error {
	return m.invalid
}

// Request represents a JSON-RPC request (with an ID) or notification (without ID).
type Request struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method"`
	Params         json.RawMessage `json:"params,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`
}

// Response represents a JSON-RPC response. The id member is always written,
// as null when the originating id could not be determined.
type Response struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
	ID             *RequestID      `json:"id"`
}

// NewResultResponse builds a successful JSON-RPC response object.
func NewResultResponse(id *RequestID, result any) (*Response, error) {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Result:         resultBytes,
		ID:             id,
	}, nil
}

// NewErrorResponse builds an error JSON-RPC response with the given code.
func NewErrorResponse(id *RequestID, code ErrorCode, message string, data any) *Response {
	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

// NewInvalidRequestResponse answers a KindInvalid message. The id is echoed
// when one could be decoded and is null otherwise.
func NewInvalidRequestResponse(m *AnyMessage) *Response {
	detail := "message has neither a method nor a result or error"
	if m.invalid != nil {
		detail = m.invalid.Error()
	}
	return NewErrorResponse(m.ID, ErrorCodeInvalidRequest, ErrorCodeInvalidRequest.Message(), detail)
}

// NewParseErrorResponse builds the synthetic envelope emitted for bodies that
// are not valid JSON. Its id is always null.
func NewParseErrorResponse(data any) *Response {
	return NewErrorResponse(nil, ErrorCodeParseError, ErrorCodeParseError.Message(), data)
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// UnmarshalJSON decodes a single envelope while recording whether the id
// member was present, so that an explicit id of 0 is never mistaken for an
// absent one.
func (m *AnyMessage) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("message must be a JSON object")
	}

	type rawMessage struct {
		JSONRPCVersion string          `json:"jsonrpc"`
		Method         *string         `json:"method"`
		Params         json.RawMessage `json:"params"`
		Result         json.RawMessage `json:"result"`
		Error          *Error          `json:"error"`
		ID             json.RawMessage `json:"id"`
	}

	var raw rawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("invalid envelope: %w", err)
	}

	*m = AnyMessage{
		JSONRPCVersion: raw.JSONRPCVersion,
		Params:         raw.Params,
		Result:         raw.Result,
		Error:          raw.Error,
	}
	if raw.Method != nil {
		m.Method = *raw.Method
		m.methodPresent = true
	}

	if raw.ID != nil {
		m.idPresent = true
		var id RequestID
		if err := id.UnmarshalJSON(raw.ID); err != nil {
			return err
		}
		if !id.IsNil() {
			m.ID = &id
		}
	}

	return nil
}

// Kind classifies the message. A method member (even an empty string) with a
// non-null id is a request; a method without one (absent or null) is a
// notification; a result or error without a method is a response.
func (m *AnyMessage) Kind() Kind {
	if m.invalid != nil {
		return KindInvalid
	}
	if m.hasMethod() {
		if m.ID.IsNil() {
			return KindNotification
		}
		return KindRequest
	}
	if m.Result != nil || m.Error != nil {
		return KindResponse
	}
	return KindInvalid
}

func (m *AnyMessage) hasMethod() bool {
	return m.methodPresent || m.Method != ""
}

// Type returns the message kind as a string, suitable for log attributes.
func (m *AnyMessage) Type() string {
	return m.Kind().String()
}

// HasID reports whether the id member was present on the wire, even as null.
func (m *AnyMessage) HasID() bool {
	return m.idPresent
}

// AsRequest returns the message as a Request if it is a request or
// notification, otherwise nil.
func (m *AnyMessage) AsRequest() *Request {
	if m.invalid != nil || !m.hasMethod() {
		return nil
	}

	return &Request{
		JSONRPCVersion: m.JSONRPCVersion,
		Method:         m.Method,
		Params:         m.Params,
		ID:             m.ID,
	}
}

// AsResponse returns the message as a Response if it is a response message, otherwise nil.
func (m *AnyMessage) AsResponse() *Response {
	if m.invalid != nil || m.hasMethod() {
		return nil
	}

	return &Response{
		JSONRPCVersion: m.JSONRPCVersion,
		Result:         m.Result,
		Error:          m.Error,
		ID:             m.ID,
	}
}
