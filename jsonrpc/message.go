// Package jsonrpc implements the JSON-RPC 2.0 envelope and the LSP base
// protocol framing (Content-Length headers) used by the session runtime.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// Version is the JSON-RPC protocol version carried by every message.
const Version = "2.0"

// ID is a JSON-RPC request id. It holds the canonical JSON text of the id
// (a number, a string or null) and is never interpreted beyond equality.
type ID struct {
	raw string
}

// NewNumberID returns a numeric id.
func NewNumberID(n int64) ID {
	return ID{raw: strconv.FormatInt(n, 10)}
}

// NewStringID returns a string id.
func NewStringID(s string) ID {
	b, _ := json.Marshal(s)
	return ID{raw: string(b)}
}

// ParseID builds an id from raw JSON. Only numbers, strings and null are
// valid ids.
func ParseID(data []byte) (ID, error) {
	res := gjson.ParseBytes(bytes.TrimSpace(data))
	switch res.Type {
	case gjson.Number, gjson.String, gjson.Null:
	default:
		return ID{}, fmt.Errorf("invalid request id %s", data)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(res.Raw)); err != nil {
		return ID{}, fmt.Errorf("invalid request id %s: %w", data, err)
	}
	return ID{raw: buf.String()}, nil
}

// String returns the JSON text of the id.
func (id ID) String() string {
	if id.raw == "" {
		return "null"
	}
	return id.raw
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	parsed, err := ParseID(data)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Kind classifies an inbound message.
type Kind int

const (
	// KindInvalid is anything that is not a JSON object.
	KindInvalid Kind = iota
	// KindRequest is a message with an id that expects exactly one response.
	KindRequest
	// KindNotification is a message without an id.
	KindNotification
	// KindResponse answers a request this side sent earlier.
	KindResponse
)

// String returns a human-readable kind.
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

// Classify inspects a raw frame body without decoding it fully. An object
// with an "id" key is a request, unless it carries no method and has a
// result or error, in which case it is a response. Everything else is a
// notification.
func Classify(body []byte) Kind {
	if !gjson.ValidBytes(body) {
		return KindInvalid
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return KindInvalid
	}
	if !root.Get("id").Exists() {
		return KindNotification
	}
	if !root.Get("method").Exists() && (root.Get("result").Exists() || root.Get("error").Exists()) {
		return KindResponse
	}
	return KindRequest
}

// Message is the JSON-RPC 2.0 envelope for requests, notifications and
// responses.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`

	kind Kind
}

// Kind returns the classification of the message.
func (m *Message) Kind() Kind {
	if m.kind != KindInvalid {
		return m.kind
	}
	switch {
	case m.ID == nil:
		return KindNotification
	case m.Method == "" && (m.Result != nil || m.Error != nil):
		return KindResponse
	default:
		return KindRequest
	}
}

// Decode parses a frame body into a Message.
func Decode(body []byte) (*Message, error) {
	kind := Classify(body)
	if kind == KindInvalid {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrParse)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	// encoding/json leaves a pointer nil for "id": null; the key is still
	// present, so keep the message a request with a null id.
	if msg.ID == nil && kind != KindNotification {
		msg.ID = &ID{raw: "null"}
	}
	msg.kind = kind
	return &msg, nil
}

// NewRequest builds a request message.
func NewRequest(id ID, method string, params any) (*Message, error) {
	raw, err := marshalRaw(params, false)
	if err != nil {
		return nil, fmt.Errorf("marshal params for %s: %w", method, err)
	}
	return &Message{JSONRPC: Version, ID: &id, Method: method, Params: raw}, nil
}

// NewNotification builds a notification message.
func NewNotification(method string, params any) (*Message, error) {
	raw, err := marshalRaw(params, false)
	if err != nil {
		return nil, fmt.Errorf("marshal params for %s: %w", method, err)
	}
	return &Message{JSONRPC: Version, Method: method, Params: raw}, nil
}

// NewResponse builds a successful response. A nil result is sent as null.
func NewResponse(id ID, result any) (*Message, error) {
	raw, err := marshalRaw(result, true)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &Message{JSONRPC: Version, ID: &id, Result: raw}, nil
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id ID, rpcErr *Error) *Message {
	return &Message{JSONRPC: Version, ID: &id, Error: rpcErr}
}

// marshalRaw encodes v. When keepNull is set a nil value is encoded as the
// literal null instead of being omitted.
func marshalRaw(v any, keepNull bool) (json.RawMessage, error) {
	if v == nil {
		if keepNull {
			return json.RawMessage("null"), nil
		}
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		if len(raw) == 0 && keepNull {
			return json.RawMessage("null"), nil
		}
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
