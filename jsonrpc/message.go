package jsonrpc

import "encoding/json"

const Version = "2.0"

// RawMessage delays unmarshaling of a JSON value.
type RawMessage = json.RawMessage

// Message is implemented by Request, Notification, and Response.
type Message interface {
	isJSONRPC()
}

// Request carries a method call that expects a response with the same ID.
type Request struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      ID         `json:"id"`
	Method  string     `json:"method"`
	Params  RawMessage `json:"params,omitempty"`
}

func (Request) isJSONRPC() {}

// Notification carries a method call with no response.
type Notification struct {
	JSONRPC string     `json:"jsonrpc"`
	Method  string     `json:"method"`
	Params  RawMessage `json:"params,omitempty"`
}

func (Notification) isJSONRPC() {}

// Response answers a request: exactly one of Result and Error is set.
type Response struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      ID         `json:"id"`
	Result  RawMessage `json:"result,omitempty"`
	Error   *Error     `json:"error,omitempty"`
}

func (Response) isJSONRPC() {}

// Error is the JSON-RPC 2.0 error object. It satisfies the error interface
// so handlers can return it directly.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// LSP-specific error codes.
const (
	CodeServerNotInitialized = -32002
	CodeRequestCancelled     = -32800
	CodeContentModified      = -32801
)

// ID is a request identifier, a number or a string on the wire.
type ID struct {
	value interface{}
}

// IntID creates an integer-valued request ID.
func IntID(v int64) ID { return ID{value: v} }

// StringID creates a string-valued request ID.
func StringID(v string) ID { return ID{value: v} }

func (id ID) IsValid() bool      { return id.value != nil }
func (id ID) Value() interface{} { return id.value }

func (id ID) MarshalJSON() ([]byte, error) {
	if id.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(id.value)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		id.value = nil
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		id.value = n
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		id.value = s
		return nil
	}
	return &Error{Code: CodeInvalidRequest, Message: "id must be a number, string, or null"}
}

// DecodeMessage classifies a raw payload. A method with a valid ID is a
// request, a method without one is a notification, and anything else is
// treated as a response.
func DecodeMessage(data []byte) (Message, error) {
	var envelope struct {
		JSONRPC string     `json:"jsonrpc"`
		ID      *ID        `json:"id,omitempty"`
		Method  string     `json:"method,omitempty"`
		Result  RawMessage `json:"result,omitempty"`
		Error   *Error     `json:"error,omitempty"`
		Params  RawMessage `json:"params,omitempty"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &Error{Code: CodeParseError, Message: "failed to parse JSON-RPC message"}
	}

	switch {
	case envelope.Method != "" && envelope.ID != nil && envelope.ID.IsValid():
		return &Request{
			JSONRPC: envelope.JSONRPC,
			ID:      *envelope.ID,
			Method:  envelope.Method,
			Params:  envelope.Params,
		}, nil
	case envelope.Method != "":
		return &Notification{
			JSONRPC: envelope.JSONRPC,
			Method:  envelope.Method,
			Params:  envelope.Params,
		}, nil
	}

	var id ID
	if envelope.ID != nil {
		id = *envelope.ID
	}
	return &Response{
		JSONRPC: envelope.JSONRPC,
		ID:      id,
		Result:  envelope.Result,
		Error:   envelope.Error,
	}, nil
}

// NewResponse builds a response for the given request ID. A non-nil err
// becomes the error member, passed through verbatim when it already is an
// *Error; otherwise result is marshaled into the result member.
func NewResponse(id ID, result interface{}, err error) *Response {
	resp := &Response{JSONRPC: Version, ID: id}
	if err != nil {
		if rpcErr, ok := err.(*Error); ok {
			resp.Error = rpcErr
		} else {
			resp.Error = &Error{Code: CodeInternalError, Message: err.Error()}
		}
		return resp
	}
	if result == nil {
		resp.Result = RawMessage("null")
		return resp
	}
	data, merr := json.Marshal(result)
	if merr != nil {
		resp.Error = &Error{Code: CodeInternalError, Message: merr.Error()}
		return resp
	}
	resp.Result = data
	return resp
}
