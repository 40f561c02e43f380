package toolapi

import (
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

// ExtractErrorKind classifies why a typed extraction from a Value failed.
type ExtractErrorKind uint8

const (
	// ExtractTypeMismatch means the requested type does not match the stored kind.
	ExtractTypeMismatch ExtractErrorKind = iota + 1
	// ExtractTooMuchNesting means the path continues past a leaf. Atomic and
	// structured values cannot nest, and homogeneous collection elements are
	// leaves by construction.
	ExtractTooMuchNesting
	// ExtractIndexOutOfBounds means a numeric token exceeded the list length.
	ExtractIndexOutOfBounds
	// ExtractKeyNotFound means a key token is missing from the mapping.
	ExtractKeyNotFound
	// ExtractIndexForDict means a numeric token was applied to a mapping.
	ExtractIndexForDict
	// ExtractKeyForList means a key token was applied to a list.
	ExtractKeyForList
)

func (k ExtractErrorKind) String() string {
	switch k {
	case ExtractTypeMismatch:
		return "type mismatch"
	case ExtractTooMuchNesting:
		return "too much nesting"
	case ExtractIndexOutOfBounds:
		return "index out of bounds"
	case ExtractKeyNotFound:
		return "key not found"
	case ExtractIndexForDict:
		return "index used on mapping"
	case ExtractKeyForList:
		return "key used on list"
	}
	return "extraction error"
}

// ExtractionError reports a failed Get or Pop. It is local to tool logic and
// never crosses the wire; the tool decides whether to propagate it as a tool
// failure or recover.
type ExtractionError struct {
	Kind  ExtractErrorKind
	Token string
	Want  ValueKind
	Got   ValueKind
}

func (e *ExtractionError) Error() string {
	switch e.Kind {
	case ExtractTypeMismatch:
		return fmt.Sprintf("%s at %q: want %s, got %s", e.Kind, e.Token, e.Want, e.Got)
	case ExtractTooMuchNesting:
		return fmt.Sprintf("%s: cannot index into %s with %q", e.Kind, e.Got, e.Token)
	default:
		return fmt.Sprintf("%s: %q", e.Kind, e.Token)
	}
}

// ParseErrorKind classifies a wire codec failure.
type ParseErrorKind uint8

const (
	// ParseSerialize means the outgoing frame could not be serialized.
	ParseSerialize ParseErrorKind = iota + 1
	// ParseDeserialize means the decompressed payload is not a valid frame.
	ParseDeserialize
	// ParseDecompress means the raw frame bytes are not a valid zstd stream.
	ParseDecompress
	// ParseWrongMessageType means a non-binary WebSocket frame arrived.
	ParseWrongMessageType
)

func (k ParseErrorKind) String() string {
	switch k {
	case ParseSerialize:
		return "serialization error"
	case ParseDeserialize:
		return "deserialization error"
	case ParseDecompress:
		return "decompression error"
	case ParseWrongMessageType:
		return "wrong message type"
	}
	return "parse error"
}

// ParseError reports a wire codec failure. It is always fatal to the frame
// being processed and normally ends the session.
type ParseError struct {
	Kind ParseErrorKind
	Err  error

	// Expected and Found carry gorilla/websocket message types and are set
	// only for ParseWrongMessageType.
	Expected int
	Found    int
}

func (e *ParseError) Error() string {
	if e.Kind == ParseWrongMessageType {
		return fmt.Sprintf("%s: expected %s, found %s", e.Kind, wsMessageTypeName(e.Expected), wsMessageTypeName(e.Found))
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func wsMessageTypeName(t int) string {
	switch t {
	case websocket.TextMessage:
		return "Text"
	case websocket.BinaryMessage:
		return "Binary"
	case websocket.CloseMessage:
		return "Close"
	case websocket.PingMessage:
		return "Ping"
	case websocket.PongMessage:
		return "Pong"
	}
	return fmt.Sprintf("WebSocketMessage(%d)", t)
}

// ConnErrorKind classifies a connection failure.
type ConnErrorKind uint8

const (
	// ConnTransport is a WebSocket transport failure.
	ConnTransport ConnErrorKind = iota + 1
	// ConnClosed means the peer closed the connection.
	ConnClosed
	// ConnParse wraps a ParseError encountered while reading or writing.
	ConnParse
	// ConnWorkerCrashed means the tool goroutine panicked instead of
	// returning. Server side only; distinct from a returned tool error.
	ConnWorkerCrashed
)

func (k ConnErrorKind) String() string {
	switch k {
	case ConnTransport:
		return "websocket error"
	case ConnClosed:
		return "connection closed"
	case ConnParse:
		return "parse error"
	case ConnWorkerCrashed:
		return "worker crashed"
	}
	return "connection error"
}

// ConnectionError reports a transport-level failure. It ends the session;
// sessions are not resumable.
type ConnectionError struct {
	Kind ConnErrorKind
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AbortReason tells the tool why it was asked to stop.
type AbortReason uint8

const (
	// AbortRequestedByClient means the client sent an explicit abort frame.
	AbortRequestedByClient AbortReason = iota + 1
	// AbortConnectionClosed means the client disconnected mid-run, which is
	// treated identically to an explicit abort.
	AbortConnectionClosed
	// AbortChannelError means the bridge between the tool and the session
	// broke down.
	AbortChannelError
)

func (r AbortReason) String() string {
	switch r {
	case AbortRequestedByClient:
		return "RequestedByClient"
	case AbortConnectionClosed:
		return "ConnectionClosed"
	case AbortChannelError:
		return "ChannelError"
	}
	return "AbortReason(?)"
}

// AbortError is returned from Sender.Send once an abort has been posted. It
// is the expected early-termination path, not a failure condition: the tool
// should stop issuing sends and return.
type AbortError struct {
	Reason AbortReason
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("tool was asked to abort: %s", e.Reason)
}

// ToolError is the only error kind that crosses the wire, inside a Result
// frame. It is either an abort (carrying the reason) or a custom message.
type ToolError struct {
	Aborted AbortReason // zero when not an abort
	Message string
}

func (e *ToolError) Error() string {
	if e.Aborted != 0 {
		return (&AbortError{Reason: e.Aborted}).Error()
	}
	return e.Message
}

// toToolError converts whatever the tool returned into the wire
// representation. Aborts keep their structured reason; everything else
// becomes a message.
func toToolError(err error) *ToolError {
	var abort *AbortError
	if errors.As(err, &abort) {
		return &ToolError{Aborted: abort.Reason}
	}
	return &ToolError{Message: err.Error()}
}

// ToolCallErrorKind classifies a failed Call on the client side.
type ToolCallErrorKind uint8

const (
	// CallConnection wraps a connection or protocol failure.
	CallConnection ToolCallErrorKind = iota + 1
	// CallNoResult means the connection closed before any Result frame, i.e.
	// the tool died without producing output.
	CallNoResult
	// CallAborted means the caller's message callback requested an abort.
	CallAborted
	// CallToolFailed carries the ToolError returned by the tool.
	CallToolFailed
)

func (k ToolCallErrorKind) String() string {
	switch k {
	case CallConnection:
		return "connection error"
	case CallNoResult:
		return "server produced no result"
	case CallAborted:
		return "aborted by caller"
	case CallToolFailed:
		return "tool failed"
	}
	return "tool call error"
}

// ToolCallError is the only error type Call ever returns. It wraps connection
// failures, protocol violations, caller-requested aborts and tool failures so
// no raw transport error leaks past the call boundary.
type ToolCallError struct {
	Kind ToolCallErrorKind
	Err  error
}

func (e *ToolCallError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ToolCallError) Unwrap() error { return e.Err }
