package toolapi

import (
	"errors"
	"io"
	"net"

	"github.com/gorilla/websocket"
)

// defaultMaxMessageSize bounds incoming frames. Bulk volume data makes large
// frames legitimate, so the limit is generous.
const defaultMaxMessageSize = 256 << 20

// wireConn wraps a WebSocket connection with the frame codec and a
// single-slot buffer. The buffer is what lets one physical socket serve two
// logical demand-driven streams: reading "the next frame of kind X" parks a
// mismatched frame in the slot so a later read expecting the other kind can
// consume it from there without touching the socket.
//
// The protocol's loop invariant keeps at most one frame owed-but-unread at a
// time, so a single slot is enough. All reads must come from one goroutine;
// writes may come from one other.
type wireConn struct {
	conn   *websocket.Conn
	buffer *Frame
}

func newWireConn(conn *websocket.Conn) *wireConn {
	return &wireConn{conn: conn}
}

// dialTool opens a client connection to a tool server endpoint.
func dialTool(address string) (*wireConn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(address, nil)
	if err != nil {
		return nil, &ConnectionError{Kind: ConnTransport, Err: err}
	}
	conn.SetReadLimit(defaultMaxMessageSize)
	return newWireConn(conn), nil
}

func (c *wireConn) send(f *Frame) error {
	data, err := encodeFrame(f)
	if err != nil {
		return &ConnectionError{Kind: ConnParse, Err: err}
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return wrapTransportError(err)
	}
	return nil
}

// fill reads and decodes exactly one frame into the buffer slot, unless it is
// already occupied by an earlier mismatched read.
func (c *wireConn) fill() error {
	if c.buffer != nil {
		return nil
	}
	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		return wrapTransportError(err)
	}
	f, err := decodeFrame(messageType, data)
	if err != nil {
		return &ConnectionError{Kind: ConnParse, Err: err}
	}
	c.buffer = f
	return nil
}

// take returns the buffered frame if it matches want, leaving mismatches in
// the slot. ok is false when a frame of a different kind is pending.
func (c *wireConn) take(want FrameType) (*Frame, bool, error) {
	if err := c.fill(); err != nil {
		return nil, false, err
	}
	if c.buffer.Type != want {
		return nil, false, nil
	}
	f := c.buffer
	c.buffer = nil
	return f, true, nil
}

// readValues reads the next frame expecting tool input. ok is false when a
// frame of another kind is pending instead; that is not an error.
func (c *wireConn) readValues() (ValueDict, bool, error) {
	f, ok, err := c.take(FrameValues)
	if !ok || err != nil {
		return nil, false, err
	}
	return f.Values, true, nil
}

// readText reads the next frame expecting a progress message.
func (c *wireConn) readText() (string, bool, error) {
	f, ok, err := c.take(FrameText)
	if !ok || err != nil {
		return "", false, err
	}
	return f.Text, true, nil
}

// readResult reads the next frame expecting the terminal result.
func (c *wireConn) readResult() (*ToolResult, bool, error) {
	f, ok, err := c.take(FrameResult)
	if !ok || err != nil {
		return nil, false, err
	}
	return f.Result, true, nil
}

// readAbort reads the next frame expecting an abort request.
func (c *wireConn) readAbort() (bool, error) {
	_, ok, err := c.take(FrameAbort)
	return ok, err
}

// discard drops a pending mismatched frame, reporting what it was. Used when
// a buffered frame can only mean a protocol violation.
func (c *wireConn) discard() FrameType {
	if c.buffer == nil {
		return 0
	}
	t := c.buffer.Type
	c.buffer = nil
	return t
}

func (c *wireConn) close() {
	// Best-effort close handshake; the peer may already be gone.
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.conn.Close()
}

// wrapTransportError folds the many ways a socket can report "peer went
// away" into ConnClosed; everything else stays a transport error.
func wrapTransportError(err error) *ConnectionError {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure,
	) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return &ConnectionError{Kind: ConnClosed, Err: err}
	}
	return &ConnectionError{Kind: ConnTransport, Err: err}
}

// connClosed reports whether err is the peer closing the connection.
func connClosed(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr) && connErr.Kind == ConnClosed
}
