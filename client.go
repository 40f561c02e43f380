package toolapi

import (
	"errors"
	"fmt"
)

// OnMessage receives one progress message from the running tool. Returning
// false asks for the call to be aborted; no further messages are delivered
// and no result is awaited.
type OnMessage func(msg string) bool

// Call invokes the tool hosted at address as if it were a local function:
// connect, deliver the input dict, stream progress messages through
// onMessage, and block until the terminal result.
//
// The call surfaces exactly one of: the tool's output dict, the tool's own
// failure, or a *ToolCallError describing a connection, protocol or
// caller-abort condition. Transport errors never leak through untyped.
func Call(address string, input ValueDict, onMessage OnMessage) (ValueDict, error) {
	wc, err := dialTool(address)
	if err != nil {
		return nil, &ToolCallError{Kind: CallConnection, Err: err}
	}
	defer wc.close()

	if err := wc.send(&Frame{Type: FrameValues, Values: input}); err != nil {
		return nil, &ToolCallError{Kind: CallConnection, Err: err}
	}

	// The server interleaves any number of TextMessage frames with exactly
	// one terminal Result. Alternating the two expected kinds over the
	// connection's single-slot buffer is what makes switching what we wait
	// for mid-stream safe: a Result that arrives while we expect a text
	// message is parked and picked up by the readResult call right after.
	for {
		msg, ok, err := wc.readText()
		if err != nil {
			return nil, wrapCallError(err)
		}
		if ok {
			if onMessage != nil && !onMessage(msg) {
				// Best effort: the tool is told to stop, but the call is
				// already failed from the caller's point of view.
				_ = wc.send(&Frame{Type: FrameAbort})
				return nil, &ToolCallError{Kind: CallAborted}
			}
			continue
		}

		result, ok, err := wc.readResult()
		if err != nil {
			return nil, wrapCallError(err)
		}
		if !ok {
			// Neither a text message nor a result: the server broke protocol.
			got := wc.discard()
			return nil, &ToolCallError{
				Kind: CallConnection,
				Err:  fmt.Errorf("unexpected %s frame from server", got),
			}
		}
		if result.Err != nil {
			return nil, &ToolCallError{Kind: CallToolFailed, Err: result.Err}
		}
		return result.Values, nil
	}
}

// wrapCallError classifies a read failure: a connection that closes before
// any Result frame means the tool died without producing output, which is a
// protocol error, never a silent success.
func wrapCallError(err error) *ToolCallError {
	if connClosed(err) {
		return &ToolCallError{Kind: CallNoResult, Err: err}
	}
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return &ToolCallError{Kind: CallConnection, Err: connErr}
	}
	return &ToolCallError{Kind: CallConnection, Err: err}
}
