package toolapi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Tool is a hosted computation: it consumes its input dict, may call
// out.Send zero or more times to stream progress to the caller, and returns
// exactly once. Tools run on their own goroutine, one per session, and are
// free to block on I/O or computation.
//
// Returning an *AbortError (as obtained from Sender.Send) reports the run as
// aborted; any other non-nil error crosses the wire as a tool failure with
// the error's message.
type Tool func(input ValueDict, out *Sender) (ValueDict, error)

// ServerOption represents the options for the server.
type ServerOption func(*Server)

// Server hosts one Tool and drives a session per WebSocket connection:
// receive the input dict, run the tool on a dedicated goroutine while
// forwarding its progress messages and watching for an abort, then deliver
// the terminal result frame.
//
// Instances should be created using NewServer. The handlers are safe for
// concurrent use; each connection gets its own session state.
type Server struct {
	tool Tool

	indexHTML      string
	maxMessageSize int64
	logger         *slog.Logger

	upgrader websocket.Upgrader
}

// WithLogger sets the logger used for session lifecycle events.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithIndexHTML sets the static page served by HandleIndex. Without it the
// index responds with 404.
func WithIndexHTML(html string) ServerOption {
	return func(s *Server) {
		s.indexHTML = html
	}
}

// WithMaxMessageSize overrides the incoming frame size limit.
func WithMaxMessageSize(size int64) ServerOption {
	return func(s *Server) {
		s.maxMessageSize = size
	}
}

// NewServer creates a server hosting the given tool.
func NewServer(tool Tool, options ...ServerOption) *Server {
	s := &Server{
		tool:           tool,
		logger:         slog.Default(),
		maxMessageSize: defaultMaxMessageSize,
	}
	for _, opt := range options {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  64 << 10,
		WriteBufferSize: 64 << 10,
	}
	return s
}

// HandleTool returns the handler that upgrades a connection and runs one
// tool session on it. Mount it wherever the routing layer wants the tool to
// live.
func (s *Server) HandleTool() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Error("websocket upgrade failed", "err", err)
			return
		}
		conn.SetReadLimit(s.maxMessageSize)
		s.handleSession(conn)
	})
}

// HandleIndex serves the optional static page.
func (s *Server) HandleIndex() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.indexHTML == "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, s.indexHTML)
	})
}

// Serve wires the default routes ("/" for the index page, "/tool" for the
// tool endpoint) and blocks serving them on addr.
func (s *Server) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/", s.HandleIndex())
	mux.Handle("/tool", s.HandleTool())
	return http.ListenAndServe(addr, mux)
}

// toolOutcome is what the tool goroutine reports back: a result, a returned
// error, or a panic.
type toolOutcome struct {
	values ValueDict
	err    error
	crash  error
}

// handleSession drives one connection end to end. The session advances
// through awaiting-input, running, draining and completed; any unrecoverable
// connection error fails the session instead.
func (s *Server) handleSession(conn *websocket.Conn) {
	logger := s.logger.With("session", uuid.NewString())
	wc := newWireConn(conn)
	defer wc.close()

	// Awaiting input: exactly one Values frame opens the session. Anything
	// else, or an immediate close, is a protocol violation.
	input, ok, err := wc.readValues()
	if err != nil {
		logger.Error("failed to read tool input", "err", err)
		return
	}
	if !ok {
		logger.Error("expected input values as the first frame", "got", wc.discard().String())
		return
	}
	logger.Debug("tool session started", "inputs", len(input))

	sender, receiver := NewBridge()
	outcome := make(chan toolOutcome, 1)
	go runTool(s.tool, input, sender, outcome)

	// Watch the socket for an abort request. During the running phase the
	// only frame the client may send is Abort, so a pending frame of any
	// other kind is a violation, reported as a channel error. The read side
	// of the connection belongs to this goroutine from here on.
	aborts := make(chan AbortReason, 1)
	go func() {
		ok, err := wc.readAbort()
		switch {
		case err != nil && connClosed(err):
			aborts <- AbortConnectionClosed
		case err != nil:
			aborts <- AbortChannelError
		case ok:
			aborts <- AbortRequestedByClient
		default:
			logger.Warn("unexpected frame while tool is running", "got", wc.discard().String())
			aborts <- AbortChannelError
		}
	}()

	// Running: race the tool's outbound messages against the abort watch.
	// Whichever is ready first is serviced, preserving the real-time order
	// of progress messages relative to the abort.
	running := true
	for running {
		select {
		case msg, open := <-receiver.msgs:
			if !open {
				// The tool finished sending; all enqueued messages are
				// already forwarded.
				running = false
				break
			}
			if err := wc.send(&Frame{Type: FrameText, Text: msg}); err != nil {
				logger.Error("failed to forward tool message", "err", err)
				receiver.Abort(AbortConnectionClosed)
				running = false
			}
		case reason := <-aborts:
			logger.Debug("tool session aborting", "reason", reason.String())
			receiver.Abort(reason)
			running = false
		}
	}
	// Release a tool blocked on a full queue now that nothing drains it.
	receiver.close()

	// Draining: wait for the tool goroutine. A crash is a distinct failure,
	// never conflated with an error the tool returned.
	out := <-outcome
	if out.crash != nil {
		err := &ConnectionError{Kind: ConnWorkerCrashed, Err: out.crash}
		logger.Error("tool crashed", "err", err)
		return
	}

	// Completed: exactly one Result frame, then release the connection. On
	// the abort path the peer may already be gone; that is the expected
	// early-termination flow, not a failure.
	result := &ToolResult{Values: out.values}
	if out.err != nil {
		result.Err = toToolError(out.err)
	}
	if err := wc.send(&Frame{Type: FrameResult, Result: result}); err != nil {
		logger.Debug("failed to deliver result", "err", err)
		return
	}
	logger.Debug("tool session completed", "failed", result.Err != nil)
}

// runTool runs the tool to completion on its own goroutine, converting a
// panic into a reportable crash. Closing the sender is what lets the session
// loop see the outbound stream end.
func runTool(tool Tool, input ValueDict, sender *Sender, outcome chan<- toolOutcome) {
	defer sender.close()
	defer func() {
		if v := recover(); v != nil {
			outcome <- toolOutcome{crash: fmt.Errorf("panic: %v", v)}
		}
	}()
	values, err := tool(input, sender)
	outcome <- toolOutcome{values: values, err: err}
}
