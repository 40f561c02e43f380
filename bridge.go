package toolapi

import "sync"

// bridgeCapacity is the size of the outbound message queue. Large enough to
// avoid spurious backpressure under normal message rates.
const bridgeCapacity = 1024

// Sender is the tool-side half of the bridge between the blocking tool
// goroutine and the session loop. The tool calls Send zero or more times; a
// Sender is not safe for use from multiple goroutines.
type Sender struct {
	msgs  chan string
	abort <-chan AbortReason
	done  <-chan struct{}

	aborted AbortReason
}

// Receiver is the session-side half of the bridge.
type Receiver struct {
	msgs  <-chan string
	abort chan<- AbortReason
	done  chan struct{}

	abortOnce sync.Once
	closeOnce sync.Once
}

// NewBridge connects a blocking tool goroutine to the session loop: a bounded
// FIFO queue for outbound text messages plus a one-shot abort slot. The
// Sender goes to the tool, the Receiver stays with the session.
func NewBridge() (*Sender, *Receiver) {
	msgs := make(chan string, bridgeCapacity)
	abort := make(chan AbortReason, 1)
	done := make(chan struct{})

	s := &Sender{msgs: msgs, abort: abort, done: done}
	r := &Receiver{msgs: msgs, abort: abort, done: done}
	return s, r
}

// Send delivers one text message to the peer. If it returns nil the message
// was enqueued successfully. If it returns an *AbortError the tool should
// stop: the client requested an abort, disconnected, or the session is gone.
// A message enqueued on the same call as the abort was observed is still
// delivered; only future sends are affected.
//
// Send blocks until the message fits the queue and must not be called from
// the session loop's goroutine.
func (s *Sender) Send(msg string) error {
	if s.aborted != 0 {
		return &AbortError{Reason: s.aborted}
	}

	select {
	case s.msgs <- msg:
	case <-s.done:
		// Session torn down. Prefer the posted reason if there is one.
		s.aborted = AbortChannelError
		select {
		case reason := <-s.abort:
			s.aborted = reason
		default:
		}
		return &AbortError{Reason: s.aborted}
	}

	select {
	case reason := <-s.abort:
		s.aborted = reason
		return &AbortError{Reason: reason}
	default:
		return nil
	}
}

// close marks the sending side as finished. Called by the session's tool
// wrapper once the tool has returned, never by the tool itself.
func (s *Sender) close() {
	close(s.msgs)
}

// Recv waits for the next outbound text message. ok is false once the Sender
// side is closed and the queue is drained, which is how the session learns
// the tool has finished sending.
func (r *Receiver) Recv() (msg string, ok bool) {
	msg, ok = <-r.msgs
	return msg, ok
}

// Abort posts the abort reason into the one-shot slot: the tool observes it
// on its next Send. The signal is single-fire; posting again is a no-op and
// only the first reason is ever delivered.
func (r *Receiver) Abort(reason AbortReason) {
	r.abortOnce.Do(func() {
		r.abort <- reason
	})
}

// close releases tools blocked on a full queue after the session stopped
// draining it. Idempotent.
func (r *Receiver) close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
}
