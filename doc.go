// Package toolapi lets a caller invoke a long-running, possibly blocking
// computation hosted by a server as if it were a local function call that can
// also stream progress messages and be cancelled mid-flight.
//
// Tools exchange dynamically typed ValueDicts over a persistent WebSocket
// connection using compressed binary frames. The server runs each tool on a
// dedicated goroutine per session and bridges it to the connection through a
// bounded message queue with a one-shot abort signal, so tool code can stay
// entirely blocking while cancellation still propagates in both directions.
package toolapi
