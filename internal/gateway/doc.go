// Package gateway implements the client side of the fold gateway control
// socket: one websocket connection, one hello handshake, at most one
// in-flight request.
//
// # Lifecycle
//
// A Client moves through Connecting, Handshaking, Ready, Awaiting, and
// Closed. It is created, started, and stopped exactly once; there is no
// retry or reconnect inside this package. Two one-shot channels report
// progress:
//
//   - HelloOk fires when the gateway confirms a protocol version inside
//     the requested range.
//   - Closed fires when the connection ends for any reason, carrying the
//     close code and reason. Handshake failures use synthetic codes from
//     the protocol package.
//
// Both channels exist before Start is called, so the caller can wire its
// selects with no risk of missing an event.
//
// # Requests
//
// Request sends one correlated frame and returns a one-shot result
// channel. Response frames with a non-matching correlation id are
// discarded. For streamed methods (expectFinal), partial frames are fed
// to the optional partial callback and the result channel fires only on
// the frame marked final. If the socket closes while a request is in
// flight, the result channel never fires; the caller observes Closed
// instead.
package gateway
