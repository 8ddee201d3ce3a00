// Package call turns one gateway client lifecycle into a single settled
// outcome under an overall deadline.
//
// Gateway is the only entry point: it constructs a client, waits for the
// handshake, issues exactly one request, and resolves with the result
// payload or rejects with exactly one typed error. Success, timeout, and
// unexpected close are independent racing events; the single-consumer
// select loop guarantees that exactly one of them settles the call and
// that the client is always stopped and the timer always released.
//
// Retry policy, if any, belongs to the caller. Two concurrent calls use
// two independent clients and sockets.
package call
