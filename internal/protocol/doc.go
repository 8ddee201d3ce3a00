// Package protocol defines the JSON frames exchanged with a fold gateway
// over its websocket control socket.
//
// # Frame sequence
//
// Every connection carries the same four frame shapes in a fixed order:
//
//  1. Hello (client -> gateway): identity, credentials, and the inclusive
//     protocol version range the client accepts.
//  2. HelloAck (gateway -> client): either ok with the negotiated version,
//     or a rejection with an error descriptor.
//  3. Request (client -> gateway): a method call with a fresh correlation id.
//  4. Response (gateway -> client): frames bearing the request's id. A
//     streamed method sends zero or more partial frames before the terminal
//     frame marked final.
//
// Frames are distinguished positionally, not by a type tag: the first frame
// the gateway sends is always the hello-ack, and everything after it carries
// a correlation id.
package protocol
