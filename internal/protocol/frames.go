// ABOUTME: Wire frame definitions for the fold gateway control socket.
// ABOUTME: JSON hello/hello-ack handshake frames and correlated request/response frames.

package protocol

import "encoding/json"

// CurrentVersion is the protocol version this client speaks. The default
// negotiation range collapses to exactly this version unless the caller
// overrides it.
const CurrentVersion = 1

// Synthetic websocket close codes in the private-use range (4000-4999).
// The client fabricates these when the handshake fails before the peer
// sends a real close frame.
const (
	CloseNegotiationFailed = 4000
	CloseAuthRejected      = 4001
	CloseMalformedAck      = 4002
)

// Hello is the first frame on the wire, client to gateway. The gateway
// answers with a HelloAck before any request may be sent.
type Hello struct {
	InstanceID    string `json:"instanceId"`
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	Platform      string `json:"platform,omitempty"`
	Mode          string `json:"mode"`
	MinProtocol   int    `json:"minProtocol"`
	MaxProtocol   int    `json:"maxProtocol"`
	Token         string `json:"token,omitempty"`
	Password      string `json:"password,omitempty"`
}

// ErrorInfo is the error descriptor carried by rejected hello-acks and
// error responses.
type ErrorInfo struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// HelloAck is the gateway's answer to a Hello. On success Protocol is the
// negotiated version; on rejection OK is false and Error describes why.
type HelloAck struct {
	OK       bool       `json:"ok"`
	Protocol int        `json:"protocol,omitempty"`
	Error    *ErrorInfo `json:"error,omitempty"`
}

// Request is a correlated RPC request. ID is a fresh token per request;
// the matching Response frames carry the same ID.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is a frame answering a Request. Exactly one of Result or Error
// is set on a terminal frame. Streamed methods send zero or more frames
// carrying only Partial before the terminal frame, which is marked Final.
type Response struct {
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
	Partial json.RawMessage `json:"partial,omitempty"`
	Final   bool            `json:"final,omitempty"`
}

// Terminal reports whether the frame carries a result or error payload,
// i.e. whether it can settle a non-streamed request.
func (r *Response) Terminal() bool {
	return r.Result != nil || r.Error != nil
}
