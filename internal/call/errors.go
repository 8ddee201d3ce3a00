// ABOUTME: Typed error taxonomy for one-shot gateway calls.
// ABOUTME: Every failed call rejects with exactly one of these.

package call

import (
	"fmt"
	"time"
)

// NegotiationError means the gateway refused the handshake: no overlapping
// protocol version, or rejected credentials. Never retried at this layer.
type NegotiationError struct {
	Code   int
	Reason string
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("gateway handshake failed (code %d): %s", e.Code, e.Reason)
}

// TimeoutError means the overall deadline elapsed before the call settled.
// It carries no partial result even if a streamed response had begun.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("gateway call timed out after %s", e.Timeout)
}

// UnexpectedCloseError means the connection ended without either side
// completing the call and without this layer having requested the stop.
// Code and Reason are the close frame's values, verbatim.
type UnexpectedCloseError struct {
	Code   int
	Reason string
}

func (e *UnexpectedCloseError) Error() string {
	return fmt.Sprintf("gateway connection closed (code %d): %s", e.Code, e.Reason)
}

// ApplicationError means the gateway answered the request with an explicit
// error payload (unknown method, invalid params, ...). Propagated to the
// caller unchanged.
type ApplicationError struct {
	Code    string
	Message string
}

func (e *ApplicationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway error (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("gateway error: %s", e.Message)
}
