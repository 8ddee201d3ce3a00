// ABOUTME: Websocket client for a single fold-gateway connection lifecycle.
// ABOUTME: Drives the hello handshake and correlates one in-flight request with its responses.

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/2389/fold-cli/internal/protocol"
)

// State tracks where the client is in its connection lifecycle.
type State int

const (
	StateConnecting State = iota
	StateHandshaking
	StateReady
	StateAwaiting
	StateClosed
)

// String returns the lowercase state name for logging.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateAwaiting:
		return "awaiting"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Request errors
var (
	ErrNotReady       = errors.New("client is not ready for requests")
	ErrRequestPending = errors.New("a request is already in flight")
)

// Config holds the immutable parameters for one connection attempt.
type Config struct {
	URL           string
	Token         string
	Password      string
	InstanceID    string
	ClientName    string
	ClientVersion string
	Platform      string
	Mode          string
	MinProtocol   int
	MaxProtocol   int
}

// HelloInfo is delivered on the HelloOk channel when the handshake succeeds.
type HelloInfo struct {
	Protocol int
}

// CloseEvent is delivered on the Closed channel when the connection ends
// for any reason. Codes in the 4000 range are synthesized by the client
// for handshake failures; everything else comes from the socket.
type CloseEvent struct {
	Code   int
	Reason string
}

// Result is the terminal outcome of one request. Err is non-nil when the
// gateway answered with an explicit error payload.
type Result struct {
	Value json.RawMessage
	Err   *protocol.ErrorInfo
}

// pendingCall is the single in-flight request. The client holds zero or
// one of these at a time.
type pendingCall struct {
	id          string
	expectFinal bool
	result      chan Result
}

// Client manages one websocket connection to a fold gateway: dial, hello
// handshake, at most one correlated request, teardown. It never retries
// or reconnects; every failure surfaces on the Closed channel.
type Client struct {
	cfg    Config
	logger *slog.Logger

	// One-shot notification channels, created before Start so no event
	// can race ahead of the caller wiring its selects.
	helloOk chan HelloInfo
	closed  chan CloseEvent

	// onPartial receives partial payloads for streamed methods. Called
	// from the read loop; may be nil.
	onPartial func(json.RawMessage)

	mu      sync.Mutex
	conn    *websocket.Conn
	state   State
	pending *pendingCall

	closeOnce sync.Once
	stopOnce  sync.Once
}

// NewClient creates a client for one connection attempt. The partial
// callback may be nil; it receives the payload of each partial frame for
// the in-flight request.
func NewClient(cfg Config, logger *slog.Logger, onPartial func(json.RawMessage)) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:       cfg,
		logger:    logger,
		helloOk:   make(chan HelloInfo, 1),
		closed:    make(chan CloseEvent, 1),
		onPartial: onPartial,
		state:     StateConnecting,
	}
}

// HelloOk delivers at most one HelloInfo when the handshake succeeds.
// If the handshake fails the channel never fires; Closed fires instead.
func (c *Client) HelloOk() <-chan HelloInfo {
	return c.helloOk
}

// Closed delivers at most one CloseEvent when the connection ends, whether
// by peer close, socket error, handshake failure, or Stop.
func (c *Client) Closed() <-chan CloseEvent {
	return c.closed
}

// Start dials the gateway and sends the hello frame. It returns an error
// only when the dial itself fails; handshake outcomes arrive on the
// HelloOk and Closed channels.
func (c *Client) Start() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.cfg.URL, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		return fmt.Errorf("dialing gateway: %w", err)
	}

	hello := protocol.Hello{
		InstanceID:    c.cfg.InstanceID,
		ClientName:    c.cfg.ClientName,
		ClientVersion: c.cfg.ClientVersion,
		Platform:      c.cfg.Platform,
		Mode:          c.cfg.Mode,
		MinProtocol:   c.cfg.MinProtocol,
		MaxProtocol:   c.cfg.MaxProtocol,
		Token:         c.cfg.Token,
		Password:      c.cfg.Password,
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateHandshaking
	err = conn.WriteJSON(&hello)
	c.mu.Unlock()

	if err != nil {
		c.fail(websocket.CloseAbnormalClosure, fmt.Sprintf("sending hello: %v", err))
		return nil
	}

	c.logger.Debug("hello sent",
		"url", c.cfg.URL,
		"instance_id", c.cfg.InstanceID,
		"min_protocol", c.cfg.MinProtocol,
		"max_protocol", c.cfg.MaxProtocol,
	)

	go c.readLoop(conn)
	return nil
}

// Request sends one correlated request. The returned channel delivers
// exactly one Result if the gateway answers; if the connection closes
// first, the channel never fires and the close surfaces on Closed.
// Calling Request before the handshake completes, or while another
// request is in flight, is a caller error.
func (c *Client) Request(method string, params any, expectFinal bool) (<-chan Result, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshaling params: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return nil, fmt.Errorf("%w (state %s)", ErrNotReady, c.state)
	}
	if c.pending != nil {
		return nil, ErrRequestPending
	}

	p := &pendingCall{
		id:          uuid.New().String(),
		expectFinal: expectFinal,
		result:      make(chan Result, 1),
	}

	req := protocol.Request{
		ID:     p.id,
		Method: method,
		Params: raw,
	}
	if err := c.conn.WriteJSON(&req); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	c.pending = p
	c.state = StateAwaiting

	c.logger.Debug("request sent",
		"request_id", p.id,
		"method", method,
		"expect_final", expectFinal,
	)

	return p.result, nil
}

// Stop tears the connection down. It is idempotent: repeated calls, or a
// call after the socket already closed, have no further effect.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.state = StateClosed
		if c.conn != nil {
			// Best effort; the peer may already be gone.
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = c.conn.Close()
		}
	})
}

// readLoop consumes frames until the socket closes. The first frame is
// always the hello-ack; everything after it is matched against the
// pending request by correlation id.
func (c *Client) readLoop(conn *websocket.Conn) {
	// Handshake phase: exactly one hello-ack.
	_, data, err := conn.ReadMessage()
	if err != nil {
		c.failFromReadError(err)
		return
	}

	var ack protocol.HelloAck
	if err := json.Unmarshal(data, &ack); err != nil {
		c.fail(protocol.CloseMalformedAck, fmt.Sprintf("malformed hello-ack: %v", err))
		return
	}

	if !ack.OK {
		code := protocol.CloseNegotiationFailed
		reason := "gateway rejected hello"
		if ack.Error != nil {
			reason = ack.Error.Message
			if ack.Error.Code == "unauthorized" {
				code = protocol.CloseAuthRejected
			}
		}
		c.fail(code, reason)
		return
	}

	if ack.Protocol < c.cfg.MinProtocol || ack.Protocol > c.cfg.MaxProtocol {
		c.fail(protocol.CloseNegotiationFailed,
			fmt.Sprintf("gateway protocol %d outside requested range [%d, %d]",
				ack.Protocol, c.cfg.MinProtocol, c.cfg.MaxProtocol))
		return
	}

	c.mu.Lock()
	ready := c.state == StateHandshaking
	if ready {
		c.state = StateReady
	}
	c.mu.Unlock()

	if !ready {
		// Stop raced the handshake; the close event wins.
		return
	}

	c.logger.Debug("handshake complete", "protocol", ack.Protocol)
	c.helloOk <- HelloInfo{Protocol: ack.Protocol}

	// Request phase: match frames against the single pending call.
	for {
		var resp protocol.Response
		if err := conn.ReadJSON(&resp); err != nil {
			c.failFromReadError(err)
			return
		}
		c.handleResponse(&resp)
	}
}

// handleResponse routes one response frame. Frames whose id does not match
// the pending request are stale or foreign and are discarded, never an
// error.
func (c *Client) handleResponse(resp *protocol.Response) {
	c.mu.Lock()
	p := c.pending
	c.mu.Unlock()

	if p == nil || resp.ID != p.id {
		c.logger.Warn("discarding response for unknown request",
			"response_id", resp.ID,
		)
		return
	}

	if resp.Partial != nil && c.onPartial != nil {
		c.onPartial(resp.Partial)
	}

	// A streamed request settles only on the frame marked final; anything
	// else settles on the first result or error.
	terminal := resp.Final || (!p.expectFinal && resp.Terminal())
	if !terminal {
		return
	}

	c.mu.Lock()
	c.pending = nil
	if c.state == StateAwaiting {
		c.state = StateReady
	}
	c.mu.Unlock()

	p.result <- Result{Value: resp.Result, Err: resp.Error}
}

// failFromReadError translates a socket read error into a close event,
// preserving the peer's close code and reason when present.
func (c *Client) failFromReadError(err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		c.fail(closeErr.Code, closeErr.Text)
		return
	}
	c.fail(websocket.CloseAbnormalClosure, err.Error())
}

// fail transitions to Closed and delivers the one-shot close event. A
// pending request is cleared without a separate error; the caller turns
// "closed while awaiting" into a failure.
func (c *Client) fail(code int, reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.pending = nil
		conn := c.conn
		c.mu.Unlock()

		if conn != nil {
			_ = conn.Close()
		}

		c.logger.Debug("connection closed", "code", code, "reason", reason)
		c.closed <- CloseEvent{Code: code, Reason: reason}
	})
}
