// ABOUTME: In-process fake fold gateway for exercising the websocket client in tests.
// ABOUTME: Scripts handshake and response behavior per test via a handler function.

package gatewaytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/2389/fold-cli/internal/protocol"
)

// Server is a scripted gateway peer backed by httptest. Each accepted
// connection is handed to the test's handler function, which drives the
// conversation through a Conn.
type Server struct {
	httpServer *httptest.Server
}

// Conn wraps one accepted websocket connection with frame-level helpers.
type Conn struct {
	t  *testing.T
	ws *websocket.Conn
}

// New starts a fake gateway. The handler runs once per connection in its
// own goroutine. The server shuts down with the test.
func New(t *testing.T, handler func(*Conn)) *Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrading connection: %v", err)
			return
		}
		defer ws.Close()
		handler(&Conn{t: t, ws: ws})
	}))
	t.Cleanup(httpServer.Close)

	return &Server{httpServer: httpServer}
}

// URL returns the ws:// address of the fake gateway.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.httpServer.URL, "http")
}

// ReadHello consumes and returns the client's hello frame.
func (c *Conn) ReadHello() protocol.Hello {
	c.t.Helper()
	var hello protocol.Hello
	if err := c.ws.ReadJSON(&hello); err != nil {
		c.t.Fatalf("reading hello: %v", err)
	}
	return hello
}

// AckOK confirms the handshake at the given protocol version.
func (c *Conn) AckOK(protocolVersion int) {
	c.t.Helper()
	c.write(protocol.HelloAck{OK: true, Protocol: protocolVersion})
}

// AckReject refuses the handshake with an error descriptor.
func (c *Conn) AckReject(code, message string) {
	c.t.Helper()
	c.write(protocol.HelloAck{OK: false, Error: &protocol.ErrorInfo{Code: code, Message: message}})
}

// ReadRequest consumes and returns the client's request frame.
func (c *Conn) ReadRequest() protocol.Request {
	c.t.Helper()
	var req protocol.Request
	if err := c.ws.ReadJSON(&req); err != nil {
		c.t.Fatalf("reading request: %v", err)
	}
	return req
}

// SendResult answers a request with a plain (non-final) result frame.
func (c *Conn) SendResult(id string, result any) {
	c.t.Helper()
	c.write(protocol.Response{ID: id, Result: mustMarshal(c.t, result)})
}

// SendFinal answers a request with a terminal frame marked final.
func (c *Conn) SendFinal(id string, result any) {
	c.t.Helper()
	c.write(protocol.Response{ID: id, Result: mustMarshal(c.t, result), Final: true})
}

// SendPartial streams one partial frame for a request.
func (c *Conn) SendPartial(id string, partial any) {
	c.t.Helper()
	c.write(protocol.Response{ID: id, Partial: mustMarshal(c.t, partial)})
}

// SendError answers a request with an application error frame.
func (c *Conn) SendError(id, code, message string) {
	c.t.Helper()
	c.write(protocol.Response{ID: id, Error: &protocol.ErrorInfo{Code: code, Message: message}})
}

// SendRaw writes an arbitrary text frame, for malformed-peer tests.
func (c *Conn) SendRaw(data string) {
	c.t.Helper()
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(data)); err != nil {
		c.t.Errorf("writing raw frame: %v", err)
	}
}

// Close performs a websocket close handshake with the given code and reason.
func (c *Conn) Close(code int, reason string) {
	c.t.Helper()
	deadline := time.Now().Add(time.Second)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	_ = c.ws.Close()
}

// ExpectNoRequest fails the test if the client sends any frame before
// closing the connection or the duration elapsing. Used after handshake
// rejections, which must never be followed by a request.
func (c *Conn) ExpectNoRequest(d time.Duration) {
	_ = c.ws.SetReadDeadline(time.Now().Add(d))
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		c.t.Errorf("client sent a frame after handshake failure: %s", data)
	}
}

// Wait blocks until the client closes the connection or the duration
// elapses. Used by handlers that must stay silent (timeout tests).
func (c *Conn) Wait(d time.Duration) {
	_ = c.ws.SetReadDeadline(time.Now().Add(d))
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Conn) write(v any) {
	c.t.Helper()
	if err := c.ws.WriteJSON(v); err != nil {
		c.t.Errorf("writing frame: %v", err)
	}
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}
	return raw
}
