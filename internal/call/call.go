// ABOUTME: One-shot gateway call orchestration with an overall deadline.
// ABOUTME: Turns one client lifecycle into a single settled result or typed error.

package call

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/2389/fold-cli/internal/gateway"
	"github.com/2389/fold-cli/internal/protocol"
)

// DefaultTimeout bounds a call from Start through settlement. The budget
// covers the handshake and the request together; there is no per-phase
// sub-timeout.
const DefaultTimeout = 10 * time.Second

// Default client identity, sent in the hello frame unless overridden.
const (
	DefaultClientName    = "cli"
	DefaultClientVersion = "dev"
	DefaultMode          = "cli"
)

// Options configures one Gateway invocation. Zero values fall back to the
// documented defaults: a fresh instance id, the "cli"/"dev" identity, a
// 10s timeout, and a protocol range collapsed to the current version.
type Options struct {
	URL      string
	Token    string
	Password string

	InstanceID    string
	ClientName    string
	ClientVersion string
	Platform      string
	Mode          string
	MinProtocol   int
	MaxProtocol   int

	Timeout     time.Duration
	ExpectFinal bool

	// OnPartial observes partial payloads of a streamed response while the
	// call waits for the final frame. The settled result never includes
	// partial content.
	OnPartial func(json.RawMessage)

	Logger *slog.Logger
}

// withDefaults fills unset options with their documented defaults.
func (o Options) withDefaults() Options {
	if o.InstanceID == "" {
		o.InstanceID = uuid.New().String()
	}
	if o.ClientName == "" {
		o.ClientName = DefaultClientName
	}
	if o.ClientVersion == "" {
		o.ClientVersion = DefaultClientVersion
	}
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	if o.MinProtocol == 0 {
		o.MinProtocol = protocol.CurrentVersion
	}
	if o.MaxProtocol == 0 {
		o.MaxProtocol = protocol.CurrentVersion
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Gateway performs exactly one RPC against the gateway at opts.URL: dial,
// handshake, one request, teardown. It settles exactly once with either
// the method's result payload or one typed error (NegotiationError,
// TimeoutError, UnexpectedCloseError, ApplicationError), and the client is
// stopped on every exit path.
//
// The select loop is the single consumer of the client's one-shot
// channels, so the three racing outcomes (result, deadline, close) cannot
// double-settle: whichever arm wins, the function stops the client and
// returns without ever reading the losing channels again. A close event
// caused by our own Stop sits unread in its buffered channel.
func Gateway(ctx context.Context, method string, params any, opts Options) (json.RawMessage, error) {
	opts = opts.withDefaults()

	client := gateway.NewClient(gateway.Config{
		URL:           opts.URL,
		Token:         opts.Token,
		Password:      opts.Password,
		InstanceID:    opts.InstanceID,
		ClientName:    opts.ClientName,
		ClientVersion: opts.ClientVersion,
		Platform:      opts.Platform,
		Mode:          opts.Mode,
		MinProtocol:   opts.MinProtocol,
		MaxProtocol:   opts.MaxProtocol,
	}, opts.Logger, opts.OnPartial)

	// The deadline is wall-clock from Start: a slow handshake spends the
	// same budget as the request itself.
	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()
	defer client.Stop()

	if err := client.Start(); err != nil {
		return nil, &UnexpectedCloseError{
			Code:   websocket.CloseAbnormalClosure,
			Reason: err.Error(),
		}
	}

	// Phase 1: wait for the handshake.
	select {
	case <-ctx.Done():
		client.Stop()
		return nil, ctx.Err()
	case <-timer.C:
		client.Stop()
		return nil, &TimeoutError{Timeout: opts.Timeout}
	case ev := <-client.Closed():
		return nil, closeToError(ev)
	case hello := <-client.HelloOk():
		opts.Logger.Debug("calling gateway",
			"method", method,
			"protocol", hello.Protocol,
		)
	}

	resultCh, err := client.Request(method, params, opts.ExpectFinal)
	if err != nil {
		client.Stop()
		return nil, err
	}

	// Phase 2: wait for the correlated response.
	select {
	case <-ctx.Done():
		client.Stop()
		return nil, ctx.Err()
	case <-timer.C:
		client.Stop()
		return nil, &TimeoutError{Timeout: opts.Timeout}
	case ev := <-client.Closed():
		return nil, closeToError(ev)
	case res := <-resultCh:
		client.Stop()
		if res.Err != nil {
			return nil, &ApplicationError{Code: res.Err.Code, Message: res.Err.Message}
		}
		return res.Value, nil
	}
}

// closeToError maps a close event that we did not initiate to its typed
// error. Handshake rejections use the synthetic negotiation codes; every
// other close is unexpected.
func closeToError(ev gateway.CloseEvent) error {
	switch ev.Code {
	case protocol.CloseNegotiationFailed, protocol.CloseAuthRejected:
		return &NegotiationError{Code: ev.Code, Reason: ev.Reason}
	default:
		return &UnexpectedCloseError{Code: ev.Code, Reason: ev.Reason}
	}
}
