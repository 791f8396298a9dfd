package connection

import (
	"context"
	"errors"
	"time"

	"github.com/rickgao/realtime-chat/internal/protocol"
	"github.com/rickgao/realtime-chat/internal/queue"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrStopped         = errors.New("manager stopped")
)

// DefaultURL is the chat server endpoint.
const DefaultURL = "ws://localhost:8765"

// ConnectionState is the lifecycle state of a Manager.
type ConnectionState int32

const (
	StateIdle ConnectionState = iota
	StateConnecting
	StateOpen
	StateClosed
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handler receives lifecycle signals from a transport. Implementations
// must not block.
type Handler interface {
	OnOpen()
	OnMessage(data []byte)
	OnError(err error)
	OnClose(err error)
}

// Transport is a live connection handle.
type Transport interface {
	// Send writes one text frame.
	Send(data []byte) error

	// Close tears the connection down. It is safe to call more than once.
	Close() error
}

// Dialer starts connecting to url and returns immediately. The outcome is
// reported through h: OnOpen on success, then OnMessage per frame, and
// exactly one OnClose when the handle is finished (preceded by OnError
// on failure).
type Dialer func(ctx context.Context, url string, h Handler) Transport

// Timer is a pending retry.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Session is the client identity as confirmed by the server.
type Session struct {
	ClientID string
	Username string
}

// Event is delivered to subscribers. Exactly one of Inbound or Notice is set.
type Event struct {
	Inbound protocol.Event
	Notice  *Notice
	State   ConnectionState // manager state when the event was emitted
}

// Subscriber receives manager events on the dispatch goroutine.
type Subscriber func(Event)

// Stats is a snapshot of manager state and counters.
type Stats struct {
	State          ConnectionState
	Attempt        int
	MaxAttempts    int
	Exhausted      bool // reconnect attempts used up; only Start recovers
	FramesReceived int64
	FramesSent     int64
	DecodeErrors   int64
	Connects       int64
	Queue          queue.Stats
}

// ClientConfig configures a websocket Client.
type ClientConfig struct {
	HandshakeTimeout time.Duration // Dial timeout
	WriteTimeout     time.Duration // Write deadline for sends
	PingInterval     time.Duration // Keepalive ping period, <= 0 disables
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
	}
}

// ManagerConfig configures the lifecycle Manager.
type ManagerConfig struct {
	URL         string        // Chat server endpoint
	MaxAttempts int           // Reconnect attempts before giving up
	BaseDelay   time.Duration // Retry n waits BaseDelay*n
}

// DefaultManagerConfig returns the standard reconnect policy.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		URL:         DefaultURL,
		MaxAttempts: 5,
		BaseDelay:   3 * time.Second,
	}
}
