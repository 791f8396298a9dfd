package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a single websocket connection handle. Signals are reported
// to its Handler from the client's own goroutines.
type Client struct {
	cfg     ClientConfig
	url     string
	handler Handler
	logger  *slog.Logger

	conn *websocket.Conn
	done chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu         sync.RWMutex
	connected  bool
	closed     bool
	lastPingAt time.Time
	cancelDial context.CancelFunc

	errOnce   sync.Once
	closeOnce sync.Once
}

// NewDialer returns a Dialer that opens Clients with cfg.
func NewDialer(cfg ClientConfig, logger *slog.Logger) Dialer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, url string, h Handler) Transport {
		c := NewClient(cfg, url, h, logger)
		go func() {
			if err := c.Connect(ctx); err != nil {
				c.logger.Debug("dial failed", "url", url, "error", err)
			}
		}()
		return c
	}
}

// NewClient creates a websocket client. Nothing is dialled until Connect.
func NewClient(cfg ClientConfig, url string, h Handler, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:     cfg,
		url:     url,
		handler: h,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Connect dials the server and starts the read and heartbeat loops.
// Failures are reported to the handler as well as returned.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.finish(ErrAlreadyClosed)
		return ErrAlreadyClosed
	}
	dialCtx, cancel := context.WithCancel(ctx)
	c.cancelDial = cancel
	c.mu.Unlock()
	defer cancel()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(dialCtx, c.url, nil)
	if err != nil {
		if !c.isClosed() {
			c.fail(err)
		}
		c.finish(err)
		return err
	}

	c.mu.Lock()
	if c.closed {
		// Close raced the dial
		c.mu.Unlock()
		conn.Close()
		c.finish(ErrAlreadyClosed)
		return ErrAlreadyClosed
	}
	c.conn = conn
	c.connected = true
	c.lastPingAt = time.Now()
	c.mu.Unlock()

	// Server sends ping, we respond with pong
	conn.SetPingHandler(func(data string) error {
		c.touch()
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	// Server responds to our ping
	conn.SetPongHandler(func(data string) error {
		c.touch()
		return nil
	})

	c.handler.OnOpen()

	go c.readLoop(conn)
	if c.cfg.PingInterval > 0 {
		go c.heartbeatLoop(conn)
	}

	c.logger.Debug("websocket connected", "url", c.url)

	return nil
}

// Close gracefully closes the connection. A dial in progress is aborted.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	if c.cancelDial != nil {
		c.cancelDial()
	}
	c.mu.Unlock()

	// Signal goroutines to stop
	close(c.done)

	if conn == nil {
		return nil
	}

	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}

// Send writes one text frame.
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// readLoop forwards frames to the handler until the connection ends.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Closed locally
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.fail(err)
				}
			}
			c.finish(err)
			return
		}

		c.touch()
		c.handler.OnMessage(data)
	}
}

// heartbeatLoop pings the server and detects stale connections.
func (c *Client) heartbeatLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}

			c.mu.RLock()
			lastPing := c.lastPingAt
			c.mu.RUnlock()

			if c.cfg.PingTimeout > 0 && time.Since(lastPing) > c.cfg.PingTimeout {
				c.logger.Warn("no ping received, connection stale",
					"last_ping", lastPing,
					"timeout", c.cfg.PingTimeout,
				)
				c.fail(ErrStaleConnection)
				// Unblocks readLoop, which reports the close
				conn.Close()
				return
			}
		}
	}
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastPingAt = time.Now()
	c.mu.Unlock()
}

// fail reports the first error of this handle.
func (c *Client) fail(err error) {
	c.errOnce.Do(func() { c.handler.OnError(err) })
}

// finish reports the end of this handle exactly once.
func (c *Client) finish(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		c.handler.OnClose(err)
	})
}
