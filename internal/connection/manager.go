package connection

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/realtime-chat/internal/protocol"
	"github.com/rickgao/realtime-chat/internal/queue"
)

type signalKind int

const (
	sigStart signalKind = iota
	sigStop
	sigRetry
	sigOpen
	sigMessage
	sigError
	sigClose
	sigSend
	sigRename
)

// signal is one unit of work for the dispatch loop.
type signal struct {
	kind   signalKind
	handle uuid.UUID // transport signals
	gen    uint64    // sigRetry
	data   []byte
	err    error
	text   string
}

// Option configures a Manager.
type Option func(*Manager)

// WithAfterFunc replaces the timer used to schedule reconnects.
func WithAfterFunc(fn AfterFunc) Option {
	return func(m *Manager) {
		if fn != nil {
			m.afterFunc = fn
		}
	}
}

// Manager runs the connection lifecycle state machine:
//
//	Idle -> Connecting -> Open -> Closed -> Connecting ...
//
// All state is owned by a single dispatch goroutine fed from an
// unbounded queue, so transport callbacks, retry timers and caller
// operations are handled one at a time in arrival order.
type Manager struct {
	cfg       ManagerConfig
	dial      Dialer
	logger    *slog.Logger
	afterFunc AfterFunc

	signals  *queue.Queue[signal]
	loopDone chan struct{}

	runMu   sync.Mutex
	running bool
	stopped bool

	subMu   sync.RWMutex
	subs    []subscription
	nextSub uint64

	// Owned by the dispatch loop
	ctx       context.Context
	cancel    context.CancelFunc
	transport Transport
	handle    uuid.UUID
	retry     Timer
	retryGen  uint64

	// Written only by the dispatch loop; read by anyone under mu
	mu      sync.RWMutex
	state   ConnectionState
	attempt int
	session Session
	stats   Stats
}

type subscription struct {
	id uint64
	fn Subscriber
}

// NewManager creates a Manager. Zero fields in cfg take their defaults.
func NewManager(cfg ManagerConfig, dial Dialer, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultManagerConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = def.BaseDelay
	}

	m := &Manager{
		cfg:       cfg,
		dial:      dial,
		logger:    logger,
		afterFunc: realAfterFunc,
		signals:   queue.New[signal](),
		loopDone:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins connecting. The first call starts the dispatch loop;
// later calls restart a manager that is Idle or Closed, resetting the
// reconnect counter. Starting while Connecting or Open is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.stopped {
		return ErrStopped
	}
	if !m.running {
		m.ctx, m.cancel = context.WithCancel(ctx)
		m.running = true
		go m.run()
	}
	m.signals.Push(signal{kind: sigStart})
	return nil
}

// Stop closes the live connection, cancels any pending retry and ends
// the dispatch loop. A stopped manager cannot be restarted.
func (m *Manager) Stop(ctx context.Context) error {
	m.runMu.Lock()
	if m.stopped {
		m.runMu.Unlock()
		return nil
	}
	m.stopped = true
	running := m.running
	m.runMu.Unlock()

	m.logger.Info("stopping connection manager")

	if !running {
		m.signals.Close()
		return nil
	}

	m.signals.Push(signal{kind: sigStop})

	select {
	case <-m.loopDone:
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, dispatch loop still running")
		return ctx.Err()
	}

	m.logger.Info("connection manager stopped")
	return nil
}

// SendChatMessage queues a chat message. Whitespace is trimmed; empty
// messages and messages sent while not Open are rejected with a Notice.
func (m *Manager) SendChatMessage(text string) error {
	return m.enqueue(signal{kind: sigSend, text: text})
}

// RequestUsernameChange asks the server for a new username. The Session
// changes only when the server confirms.
func (m *Manager) RequestUsernameChange(name string) error {
	return m.enqueue(signal{kind: sigRename, text: name})
}

func (m *Manager) enqueue(sig signal) error {
	m.runMu.Lock()
	stopped := m.stopped
	m.runMu.Unlock()
	if stopped || !m.signals.Push(sig) {
		return ErrStopped
	}
	return nil
}

// Subscribe registers fn for every event. Callbacks run on the dispatch
// goroutine in emission order and must not block. The returned func
// removes the subscription.
func (m *Manager) Subscribe(fn Subscriber) (cancel func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	m.nextSub++
	id := m.nextSub
	m.subs = append(m.subs, subscription{id: id, fn: fn})

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// State returns the current connection state.
func (m *Manager) State() ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Session returns the server-confirmed identity, zero before the handshake.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Stats returns current statistics.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	s := m.stats
	s.State = m.state
	s.Attempt = m.attempt
	m.mu.RUnlock()

	s.MaxAttempts = m.cfg.MaxAttempts
	s.Queue = m.signals.Stats()
	return s
}

// run is the dispatch loop.
func (m *Manager) run() {
	defer close(m.loopDone)

	for {
		sig, ok := m.signals.Pop()
		if !ok {
			return
		}
		if sig.kind == sigStop {
			m.shutdown()
			return
		}
		m.dispatch(sig)
	}
}

func (m *Manager) dispatch(sig signal) {
	switch sig.kind {
	case sigStart:
		m.handleStart()
	case sigRetry:
		m.handleRetry(sig.gen)
	case sigOpen:
		if m.current(sig) {
			m.handleOpen()
		}
	case sigMessage:
		if m.current(sig) {
			m.handleFrame(sig.data)
		}
	case sigError, sigClose:
		if m.current(sig) {
			m.handleLost(sig.err)
		}
	case sigSend:
		m.handleSend(sig.text)
	case sigRename:
		m.handleRename(sig.text)
	}
}

// current reports whether sig came from the live handle. Late callbacks
// from superseded handles are dropped here.
func (m *Manager) current(sig signal) bool {
	if m.transport == nil || sig.handle != m.handle {
		m.logger.Debug("ignoring signal from stale handle", "handle", sig.handle, "kind", int(sig.kind))
		return false
	}
	return true
}

func (m *Manager) handleStart() {
	switch m.state {
	case StateConnecting, StateOpen:
		m.logger.Debug("start ignored", "state", m.state)
		return
	}
	m.setAttempt(0)
	m.connect()
}

func (m *Manager) handleRetry(gen uint64) {
	if m.retry == nil || gen != m.retryGen {
		m.logger.Debug("ignoring stale retry timer", "gen", gen)
		return
	}
	m.retry = nil
	m.connect()
}

// connect discards any previous handle and dials a new one.
func (m *Manager) connect() {
	m.stopRetry()
	m.discardTransport()

	id := uuid.New()
	m.handle = id
	m.setState(StateConnecting)

	m.logger.Info("connecting",
		"url", m.cfg.URL,
		"handle", id,
		"attempt", m.attempt,
	)

	m.mu.Lock()
	m.stats.Connects++
	m.mu.Unlock()

	m.transport = m.dial(m.ctx, m.cfg.URL, &handleSink{id: id, signals: m.signals})
}

func (m *Manager) handleOpen() {
	if m.state != StateConnecting {
		return
	}
	m.setAttempt(0)
	m.setState(StateOpen)
	m.logger.Info("connected", "handle", m.handle)
	m.notify(Notice{Kind: NoticeConnected})
}

func (m *Manager) handleFrame(data []byte) {
	if m.state != StateOpen {
		return
	}

	m.mu.Lock()
	m.stats.FramesReceived++
	m.mu.Unlock()

	ev, err := protocol.Decode(data)
	if err != nil {
		m.mu.Lock()
		m.stats.DecodeErrors++
		m.mu.Unlock()
		m.logger.Warn("failed to decode frame", "error", err, "size", len(data))
		m.notify(Notice{Kind: NoticeDecodeFailed, Err: err})
		return
	}

	switch e := ev.(type) {
	case protocol.Unknown:
		m.logger.Debug("dropping frame with unknown type", "type", e.Discriminant)
		return
	case protocol.HandshakeEstablished:
		m.setSession(Session{ClientID: e.ClientID, Username: e.Username})
		m.logger.Info("session established", "client_id", e.ClientID, "username", e.Username)
	case protocol.UsernameConfirmed:
		s := m.session
		s.Username = e.Username
		m.setSession(s)
		m.logger.Info("username confirmed", "username", e.Username)
	}

	m.emit(Event{Inbound: ev})
}

// handleLost moves to Closed and schedules a retry while attempts remain.
func (m *Manager) handleLost(cause error) {
	m.discardTransport()
	m.setState(StateClosed)

	if cause != nil {
		m.logger.Warn("connection lost", "error", cause, "attempt", m.attempt)
	} else {
		m.logger.Info("connection closed", "attempt", m.attempt)
	}
	m.notify(Notice{Kind: NoticeConnectionLost, Err: cause})

	if m.attempt >= m.cfg.MaxAttempts {
		m.logger.Error("reconnect attempts exhausted", "max_attempts", m.cfg.MaxAttempts)
		m.mu.Lock()
		m.stats.Exhausted = true
		m.mu.Unlock()
		m.notify(Notice{Kind: NoticeReconnectFailed, Err: cause})
		return
	}

	m.setAttempt(m.attempt + 1)
	delay := m.cfg.BaseDelay * time.Duration(m.attempt)

	m.logger.Info("scheduling reconnect", "attempt", m.attempt, "delay", delay)
	m.notify(Notice{
		Kind:        NoticeReconnecting,
		Attempt:     m.attempt,
		MaxAttempts: m.cfg.MaxAttempts,
		Delay:       delay,
	})
	m.scheduleRetry(delay)
}

func (m *Manager) handleSend(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		m.notify(Notice{Kind: NoticeEmptyMessage})
		return
	}
	if m.state != StateOpen {
		m.notify(Notice{Kind: NoticeSendRejected, Err: ErrNotConnected})
		return
	}
	if err := m.send(protocol.SendChatMessage{Text: text}); err != nil {
		m.notify(Notice{Kind: NoticeSendRejected, Err: err})
	}
}

func (m *Manager) handleRename(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		m.notify(Notice{Kind: NoticeEmptyUsername})
		return
	}
	if name == m.session.Username {
		m.notify(Notice{Kind: NoticeUsernameUnchanged})
		return
	}
	if m.state != StateOpen {
		m.notify(Notice{Kind: NoticeRenameRejected, Err: ErrNotConnected})
		return
	}
	if err := m.send(protocol.RequestUsernameChange{Username: name}); err != nil {
		m.notify(Notice{Kind: NoticeRenameRejected, Err: err})
	}
}

func (m *Manager) send(cmd protocol.Command) error {
	if err := m.transport.Send(protocol.Encode(cmd)); err != nil {
		m.logger.Warn("send failed", "handle", m.handle, "error", err)
		return err
	}
	m.mu.Lock()
	m.stats.FramesSent++
	m.mu.Unlock()
	return nil
}

// scheduleRetry arms the single retry timer. A timer that fires after
// being superseded carries an old generation and is ignored.
func (m *Manager) scheduleRetry(delay time.Duration) {
	m.stopRetry()
	m.retryGen++
	gen := m.retryGen
	m.retry = m.afterFunc(delay, func() {
		m.signals.Push(signal{kind: sigRetry, gen: gen})
	})
}

func (m *Manager) stopRetry() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}

func (m *Manager) discardTransport() {
	if m.transport == nil {
		return
	}
	if err := m.transport.Close(); err != nil && !errors.Is(err, ErrAlreadyClosed) {
		m.logger.Debug("close transport", "handle", m.handle, "error", err)
	}
	m.transport = nil
	m.handle = uuid.Nil
}

func (m *Manager) shutdown() {
	m.stopRetry()
	m.discardTransport()
	m.setState(StateIdle)
	if m.cancel != nil {
		m.cancel()
	}
	m.signals.Close()
}

func (m *Manager) setState(s ConnectionState) {
	m.mu.Lock()
	old := m.state
	m.state = s
	if s != StateClosed {
		m.stats.Exhausted = false
	}
	m.mu.Unlock()

	if old != s {
		m.logger.Debug("state change", "from", old, "to", s)
	}
}

func (m *Manager) setAttempt(n int) {
	m.mu.Lock()
	m.attempt = n
	m.mu.Unlock()
}

func (m *Manager) setSession(s Session) {
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
}

func (m *Manager) notify(n Notice) {
	m.emit(Event{Notice: &n})
}

func (m *Manager) emit(ev Event) {
	ev.State = m.state

	m.subMu.RLock()
	subs := make([]Subscriber, len(m.subs))
	for i, s := range m.subs {
		subs[i] = s.fn
	}
	m.subMu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// handleSink tags transport callbacks with the handle they belong to.
type handleSink struct {
	id      uuid.UUID
	signals *queue.Queue[signal]
}

func (h *handleSink) OnOpen() {
	h.signals.Push(signal{kind: sigOpen, handle: h.id})
}

func (h *handleSink) OnMessage(data []byte) {
	h.signals.Push(signal{kind: sigMessage, handle: h.id, data: data})
}

func (h *handleSink) OnError(err error) {
	h.signals.Push(signal{kind: sigError, handle: h.id, err: err})
}

func (h *handleSink) OnClose(err error) {
	h.signals.Push(signal{kind: sigClose, handle: h.id, err: err})
}
