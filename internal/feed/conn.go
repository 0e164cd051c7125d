package feed

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultPingInterval   = 30 * time.Second
	defaultBaseDelay      = 1 * time.Second
	defaultMaxDelay       = 30 * time.Second
	defaultMaxAttempts    = 5
	defaultConnectTimeout = 10 * time.Second
	defaultWriteTimeout   = 10 * time.Second
)

// Options tunes the connection manager. Zero fields take defaults.
type Options struct {
	PingInterval   time.Duration
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	MaxAttempts    int
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = defaultBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = defaultMaxDelay
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	return o
}

// Manager owns the websocket to the upstream feed. It reconnects with
// doubling backoff after unplanned drops, stops retrying after
// MaxAttempts consecutive failures, and keeps an established
// connection alive with application-level pings.
//
// The generation counter invalidates work started before a manual
// Connect or Disconnect: a stale dial result, reconnect timer, or read
// loop checks its generation against the current one and stands down.
type Manager struct {
	url    string
	opts   Options
	bus    *Bus
	dialer *websocket.Dialer

	mu        sync.Mutex
	pubMu     sync.Mutex
	writeMu   sync.Mutex
	state     State
	conn      *websocket.Conn
	failures  int
	gen       int
	reconnect *time.Timer
	pingStop  chan struct{}
}

// NewManager prepares a manager for the given websocket URL. No
// connection is made until Connect.
func NewManager(url string, opts Options, bus *Bus) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		url:    url,
		opts:   opts,
		bus:    bus,
		dialer: &websocket.Dialer{HandshakeTimeout: opts.ConnectTimeout},
		state:  StateDisconnected,
	}
}

// State reports the manager's current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether a connection is established.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected && m.conn != nil
}

// OnStatusChange subscribes fn to connection state transitions. The
// current state is delivered immediately. fn runs on the publishing
// goroutine and must not call back into the manager.
func (m *Manager) OnStatusChange(fn StatusHandler) func() {
	return m.bus.SubscribeStatus(fn)
}

// OnMessage subscribes fn to decoded inbound feed messages.
func (m *Manager) OnMessage(fn MessageHandler) func() {
	return m.bus.SubscribeMessages(fn)
}

// Connect starts a connection attempt. It resets the backoff cycle, so
// a manual connect after auto-reconnect gave up starts fresh. Calling
// it while connecting or connected is a no-op.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateConnected {
		m.mu.Unlock()
		return
	}
	m.gen++
	gen := m.gen
	m.failures = 0
	m.stopReconnectLocked()
	m.state = StateConnecting
	m.unlockAndPublish(StateConnecting)

	go m.dial(gen)
}

// Disconnect tears the connection down and cancels any pending
// reconnect. A deliberate disconnect is never auto-retried. Calling it
// while already disconnected is a no-op.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	m.stopReconnectLocked()
	m.closeConnLocked()
	changed := m.state != StateDisconnected
	m.state = StateDisconnected
	m.failures = 0
	if !changed {
		m.mu.Unlock()
		return
	}

	log.Printf("[feed] disconnected from %s", m.url)
	m.unlockAndPublish(StateDisconnected)
}

// Send writes msg to the feed. When no connection is established the
// message is dropped with a log line; live updates are advisory and
// the caller has nothing useful to do with a failure.
func (m *Manager) Send(msg Message) {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || conn == nil {
		log.Printf("[feed] send %s dropped: not connected", msg.Type)
		return
	}
	if err := m.writeMessage(conn, msg); err != nil {
		log.Printf("[feed] send %s failed: %v", msg.Type, err)
	}
}

func (m *Manager) dial(gen int) {
	conn, resp, err := m.dialer.Dial(m.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		m.failures++
		failures := m.failures
		m.state = StateDisconnected
		log.Printf("[feed] dial %s failed (attempt %d): %v", m.url, failures, err)
		m.unlockAndPublish(StateDisconnected)

		m.armReconnect(gen, failures)
		return
	}

	m.conn = conn
	m.failures = 0
	m.state = StateConnected
	stop := make(chan struct{})
	m.pingStop = stop
	log.Printf("[feed] connected to %s", m.url)
	m.unlockAndPublish(StateConnected)

	go m.pingLoop(conn, stop)
	go m.readLoop(gen, conn)
}

// armReconnect schedules the next attempt after the given consecutive
// failure count, unless the cycle is exhausted or the manager moved on.
func (m *Manager) armReconnect(gen, failures int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.state != StateDisconnected {
		return
	}
	if failures >= m.opts.MaxAttempts {
		log.Printf("[feed] giving up after %d attempts; waiting for manual reconnect", failures)
		return
	}
	delay := backoffDelay(m.opts.BaseDelay, m.opts.MaxDelay, failures)
	log.Printf("[feed] reconnecting in %s", delay)
	m.reconnect = time.AfterFunc(delay, func() { m.retry(gen) })
}

func (m *Manager) retry(gen int) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.state = StateConnecting
	m.unlockAndPublish(StateConnecting)

	m.dial(gen)
}

// readLoop drains inbound frames until the connection dies. The read
// deadline is twice the ping interval and is pushed on every inbound
// frame, so a peer that stops answering pings times the connection out.
func (m *Manager) readLoop(gen int, conn *websocket.Conn) {
	readWait := 2 * m.opts.PingInterval
	conn.SetReadDeadline(time.Now().Add(readWait))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.connectionLost(gen, err)
			return
		}
		conn.SetReadDeadline(time.Now().Add(readWait))

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[feed] dropping malformed frame: %v", err)
			continue
		}
		m.handleMessage(msg)
	}
}

// connectionLost handles an established connection failing: the state
// passes through error on its way to disconnected, then the backoff
// cycle starts.
func (m *Manager) connectionLost(gen int, err error) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.closeConnLocked()
	m.failures++
	failures := m.failures
	m.state = StateError
	log.Printf("[feed] connection lost: %v", err)
	m.unlockAndPublish(StateError)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.state = StateDisconnected
	m.unlockAndPublish(StateDisconnected)

	m.armReconnect(gen, failures)
}

func (m *Manager) pingLoop(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(m.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			msg := Message{Type: MsgPing, Timestamp: time.Now().UnixMilli()}
			if err := m.writeMessage(conn, msg); err != nil {
				log.Printf("[feed] ping write failed: %v", err)
				return
			}
		}
	}
}

func (m *Manager) handleMessage(msg Message) {
	switch msg.Type {
	case MsgPing:
		m.mu.Lock()
		conn := m.conn
		m.mu.Unlock()
		if conn != nil {
			pong := Message{Type: MsgPong, Timestamp: msg.Timestamp}
			if err := m.writeMessage(conn, pong); err != nil {
				log.Printf("[feed] pong write failed: %v", err)
			}
		}
	case MsgPong:
		// Keepalive answered; the read deadline was already pushed.
	case MsgTaskUpdate, MsgCrewUpdate, MsgEmergencyUpdate, MsgHappyScoreUpdate:
		if err := validatePayload(msg); err != nil {
			log.Printf("[feed] dropping %s: %v", msg.Type, err)
			return
		}
		m.bus.PublishMessage(msg)
	default:
		// Unknown types are newer-peer traffic, not errors.
	}
}

func validatePayload(msg Message) error {
	var err error
	switch msg.Type {
	case MsgTaskUpdate:
		_, err = msg.TaskUpdate()
	case MsgCrewUpdate:
		_, err = msg.CrewUpdate()
	case MsgEmergencyUpdate:
		_, err = msg.EmergencyUpdate()
	case MsgHappyScoreUpdate:
		_, err = msg.HappyScoreUpdate()
	}
	return err
}

func (m *Manager) writeMessage(conn *websocket.Conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(m.opts.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// unlockAndPublish releases mu and notifies status subscribers. pubMu
// is taken before mu is released and held across the publish, so
// transitions racing on mu notify in the order their state changes
// were made. Callers must hold mu.
func (m *Manager) unlockAndPublish(state State) {
	m.pubMu.Lock()
	m.mu.Unlock()
	m.bus.PublishStatus(state)
	m.pubMu.Unlock()
}

func (m *Manager) closeConnLocked() {
	if m.pingStop != nil {
		close(m.pingStop)
		m.pingStop = nil
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}

func (m *Manager) stopReconnectLocked() {
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
}

// backoffDelay returns the wait after the given consecutive failure
// count: the base delay doubled per failure, capped at max.
func backoffDelay(base, max time.Duration, failures int) time.Duration {
	delay := base
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
