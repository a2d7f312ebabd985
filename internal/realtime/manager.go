package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"feedme-console/internal/auth"
	"feedme-console/internal/bus"
	"feedme-console/internal/config"
	"feedme-console/internal/model"
	"feedme-console/internal/pkg/logger"
)

const taskReconnect = "reconnect"

var (
	ErrRealtimeDisabled = errors.New("realtime: disabled by configuration")
	ErrNotConnected     = errors.New("realtime: not connected")
)

// Manager owns the single realtime transport and its lifecycle. At most one
// live connection exists at a time: establishing a new one tears down any
// existing one first. Unexpected closures are handed to the reconnection
// scheduler unless the user disconnected intentionally or the client is
// suspended (backgrounded).
type Manager struct {
	cfg      config.RealtimeConfig
	endpoint string // base endpoint without the token
	tokens   auth.TokenSource
	events   *bus.Bus
	logger   logger.ILogger
	dial     DialFunc

	runner    *TaskRunner
	sched     *Scheduler
	heartbeat *Monitor
	router    *Router

	mu         sync.Mutex
	conn       Conn
	status     model.ConnectionStatus
	lastUpdate time.Time
	lastError  string
	// gen invalidates read loops and dial results from a superseded
	// connection.
	gen         int
	intentional bool
	suspended   bool
	hadFailure  bool
}

func NewManager(
	cfg config.RealtimeConfig,
	endpoint string,
	tokens auth.TokenSource,
	events *bus.Bus,
	tracker *Tracker,
	log logger.ILogger,
	dial DialFunc,
) *Manager {
	if dial == nil {
		dial = Dial
	}
	runner := NewTaskRunner()
	heartbeat := NewMonitor(cfg.HeartbeatInterval, cfg.HeartbeatTimeout, cfg.HeartbeatThreshold, runner, events, log)
	m := &Manager{
		cfg:       cfg,
		endpoint:  endpoint,
		tokens:    tokens,
		events:    events,
		logger:    log,
		dial:      dial,
		runner:    runner,
		sched:     NewScheduler(cfg.ReconnectBaseDelay, cfg.ReconnectMaxDelay, cfg.ReconnectFactor, cfg.ReconnectMaxAttempts),
		heartbeat: heartbeat,
		status:    model.ConnectionStatusDisconnected,
	}
	m.router = NewRouter(events, tracker, heartbeat, log)
	heartbeat.Bind(m.sendPing, m.onHeartbeatStale)
	return m
}

// Connect establishes the transport. An existing connection is replaced (a
// graceful close, not a failure). Dial failures are non-fatal: they feed the
// reconnection scheduler and the error is returned for the caller's benefit.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrRealtimeDisabled
	}

	m.mu.Lock()
	m.intentional = false
	if m.conn != nil {
		_ = m.conn.Close(CloseNormal, "replacing connection")
		m.conn = nil
	}
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	m.heartbeat.Stop()
	// Disconnect stops the runner outright; a fresh connect needs it live
	// again so a failed dial can still schedule its retries.
	m.runner.Reset()
	m.runner.Cancel(taskReconnect)
	m.transition(model.ConnectionStatusConnecting, "")

	endpoint, err := m.buildEndpoint()
	if err != nil {
		m.transition(model.ConnectionStatusError, err.Error())
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	defer cancel()
	conn, err := m.dial(dialCtx, endpoint)

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close(CloseNormal, "superseded")
		}
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		m.logger.Warn("Realtime", "Connection attempt failed", map[string]interface{}{"error": err.Error()})
		m.scheduleReconnect(err.Error())
		return err
	}
	m.conn = conn
	announce := m.hadFailure
	m.hadFailure = false
	m.mu.Unlock()

	m.sched.Reset()
	m.transition(model.ConnectionStatusConnected, "")
	m.heartbeat.Start()

	if announce {
		_ = m.events.Publish(bus.NotificationRaisedEvent{
			Level:   model.NotificationLevelSuccess,
			Title:   "Connected",
			Message: "Live updates restored.",
		})
	}

	m.logger.Info("Realtime", "Connected", map[string]interface{}{"endpoint": m.endpoint})
	go m.readLoop(conn, gen)
	return nil
}

// Disconnect performs an intentional close. The normal-closure code keeps the
// close path from scheduling a reconnect; all timers and reconnection state
// are reset.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.intentional = true
	m.gen++
	conn := m.conn
	m.conn = nil
	m.hadFailure = false
	m.mu.Unlock()

	m.heartbeat.Stop()
	m.runner.StopAll()
	m.sched.Reset()
	if conn != nil {
		_ = conn.Close(CloseNormal, "client disconnect")
	}
	m.transition(model.ConnectionStatusDisconnected, "")
	m.logger.Info("Realtime", "Disconnected", nil)
}

// Reconnect resets reconnection state and dials again. This is the manual
// escape hatch after the automatic attempt ceiling has been reached.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.sched.Reset()
	return m.Connect(ctx)
}

// Suspend pauses automatic reconnection, mirroring a backgrounded client.
// An established connection is left alone; only new attempts are gated.
func (m *Manager) Suspend() {
	m.mu.Lock()
	m.suspended = true
	m.mu.Unlock()
	m.runner.Cancel(taskReconnect)
}

// Resume lifts the suspension and, when the connection died while suspended,
// starts a fresh reconnect cycle.
func (m *Manager) Resume(ctx context.Context) {
	m.mu.Lock()
	m.suspended = false
	needsConnect := m.conn == nil && !m.intentional && m.cfg.Enabled
	m.mu.Unlock()

	if needsConnect {
		m.sched.Reset()
		m.runner.Reset()
		go func() { _ = m.Connect(ctx) }()
	}
}

// Suspended reports whether automatic reconnection is currently paused.
func (m *Manager) Suspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended
}

// Status returns the current connection status.
func (m *Manager) Status() model.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Snapshot returns a read-only view of the connection state. The endpoint is
// reported without the auth token.
func (m *Manager) Snapshot() model.ConnectionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.ConnectionSnapshot{
		Status:      m.status,
		Endpoint:    m.endpoint,
		LastUpdate:  m.lastUpdate,
		Attempts:    m.sched.Attempts(),
		MaxAttempts: m.sched.MaxAttempts(),
		LastError:   m.lastError,
		Heartbeat:   m.heartbeat.Snapshot(),
	}
}

// Close shuts the manager down for good.
func (m *Manager) Close() {
	m.Disconnect()
}

func (m *Manager) readLoop(conn Conn, gen int) {
	ctx := context.Background()
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			m.handleClose(gen, err)
			return
		}
		m.router.Handle(data)
	}
}

func (m *Manager) handleClose(gen int, err error) {
	m.mu.Lock()
	if m.gen != gen {
		// A newer connection took over; this loop's result is stale.
		m.mu.Unlock()
		return
	}
	m.conn = nil
	intentional := m.intentional
	m.mu.Unlock()

	m.heartbeat.Stop()

	code := CloseCode(err)
	if intentional || code == CloseNormal || code == CloseGoingAway {
		m.transition(model.ConnectionStatusDisconnected, "")
		return
	}

	m.logger.Warn("Realtime", "Connection closed unexpectedly", map[string]interface{}{"code": code, "error": err.Error()})
	m.scheduleReconnect(err.Error())
}

func (m *Manager) scheduleReconnect(reason string) {
	m.mu.Lock()
	if m.intentional || m.suspended || !m.cfg.Enabled {
		m.mu.Unlock()
		m.transition(model.ConnectionStatusDisconnected, reason)
		return
	}
	m.hadFailure = true
	m.mu.Unlock()

	delay, ok := m.sched.Next()
	if !ok {
		m.transition(model.ConnectionStatusError, reason)
		m.logger.Error("Realtime", "Reconnection attempts exhausted", map[string]interface{}{
			"attempts": m.sched.Attempts(),
			"reason":   reason,
		})
		// The queue deduplicates by title, so a flapping connection raises
		// this once.
		_ = m.events.Publish(bus.NotificationRaisedEvent{
			Level:   model.NotificationLevelError,
			Title:   "Connection Lost",
			Message: "Unable to restore live updates. Retry manually or refresh.",
			Actions: []model.NotificationAction{
				{Label: "Retry", Command: "realtime.reconnect"},
				{Label: "Refresh", Command: "app.refresh"},
			},
		})
		return
	}

	m.transition(model.ConnectionStatusReconnecting, reason)
	m.logger.Info("Realtime", "Scheduling reconnect", map[string]interface{}{
		"attempt":  m.sched.Attempts(),
		"delay_ms": delay.Milliseconds(),
	})
	m.runner.Schedule(taskReconnect, delay, func() {
		_ = m.Connect(context.Background())
	})
}

func (m *Manager) sendPing(ts time.Time) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	msg := pingMessage{Type: MessageTypePing, Timestamp: ts.UnixMilli()}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return conn.Write(ctx, data)
}

// onHeartbeatStale force-closes a connection the heartbeat declared dead.
// The heartbeat close code is not a normal closure, so the usual reconnect
// path applies.
func (m *Manager) onHeartbeatStale(failures int) {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.gen++
	m.mu.Unlock()

	m.heartbeat.Stop()
	if conn != nil {
		_ = conn.Close(CloseHeartbeatTimeout, "heartbeat timeout")
	}
	m.scheduleReconnect("heartbeat timeout")
}

func (m *Manager) transition(status model.ConnectionStatus, reason string) {
	m.mu.Lock()
	m.status = status
	m.lastUpdate = time.Now()
	if reason != "" {
		m.lastError = reason
	} else if status == model.ConnectionStatusConnected {
		m.lastError = ""
	}
	attempts := m.sched.Attempts()
	m.mu.Unlock()

	_ = m.events.Publish(bus.ConnectionStateChangedEvent{
		Status:   status,
		Attempts: attempts,
		Reason:   reason,
	})
}

func (m *Manager) buildEndpoint() (string, error) {
	u, err := url.Parse(m.endpoint)
	if err != nil {
		return "", err
	}
	token, err := m.tokens.Token()
	if err != nil {
		if errors.Is(err, auth.ErrNoToken) {
			// Anonymous connections are allowed against dev backends.
			return m.endpoint, nil
		}
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
