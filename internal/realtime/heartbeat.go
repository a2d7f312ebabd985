package realtime

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"feedme-console/internal/bus"
	"feedme-console/internal/model"
	"feedme-console/internal/pkg/logger"
)

const (
	taskHeartbeatPing    = "heartbeat.ping"
	taskHeartbeatTimeout = "heartbeat.timeout"
)

// Monitor detects silent connection death. Every interval it sends a ping
// carrying the current timestamp and arms a response timer; a pong clears the
// timer, a timeout counts a failure. Reaching the failure threshold hands the
// connection back to the manager for a forced teardown.
type Monitor struct {
	interval  time.Duration
	timeout   time.Duration
	threshold int

	runner *TaskRunner
	events *bus.Bus
	logger logger.ILogger
	now    func() time.Time

	sendPing func(ts time.Time) error
	onStale  func(failures int)

	mu       sync.Mutex
	active   bool
	lastPing time.Time
	lastPong time.Time
	latency  time.Duration
	failures int
}

func NewMonitor(interval, timeout time.Duration, threshold int, runner *TaskRunner, events *bus.Bus, log logger.ILogger) *Monitor {
	if interval <= 0 {
		interval = 25 * time.Second
	}
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	if threshold <= 0 {
		threshold = 3
	}
	return &Monitor{
		interval:  interval,
		timeout:   timeout,
		threshold: threshold,
		runner:    runner,
		events:    events,
		logger:    log,
		now:       time.Now,
	}
}

// Bind wires the monitor to its owning manager. Must be called before Start.
func (m *Monitor) Bind(sendPing func(ts time.Time) error, onStale func(failures int)) {
	m.sendPing = sendPing
	m.onStale = onStale
}

// Start begins the ping cycle. Failure count carries over only within one
// connection; Start resets it.
func (m *Monitor) Start() {
	m.mu.Lock()
	m.active = true
	m.failures = 0
	m.latency = 0
	m.mu.Unlock()
	m.runner.Schedule(taskHeartbeatPing, m.interval, m.tick)
}

// Stop tears down every heartbeat timer. Called whenever the connection
// closes for any reason.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.active = false
	m.mu.Unlock()
	m.runner.Cancel(taskHeartbeatPing)
	m.runner.Cancel(taskHeartbeatTimeout)
}

func (m *Monitor) tick() {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	sent := m.now()
	m.lastPing = sent
	m.mu.Unlock()

	if err := m.sendPing(sent); err != nil {
		m.logger.Warn("Heartbeat", "Ping write failed", map[string]interface{}{"error": err.Error()})
		m.onMissed()
		m.reschedule()
		return
	}

	m.runner.Schedule(taskHeartbeatTimeout, m.timeout, func() {
		m.onMissed()
	})
	m.reschedule()
}

func (m *Monitor) reschedule() {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()
	if active {
		m.runner.Schedule(taskHeartbeatPing, m.interval, m.tick)
	}
}

// HandlePong records a pong for the outstanding ping and resets the failure
// count. Latency is clamped to zero: the echoed timestamp is client clock
// data round-tripped through the server and must never yield a negative or
// NaN-ish reading.
func (m *Monitor) HandlePong(rawTimestamp json.RawMessage) {
	m.runner.Cancel(taskHeartbeatTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	sent := parsePingTimestamp(rawTimestamp, m.lastPing)
	latency := now.Sub(sent)
	if latency < 0 {
		latency = 0
	}
	m.lastPong = now
	m.latency = latency
	m.failures = 0
}

func (m *Monitor) onMissed() {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	m.failures++
	failures := m.failures
	m.mu.Unlock()

	if failures < m.threshold {
		m.logger.Warn("Heartbeat", "Missed pong", map[string]interface{}{"failures": failures, "threshold": m.threshold})
		_ = m.events.Publish(bus.NotificationRaisedEvent{
			Level:   model.NotificationLevelWarning,
			Title:   "Connection unstable",
			Message: "The live connection is not responding to heartbeats.",
		})
		return
	}

	m.logger.Error("Heartbeat", "Heartbeat failure threshold reached, forcing reconnect", map[string]interface{}{"failures": failures})
	_ = m.events.Publish(bus.NotificationRaisedEvent{
		Level:   model.NotificationLevelWarning,
		Title:   "Connection lost",
		Message: "Live updates were interrupted. Reconnecting...",
	})
	if m.onStale != nil {
		m.onStale(failures)
	}
}

// Snapshot returns a copy of the heartbeat state.
func (m *Monitor) Snapshot() model.HeartbeatSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.HeartbeatSnapshot{
		Active:   m.active,
		LastPing: m.lastPing,
		LastPong: m.lastPong,
		Latency:  m.latency,
		Failures: m.failures,
	}
}

// parsePingTimestamp decodes the echoed ping timestamp. Accepts unix
// milliseconds (number or numeric string) and RFC3339; anything else falls
// back to the locally recorded ping time.
func parsePingTimestamp(raw json.RawMessage, fallback time.Time) time.Time {
	if len(raw) == 0 {
		return fallback
	}

	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil && millis > 0 {
		return time.UnixMilli(millis)
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return fallback
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return fallback
	}
	if millis, err := strconv.ParseInt(str, 10, 64); err == nil && millis > 0 {
		return time.UnixMilli(millis)
	}
	if ts, err := time.Parse(time.RFC3339, str); err == nil {
		return ts
	}
	return fallback
}
