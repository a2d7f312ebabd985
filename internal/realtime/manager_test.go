package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"feedme-console/internal/auth"
	"feedme-console/internal/bus"
	"feedme-console/internal/config"
	"feedme-console/internal/model"
	"feedme-console/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu        sync.Mutex
	readErr   chan error
	inbound   chan []byte
	writes    [][]byte
	closeCode int
	closed    bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		readErr: make(chan error, 1),
		inbound: make(chan []byte, 8),
	}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case err := <-c.readErr:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.closeCode = code
	select {
	case c.readErr <- &CloseError{Code: code, Reason: reason}:
	default:
	}
	return nil
}

// fail injects a read error as if the server dropped the connection.
func (c *fakeConn) fail(err error) {
	c.readErr <- err
}

func testRealtimeConfig() config.RealtimeConfig {
	return config.RealtimeConfig{
		Enabled:              true,
		DialTimeout:          time.Second,
		HeartbeatInterval:    time.Minute,
		HeartbeatTimeout:     time.Second,
		HeartbeatThreshold:   3,
		ReconnectBaseDelay:   10 * time.Millisecond,
		ReconnectMaxDelay:    50 * time.Millisecond,
		ReconnectFactor:      2,
		ReconnectMaxAttempts: 3,
	}
}

func newTestManager(t *testing.T, cfg config.RealtimeConfig, dial DialFunc) *Manager {
	t.Helper()
	events := bus.New(logger.Noop{})
	t.Cleanup(func() { _ = events.Close() })

	tracker := NewTracker(time.Minute)
	t.Cleanup(tracker.Close)

	tokens := auth.NewStaticTokenSource("", logger.Noop{})
	m := NewManager(cfg, "ws://localhost:8000/ws/updates", tokens, events, tracker, logger.Noop{}, dial)
	t.Cleanup(m.Close)
	return m
}

func TestManagerConnectEstablishesTransport(t *testing.T) {
	conn := newFakeConn()
	var dials int32
	m := newTestManager(t, testRealtimeConfig(), func(ctx context.Context, endpoint string) (Conn, error) {
		atomic.AddInt32(&dials, 1)
		return conn, nil
	})

	require.NoError(t, m.Connect(context.Background()))

	assert.Equal(t, model.ConnectionStatusConnected, m.Status())
	snap := m.Snapshot()
	assert.Equal(t, 0, snap.Attempts, "attempt count resets on success")
	assert.True(t, snap.Heartbeat.Active, "heartbeat starts with the connection")
	assert.Empty(t, snap.LastError)
	assert.Equal(t, int32(1), atomic.LoadInt32(&dials))
}

func TestManagerReconnectsOnAbnormalClose(t *testing.T) {
	var dials int32
	conns := make(chan *fakeConn, 4)
	m := newTestManager(t, testRealtimeConfig(), func(ctx context.Context, endpoint string) (Conn, error) {
		atomic.AddInt32(&dials, 1)
		conn := newFakeConn()
		conns <- conn
		return conn, nil
	})

	require.NoError(t, m.Connect(context.Background()))
	first := <-conns

	first.fail(&CloseError{Code: 1006, Reason: "abnormal closure"})

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&dials) >= 2
	}, 2*time.Second, 5*time.Millisecond, "a replacement dial should follow the abnormal close")

	assert.Eventually(t, func() bool {
		return m.Status() == model.ConnectionStatusConnected
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, m.Snapshot().Attempts, "the successful redial resets the attempt count")
}

func TestManagerEntersReconnectingAfterAbnormalClose(t *testing.T) {
	cfg := testRealtimeConfig()
	cfg.ReconnectBaseDelay = 300 * time.Millisecond // wide enough to observe the interim state
	cfg.ReconnectMaxDelay = time.Second

	conn := newFakeConn()
	m := newTestManager(t, cfg, func(ctx context.Context, endpoint string) (Conn, error) {
		return conn, nil
	})

	require.NoError(t, m.Connect(context.Background()))
	conn.fail(&CloseError{Code: 1006, Reason: "abnormal closure"})

	assert.Eventually(t, func() bool {
		return m.Status() == model.ConnectionStatusReconnecting
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, m.Snapshot().Attempts, "the first redial consumes one attempt")
	assert.False(t, m.Snapshot().Heartbeat.Active, "heartbeat stops with the connection")
}

func TestManagerNormalCloseDoesNotReconnect(t *testing.T) {
	var dials int32
	conn := newFakeConn()
	m := newTestManager(t, testRealtimeConfig(), func(ctx context.Context, endpoint string) (Conn, error) {
		atomic.AddInt32(&dials, 1)
		return conn, nil
	})

	require.NoError(t, m.Connect(context.Background()))
	conn.fail(&CloseError{Code: CloseNormal, Reason: "bye"})

	assert.Eventually(t, func() bool {
		return m.Status() == model.ConnectionStatusDisconnected
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&dials), "a normal close never triggers a redial")
}

func TestManagerIntentionalDisconnect(t *testing.T) {
	var dials int32
	conn := newFakeConn()
	m := newTestManager(t, testRealtimeConfig(), func(ctx context.Context, endpoint string) (Conn, error) {
		atomic.AddInt32(&dials, 1)
		return conn, nil
	})

	require.NoError(t, m.Connect(context.Background()))
	m.Disconnect()

	assert.Equal(t, model.ConnectionStatusDisconnected, m.Status())
	assert.False(t, m.Snapshot().Heartbeat.Active)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&dials))

	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.True(t, conn.closed)
	assert.Equal(t, CloseNormal, conn.closeCode)
}

func TestManagerExhaustsReconnectAttempts(t *testing.T) {
	var dials int32
	dialErr := errors.New("connection refused")
	m := newTestManager(t, testRealtimeConfig(), func(ctx context.Context, endpoint string) (Conn, error) {
		atomic.AddInt32(&dials, 1)
		return nil, dialErr
	})

	err := m.Connect(context.Background())
	require.Error(t, err)

	assert.Eventually(t, func() bool {
		return m.Status() == model.ConnectionStatusError
	}, 2*time.Second, 5*time.Millisecond, "status settles on error once attempts run out")

	// Initial dial plus one per scheduled attempt.
	assert.Equal(t, int32(4), atomic.LoadInt32(&dials))
	assert.Equal(t, 3, m.Snapshot().Attempts)
}

func TestManagerManualReconnectAfterExhaustion(t *testing.T) {
	var dials int32
	var failing int32 = 1
	m := newTestManager(t, testRealtimeConfig(), func(ctx context.Context, endpoint string) (Conn, error) {
		atomic.AddInt32(&dials, 1)
		if atomic.LoadInt32(&failing) == 1 {
			return nil, errors.New("connection refused")
		}
		return newFakeConn(), nil
	})

	_ = m.Connect(context.Background())
	assert.Eventually(t, func() bool {
		return m.Status() == model.ConnectionStatusError
	}, 2*time.Second, 5*time.Millisecond)

	atomic.StoreInt32(&failing, 0)
	require.NoError(t, m.Reconnect(context.Background()))
	assert.Equal(t, model.ConnectionStatusConnected, m.Status())
	assert.Equal(t, 0, m.Snapshot().Attempts)
}

func TestManagerRetriesAfterDisconnectThenFailedConnect(t *testing.T) {
	var dials int32
	var failing int32
	m := newTestManager(t, testRealtimeConfig(), func(ctx context.Context, endpoint string) (Conn, error) {
		atomic.AddInt32(&dials, 1)
		if atomic.LoadInt32(&failing) == 1 {
			return nil, errors.New("connection refused")
		}
		return newFakeConn(), nil
	})

	require.NoError(t, m.Connect(context.Background()))
	m.Disconnect()
	assert.Equal(t, model.ConnectionStatusDisconnected, m.Status())

	atomic.StoreInt32(&failing, 1)
	require.Error(t, m.Connect(context.Background()))

	// The failed dial must keep retrying until the attempt ceiling, not
	// stall in reconnecting because Disconnect stopped the timers.
	assert.Eventually(t, func() bool {
		return m.Status() == model.ConnectionStatusError
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(5), atomic.LoadInt32(&dials), "one success, one failed connect, three retries")
	assert.Equal(t, 3, m.Snapshot().Attempts)
}

func TestManagerSuspendBlocksReconnect(t *testing.T) {
	var dials int32
	m := newTestManager(t, testRealtimeConfig(), func(ctx context.Context, endpoint string) (Conn, error) {
		atomic.AddInt32(&dials, 1)
		return nil, errors.New("connection refused")
	})

	m.Suspend()
	_ = m.Connect(context.Background())

	assert.Equal(t, model.ConnectionStatusDisconnected, m.Status())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&dials), "no retries while suspended")
}

func TestManagerResumeRedialsWhenDead(t *testing.T) {
	var dials int32
	m := newTestManager(t, testRealtimeConfig(), func(ctx context.Context, endpoint string) (Conn, error) {
		atomic.AddInt32(&dials, 1)
		return newFakeConn(), nil
	})

	m.Suspend()
	m.Resume(context.Background())

	assert.Eventually(t, func() bool {
		return m.Status() == model.ConnectionStatusConnected
	}, 2*time.Second, 5*time.Millisecond)
}

func TestManagerDisabledByConfig(t *testing.T) {
	cfg := testRealtimeConfig()
	cfg.Enabled = false
	m := newTestManager(t, cfg, func(ctx context.Context, endpoint string) (Conn, error) {
		t.Fatal("dial must not be called when realtime is disabled")
		return nil, nil
	})

	err := m.Connect(context.Background())
	assert.ErrorIs(t, err, ErrRealtimeDisabled)
}

func TestManagerSendPingWithoutConnection(t *testing.T) {
	m := newTestManager(t, testRealtimeConfig(), func(ctx context.Context, endpoint string) (Conn, error) {
		return newFakeConn(), nil
	})

	err := m.sendPing(time.Now())
	assert.ErrorIs(t, err, ErrNotConnected)
}
