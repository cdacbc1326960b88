// Package conn keeps one WebSocket connection to the rover alive and
// transmits commands over it.
//
// The Manager is a three-state machine:
//
//	Connecting   --open-->        Connected
//	Connecting   --error-->       Disconnected
//	Connected    --close/error--> Disconnected
//	Disconnected --delay-->       Connecting
//
// Reconnects retry forever with a constant delay. Commands sent while not
// Connected are dropped; nothing is queued or replayed.
package conn

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"rover-remote/protocol"
)

// Port is the rover's WebSocket port.
const Port = 81

// DefaultReconnectDelay is the fixed wait between losing the connection and
// the next attempt.
const DefaultReconnectDelay = 5 * time.Second

// EndpointURL returns the rover endpoint for host.
func EndpointURL(host string) string {
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(Port)) + "/"
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock driving the reconnect delay.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithStatusFunc registers fn to observe every status change. fn runs on the
// Run goroutine and must not block.
func WithStatusFunc(fn func(Status)) Option {
	return func(m *Manager) { m.onStatus = fn }
}

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) { m.reconnectDelay = d }
}

// Manager owns the rover connection.
type Manager struct {
	url            string
	dialer         Dialer
	clock          clock.Clock
	logger         *zap.SugaredLogger
	onStatus       func(Status)
	reconnectDelay time.Duration

	mu    sync.Mutex
	state State
	conn  Conn
}

// NewManager returns a Manager for wsURL in the Connecting state. Nothing is
// dialed until Run.
func NewManager(wsURL string, dialer Dialer, opts ...Option) *Manager {
	m := &Manager{
		url:            wsURL,
		dialer:         dialer,
		clock:          clock.New(),
		logger:         zap.NewNop().Sugar(),
		onStatus:       func(Status) {},
		reconnectDelay: DefaultReconnectDelay,
		state:          Connecting,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// URL returns the endpoint the manager dials.
func (m *Manager) URL() string { return m.url }

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Send transmits cmd if connected and reports whether it was written.
// Otherwise cmd is discarded.
func (m *Manager) Send(cmd protocol.Command) bool {
	m.mu.Lock()
	c, state := m.conn, m.state
	m.mu.Unlock()

	if state != Connected || c == nil {
		m.logger.Debugw("dropped command", "cmd", cmd.Name(), "state", state)
		return false
	}
	if err := c.WriteText(cmd.String()); err != nil {
		// The read loop reports the broken link; no retry here.
		m.logger.Warnw("send failed", "cmd", cmd.Name(), "error", err)
		return false
	}
	return true
}

// Run keeps the connection alive until ctx is done and returns ctx.Err().
func (m *Manager) Run(ctx context.Context) error {
	for {
		m.setState(Connecting, nil)
		m.logger.Debugw("connecting", "url", m.url)

		c, err := m.dialer.Dial(ctx, m.url)
		if ctx.Err() != nil {
			if c != nil {
				c.Close()
			}
			m.setState(Disconnected, nil)
			return ctx.Err()
		}

		if err != nil {
			m.logger.Warnw("connect failed", "url", m.url, "error", err)
		} else {
			m.setState(Connected, c)
			m.logger.Infow("connected", "url", m.url)

			select {
			case err = <-c.Err():
			case <-ctx.Done():
			}
			m.setState(Disconnected, nil)
			c.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Infow("disconnected", "url", m.url, "error", err)
		}

		if err != nil && !IsNormalClose(err) {
			m.mu.Lock()
			m.state, m.conn = Disconnected, nil
			m.mu.Unlock()
			m.publish(errorStatus())
		}
		if err := m.waitReconnect(ctx); err != nil {
			return err
		}
	}
}

// waitReconnect moves to Disconnected and blocks for the reconnect delay.
// The timer is armed before the status goes out.
func (m *Manager) waitReconnect(ctx context.Context) error {
	m.mu.Lock()
	m.state, m.conn = Disconnected, nil
	m.mu.Unlock()

	timer := m.clock.Timer(m.reconnectDelay)
	m.publish(statusFor(Disconnected))
	m.logger.Debugw("reconnect scheduled", "in", m.reconnectDelay)

	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *Manager) setState(s State, c Conn) {
	m.mu.Lock()
	m.state, m.conn = s, c
	m.mu.Unlock()

	// Disconnected is published by waitReconnect once the timer is armed.
	if s != Disconnected {
		m.publish(statusFor(s))
	}
}

func (m *Manager) publish(st Status) {
	m.onStatus(st)
}
