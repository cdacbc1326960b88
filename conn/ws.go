package conn

// WebSocket transport with:
// - TCP keepalive on the dialer
// - ping ticker
// - pong watchdog (read deadline)
// - background reader to process control frames (required!)
//
// The rover never answers commands; the reader only keeps the control
// frames flowing and notices a dead link.

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const writeWait = 5 * time.Second

// Conn is one open connection to the rover.
type Conn interface {
	// WriteText sends one text frame.
	WriteText(s string) error
	// Err yields the first transport failure.
	Err() <-chan error
	Close()
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, wsURL string) (Conn, error)
}

// WSDialer dials gorilla/websocket connections with keepalive.
type WSDialer struct {
	PingEvery time.Duration
	PongWait  time.Duration
}

// Dial implements Dialer.
func (d WSDialer) Dial(ctx context.Context, wsURL string) (Conn, error) {
	return DialWS(ctx, wsURL, d.PingEvery, d.PongWait)
}

// WSConn is a keepalive-managed websocket connection.
type WSConn struct {
	Conn *websocket.Conn
	mu   sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	errC      chan error
}

// DialWS connects to wsURL and starts the read and ping loops.
func DialWS(ctx context.Context, wsURL string, pingEvery time.Duration, pongWait time.Duration) (*WSConn, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %q", wsURL)
	}

	d := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		NetDialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 15 * time.Second,
		}).DialContext,
	}

	conn, _, err := d.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", u.Redacted())
	}

	w := &WSConn{
		Conn: conn,
		done: make(chan struct{}),
		errC: make(chan error, 1),
	}

	// Keepalive needs READ to process PONG/close frames.
	conn.SetReadLimit(1 << 16)
	if pongWait > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(_ string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	go w.readLoop()
	if pingEvery > 0 {
		go w.pingLoop(pingEvery)
	}
	return w, nil
}

// Close shuts the connection down. Safe to call more than once.
func (w *WSConn) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		_ = w.Conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		w.mu.Unlock()
		_ = w.Conn.Close()
	})
}

// Err implements Conn.
func (w *WSConn) Err() <-chan error { return w.errC }

func (w *WSConn) sendErr(err error) {
	select {
	case w.errC <- err:
	default:
	}
}

func (w *WSConn) readLoop() {
	for {
		select {
		case <-w.done:
			return
		default:
		}
		// Anything the rover sends is drained and ignored.
		if _, _, err := w.Conn.ReadMessage(); err != nil {
			w.sendErr(err)
			return
		}
	}
}

func (w *WSConn) pingLoop(pingEvery time.Duration) {
	t := time.NewTicker(pingEvery)
	defer t.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-t.C:
			w.mu.Lock()
			err := w.Conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait))
			w.mu.Unlock()
			if err != nil {
				w.sendErr(err)
				return
			}
		}
	}
}

// WriteText implements Conn.
func (w *WSConn) WriteText(s string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return w.Conn.WriteMessage(websocket.TextMessage, []byte(s))
}

// IsNormalClose reports whether err is an orderly close rather than a failure.
func IsNormalClose(err error) bool {
	return websocket.IsCloseError(errors.Cause(err), websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
