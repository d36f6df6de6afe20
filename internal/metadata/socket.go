package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/worldwidefm/wwfm-live/internal/models"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
	stopTimeout      = 5 * time.Second
)

var errServerClosed = errors.New("server closed the connection")

// SocketChannel receives player-metadata events over a Socket.IO v4
// websocket. When the connection drops it reconnects in the background,
// no faster than the reconnect limiter allows.
type SocketChannel struct {
	url       string
	namespace string
	event     string
	header    http.Header
	dialer    *websocket.Dialer
	limiter   *rate.Limiter

	mu        sync.Mutex
	subs      []func(models.Metadata)
	conn      *websocket.Conn
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool
	connected bool

	writeMu sync.Mutex
}

// Option configures a SocketChannel.
type Option func(*SocketChannel)

// WithStationID adds the stationId query parameter to the socket URL.
func WithStationID(id string) Option {
	return func(c *SocketChannel) {
		if id == "" {
			return
		}
		u, err := url.Parse(c.url)
		if err != nil {
			return
		}
		q := u.Query()
		q.Set("stationId", id)
		u.RawQuery = q.Encode()
		c.url = u.String()
	}
}

// WithNamespace joins a Socket.IO namespace other than "/".
func WithNamespace(nsp string) Option {
	return func(c *SocketChannel) {
		if nsp != "" && !strings.HasPrefix(nsp, "/") {
			nsp = "/" + nsp
		}
		c.namespace = nsp
	}
}

// WithReconnectRate overrides the reconnect limiter.
func WithReconnectRate(every time.Duration, burst int) Option {
	return func(c *SocketChannel) {
		c.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// WithHeader sets extra request headers for the websocket handshake.
func WithHeader(h http.Header) Option {
	return func(c *SocketChannel) { c.header = h.Clone() }
}

// NewSocketChannel creates a channel for the Socket.IO endpoint at rawURL.
// http(s) URLs are rewritten to ws(s); an empty path becomes /socket.io/.
func NewSocketChannel(rawURL string, opts ...Option) (*SocketChannel, error) {
	wsURL, err := socketURL(rawURL)
	if err != nil {
		return nil, err
	}
	c := &SocketChannel{
		url:       wsURL,
		namespace: "/",
		event:     models.MetadataEvent,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// socketURL normalizes rawURL into an Engine.IO websocket transport URL.
func socketURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("metadata url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("metadata url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("metadata url: missing host")
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe registers fn for every metadata payload.
func (c *SocketChannel) Subscribe(fn func(models.Metadata)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

// Connected reports whether the socket is currently joined.
func (c *SocketChannel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Connect dials the socket and starts the receive loop. The loop keeps
// reconnecting until Disconnect, so a failed first dial is returned to the
// caller but is not fatal.
func (c *SocketChannel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.cancel != nil {
		c.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	go c.run(loopCtx, conn)
	return err
}

func (c *SocketChannel) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("metadata dial: %w (HTTP %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("metadata dial: %w", err)
	}
	return conn, nil
}

// run owns the connection for the channel's lifetime.
func (c *SocketChannel) run(ctx context.Context, conn *websocket.Conn) {
	defer close(c.done)
	_ = c.limiter.Allow() // the initial dial spends the first token

	for {
		if conn != nil {
			err := c.serve(ctx, conn)
			c.setConn(nil)
			conn.Close()
			if ctx.Err() != nil {
				return
			}
			slog.Warn("metadata: connection lost", "err", err)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return
		}
		var err error
		conn, err = c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("metadata: reconnect failed", "err", err)
		}
	}
}

func (c *SocketChannel) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	if conn == nil {
		c.connected = false
	}
	c.mu.Unlock()
}

// serve performs the handshake and reads frames until the connection fails.
func (c *SocketChannel) serve(ctx context.Context, conn *websocket.Conn) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, first, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read open packet: %w", err)
	}
	p, err := decodeEngine(string(first))
	if err != nil {
		return err
	}
	if p.typ != eioOpen {
		return fmt.Errorf("expected open packet, got %q", p.typ)
	}
	info, err := decodeOpen(p.data)
	if err != nil {
		return err
	}
	readTimeout := info.readTimeout()

	if err := c.write(conn, encodeConnect(c.namespace)); err != nil {
		return fmt.Errorf("join namespace: %w", err)
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := c.handleFrame(conn, string(frame)); err != nil {
			return err
		}
	}
}

// handleFrame processes one Engine.IO frame. A returned error ends the
// connection; malformed payloads are logged and skipped.
func (c *SocketChannel) handleFrame(conn *websocket.Conn, frame string) error {
	p, err := decodeEngine(frame)
	if err != nil {
		slog.Debug("metadata: skipping frame", "err", err)
		return nil
	}
	switch p.typ {
	case eioPing:
		return c.write(conn, string(eioPong)+p.data)
	case eioClose:
		return errServerClosed
	case eioMessage:
	default:
		return nil
	}

	sp, err := decodeSocket(p.data)
	if err != nil {
		slog.Debug("metadata: skipping packet", "err", err)
		return nil
	}
	if sp.namespace != c.namespace && !(sp.namespace == "/" && c.namespace == "") {
		return nil
	}
	switch sp.typ {
	case sioConnect:
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
		slog.Info("metadata: connected", "url", c.url, "namespace", sp.namespace)
	case sioConnectError:
		return fmt.Errorf("namespace connect refused: %s", sp.data)
	case sioDisconnect:
		return errServerClosed
	case sioEvent:
		c.handleEvent(sp.data)
	}
	return nil
}

func (c *SocketChannel) handleEvent(data json.RawMessage) {
	name, args, err := decodeEvent(data)
	if err != nil {
		slog.Debug("metadata: bad event", "err", err)
		return
	}
	if name != c.event || len(args) == 0 {
		return
	}
	var md models.Metadata
	if err := json.Unmarshal(args[0], &md); err != nil {
		slog.Warn("metadata: bad payload", "event", name, "err", err)
		return
	}

	c.mu.Lock()
	subs := make([]func(models.Metadata), len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(md.Clone())
	}
}

func (c *SocketChannel) write(conn *websocket.Conn, msg string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// Disconnect leaves the namespace, closes the socket and stops reconnecting.
// Safe to call more than once.
func (c *SocketChannel) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel := c.cancel
	done := c.done
	conn := c.conn
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = c.write(conn, encodeDisconnect(c.namespace))
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		c.writeMu.Unlock()
		conn.Close()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(stopTimeout):
			slog.Warn("metadata: receive loop did not stop in time")
		}
	}
	slog.Info("metadata: disconnected", "url", c.url)
	return nil
}

var _ Channel = (*SocketChannel)(nil)
