// Package bus listens to Odoo bus notifications over the /websocket endpoint.
//
// A Listener reuses the web session of an authenticated odoo.Client: the
// session cookie is sent with the websocket handshake, so the server delivers
// the notifications of that user's channels plus the ones subscribed to
// explicitly.
//
// A Listener does not reconnect. When the connection drops, the notification
// channel is closed and Err reports why; call Listen again with
// WithLast(l.Last()) to resume without losing notifications, or let Follow do
// it with a Backoff.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	odoo "github.com/odoojs/odoo.go"
	"github.com/odoojs/odoo.go/pkg/constants"
)

// DefaultDialer is the gorilla dialer used when none is given.
var DefaultDialer = &websocket.Dialer{
	Proxy:            websocket.DefaultDialer.Proxy,
	HandshakeTimeout: websocket.DefaultDialer.HandshakeTimeout,
}

const defaultBuffer = 64

// Notification is one bus message pushed by the server.
type Notification struct {
	ID      int64   `json:"id"`
	Message Message `json:"message"`
}

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type subscribeEvent struct {
	EventName string        `json:"event_name"`
	Data      subscribeData `json:"data"`
}

type subscribeData struct {
	Channels []string `json:"channels"`
	Last     int64    `json:"last"`
}

type Option func(l *Listener)

func WithDialer(d *websocket.Dialer) Option {
	return func(l *Listener) { l.dialer = d }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Listener) { l.logger = logger }
}

// WithLast asks the server to replay notifications after id last.
func WithLast(last int64) Option {
	return func(l *Listener) { l.last.Store(last) }
}

// WithBuffer sets the capacity of the notification channel.
func WithBuffer(n int) Option {
	return func(l *Listener) { l.buffer = n }
}

type Listener struct {
	dialer *websocket.Dialer
	logger zerolog.Logger
	buffer int

	conn *websocket.Conn
	// writeLock serializes writers; gorilla allows one concurrent writer.
	writeLock sync.Mutex

	notifications chan Notification
	last          atomic.Int64

	closeCh   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
	err       error
}

// Listen opens the bus of c's server and subscribes to channels.
func Listen(ctx context.Context, c *odoo.Client, channels []string, opts ...Option) (*Listener, error) {
	sess := c.Session()
	if sess.Cookie == "" {
		return nil, constants.ErrNotAuthenticated
	}

	l := &Listener{
		dialer:  DefaultDialer,
		logger:  zerolog.Nop(),
		buffer:  defaultBuffer,
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.notifications = make(chan Notification, l.buffer)

	header := http.Header{}
	header.Set("Cookie", sess.Cookie+";")
	// Odoo rejects handshakes whose Origin differs from the server's own.
	header.Set("Origin", c.BaseURL())

	conn, res, err := l.dialer.DialContext(ctx, c.WebsocketURL(), header)
	if res != nil && res.Body != nil {
		defer res.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	l.conn = conn

	if err := l.Subscribe(channels); err != nil {
		_ = conn.Close()
		return nil, err
	}

	go l.readLoop()

	return l, nil
}

// Subscribe replaces the set of explicitly subscribed channels.
func (l *Listener) Subscribe(channels []string) error {
	if channels == nil {
		channels = []string{}
	}
	return l.write(subscribeEvent{
		EventName: "subscribe",
		Data:      subscribeData{Channels: channels, Last: l.last.Load()},
	})
}

// Notifications is closed once the listener stops.
func (l *Listener) Notifications() <-chan Notification {
	return l.notifications
}

// Last is the highest notification id received so far.
func (l *Listener) Last() int64 {
	return l.last.Load()
}

// Err returns the error that stopped the listener, nil after Close.
// It is only meaningful once Notifications is closed.
func (l *Listener) Err() error {
	select {
	case <-l.done:
		return l.err
	default:
		return nil
	}
}

// Close stops the listener and waits for the read loop to exit.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.writeLock.Lock()
		close(l.closeCh)
		_ = l.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		l.writeLock.Unlock()
		err = l.conn.Close()
	})
	<-l.done
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (l *Listener) write(v any) error {
	l.writeLock.Lock()
	defer l.writeLock.Unlock()

	select {
	case <-l.closeCh:
		return constants.ErrBusClosed
	default:
	}
	return l.conn.WriteJSON(v)
}

func (l *Listener) readLoop() {
	defer close(l.done)
	defer close(l.notifications)

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			l.err = l.handleError(err)
			return
		}

		var batch []Notification
		if err := json.Unmarshal(data, &batch); err != nil {
			l.logger.Error().Err(err).Msg("undecodable bus message")
			continue
		}

		for _, n := range batch {
			if n.ID > l.last.Load() {
				l.last.Store(n.ID)
			}
			select {
			case l.notifications <- n:
			case <-l.closeCh:
				return
			}
		}
	}
}

// handleError maps a read error to the error reported by Err.
func (l *Listener) handleError(err error) error {
	select {
	case <-l.closeCh:
		return nil
	default:
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		return constants.ErrBusClosed
	}
	l.logger.Warn().Err(err).Msg("bus connection lost")
	return err
}
