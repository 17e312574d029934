package odoo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/odoojs/odoo.go/pkg/connection"
	"github.com/odoojs/odoo.go/pkg/constants"
)

// Client talks to one Odoo database through one web session.
// It is safe for concurrent use; Connect replaces the session that
// concurrent calls read.
type Client struct {
	config connection.Config
	conn   *connection.Connection
	logger zerolog.Logger

	mu      sync.RWMutex
	session Session
}

// New creates an unauthenticated client. The config is copied.
func New(config *connection.Config) (*Client, error) {
	if config == nil || strings.TrimSpace(config.Host) == "" {
		return nil, constants.ErrNoHost
	}

	c := &Client{
		config: *config,
		conn:   connection.New(config),
		logger: zerolog.Nop(),
	}
	if config.Logger != nil {
		c.logger = *config.Logger
	}
	return c, nil
}

// Connect authenticates against the configured database and stores the
// resulting session. The decoded body is returned whether or not the login
// succeeded; a body carrying an error object also returns that error as a
// *connection.RPCError. A body without result, or whose uid is false or 0,
// leaves the session untouched.
func (c *Client) Connect(ctx context.Context) (*connection.AuthResponse, error) {
	res, err := c.conn.Authenticate(ctx, connection.AuthParams{
		DB:       c.config.Database,
		Login:    c.config.Username,
		Password: c.config.Password,
	})
	if res == nil || res.Result == nil || res.Result.UID == 0 {
		if err == nil {
			c.logger.Warn().Str("db", c.config.Database).Msg("authenticate returned no uid")
		}
		return res, err
	}

	info := res.Result
	c.mu.Lock()
	cookie := res.Cookie
	if cookie == "" {
		cookie = c.session.Cookie
	}
	c.session = Session{
		Cookie:    cookie,
		UID:       info.UID,
		SessionID: info.SessionID,
		Context:   UserContext(info.UserContext),
		Username:  info.Username,
	}
	c.mu.Unlock()

	c.logger.Info().
		Int64("uid", info.UID).
		Str("username", info.Username).
		Str("db", c.config.Database).
		Msg("odoo session established")

	return res, err
}

// Session returns a copy of the current session.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.clone()
}

// IsAuthenticated reports whether a Connect has produced a session.
func (c *Client) IsAuthenticated() bool {
	return c.Session().Authenticated()
}

// BaseURL is the prefix every endpoint path is appended to.
func (c *Client) BaseURL() string {
	return c.conn.BaseURL
}

// WebsocketURL is the bus endpoint of the same server.
func (c *Client) WebsocketURL() string {
	return c.config.WebsocketURL()
}

// send posts params to path with the cookie of sess.
func (c *Client) send(ctx context.Context, sess Session, path string, params any) (json.RawMessage, error) {
	if path == "" {
		path = "/"
	}
	return c.conn.Call(ctx, sess.Cookie, path, params)
}

func decode[T any](raw json.RawMessage) (T, error) {
	var res T
	if len(raw) == 0 {
		return res, nil
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return res, fmt.Errorf("decoding result: %w", err)
	}
	return res, nil
}
