package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/odoojs/odoo.go/internal/rand"
	"github.com/odoojs/odoo.go/pkg/constants"
	"github.com/rs/zerolog"
)

// maxErrorBody bounds how much of a non-2xx body ends up in an error message.
const maxErrorBody = 512

// Connection is the HTTP transport shared by every operation. It holds no
// session state: the caller passes the cookie with each call.
type Connection struct {
	BaseURL string

	httpClient *http.Client
	logger     zerolog.Logger
	observer   Observer
}

func New(p *Config) *Connection {
	con := Connection{
		BaseURL:    p.BaseURL(),
		httpClient: p.HTTPClient,
		logger:     p.logger(),
		observer:   p.Observer,
	}

	if con.httpClient == nil {
		con.httpClient = &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
		}
	}

	return &con
}

// SetTimeout applies timeout to a copy of the HTTP client, so a client shared
// through Config.HTTPClient is left as it was.
func (c *Connection) SetTimeout(timeout time.Duration) *Connection {
	client := *c.httpClient
	client.Timeout = timeout
	c.httpClient = &client
	return c
}

func (c *Connection) SetHTTPClient(client *http.Client) *Connection {
	c.httpClient = client
	return c
}

// Authenticate posts the credentials and returns the decoded body together
// with the session cookie the server set. A body carrying an error object is
// returned along with that error.
func (c *Connection) Authenticate(ctx context.Context, params AuthParams) (res *AuthResponse, err error) {
	start := time.Now()
	defer func() { c.observe(constants.AuthenticatePath, "authenticate", err, start) }()

	body, err := json.Marshal(authRequest{Params: params})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+constants.AuthenticatePath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, respData, err := c.MakeRequest(req)
	if err != nil {
		return nil, err
	}

	res = &AuthResponse{Cookie: SessionCookie(resp.Header)}
	if err := json.Unmarshal(respData, res); err != nil {
		return nil, fmt.Errorf("decoding authenticate response: %w", err)
	}
	if res.Error != nil {
		return res, res.Error
	}

	return res, nil
}

// Call posts a JSON-RPC "call" envelope carrying params to path and returns
// the raw result, which is nil when the response has none.
func (c *Connection) Call(ctx context.Context, cookie, path string, params any) (result json.RawMessage, err error) {
	if c.BaseURL == "" {
		return nil, constants.ErrNoHost
	}

	method := ""
	if p, ok := params.(CallParams); ok {
		method = p.Method
	}

	request := &RPCRequest{
		JSONRPC: constants.JSONRPCVersion,
		ID:      rand.NewRequestID(),
		Method:  constants.CallMethod,
		Params:  params,
	}

	start := time.Now()
	defer func() {
		c.observe(path, method, err, start)
		c.logger.Debug().
			Str("path", path).
			Str("method", method).
			Int64("id", request.ID).
			Dur("elapsed", time.Since(start)).
			Err(err).
			Msg("odoo call")
	}()

	reqBody, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.Header.Set("Cookie", cookie+";")
	}

	_, respData, err := c.MakeRequest(req)
	if err != nil {
		return nil, err
	}

	var res RPCResponse[json.RawMessage]
	if err := json.Unmarshal(respData, &res); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", path, err)
	}
	if res.Error != nil {
		return nil, res.Error
	}
	if res.Result == nil {
		return nil, nil
	}

	return *res.Result, nil
}

// MakeRequest sends req and returns the response with its fully read body.
// Statuses outside 2xx are reported as constants.ErrUnexpectedStatus.
func (c *Connection) MakeRequest(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("error making HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, respBytes, nil
	}

	excerpt := strings.TrimSpace(string(respBytes))
	if len(excerpt) > maxErrorBody {
		excerpt = excerpt[:maxErrorBody]
	}
	return nil, nil, fmt.Errorf("%w: %s: %s", constants.ErrUnexpectedStatus, resp.Status, excerpt)
}

func (c *Connection) observe(path, method string, err error, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveCall(path, method, err, time.Since(start))
}

// SessionCookie returns the first Set-Cookie value cut at its first ';'.
func SessionCookie(h http.Header) string {
	values := h.Values("Set-Cookie")
	if len(values) == 0 {
		return ""
	}
	cookie, _, _ := strings.Cut(values[0], ";")
	return strings.TrimSpace(cookie)
}
