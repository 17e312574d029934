package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/odoojs/odoo.go/pkg/constants"
	"github.com/stretchr/testify/suite"
)

type RoundTripFunc func(req *http.Request) *http.Response

func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

// NewTestClient returns *http.Client with Transport replaced to avoid making real calls
func NewTestClient(fn RoundTripFunc) *http.Client {
	return &http.Client{
		Transport: fn,
	}
}

func jsonResponse(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		// Must be set to non-nil value or it panics
		Header: header,
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (o *recordingObserver) ObserveCall(path, method string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, path+" "+method)
	o.errs = append(o.errs, err)
}

type HTTPTestSuite struct {
	suite.Suite
}

func TestHttpTestSuite(t *testing.T) {
	suite.Run(t, new(HTTPTestSuite))
}

func (s *HTTPTestSuite) newConnection(fn RoundTripFunc, observer Observer) *Connection {
	cfg := NewConfig("http://test.odoo")
	cfg.Observer = observer
	return New(cfg).SetHTTPClient(NewTestClient(fn))
}

func (s *HTTPTestSuite) TestCallBuildsEnvelope() {
	var captured *http.Request
	var body []byte
	conn := s.newConnection(func(req *http.Request) *http.Response {
		captured = req
		body, _ = io.ReadAll(req.Body)
		return jsonResponse(200, `{"jsonrpc":"2.0","id":1,"result":[1,2,3]}`, nil)
	}, nil)

	raw, err := conn.Call(context.Background(), "session_id=xyz", constants.CallKWPath, CallParams{
		Model: "res.partner", Method: "search", Args: []any{[]any{}}, Kwargs: map[string]any{},
	})
	s.Require().NoError(err)
	s.JSONEq(`[1,2,3]`, string(raw))

	s.Equal(http.MethodPost, captured.Method)
	s.Equal("http://test.odoo/web/dataset/call_kw", captured.URL.String())
	s.Equal("session_id=xyz;", captured.Header.Get("Cookie"))
	s.Equal("application/json", captured.Header.Get("Content-Type"))
	s.Equal("application/json", captured.Header.Get("Accept"))

	var env struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      int64           `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
	}
	s.Require().NoError(json.Unmarshal(body, &env))
	s.Equal("2.0", env.JSONRPC)
	s.Equal("call", env.Method)
	s.Positive(env.ID)
	s.JSONEq(`{"model":"res.partner","method":"search","args":[[]],"kwargs":{}}`, string(env.Params))
}

func (s *HTTPTestSuite) TestCallWithoutCookie() {
	conn := s.newConnection(func(req *http.Request) *http.Response {
		s.Empty(req.Header.Values("Cookie"))
		return jsonResponse(200, `{"jsonrpc":"2.0","id":1,"result":true}`, nil)
	}, nil)

	_, err := conn.Call(context.Background(), "", constants.CallKWPath, map[string]any{})
	s.Require().NoError(err)
}

func (s *HTTPTestSuite) TestCallMissingResult() {
	conn := s.newConnection(func(req *http.Request) *http.Response {
		return jsonResponse(200, `{"jsonrpc":"2.0","id":1}`, nil)
	}, nil)

	raw, err := conn.Call(context.Background(), "c=1", constants.CallKWPath, map[string]any{})
	s.Require().NoError(err)
	s.Nil(raw)
}

func (s *HTTPTestSuite) TestCallRPCError() {
	conn := s.newConnection(func(req *http.Request) *http.Response {
		return jsonResponse(200, `{"jsonrpc":"2.0","id":1,"error":{"code":200,"message":"Odoo Server Error","data":{"name":"odoo.exceptions.AccessError","message":"no access"}}}`, nil)
	}, nil)

	_, err := conn.Call(context.Background(), "c=1", constants.CallKWPath, map[string]any{})
	var rpcErr *RPCError
	s.Require().True(errors.As(err, &rpcErr))
	s.Equal("odoo.exceptions.AccessError", rpcErr.Data.Name)
	s.ErrorIs(err, &RPCError{})
}

func (s *HTTPTestSuite) TestMakeRequestStatus() {
	conn := s.newConnection(func(req *http.Request) *http.Response {
		return jsonResponse(400, "<html>bad request</html>", nil)
	}, nil)

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodPost, "http://test.odoo/web/dataset/call_kw", http.NoBody)
	_, _, err := conn.MakeRequest(req)
	s.Require().ErrorIs(err, constants.ErrUnexpectedStatus, "should return error for status code 400")
	s.Contains(err.Error(), "bad request")
}

func (s *HTTPTestSuite) TestCallNonJSONBody() {
	conn := s.newConnection(func(req *http.Request) *http.Response {
		return jsonResponse(200, "<html>login</html>", nil)
	}, nil)

	_, err := conn.Call(context.Background(), "c=1", constants.CallKWPath, map[string]any{})
	s.Require().Error(err)
	var syntaxErr *json.SyntaxError
	s.True(errors.As(err, &syntaxErr))
}

func (s *HTTPTestSuite) TestAuthenticate() {
	header := make(http.Header)
	header.Add("Set-Cookie", "session_id=xyz; Path=/; HttpOnly")
	header.Add("Set-Cookie", "frontend_lang=en_US; Path=/")

	var body []byte
	conn := s.newConnection(func(req *http.Request) *http.Response {
		s.Equal("http://test.odoo/web/session/authenticate", req.URL.String())
		s.Equal(int64(len(`{"params":{"db":"db","login":"u","password":"p"}}`)), req.ContentLength)
		body, _ = io.ReadAll(req.Body)
		return jsonResponse(200, `{"jsonrpc":"2.0","id":null,"result":{"uid":7,"session_id":"abc","user_context":{"lang":"en_US"},"username":"demo","is_admin":true}}`, header)
	}, nil)

	res, err := conn.Authenticate(context.Background(), AuthParams{DB: "db", Login: "u", Password: "p"})
	s.Require().NoError(err)
	s.JSONEq(`{"params":{"db":"db","login":"u","password":"p"}}`, string(body))
	s.Equal("session_id=xyz", res.Cookie)
	s.Require().NotNil(res.Result)
	s.Equal(int64(7), res.Result.UID)
	s.Equal("abc", res.Result.SessionID)
	s.Equal(map[string]any{"lang": "en_US"}, res.Result.UserContext)
	s.Equal("demo", res.Result.Username)
	s.Contains(string(res.Result.Raw), `"is_admin":true`)
}

func (s *HTTPTestSuite) TestAuthenticateError() {
	conn := s.newConnection(func(req *http.Request) *http.Response {
		return jsonResponse(200, `{"jsonrpc":"2.0","id":null,"error":{"code":200,"message":"Odoo Server Error","data":{"name":"odoo.exceptions.AccessDenied","message":"Access Denied"}}}`, nil)
	}, nil)

	res, err := conn.Authenticate(context.Background(), AuthParams{})
	s.Require().Error(err)
	s.Require().NotNil(res)
	s.Nil(res.Result)
	s.Equal("odoo.exceptions.AccessDenied: Access Denied", err.Error())
}

func (s *HTTPTestSuite) TestAuthenticateRejectedWithFalseUID() {
	conn := s.newConnection(func(req *http.Request) *http.Response {
		return jsonResponse(200, `{"jsonrpc":"2.0","id":null,"result":{"uid":false,"username":false,"session_id":null,"user_context":false,"db":"db"}}`, nil)
	}, nil)

	res, err := conn.Authenticate(context.Background(), AuthParams{DB: "db", Login: "u", Password: "bad"})
	s.Require().NoError(err)
	s.Require().NotNil(res)
	s.Require().NotNil(res.Result)
	s.Zero(res.Result.UID)
	s.Empty(res.Result.Username)
	s.Empty(res.Result.SessionID)
	s.Nil(res.Result.UserContext)
	s.Contains(string(res.Result.Raw), `"db":"db"`)
}

func (s *HTTPTestSuite) TestAuthenticateMalformedUID() {
	conn := s.newConnection(func(req *http.Request) *http.Response {
		return jsonResponse(200, `{"jsonrpc":"2.0","id":null,"result":{"uid":"seven"}}`, nil)
	}, nil)

	res, err := conn.Authenticate(context.Background(), AuthParams{})
	s.Require().ErrorContains(err, "session uid")
	s.Nil(res)
}

func (s *HTTPTestSuite) TestSetTimeoutLeavesSharedClient() {
	shared := &http.Client{Timeout: time.Minute}
	cfg := NewConfig("http://test.odoo")
	cfg.HTTPClient = shared

	conn := New(cfg).SetTimeout(time.Second)
	s.Equal(time.Minute, shared.Timeout)
	s.Equal(time.Second, conn.httpClient.Timeout)
}

func (s *HTTPTestSuite) TestObserver() {
	observer := &recordingObserver{}
	conn := s.newConnection(func(req *http.Request) *http.Response {
		if req.URL.Path == constants.AuthenticatePath {
			return jsonResponse(200, `{"result":{"uid":1}}`, nil)
		}
		return jsonResponse(502, "bad gateway", nil)
	}, observer)

	_, err := conn.Authenticate(context.Background(), AuthParams{})
	s.Require().NoError(err)
	_, err = conn.Call(context.Background(), "", constants.CallKWPath, CallParams{Model: "res.partner", Method: "read"})
	s.Require().Error(err)

	s.Equal([]string{"/web/session/authenticate authenticate", "/web/dataset/call_kw read"}, observer.calls)
	s.NoError(observer.errs[0])
	s.ErrorIs(observer.errs[1], constants.ErrUnexpectedStatus)
}

func (s *HTTPTestSuite) TestSessionCookie() {
	h := make(http.Header)
	s.Empty(SessionCookie(h))

	h.Add("Set-Cookie", "session_id=abc")
	s.Equal("session_id=abc", SessionCookie(h))

	h = make(http.Header)
	h.Add("Set-Cookie", "session_id=abc; Expires=Wed, 21 Oct 2026 07:28:00 GMT; Path=/")
	s.Equal("session_id=abc", SessionCookie(h))
}
