// Package fakeodoo provides a fake Odoo web server for tests.
//
// It serves /web/session/authenticate, any JSON-RPC path (call_kw and
// friends) and the /websocket bus endpoint. Every HTTP request is recorded
// so tests can assert on the exact envelope and headers a client sent.
//
// Unless a stub matches, call_kw answers with {"args": ..., "kwargs": ...}
// echoed from the request, which makes request shapes easy to check.
package fakeodoo

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/odoojs/odoo.go/pkg/connection"
	"github.com/odoojs/odoo.go/pkg/constants"
)

// Request is one recorded HTTP request.
type Request struct {
	Path   string
	Header http.Header
	Body   []byte
}

// Envelope decodes the body as a JSON-RPC call.
func (r Request) Envelope() Envelope {
	var env Envelope
	_ = json.Unmarshal(r.Body, &env)
	return env
}

// Envelope is the decoded form of a JSON-RPC request body.
type Envelope struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Method  string `json:"method"`
	Params  Params `json:"params"`
}

// Params is the decoded params object. Raw keeps the exact bytes.
type Params struct {
	Model  string          `json:"model"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args"`
	Kwargs json.RawMessage `json:"kwargs"`
	Raw    json.RawMessage `json:"-"`
}

func (p *Params) UnmarshalJSON(data []byte) error {
	type plain Params
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Params(v)
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// StubResponse answers calls to a model method instead of the echo.
type StubResponse struct {
	// Method is the model method to match, e.g. "search". Empty matches any.
	Method string
	// Model optionally restricts the match to one model.
	Model string
	// Result is returned when Error is nil. A nil Result omits the field.
	Result any
	Error  *connection.RPCError
}

// Server is a fake Odoo server backed by httptest.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	requests  []Request
	stubs     []StubResponse
	status    int
	expired   bool
	auth      authStub
	upgrader  websocket.Upgrader
	wsConns   []*websocket.Conn
	subscribe []json.RawMessage
	subCh     chan json.RawMessage
}

type authStub struct {
	result      any
	err         *connection.RPCError
	setCookie   string
	credentials *connection.AuthParams
}

// NewServer starts a fake server. Close it when done.
func NewServer() *Server {
	s := &Server{
		subCh: make(chan json.RawMessage, 16),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// SetAuthResult configures the authenticate result and Set-Cookie header.
// A nil result makes the server answer without a result field.
func (s *Server) SetAuthResult(result any, setCookie string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth.result = result
	s.auth.setCookie = setCookie
	s.auth.err = nil
}

// SetAuthError makes authenticate answer with err.
func (s *Server) SetAuthError(err *connection.RPCError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth.err = err
}

// RequireCredentials rejects logins that do not match p with an AccessDenied error.
func (s *Server) RequireCredentials(p connection.AuthParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth.credentials = &p
}

// Stub adds a stub response. Later stubs take precedence.
func (s *Server) Stub(stub StubResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs = append(s.stubs, stub)
}

// FailWithStatus makes every following RPC call answer with status and an HTML body.
func (s *Server) FailWithStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// ExpireSession makes every following RPC call fail as Odoo does for a dead session.
func (s *Server) ExpireSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = true
}

// Requests returns a copy of the recorded HTTP requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the latest recorded request, or false when there is none.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == constants.WebsocketPath {
		s.handleWebsocket(w, r)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
	s.mu.Unlock()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path == constants.AuthenticatePath {
		s.handleAuthenticate(w, body)
		return
	}
	s.handleCall(w, body)
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, body []byte) {
	var req struct {
		Params connection.AuthParams `json:"params"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	auth := s.auth
	s.mu.Unlock()

	resp := map[string]any{"jsonrpc": constants.JSONRPCVersion, "id": nil}
	switch {
	case auth.err != nil:
		resp["error"] = auth.err
	case auth.credentials != nil && *auth.credentials != req.Params:
		resp["error"] = AccessDenied()
	default:
		if auth.setCookie != "" {
			w.Header().Add("Set-Cookie", auth.setCookie)
		}
		if auth.result != nil {
			resp["result"] = auth.result
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCall(w http.ResponseWriter, body []byte) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	status, expired := s.status, s.expired
	stub, matched := s.match(env.Params)
	s.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, "<html><body>"+http.StatusText(status)+"</body></html>")
		return
	}

	resp := map[string]any{"jsonrpc": constants.JSONRPCVersion, "id": env.ID}
	switch {
	case expired:
		resp["error"] = SessionExpired()
	case matched && stub.Error != nil:
		resp["error"] = stub.Error
	case matched:
		if stub.Result != nil {
			resp["result"] = stub.Result
		}
	case env.Params.Args != nil || env.Params.Kwargs != nil:
		resp["result"] = map[string]json.RawMessage{"args": env.Params.Args, "kwargs": env.Params.Kwargs}
	default:
		resp["result"] = env.Params.Raw
	}
	writeJSON(w, http.StatusOK, resp)
}

// match must be called with s.mu held.
func (s *Server) match(p Params) (StubResponse, bool) {
	for i := len(s.stubs) - 1; i >= 0; i-- {
		stub := s.stubs[i]
		if stub.Method != "" && stub.Method != p.Method {
			continue
		}
		if stub.Model != "" && stub.Model != p.Model {
			continue
		}
		return stub, true
	}
	return StubResponse{}, false
}

// AccessDenied is the error Odoo returns for wrong credentials.
func AccessDenied() *connection.RPCError {
	return &connection.RPCError{
		Code:    200,
		Message: "Odoo Server Error",
		Data: connection.RPCErrorData{
			Name:    "odoo.exceptions.AccessDenied",
			Message: "Access Denied",
		},
	}
}

// SessionExpired is the error Odoo returns once a session cookie is invalid.
func SessionExpired() *connection.RPCError {
	return &connection.RPCError{
		Code:    100,
		Message: "Odoo Session Expired",
		Data: connection.RPCErrorData{
			Name:    "odoo.http.SessionExpiredException",
			Message: "Session expired",
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// cookieValue strips the trailing ';' clients append.
func cookieValue(h http.Header) string {
	return strings.TrimSuffix(strings.TrimSpace(h.Get("Cookie")), ";")
}
