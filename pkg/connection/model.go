package connection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RPCError is the error object Odoo puts in a JSON-RPC response.
type RPCError struct {
	Code    int          `json:"code"`
	Message string       `json:"message,omitempty"`
	Data    RPCErrorData `json:"data,omitempty"`
}

// RPCErrorData carries the server-side exception details.
type RPCErrorData struct {
	// Name is the fully qualified Python exception, e.g. "odoo.exceptions.AccessError".
	Name      string `json:"name,omitempty"`
	Debug     string `json:"debug,omitempty"`
	Message   string `json:"message,omitempty"`
	Arguments []any  `json:"arguments,omitempty"`
}

func (r *RPCError) Error() string {
	switch {
	case r.Data.Message != "" && r.Data.Name != "":
		return fmt.Sprintf("%s: %s", r.Data.Name, r.Data.Message)
	case r.Data.Message != "":
		return r.Data.Message
	}
	return fmt.Sprintf("odoo rpc error %d: %s", r.Code, r.Message)
}

func (r *RPCError) Is(target error) bool {
	if target == nil {
		return r == nil
	}

	_, ok := target.(*RPCError)
	return ok
}

// IsSessionExpired reports whether the server rejected the call because the
// session cookie is no longer valid.
func (r *RPCError) IsSessionExpired() bool {
	return strings.HasSuffix(r.Data.Name, "SessionExpiredException")
}

// RPCRequest is the envelope posted to every JSON-RPC endpoint.
type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// RPCResponse is the envelope Odoo answers with.
type RPCResponse[T any] struct {
	JSONRPC string    `json:"jsonrpc,omitempty"`
	ID      any       `json:"id,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
	Result  *T        `json:"result,omitempty"`
}

// CallParams is the params object of a call_kw request.
//
// Kwargs is left open so that each operation can marshal its own keyword set.
type CallParams struct {
	Model  string `json:"model"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
	Kwargs any    `json:"kwargs"`
}

// AuthParams are the credentials posted to /web/session/authenticate.
type AuthParams struct {
	DB       string `json:"db"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

type authRequest struct {
	Params AuthParams `json:"params"`
}

// SessionInfo is the result of a successful authentication.
type SessionInfo struct {
	UID         int64          `json:"uid"`
	SessionID   string         `json:"session_id,omitempty"`
	UserContext map[string]any `json:"user_context,omitempty"`
	Username    string         `json:"username,omitempty"`
	// Raw holds the complete result object, including fields not mapped above.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON accepts false and null for every mapped field. Older Odoo
// versions answer a rejected login with a result whose uid and username are
// false; that decodes to a zero SessionInfo.
func (s *SessionInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		UID         json.RawMessage `json:"uid"`
		SessionID   json.RawMessage `json:"session_id"`
		UserContext json.RawMessage `json:"user_context"`
		Username    json.RawMessage `json:"username"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var info SessionInfo
	fields := []struct {
		name string
		raw  json.RawMessage
		dst  any
	}{
		{"uid", raw.UID, &info.UID},
		{"session_id", raw.SessionID, &info.SessionID},
		{"user_context", raw.UserContext, &info.UserContext},
		{"username", raw.Username, &info.Username},
	}
	for _, f := range fields {
		if isFalsy(f.raw) {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return fmt.Errorf("session %s: %w", f.name, err)
		}
	}

	info.Raw = append(json.RawMessage(nil), data...)
	*s = info
	return nil
}

// isFalsy reports an absent, null or false JSON value.
func isFalsy(raw json.RawMessage) bool {
	v := string(bytes.TrimSpace(raw))
	return v == "" || v == "null" || v == "false"
}

// AuthResponse is the full body returned by /web/session/authenticate.
type AuthResponse struct {
	RPCResponse[SessionInfo]

	// Cookie is the first Set-Cookie value up to its first ';', or empty
	// when the server did not set one.
	Cookie string `json:"-"`
}

type RPCFunction string

var (
	Search      RPCFunction = "search"
	SearchRead  RPCFunction = "search_read"
	SearchCount RPCFunction = "search_count"
	Read        RPCFunction = "read"
	Create      RPCFunction = "create"
	Write       RPCFunction = "write"
	Unlink      RPCFunction = "unlink"
)
