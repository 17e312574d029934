package constants

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNoHost           = errors.New("host not set")
	ErrUnexpectedStatus = errors.New("unexpected HTTP status from Odoo")
	ErrNotAuthenticated = errors.New("session not authenticated")
	ErrBusClosed        = errors.New("bus listener closed")
)

const (
	// AuthenticatePath is where Connect posts the database credentials.
	AuthenticatePath = "/web/session/authenticate"
	// CallKWPath is the endpoint all model methods are dispatched through.
	CallKWPath = "/web/dataset/call_kw"
	// WebsocketPath is the bus endpoint available since Odoo 16.
	WebsocketPath = "/websocket"

	// DefaultPort is the port assumed for plain HTTP when none is configured.
	DefaultPort = 80
	// DefaultSecurePort is the port assumed for HTTPS when none is configured.
	DefaultSecurePort = 443

	DefaultHTTPTimeout = 30 * time.Second

	JSONRPCVersion = "2.0"
	// CallMethod is the JSON-RPC method name Odoo expects on every call_kw request.
	CallMethod = "call"
)

var (
	HTTPScheme            = "http"
	HTTPSecureScheme      = "https"
	WebsocketScheme       = "ws"
	WebsocketSecureScheme = "wss"
)
