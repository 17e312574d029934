// The [odoo] package is a client for the Odoo JSON-RPC web API.
//
// # Sessions
//
// A [Client] holds one web session. [Client.Connect] posts the configured database
// credentials to /web/session/authenticate and keeps the session cookie and the user
// context the server returns. Every later call carries that cookie, and every model
// call except [Get] carries that context. Only the search calls ([Search], [SearchCount],
// [SearchRead] and [BrowseByID]) accept a per-call replacement through the Context field
// of their params; [Create], [Update] and [Delete] always send the session context. Use
// [RPCCall] with explicit kwargs when a write needs a different one.
//
// The client never expires or refreshes the session on its own. When the server drops it,
// calls fail with a [connection.RPCError] whose IsSessionExpired method reports true;
// call Connect again to continue.
//
// # Model methods
//
// [Search], [SearchRead], [SearchCount], [Get], [BrowseByID], [Create], [Update] and [Delete]
// wrap the call_kw endpoint with typed parameters. [RPCCall] is the escape hatch for any
// other endpoint or model method; it sends exactly the params it is given.
//
// Domains are built with [Where], [And], [Or] and [Not]:
//
//	odoo.Domain{odoo.Or, odoo.Where("is_company", "=", true), odoo.Where("customer_rank", ">", 0)}
//
// # Errors
//
// Server-side exceptions are returned as *[connection.RPCError]. Transport failures wrap
// [constants.ErrUnexpectedStatus] or the underlying net/http error.
//
// # Bus notifications
//
// For live notifications use [github.com/odoojs/odoo.go/pkg/bus], which opens the
// /websocket endpoint with the client's session cookie.
package odoo
