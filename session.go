package odoo

import "maps"

// UserContext is the server supplied mapping of locale, timezone and company
// defaults (lang, tz, uid, allowed_company_ids, ...).
type UserContext map[string]any

// Session is the state captured by a successful Connect.
type Session struct {
	Cookie    string
	UID       int64
	SessionID string
	Context   UserContext
	Username  string
}

// Authenticated reports whether the session came from a successful login.
func (s Session) Authenticated() bool {
	return s.UID != 0
}

func (s Session) clone() Session {
	s.Context = maps.Clone(s.Context)
	return s
}

// contextFor returns override when set, otherwise the session context.
func (s Session) contextFor(override UserContext) UserContext {
	if override != nil {
		return override
	}
	return s.Context
}
