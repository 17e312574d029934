package odoo

// Domain is an Odoo search filter in prefix notation: a list of
// (field, operator, value) conditions and the operators And, Or and Not.
// Consecutive conditions without an operator are and-ed by the server.
type Domain []any

// Domain operators.
const (
	And = "&"
	Or  = "|"
	Not = "!"
)

// Where builds a single domain condition.
func Where(field, operator string, value any) []any {
	return []any{field, operator, value}
}

// allRecords matches every record; record ids start at 1.
func allRecords() Domain {
	return Domain{Where("id", ">", 0)}
}

// Record is a row returned by read and search_read when no struct type is
// supplied. Missing values come back as false, not null.
type Record map[string]any

type SearchParams struct {
	Domain Domain
	// Context replaces the session context for this call when set.
	Context UserContext
}

type SearchReadParams struct {
	Domain Domain
	Offset int
	// Limit 0 returns every matching record.
	Limit int
	// Order is an SQL-like sort specification, e.g. "name asc, id desc".
	Order  string
	Fields []string
	// Context replaces the session context for this call when set.
	Context UserContext
}

type GetParams struct {
	IDs    []int64
	Fields []string
}

type contextKwargs struct {
	Context UserContext `json:"context,omitempty"`
}

type searchReadKwargs struct {
	Context UserContext `json:"context,omitempty"`
	Domain  Domain      `json:"domain,omitempty"`
	Offset  int         `json:"offset,omitempty"`
	Limit   int         `json:"limit,omitempty"`
	Order   string      `json:"order,omitempty"`
	Fields  []string    `json:"fields,omitempty"`
}

type readKwargs struct {
	Fields []string `json:"fields,omitempty"`
}
