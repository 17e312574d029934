package odoo

import (
	"github.com/odoojs/odoo.go/pkg/connection"
)

// The builders below are pure: the request is a function of the session,
// the model and the caller's parameters only.

func searchRequest(sess Session, model string, p SearchParams) connection.CallParams {
	domain := p.Domain
	if domain == nil {
		domain = Domain{}
	}
	return connection.CallParams{
		Model:  model,
		Method: string(connection.Search),
		Args:   []any{domain},
		Kwargs: contextKwargs{Context: sess.contextFor(p.Context)},
	}
}

func searchCountRequest(sess Session, model string, p SearchParams) connection.CallParams {
	req := searchRequest(sess, model, p)
	req.Method = string(connection.SearchCount)
	return req
}

func searchReadRequest(sess Session, model string, p SearchReadParams) connection.CallParams {
	return connection.CallParams{
		Model:  model,
		Method: string(connection.SearchRead),
		Args:   []any{},
		Kwargs: searchReadKwargs{
			Context: sess.contextFor(p.Context),
			Domain:  p.Domain,
			Offset:  p.Offset,
			Limit:   p.Limit,
			Order:   p.Order,
			Fields:  p.Fields,
		},
	}
}

// readRequest carries no context; read has always been sent without one.
func readRequest(model string, p GetParams) connection.CallParams {
	ids := p.IDs
	if ids == nil {
		ids = []int64{}
	}
	return connection.CallParams{
		Model:  model,
		Method: string(connection.Read),
		Args:   []any{ids},
		Kwargs: readKwargs{Fields: p.Fields},
	}
}

func browseRequest(sess Session, model string, p SearchReadParams) connection.CallParams {
	p.Domain = allRecords()
	return searchReadRequest(sess, model, p)
}

func createRequest(sess Session, model string, values any) connection.CallParams {
	return connection.CallParams{
		Model:  model,
		Method: string(connection.Create),
		Args:   []any{values},
		Kwargs: contextKwargs{Context: sess.Context},
	}
}

func writeRequest(sess Session, model string, id int64, values any) connection.CallParams {
	return connection.CallParams{
		Model:  model,
		Method: string(connection.Write),
		Args:   []any{[]int64{id}, values},
		Kwargs: contextKwargs{Context: sess.Context},
	}
}

func unlinkRequest(sess Session, model string, id int64) connection.CallParams {
	return connection.CallParams{
		Model:  model,
		Method: string(connection.Unlink),
		Args:   []any{[]int64{id}},
		Kwargs: contextKwargs{Context: sess.Context},
	}
}
