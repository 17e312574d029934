package odoo

import (
	"context"

	"github.com/odoojs/odoo.go/pkg/constants"
)

// Search returns the ids of model records matching p.Domain.
func Search(ctx context.Context, c *Client, model string, p SearchParams) ([]int64, error) {
	sess := c.Session()
	raw, err := c.send(ctx, sess, constants.CallKWPath, searchRequest(sess, model, p))
	if err != nil {
		return nil, err
	}
	return decode[[]int64](raw)
}

// SearchCount returns the number of model records matching p.Domain.
func SearchCount(ctx context.Context, c *Client, model string, p SearchParams) (int64, error) {
	sess := c.Session()
	raw, err := c.send(ctx, sess, constants.CallKWPath, searchCountRequest(sess, model, p))
	if err != nil {
		return 0, err
	}
	return decode[int64](raw)
}

// SearchRead searches and reads in one call. TResult is usually Record or a
// struct with json tags matching the requested fields.
func SearchRead[TResult any](ctx context.Context, c *Client, model string, p SearchReadParams) ([]TResult, error) {
	sess := c.Session()
	raw, err := c.send(ctx, sess, constants.CallKWPath, searchReadRequest(sess, model, p))
	if err != nil {
		return nil, err
	}
	return decode[[]TResult](raw)
}

// Get reads the records with the given ids.
func Get[TResult any](ctx context.Context, c *Client, model string, p GetParams) ([]TResult, error) {
	sess := c.Session()
	raw, err := c.send(ctx, sess, constants.CallKWPath, readRequest(model, p))
	if err != nil {
		return nil, err
	}
	return decode[[]TResult](raw)
}

// BrowseByID pages through every record of model, ordered and limited by p.
// p.Domain is ignored and replaced by a domain matching all ids.
func BrowseByID[TResult any](ctx context.Context, c *Client, model string, p SearchReadParams) ([]TResult, error) {
	sess := c.Session()
	raw, err := c.send(ctx, sess, constants.CallKWPath, browseRequest(sess, model, p))
	if err != nil {
		return nil, err
	}
	return decode[[]TResult](raw)
}

// Create inserts one record and returns its id.
func Create(ctx context.Context, c *Client, model string, values any) (int64, error) {
	sess := c.Session()
	raw, err := c.send(ctx, sess, constants.CallKWPath, createRequest(sess, model, values))
	if err != nil {
		return 0, err
	}
	return decode[int64](raw)
}

// Update writes values to the record id. An id of 0 does nothing and
// returns false without contacting the server.
func Update(ctx context.Context, c *Client, model string, id int64, values any) (bool, error) {
	if id == 0 {
		return false, nil
	}
	sess := c.Session()
	raw, err := c.send(ctx, sess, constants.CallKWPath, writeRequest(sess, model, id, values))
	if err != nil {
		return false, err
	}
	return decode[bool](raw)
}

// Delete removes the record id.
func Delete(ctx context.Context, c *Client, model string, id int64) (bool, error) {
	sess := c.Session()
	raw, err := c.send(ctx, sess, constants.CallKWPath, unlinkRequest(sess, model, id))
	if err != nil {
		return false, err
	}
	return decode[bool](raw)
}

// RPCCall posts params as-is to endpoint. No context is added, so include
// one in the kwargs when the method needs it. The result is nil when the
// response carries none.
func RPCCall[TResult any](ctx context.Context, c *Client, endpoint string, params any) (*TResult, error) {
	raw, err := c.send(ctx, c.Session(), endpoint, params)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	res, err := decode[TResult](raw)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
