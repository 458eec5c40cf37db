package rdapclient

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/datum-labs/addrdap/ipaddr"
)

// LookupAddress queries the RDAP service whose bootstrap block most
// specifically contains q, an ipaddr.Addr or ipaddr.Range. Answers are
// cached per service by the range they declare, so later queries inside
// that range cost no fetch.
func (c *Client) LookupAddress(ctx context.Context, q ipaddr.Query) (_ *Response, err error) {
	if q == nil {
		return nil, fmt.Errorf("%w: nil query", ipaddr.ErrInvalidAddressFormat)
	}
	query := q.String()
	ctx, span := c.tel.start(ctx, "rdap.lookup",
		attribute.String("rdap.kind", "ip"), attribute.String("rdap.query", query))
	defer func() { end(span, err) }()

	table, err := c.addressTable(ctx)
	if err != nil {
		return nil, err
	}
	svc, ok := table.match(q)
	if !ok {
		return nil, &ServiceNotFoundError{Query: query}
	}
	data, err := svc.lookup(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Response{Query: query, Target: q, Service: svc.baseURL, Data: data}, nil
}

// LookupAddressText parses s with ipaddr.ParseQuery (CIDR or dash range
// text becomes a Range, anything else an Addr) and calls LookupAddress.
func (c *Client) LookupAddressText(ctx context.Context, s string) (*Response, error) {
	q, err := ipaddr.ParseQuery(s)
	if err != nil {
		return nil, err
	}
	return c.LookupAddress(ctx, q)
}

// IP returns a typed RDAP IPNetwork per RFC 9083.
func (c *Client) IP(ctx context.Context, s string) (*IPNetwork, error) {
	resp, err := c.LookupAddressText(ctx, s)
	if err != nil {
		return nil, err
	}
	return objectAs[*IPNetwork](resp, "ip network")
}
