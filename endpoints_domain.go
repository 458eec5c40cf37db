package rdapclient

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// LookupDomain queries the RDAP service authoritative for name, chosen by
// the longest matching suffix in the DNS bootstrap registry. It returns a
// *ServiceNotFoundError when no suffix matches and a *TransportError when
// the fetch fails.
func (c *Client) LookupDomain(ctx context.Context, name string) (*Response, error) {
	name = normalizeDomain(name)
	return c.lookupByName(ctx, "domain", name, name)
}

// lookupByName routes by the DNS registry and fetches kind/key from the
// matching service.
func (c *Client) lookupByName(ctx context.Context, kind, route, key string) (_ *Response, err error) {
	ctx, span := c.tel.start(ctx, "rdap.lookup",
		attribute.String("rdap.kind", kind), attribute.String("rdap.query", key))
	defer func() { end(span, err) }()

	table, err := c.domainTable(ctx)
	if err != nil {
		return nil, err
	}
	svc, ok := table.match(route)
	if !ok {
		return nil, &ServiceNotFoundError{Query: key}
	}
	data, err := svc.lookup(ctx, kind, key)
	if err != nil {
		return nil, err
	}
	return &Response{Query: key, Service: svc.baseURL, Data: data}, nil
}

// LookupDomainOrParent is LookupDomain with a fallback: while the answer is
// "not found" (no service, or HTTP 404) it retries with the parent domain,
// stopping at two labels. Response.Query names the domain that answered.
// If every candidate is not found, the error for name itself is returned.
func (c *Client) LookupDomainOrParent(ctx context.Context, name string) (*Response, error) {
	name = normalizeDomain(name)
	resp, firstErr := c.LookupDomain(ctx, name)
	if firstErr == nil || !IsNotFound(firstErr) {
		return resp, firstErr
	}
	for _, parent := range parentDomains(name) {
		resp, err := c.LookupDomain(ctx, parent)
		if err == nil {
			return resp, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, firstErr
}

// Domain returns a typed RDAP Domain per RFC 9083.
func (c *Client) Domain(ctx context.Context, name string) (*Domain, error) {
	resp, err := c.LookupDomain(ctx, name)
	if err != nil {
		return nil, err
	}
	return objectAs[*Domain](resp, "domain")
}

// objectAs decodes resp into the object class T.
func objectAs[T Object](resp *Response, class string) (T, error) {
	var zero T
	obj, err := resp.Object()
	if err != nil {
		return zero, err
	}
	v, ok := obj.(T)
	if !ok {
		return zero, ErrUnexpectedObject(class)
	}
	return v, nil
}
