package rdapclient

import (
	"context"
	"strings"
)

// LookupEntity fetches an entity by handle. Handles are not routable on
// their own, so tld names the registry to ask ("com", ".org"); without it
// the lookup fails with a *ServiceNotFoundError.
func (c *Client) LookupEntity(ctx context.Context, handle, tld string) (*Response, error) {
	handle = strings.TrimSpace(handle)
	tld = strings.TrimPrefix(normalizeDomain(tld), ".")
	if tld == "" || handle == "" {
		return nil, &ServiceNotFoundError{Query: handle}
	}
	return c.lookupByName(ctx, "entity", "."+tld, handle)
}

// Entity returns a typed RDAP Entity per RFC 9083.
func (c *Client) Entity(ctx context.Context, handle, tld string) (*Entity, error) {
	resp, err := c.LookupEntity(ctx, handle, tld)
	if err != nil {
		return nil, err
	}
	return objectAs[*Entity](resp, "entity")
}
