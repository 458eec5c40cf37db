package rdapclient

import "context"

// LookupNameserver fetches the nameserver object for host from the service
// that serves host's domain suffix.
func (c *Client) LookupNameserver(ctx context.Context, host string) (*Response, error) {
	host = normalizeDomain(host)
	return c.lookupByName(ctx, "nameserver", host, host)
}

// Nameserver returns a typed RDAP Nameserver per RFC 9083.
func (c *Client) Nameserver(ctx context.Context, host string) (*Nameserver, error) {
	resp, err := c.LookupNameserver(ctx, host)
	if err != nil {
		return nil, err
	}
	return objectAs[*Nameserver](resp, "nameserver")
}
