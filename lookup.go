package rdapclient

import (
	"context"
	"strings"

	"github.com/datum-labs/addrdap/ipaddr"
)

// Lookup auto-detects the query type: anything that parses as an address,
// CIDR block or dash range goes to LookupAddress, everything else is
// treated as a domain name and goes to LookupDomainOrParent.
func (c *Client) Lookup(ctx context.Context, q string) (*Response, error) {
	s := strings.TrimSpace(q)
	if target, err := ipaddr.ParseQuery(s); err == nil {
		return c.LookupAddress(ctx, target)
	}
	return c.LookupDomainOrParent(ctx, s)
}
