package rdapclient

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// bootstrapDocument is an IANA RDAP bootstrap registry (RFC 9224). Each
// service is a [group, urls] pair where group lists TLDs or CIDR blocks.
type bootstrapDocument struct {
	Version     string  `json:"version"`
	Publication string  `json:"publication"`
	Description string  `json:"description,omitempty"`
	Services    [][]any `json:"services"`
}

type bootstrapEntry struct {
	group []string
	urls  []string
}

// entries returns the well-formed services; anything else is skipped.
func (d *bootstrapDocument) entries() []bootstrapEntry {
	out := make([]bootstrapEntry, 0, len(d.Services))
	for _, svc := range d.Services {
		if len(svc) != 2 {
			continue
		}
		group := toStringSlice(svc[0])
		urls := toStringSlice(svc[1])
		if len(group) == 0 || len(urls) == 0 {
			continue
		}
		out = append(out, bootstrapEntry{group: group, urls: urls})
	}
	return out
}

func (c *Client) fetchBootstrap(ctx context.Context, url string) (*bootstrapDocument, error) {
	var doc bootstrapDocument
	if err := c.getJSON(ctx, url, &doc); err != nil {
		return nil, fmt.Errorf("fetch bootstrap: %w", err)
	}
	return &doc, nil
}

// domainTable returns the domain registry, building it on first use.
func (c *Client) domainTable(ctx context.Context) (*domainTable, error) {
	return c.domains.get(ctx, c.loadDomainTable)
}

// addressTable returns the address registry, building it on first use.
func (c *Client) addressTable(ctx context.Context) (*addressTable, error) {
	return c.addresses.get(ctx, c.loadAddressTable)
}

func (c *Client) loadDomainTable(ctx context.Context) (_ *domainTable, err error) {
	ctx, span := c.tel.start(ctx, "rdap.bootstrap", attribute.String("rdap.registry", "dns"))
	defer func() { end(span, err) }()

	doc, err := c.fetchBootstrap(ctx, c.dnsBootstrapURL)
	if err != nil {
		return nil, err
	}
	t := buildDomainTable(doc, c.newDomainService)
	c.tel.log.DebugContext(ctx, "rdap: domain registry ready", "rows", len(t.rows), "publication", doc.Publication)
	return t, nil
}

// loadAddressTable fetches the IPv4 and IPv6 registries in parallel and
// merges them into one table over the unified address space.
func (c *Client) loadAddressTable(ctx context.Context) (_ *addressTable, err error) {
	ctx, span := c.tel.start(ctx, "rdap.bootstrap", attribute.String("rdap.registry", "ip"))
	defer func() { end(span, err) }()

	urls := []string{c.ipv4BootstrapURL, c.ipv6BootstrapURL}
	docs := make([]*bootstrapDocument, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			doc, err := c.fetchBootstrap(gctx, u)
			docs[i] = doc
			return err
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	t, skipped := buildAddressTable(docs, c.newIPService)
	c.tel.log.DebugContext(ctx, "rdap: address registry ready", "rows", len(t.rows), "skipped", skipped)
	return t, nil
}
