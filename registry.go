package rdapclient

import (
	"slices"
	"strings"

	"github.com/datum-labs/addrdap/ipaddr"
)

type domainRow struct {
	suffix  string // ".tld", lower case
	service *domainService
}

// domainTable maps domain suffixes to services, longest suffix first.
type domainTable struct {
	rows []domainRow
}

// buildDomainTable expands doc into one row per TLD. Services are keyed by
// their first https URL so TLDs served from the same base share one
// service; entries without an https URL are dropped.
func buildDomainTable(doc *bootstrapDocument, newService func(baseURL string) *domainService) *domainTable {
	byURL := make(map[string]*domainService)
	var rows []domainRow
	for _, e := range doc.entries() {
		u, ok := firstHTTPS(e.urls)
		if !ok {
			continue
		}
		svc, ok := byURL[u]
		if !ok {
			svc = newService(u)
			byURL[u] = svc
		}
		for _, tld := range e.group {
			rows = append(rows, domainRow{suffix: "." + strings.ToLower(tld), service: svc})
		}
	}
	slices.SortStableFunc(rows, func(a, b domainRow) int { return len(b.suffix) - len(a.suffix) })
	return &domainTable{rows: rows}
}

// match returns the service for the longest suffix of name, which must
// already be lower case.
func (t *domainTable) match(name string) (*domainService, bool) {
	for _, r := range t.rows {
		if strings.HasSuffix(name, r.suffix) {
			return r.service, true
		}
	}
	return nil, false
}

type addressRow struct {
	block   ipaddr.Range
	service *ipService
}

// addressTable maps address blocks to services, sorted by start
// descending then end ascending so the first containing block is the most
// specific one.
type addressTable struct {
	rows []addressRow
}

// buildAddressTable merges the IPv4 and IPv6 documents. CIDR strings that
// fail to parse are skipped and counted.
func buildAddressTable(docs []*bootstrapDocument, newService func(baseURL string) *ipService) (*addressTable, int) {
	byURL := make(map[string]*ipService)
	var (
		rows    []addressRow
		skipped int
	)
	for _, doc := range docs {
		for _, e := range doc.entries() {
			u, ok := firstHTTPS(e.urls)
			if !ok {
				continue
			}
			svc, ok := byURL[u]
			if !ok {
				svc = newService(u)
				byURL[u] = svc
			}
			for _, cidr := range e.group {
				block, err := ipaddr.ParseCIDR(cidr)
				if err != nil {
					skipped++
					continue
				}
				rows = append(rows, addressRow{block: block, service: svc})
			}
		}
	}
	slices.SortStableFunc(rows, func(a, b addressRow) int {
		if c := b.block.Start().Compare(a.block.Start()); c != 0 {
			return c
		}
		return a.block.End().Compare(b.block.End())
	})
	return &addressTable{rows: rows}, skipped
}

// match returns the service of the first block containing q. Partially
// overlapping blocks from different services are not disambiguated.
func (t *addressTable) match(q ipaddr.Query) (*ipService, bool) {
	for _, r := range t.rows {
		if r.block.Contains(q) {
			return r.service, true
		}
	}
	return nil, false
}
