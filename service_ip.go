package rdapclient

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"

	"github.com/datum-labs/addrdap/fifolock"
	"github.com/datum-labs/addrdap/ipaddr"
)

type cacheEntry struct {
	block ipaddr.Range
	data  map[string]any
}

// ipService is the RDAP server for a set of address blocks. Responses are
// memoized by the network range they describe, so any later query inside
// that range is answered locally.
//
// Readers scan an immutable snapshot without locking. Writers hold mu,
// which also serializes fetches: a second query for a range that is being
// fetched waits, rescans, and finds the first query's entry.
type ipService struct {
	c       *Client
	baseURL string
	mu      *fifolock.Mutex
	cache   atomic.Pointer[[]cacheEntry]
}

func (c *Client) newIPService(baseURL string) *ipService {
	return &ipService{c: c, baseURL: baseURL, mu: fifolock.New()}
}

func (s *ipService) cached(q ipaddr.Query) (map[string]any, bool) {
	entries := s.cache.Load()
	if entries == nil {
		return nil, false
	}
	for _, e := range *entries {
		if e.block.Contains(q) {
			return e.data, true
		}
	}
	return nil, false
}

func (s *ipService) lookup(ctx context.Context, q ipaddr.Query) (map[string]any, error) {
	attrs := attribute.String("rdap.service", s.baseURL)
	if data, ok := s.cached(q); ok {
		add(ctx, s.c.tel.hits, attrs)
		return data, nil
	}
	return fifolock.Do(ctx, s.mu, func() (map[string]any, error) {
		if data, ok := s.cached(q); ok {
			add(ctx, s.c.tel.hits, attrs)
			return data, nil
		}
		add(ctx, s.c.tel.misses, attrs)

		var data map[string]any
		if err := s.c.getJSON(ctx, joinURL(s.baseURL, "ip", q.String()), &data); err != nil {
			return nil, err
		}
		s.store(ctx, q, data)
		return data, nil
	})
}

// store appends data under the range it declares. Responses without a
// parseable startAddress/endAddress are served but not remembered. The
// caller holds s.mu.
func (s *ipService) store(ctx context.Context, q ipaddr.Query, data map[string]any) {
	block, ok := responseRange(data)
	if !ok {
		s.c.tel.log.DebugContext(ctx, "rdap: response has no usable range, not cached", "query", q.String())
		return
	}
	var next []cacheEntry
	if old := s.cache.Load(); old != nil {
		next = make([]cacheEntry, len(*old), len(*old)+1)
		copy(next, *old)
	}
	next = append(next, cacheEntry{block: block, data: data})
	s.cache.Store(&next)
}
