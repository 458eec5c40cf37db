package rdapclient

import (
	"context"
	"errors"
	"net/url"

	"golang.org/x/sync/singleflight"
)

// domainService is the RDAP server for a set of TLDs. It answers domain,
// nameserver and entity queries. Nothing is memoized; identical lookups
// that overlap in time share one fetch.
type domainService struct {
	c       *Client
	baseURL string
	group   singleflight.Group
}

func (c *Client) newDomainService(baseURL string) *domainService {
	return &domainService{c: c, baseURL: baseURL}
}

func (s *domainService) lookup(ctx context.Context, kind, key string) (map[string]any, error) {
	u := joinURL(s.baseURL, kind, url.PathEscape(key))
	ch := s.group.DoChan(u, func() (any, error) {
		var data map[string]any
		err := s.c.getJSON(ctx, u, &data)
		return data, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		// The shared fetch ran under whichever caller started it; if that
		// caller went away, fetch again under ours.
		if r.Err != nil && r.Shared && ctx.Err() == nil && isContextErr(r.Err) {
			var data map[string]any
			if err := s.c.getJSON(ctx, u, &data); err != nil {
				return nil, err
			}
			return data, nil
		}
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(map[string]any), nil
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
