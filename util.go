package rdapclient

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// joinURL appends "kind/query" to a service base URL. Bootstrap URLs end in
// "/" by convention, but a missing slash is tolerated.
func joinURL(base, kind, query string) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + kind + "/" + query
}

func lower(s string) string { return strings.ToLower(s) }

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func copyHeaders(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

// retryAfter honours a short Retry-After (seconds or HTTP date) and
// otherwise returns fallback.
func retryAfter(h http.Header, fallback time.Duration) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if sec, err := time.ParseDuration(strings.TrimSpace(v) + "s"); err == nil {
			if sec > 0 && sec < 10*time.Second {
				return sec
			}
		}
		if t, err := http.ParseTime(v); err == nil {
			if d := time.Until(t); d > 0 && d < 10*time.Second {
				return d
			}
		}
	}
	return fallback
}

// temporary reports whether err (or any wrapped error) implements Temporary() bool and returns true.
func temporary(err error) bool {
	type temp interface{ Temporary() bool }
	for err != nil {
		if te, ok := err.(temp); ok && te.Temporary() {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// toStringSlice converts an interface{} holding a []any into []string (best-effort).
func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, x := range arr {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// firstHTTPS returns the first https:// URL of urls.
func firstHTTPS(urls []string) (string, bool) {
	for _, u := range urls {
		if strings.HasPrefix(u, "https://") {
			return u, true
		}
	}
	return "", false
}
