package rdapclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/datum-labs/addrdap/ipaddr"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// ---------- fake registry + services ----------

// fakeRDAP serves the three bootstrap documents and a handful of RDAP
// services from one TLS server; bootstrap entries must be https.
type fakeRDAP struct {
	srv *httptest.Server
	mux *http.ServeMux

	mu   sync.Mutex
	hits map[string]int

	// optional gates, set before the first lookup
	dnsGate chan struct{}
	v4Gate  chan struct{}

	flakyFailures atomic.Int32
	dnsFailures   atomic.Int32

	lastHeader atomic.Pointer[http.Header]
}

func newFakeRDAP(t *testing.T) *fakeRDAP {
	t.Helper()
	f := &fakeRDAP{mux: http.NewServeMux(), hits: make(map[string]int)}
	f.srv = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.mu.Unlock()
		h := r.Header.Clone()
		f.lastHeader.Store(&h)
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)

	base := f.srv.URL
	f.mux.HandleFunc("GET /dns.json", func(w http.ResponseWriter, r *http.Request) {
		if !wait(r, f.dnsGate) {
			return
		}
		if f.dnsFailures.Add(-1) >= 0 {
			http.Error(w, "unavailable", http.StatusInternalServerError)
			return
		}
		writeBootstrap(w,
			service([]string{"com"}, "http://insecure.invalid/", base+"/com/"),
			service([]string{"EXAMPLE.com"}, base+"/example/"),
			service([]string{"net"}, base+"/net/"),
			service([]string{"flaky"}, base+"/flaky/"),
			service([]string{"org"}, "http://only-plain-http.invalid/"),
		)
	})
	f.mux.HandleFunc("GET /ipv4.json", func(w http.ResponseWriter, r *http.Request) {
		writeBootstrap(w,
			service([]string{"10.0.0.0/8"}, base+"/v4/"),
			service([]string{"10.1.0.0/16", "not-a-cidr"}, base+"/v4b/"),
		)
	})
	f.mux.HandleFunc("GET /ipv6.json", func(w http.ResponseWriter, r *http.Request) {
		writeBootstrap(w, service([]string{"2001:db8::/32"}, base+"/v6/"))
	})

	domain := func(handle string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{
				"objectClassName": "domain",
				"handle":          handle,
				"ldhName":         r.PathValue("name"),
			})
		}
	}
	f.mux.HandleFunc("GET /com/domain/{name}", domain("COM"))
	f.mux.HandleFunc("GET /example/domain/{name}", domain("EXAMPLE"))
	f.mux.HandleFunc("GET /com/nameserver/{name}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"objectClassName": "nameserver",
			"ldhName":         r.PathValue("name"),
			"ipAddresses":     map[string]any{"v4": []any{"192.0.2.53"}},
		})
	})
	f.mux.HandleFunc("GET /com/entity/{handle}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"objectClassName": "entity",
			"handle":          r.PathValue("handle"),
			"roles":           []any{"registrar"},
		})
	})
	f.mux.HandleFunc("GET /net/domain/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") != "example.net" {
			http.NotFound(w, r)
			return
		}
		domain("NET")(w, r)
	})
	f.mux.HandleFunc("GET /flaky/domain/{name}", func(w http.ResponseWriter, r *http.Request) {
		if f.flakyFailures.Add(-1) >= 0 {
			w.Header().Set("Retry-After", "0")
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		domain("FLAKY")(w, r)
	})

	f.mux.HandleFunc("GET /v4/ip/{q...}", func(w http.ResponseWriter, r *http.Request) {
		if !wait(r, f.v4Gate) {
			return
		}
		writeJSON(w, map[string]any{
			"objectClassName": "ip network",
			"handle":          "NET-10-0-0-0-1",
			"name":            "TEN-ZERO",
			"startAddress":    "10.0.0.0",
			"endAddress":      "10.0.255.255",
			"entities": []any{map[string]any{
				"objectClassName": "entity",
				"roles":           []any{"registrant"},
				"vcardArray": []any{"vcard", []any{
					[]any{"version", map[string]any{}, "text", "4.0"},
					[]any{"fn", map[string]any{}, "text", "Example Networks, LLC"},
				}},
			}},
		})
	})
	f.mux.HandleFunc("GET /v4b/ip/{q...}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"objectClassName": "ip network",
			"handle":          "NET-10-1-0-0-1",
			"startAddress":    "10.1.0.0",
			"endAddress":      "10.1.255.255",
		})
	})
	f.mux.HandleFunc("GET /v6/ip/{q...}", func(w http.ResponseWriter, r *http.Request) {
		// no startAddress/endAddress: must not be cached
		writeJSON(w, map[string]any{"objectClassName": "ip network", "handle": "V6-DOC"})
	})
	return f
}

// wait blocks on gate (if any) and reports false when the client gave up.
func wait(r *http.Request, gate chan struct{}) bool {
	if gate == nil {
		return true
	}
	select {
	case <-gate:
		return true
	case <-r.Context().Done():
		return false
	}
}

func service(group []string, urls ...string) []any {
	return []any{group, urls}
}

func writeBootstrap(w http.ResponseWriter, services ...[]any) {
	writeJSON(w, map[string]any{
		"version":     "1.0",
		"publication": "2024-01-01T00:00:00Z",
		"services":    services,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/rdap+json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeRDAP) client(opts ...Option) *Client {
	base := []Option{
		WithHTTPDoer(f.srv.Client()),
		WithDNSBootstrapURL(f.srv.URL + "/dns.json"),
		WithIPv4BootstrapURL(f.srv.URL + "/ipv4.json"),
		WithIPv6BootstrapURL(f.srv.URL + "/ipv6.json"),
	}
	return New(append(base, opts...)...)
}

func (f *fakeRDAP) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for p, c := range f.hits {
		if strings.HasPrefix(p, prefix) {
			n += c
		}
	}
	return n
}

// ---------- domain lookups ----------

func TestLookupDomainLongestSuffixWins(t *testing.T) {
	f := newFakeRDAP(t)
	c := f.client()
	ctx := context.Background()

	resp, err := c.LookupDomain(ctx, "foo.example.com")
	require.NoError(t, err)
	assert.Equal(t, f.srv.URL+"/example/", resp.Service)
	assert.Equal(t, "EXAMPLE", resp.Data["handle"])
	assert.Nil(t, resp.Target)

	resp, err = c.LookupDomain(ctx, "foo.com")
	require.NoError(t, err)
	assert.Equal(t, f.srv.URL+"/com/", resp.Service)
	assert.Equal(t, "foo.com", resp.Data["ldhName"])
}

func TestLookupDomainNormalisesName(t *testing.T) {
	f := newFakeRDAP(t)
	c := f.client()

	resp, err := c.LookupDomain(context.Background(), "  WWW.Example.COM. ")
	require.NoError(t, err)
	assert.Equal(t, "www.example.com", resp.Query)
	assert.Equal(t, 1, f.count("/example/domain/www.example.com"))
}

func TestLookupDomainServiceNotFound(t *testing.T) {
	f := newFakeRDAP(t)
	c := f.client()

	// .org only lists a plain-http service, which is ignored
	_, err := c.LookupDomain(context.Background(), "Example.ORG")
	require.Error(t, err)

	var snf *ServiceNotFoundError
	require.ErrorAs(t, err, &snf)
	assert.Equal(t, "example.org", snf.Query)
	assert.ErrorIs(t, err, ErrServiceNotFound)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 0, f.count("/org"))
}

func TestLookupDomainTransportError(t *testing.T) {
	f := newFakeRDAP(t)
	c := f.client()

	_, err := c.LookupDomain(context.Background(), "missing.net")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.True(t, te.NotFound())
	assert.True(t, IsNotFound(err))
	assert.False(t, errors.Is(err, ErrServiceNotFound))
}

func TestLookupDomainOrParent(t *testing.T) {
	f := newFakeRDAP(t)
	c := f.client()

	resp, err := c.LookupDomainOrParent(context.Background(), "www.sub.example.net")
	require.NoError(t, err)
	assert.Equal(t, "example.net", resp.Query)
	assert.Equal(t, 1, f.count("/net/domain/www.sub.example.net"))
	assert.Equal(t, 1, f.count("/net/domain/sub.example.net"))
	assert.Equal(t, 1, f.count("/net/domain/example.net"))

	_, err = c.LookupDomainOrParent(context.Background(), "a.b.example.org")
	var snf *ServiceNotFoundError
	require.ErrorAs(t, err, &snf)
	assert.Equal(t, "a.b.example.org", snf.Query)
}

func TestDomainTyped(t *testing.T) {
	f := newFakeRDAP(t)
	d, err := f.client().Domain(context.Background(), "foo.com")
	require.NoError(t, err)
	assert.Equal(t, "foo.com", d.LDHName)
	assert.Equal(t, "COM", d.Handle)
}

func TestNameserverAndEntity(t *testing.T) {
	f := newFakeRDAP(t)
	c := f.client()
	ctx := context.Background()

	ns, err := c.Nameserver(ctx, "NS1.Example-DNS.com.")
	require.NoError(t, err)
	assert.Equal(t, "ns1.example-dns.com", ns.LDHName)
	require.NotNil(t, ns.IPAddresses)
	assert.Equal(t, []string{"192.0.2.53"}, ns.IPAddresses.V4)

	e, err := c.Entity(ctx, "REGISTRAR 292", ".COM")
	require.NoError(t, err)
	assert.Equal(t, "REGISTRAR 292", e.Handle)
	assert.True(t, e.HasRole("registrar"))
	assert.Equal(t, 1, f.count("/com/entity/REGISTRAR 292"))

	_, err = c.Entity(ctx, "X-1", "")
	var snf *ServiceNotFoundError
	require.ErrorAs(t, err, &snf)
	assert.Equal(t, "X-1", snf.Query)

	_, err = c.Domain(ctx, "ns1.example-dns.com")
	require.NoError(t, err)
	_, err = objectAs[*Nameserver](&Response{Data: map[string]any{"objectClassName": "domain"}}, "nameserver")
	assert.ErrorIs(t, err, ErrUnexpectedObject("nameserver"))
}

// ---------- address lookups ----------

func TestLookupAddressCachesByRange(t *testing.T) {
	f := newFakeRDAP(t)
	c := f.client()
	ctx := context.Background()

	first, err := c.LookupAddressText(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, f.srv.URL+"/v4/", first.Service)
	assert.Equal(t, ipaddr.MustParseAddr("10.0.0.1"), first.Target)

	// inside 10.0.0.0-10.0.255.255: served from the cache
	second, err := c.LookupAddress(ctx, ipaddr.MustParseCIDR("10.0.42.0/24"))
	require.NoError(t, err)
	assert.Equal(t, "10.0.42.0/24", second.Query)
	assert.Equal(t, first.Data["handle"], second.Data["handle"])
	assert.Equal(t, 1, f.count("/v4/ip/"))

	rng, ok := second.Range()
	require.True(t, ok)
	assert.Equal(t, "10.0.0.0/16", rng.String())

	// outside the cached range: fetched again
	_, err = c.LookupAddressText(ctx, "10.200.0.1")
	require.NoError(t, err)
	assert.Equal(t, 2, f.count("/v4/ip/"))
	assert.Equal(t, 1, f.count("/v4/ip/10.200.0.1"))
}

func TestLookupAddressMostSpecificBlock(t *testing.T) {
	f := newFakeRDAP(t)
	c := f.client()

	resp, err := c.LookupAddressText(context.Background(), "10.1.2.3")
	require.NoError(t, err)
	assert.Equal(t, f.srv.URL+"/v4b/", resp.Service)

	// a range straddling the nested block belongs to the enclosing one
	resp, err = c.LookupAddressText(context.Background(), "10.0.255.0-10.1.0.5")
	require.NoError(t, err)
	assert.Equal(t, f.srv.URL+"/v4/", resp.Service)
}

func TestLookupAddressWithoutBoundsIsNotCached(t *testing.T) {
	f := newFakeRDAP(t)
	c := f.client()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		resp, err := c.LookupAddressText(ctx, "2001:db8::1")
		require.NoError(t, err)
		assert.Equal(t, "V6-DOC", resp.Data["handle"])
	}
	assert.Equal(t, 2, f.count("/v6/ip/2001:0db8:0000:0000:0000:0000:0000:0001"))
}

func TestLookupAddressServiceNotFound(t *testing.T) {
	f := newFakeRDAP(t)
	c := f.client()

	_, err := c.LookupAddressText(context.Background(), "192.0.2.1")
	var snf *ServiceNotFoundError
	require.ErrorAs(t, err, &snf)
	assert.Equal(t, "192.0.2.1", snf.Query)

	// a range only partly inside a block has no service either
	_, err = c.LookupAddress(context.Background(), ipaddr.MustParseCIDR("10.0.0.0/7"))
	require.ErrorAs(t, err, &snf)
	assert.Equal(t, "10.0.0.0/7", snf.Query)
}

func TestLookupAddressInvalidText(t *testing.T) {
	f := newFakeRDAP(t)
	c := f.client()

	_, err := c.LookupAddressText(context.Background(), "10.0.0.300")
	assert.ErrorIs(t, err, ipaddr.ErrInvalidAddressFormat)
	_, err = c.LookupAddressText(context.Background(), "10.0.0.9-10.0.0.1")
	assert.ErrorIs(t, err, ipaddr.ErrInvertedRange)
	assert.Equal(t, 0, f.count("/ipv4.json"), "parse errors must not trigger a bootstrap")
}

func TestConcurrentLookupsInSameRangeFetchOnce(t *testing.T) {
	f := newFakeRDAP(t)
	f.v4Gate = make(chan struct{})
	c := f.client()
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	results := make([]*Response, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.LookupAddress(ctx, ipaddr.AddrFrom4(0x0a000000|uint32(i+1)))
		}(i)
	}

	require.Eventually(t, func() bool { return f.count("/v4/ip/") == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond) // let the rest queue behind the lock
	close(f.v4Gate)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "NET-10-0-0-0-1", results[i].Data["handle"])
	}
	assert.Equal(t, 1, f.count("/v4/ip/"))
	assert.Equal(t, 1, f.count("/ipv4.json"))
	assert.Equal(t, 1, f.count("/ipv6.json"))
}

// ---------- auto-detect ----------

func TestLookupDispatch(t *testing.T) {
	f := newFakeRDAP(t)
	c := f.client()
	ctx := context.Background()

	resp, err := c.Lookup(ctx, " 10.0.0.9 ")
	require.NoError(t, err)
	assert.IsType(t, ipaddr.Addr{}, resp.Target)

	resp, err = c.Lookup(ctx, "10.0.0.0/24")
	require.NoError(t, err)
	assert.IsType(t, ipaddr.Range{}, resp.Target)

	resp, err = c.Lookup(ctx, "my-site.example.com")
	require.NoError(t, err)
	assert.Nil(t, resp.Target)
	assert.Equal(t, "my-site.example.com", resp.Query)

	ipn, err := c.IP(ctx, "10.1.9.9")
	require.NoError(t, err)
	assert.Equal(t, "10.1.0.0", ipn.StartAddress)
}

// ---------- bootstrap memoization & cancellation ----------

func TestBootstrapSharedByConcurrentCallers(t *testing.T) {
	f := newFakeRDAP(t)
	f.dnsGate = make(chan struct{})
	c := f.client()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.LookupDomain(context.Background(), "foo.com")
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return f.count("/dns.json") == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.dnsGate)
	wg.Wait()

	_, err := c.LookupDomain(context.Background(), "bar.com")
	require.NoError(t, err)
	assert.Equal(t, 1, f.count("/dns.json"))
}

func TestBootstrapFailureIsNotMemoized(t *testing.T) {
	f := newFakeRDAP(t)
	f.dnsFailures.Store(1)
	c := f.client()

	_, err := c.LookupDomain(context.Background(), "foo.com")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)

	_, err = c.LookupDomain(context.Background(), "foo.com")
	require.NoError(t, err)
	assert.Equal(t, 2, f.count("/dns.json"))
}

func TestCancelledWaiterDoesNotAffectOthers(t *testing.T) {
	f := newFakeRDAP(t)
	f.dnsGate = make(chan struct{})
	c := f.client()

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.LookupDomain(ctxA, "foo.com")
		errA <- err
	}()
	require.Eventually(t, func() bool { return f.count("/dns.json") == 1 }, 2*time.Second, 5*time.Millisecond)

	errB := make(chan error, 1)
	go func() {
		_, err := c.LookupDomain(context.Background(), "bar.com")
		errB <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(f.dnsGate)
	assert.NoError(t, <-errB)
	assert.Equal(t, 1, f.count("/dns.json"))
}

func TestLastWaiterCancellingAbortsBootstrap(t *testing.T) {
	f := newFakeRDAP(t)
	f.dnsGate = make(chan struct{})
	c := f.client()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.LookupDomain(ctx, "foo.com")
		errCh <- err
	}()
	require.Eventually(t, func() bool { return f.count("/dns.json") == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(f.dnsGate)
	_, err := c.LookupDomain(context.Background(), "foo.com")
	require.NoError(t, err)
	assert.Equal(t, 2, f.count("/dns.json"))
}

func TestLookupCancelledDuringFetch(t *testing.T) {
	f := newFakeRDAP(t)
	f.v4Gate = make(chan struct{})
	defer close(f.v4Gate)
	c := f.client()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := c.LookupAddressText(ctx, "10.0.0.1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// ---------- transport ----------

func TestNoRetryByDefault(t *testing.T) {
	f := newFakeRDAP(t)
	f.flakyFailures.Store(1)
	c := f.client()

	_, err := c.LookupDomain(context.Background(), "x.flaky")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Equal(t, 1, f.count("/flaky/"))
}

func TestRetriesWhenConfigured(t *testing.T) {
	f := newFakeRDAP(t)
	f.flakyFailures.Store(2)
	c := f.client(WithMaxRetries(2), WithBackoff(func(int) time.Duration { return time.Millisecond }))

	resp, err := c.LookupDomain(context.Background(), "x.flaky")
	require.NoError(t, err)
	assert.Equal(t, "FLAKY", resp.Data["handle"])
	assert.Equal(t, 3, f.count("/flaky/"))
}

func TestRequestHeaders(t *testing.T) {
	f := newFakeRDAP(t)
	c := f.client(WithUserAgent("addrdap-test/1"), WithHeader("X-Trace", "abc"))

	_, err := c.LookupDomain(context.Background(), "foo.com")
	require.NoError(t, err)
	h := *f.lastHeader.Load()
	assert.Contains(t, h.Get("Accept"), "application/rdap+json")
	assert.Equal(t, "addrdap-test/1", h.Get("User-Agent"))
	assert.Equal(t, "abc", h.Get("X-Trace"))
}

func TestTransportErrorMessages(t *testing.T) {
	e := &TransportError{URL: "https://rdap.example/ip/1.2.3.4", StatusCode: 404}
	assert.Equal(t, "rdap GET https://rdap.example/ip/1.2.3.4: 404 Not Found", e.Error())

	cause := errors.New("connection refused")
	e = &TransportError{URL: "https://rdap.example/", Err: cause}
	assert.ErrorIs(t, e, cause)
	assert.False(t, e.NotFound())
}

// ---------- Backoff ----------

func TestExponentialBackoff_DefaultsAndClamping(t *testing.T) {
	b := ExponentialBackoff(0, 0, 0)
	assert.Equal(t, 100*time.Millisecond, b(1))
	assert.Equal(t, 150*time.Millisecond, b(2))
	assert.LessOrEqual(t, b(10), 2*time.Second)

	b = ExponentialBackoff(200*time.Millisecond, 2.0, 1*time.Second)
	wants := []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, 1 * time.Second}
	for i, w := range wants {
		assert.Equal(t, w, b(i+1), "attempt %d", i+1)
	}
}

func TestRetryAfter(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, time.Second, retryAfter(h, time.Second))
	h.Set("Retry-After", "3")
	assert.Equal(t, 3*time.Second, retryAfter(h, time.Second))
	h.Set("Retry-After", "3600")
	assert.Equal(t, time.Second, retryAfter(h, time.Second))
}
