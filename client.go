package rdapclient

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultDNSBootstrapURL  = "https://data.iana.org/rdap/dns.json"
	DefaultIPv4BootstrapURL = "https://data.iana.org/rdap/ipv4.json"
	DefaultIPv6BootstrapURL = "https://data.iana.org/rdap/ipv6.json"
)

// Doer is the minimal http.Client interface we depend on (handy for tests/mocks).
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is a concurrency-safe RDAP client. It discovers the authoritative
// service for a domain or address from the IANA bootstrap registries, which
// it fetches lazily, once, on first use. Address lookups are cached per
// service by the network range the answer covers.
type Client struct {
	// HTTP / defaults
	hc          Doer
	ua          string
	baseTimeout time.Duration
	headerExtra http.Header

	// sources
	dnsBootstrapURL  string
	ipv4BootstrapURL string
	ipv6BootstrapURL string

	// registries, built on first use
	domains   memo[*domainTable]
	addresses memo[*addressTable]

	// behavior
	maxRetries int
	backoff    Backoff

	// observability
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tel            *telemetry
}

// New returns a ready Client with good defaults. Failed fetches are not
// retried unless WithMaxRetries is given.
func New(opts ...Option) *Client {
	c := &Client{
		hc:               defaultHTTPClient(),
		ua:               "addrdap/0.1 (+https://github.com/datum-labs/addrdap)",
		baseTimeout:      10 * time.Second,
		headerExtra:      make(http.Header),
		dnsBootstrapURL:  DefaultDNSBootstrapURL,
		ipv4BootstrapURL: DefaultIPv4BootstrapURL,
		ipv6BootstrapURL: DefaultIPv6BootstrapURL,
		backoff:          ExponentialBackoff(200*time.Millisecond, 2.0, 2*time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tel = newTelemetry(c.logger, c.tracerProvider, c.meterProvider)
	return c
}

func defaultHTTPClient() *http.Client { return &http.Client{Timeout: 15 * time.Second} }
