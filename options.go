package rdapclient

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Option func(*Client)

func WithHTTPDoer(d Doer) Option           { return func(c *Client) { c.hc = d } }
func WithUserAgent(ua string) Option       { return func(c *Client) { c.ua = ua } }
func WithTimeout(d time.Duration) Option   { return func(c *Client) { c.baseTimeout = d } }
func WithDNSBootstrapURL(u string) Option  { return func(c *Client) { c.dnsBootstrapURL = u } }
func WithIPv4BootstrapURL(u string) Option { return func(c *Client) { c.ipv4BootstrapURL = u } }
func WithIPv6BootstrapURL(u string) Option { return func(c *Client) { c.ipv6BootstrapURL = u } }
func WithMaxRetries(n int) Option          { return func(c *Client) { c.maxRetries = n } }
func WithHeader(k, v string) Option        { return func(c *Client) { c.headerExtra.Add(k, v) } }

// WithBackoff sets the delay between retries; nil keeps the default.
func WithBackoff(b Backoff) Option {
	return func(c *Client) {
		if b != nil {
			c.backoff = b
		}
	}
}

// WithLogger sets the logger for debug records. By default nothing is logged.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

// WithTracerProvider overrides the global otel TracerProvider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracerProvider = tp }
}

// WithMeterProvider overrides the global otel MeterProvider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Client) { c.meterProvider = mp }
}
