package rdapclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	retry "github.com/avast/retry-go/v5"
	"go.opentelemetry.io/otel/attribute"
)

// maxBodyBytes caps how much of a response is read. The IANA bootstrap
// documents are well under 1 MiB.
const maxBodyBytes = 4 << 20

var errBodyTooLarge = errors.New("response body exceeds 4 MiB")

// getJSON GETs u and decodes the JSON body into v. Transient failures are
// retried up to c.maxRetries times; with the default of zero every error
// surfaces from the first attempt. Context errors are returned verbatim.
func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	ctx, span := c.tel.start(ctx, "rdap.fetch", attribute.String("url.full", u))

	attempts := uint(1)
	if c.maxRetries > 0 {
		attempts += uint(c.maxRetries)
	}
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(delayType(c.backoff)),
		retry.RetryIf(func(err error) bool { return ctx.Err() == nil && retryable(err) }),
		retry.OnRetry(func(n uint, err error) {
			c.tel.log.DebugContext(ctx, "rdap: retrying fetch", "url", u, "attempt", n+1, "err", err)
		}),
		retry.LastErrorOnly(true),
	).Do(func() error {
		return c.getOnce(ctx, u, v)
	})
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	end(span, err)
	return err
}

func (c *Client) getOnce(ctx context.Context, u string, v any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.baseTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return &TransportError{URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/rdap+json, application/json;q=0.8, */*;q=0.1")
	req.Header.Set("User-Agent", c.ua)
	copyHeaders(req.Header, c.headerExtra)

	add(ctx, c.tel.fetches, attribute.String("server.address", req.URL.Host))
	c.tel.log.DebugContext(ctx, "rdap: fetch", "url", u)

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &TransportError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &TransportError{URL: u, StatusCode: resp.StatusCode, Status: resp.Status, header: resp.Header}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &TransportError{URL: u, Err: err}
	}
	if len(body) > maxBodyBytes {
		return &TransportError{URL: u, StatusCode: resp.StatusCode, Status: resp.Status, Err: errBodyTooLarge}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &TransportError{URL: u, StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("decode json: %w", err)}
	}
	return nil
}

// retryable reports whether err is worth another attempt: a 429 or 5xx
// status, or a transient network failure.
func retryable(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	if te.Err == nil {
		switch te.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	return te.StatusCode == 0 && isRetryableNetErr(te.Err)
}

func isRetryableNetErr(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && (ne.Timeout() || temporary(ne)) {
		return true
	}
	msg := lower(err.Error())
	return containsAny(msg, "connection reset", "broken pipe", "unexpected eof", "no such host")
}
