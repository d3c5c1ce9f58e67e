// Package fetch provides bounded single-shot HTTP GET helpers built on
// the Colly collector. Every call carries its own timeout enforced by
// context cancellation, follows redirects, and reports the final URL so
// callers can resolve relative references against it. Non-2xx statuses
// are returned, not turned into errors; callers decide what they mean.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// ErrTimeout marks a fetch that was cancelled because its budget ran
// out, as opposed to DNS or transport failures.
var ErrTimeout = errors.New("fetch timed out")

// StatusError is returned by helpers that treat non-2xx responses as
// failures (e.g. downloading selected asset bytes).
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// Options carries per-request header overrides.
type Options struct {
	UserAgent string
	Accept    string
}

// Response is the raw result of a bounded GET.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	FinalURL   string
	Duration   time.Duration
}

// OK reports whether the status code is in the 2xx range.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Config controls defaults applied to every request.
type Config struct {
	UserAgent string
}

// Client issues bounded GETs through a shared base collector.
type Client struct {
	cfg  Config
	base *colly.Collector
}

// NewClient builds a Client with connection pooling shared across calls.
func NewClient(cfg Config) *Client {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	c.ParseHTTPErrorResponse = true
	c.WithTransport(newTransport())
	return &Client{cfg: cfg, base: c}
}

// Text GETs the URL and returns the raw response within the timeout.
func (c *Client) Text(ctx context.Context, rawURL string, timeout time.Duration, opts Options) (Response, error) {
	return c.do(ctx, rawURL, timeout, opts)
}

// JSON GETs the URL and decodes a 2xx body into out. Non-2xx responses
// are returned to the caller undecoded.
func (c *Client) JSON(ctx context.Context, rawURL string, timeout time.Duration, opts Options, out any) (Response, error) {
	if opts.Accept == "" {
		opts.Accept = "application/json"
	}
	resp, err := c.do(ctx, rawURL, timeout, opts)
	if err != nil {
		return resp, err
	}
	if resp.OK() && out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return resp, fmt.Errorf("decode json body: %w", err)
		}
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, rawURL string, timeout time.Duration, opts Options) (Response, error) {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		result   Response
		fetchErr error
	)
	start := time.Now()

	collector := c.base.Clone()
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	collector.ParseHTTPErrorResponse = true
	collector.SetRequestTimeout(timeout)
	if ua := c.userAgent(opts); ua != "" {
		collector.UserAgent = ua
	}

	collector.OnRequest(func(r *colly.Request) {
		if opts.Accept != "" {
			r.Headers.Set("Accept", opts.Accept)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		result = Response{
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			FinalURL:   r.Request.URL.String(),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			// Colly reports non-2xx as errors; surface them as responses.
			headers := http.Header{}
			if r.Headers != nil {
				headers = r.Headers.Clone()
			}
			finalURL := rawURL
			if r.Request != nil && r.Request.URL != nil {
				finalURL = r.Request.URL.String()
			}
			result = Response{
				StatusCode: r.StatusCode,
				Headers:    headers,
				Body:       append([]byte(nil), r.Body...),
				FinalURL:   finalURL,
				Duration:   time.Since(start),
			}
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Response{}, fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, rawURL)
		}
		return Response{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if result.StatusCode > 0 {
			return result, nil
		}
		if fetchErr != nil {
			return Response{}, classify(fetchErr, timeout, rawURL)
		}
		if err != nil {
			return Response{}, classify(err, timeout, rawURL)
		}
		return result, nil
	}
}

func (c *Client) userAgent(opts Options) string {
	if opts.UserAgent != "" {
		return opts.UserAgent
	}
	return c.cfg.UserAgent
}

func classify(err error, timeout time.Duration, rawURL string) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, rawURL)
	}
	return fmt.Errorf("fetch %s: %w", rawURL, err)
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
