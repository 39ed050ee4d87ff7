package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ligustah/fetchd/pkg/fetch"
)

// DefaultUserAgent is sent when a request carries no User-Agent header.
const DefaultUserAgent = "fetchd/1.0"

// ErrHeaderTimeout is returned when response headers do not arrive in time.
var ErrHeaderTimeout = errors.New("http: timed out waiting for response headers")

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 100
	MaxIdleConnsPerHost int

	// Timeout bounds sending the request and receiving response headers.
	// Reading the body is not limited. A request's own timeout overrides it.
	// Default: 30s
	Timeout time.Duration

	// UserAgent is sent unless the request sets its own.
	// Default: DefaultUserAgent
	UserAgent string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 100,
		Timeout:             30 * time.Second,
		UserAgent:           DefaultUserAgent,
	}
}

// Client is a pooled HTTP client shared by all downloads. It implements
// fetch.Sender.
type Client struct {
	client *http.Client
	opts   Options
}

var _ fetch.Sender = (*Client)(nil)

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = DefaultOptions().MaxIdleConnsPerHost
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true, // store the bytes exactly as served
	}

	return &Client{
		// No client-wide Timeout: it would also cut off long body reads.
		client: &http.Client{Transport: transport},
		opts:   opts,
	}
}

// Send issues the GET request described by spec. The timeout covers only the
// time until response headers are received; the returned body may be read for
// as long as ctx allows. Closing the body releases the request's resources.
func (c *Client) Send(ctx context.Context, spec fetch.RequestSpec) (*http.Response, error) {
	timeout := c.opts.Timeout
	if spec.Timeout > 0 {
		timeout = spec.Timeout
	}

	ctx, cancel := context.WithCancelCause(ctx)
	req, err := spec.Build(ctx)
	if err != nil {
		cancel(nil)
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" && c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, func() { cancel(ErrHeaderTimeout) })
	}

	resp, err := c.client.Do(req)
	if timer != nil && !timer.Stop() {
		// The timer fired: whatever Do returned raced with the cancellation.
		if err == nil {
			resp.Body.Close()
		}
		cancel(nil)
		return nil, fmt.Errorf("%w after %s", ErrHeaderTimeout, timeout)
	}
	if err != nil {
		cancel(nil)
		return nil, err
	}

	resp.Body = &body{ReadCloser: resp.Body, cancel: func() { cancel(nil) }}
	return resp, nil
}

// body releases the request context once the caller is done reading.
type body struct {
	io.ReadCloser
	cancel func()
}

func (b *body) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
