package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpguts"
)

// RequestSpec describes a single outbound download request.
type RequestSpec struct {
	URL     *url.URL
	Header  http.Header
	Timeout time.Duration // zero means the sender's default
}

// NewRequestSpec validates rawURL and headers. It performs no I/O.
func NewRequestSpec(rawURL string, headers map[string]string, timeout time.Duration) (RequestSpec, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return RequestSpec{}, newError(KindValidation, "parse source url", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return RequestSpec{}, newError(KindValidation, fmt.Sprintf("source url %q is not absolute", rawURL), nil)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return RequestSpec{}, newError(KindValidation, fmt.Sprintf("source url %q", rawURL), ErrUnsupportedScheme)
	}
	if timeout < 0 {
		return RequestSpec{}, newError(KindValidation, "timeout must not be negative", nil)
	}

	h := make(http.Header, len(headers))
	for name, value := range headers {
		if !httpguts.ValidHeaderFieldName(name) {
			return RequestSpec{}, newError(KindValidation, fmt.Sprintf("header name %q", name), ErrHeaderSyntax)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return RequestSpec{}, newError(KindValidation, fmt.Sprintf("value of header %q", name), ErrHeaderSyntax)
		}
		h.Set(name, value)
	}

	return RequestSpec{URL: u, Header: h, Timeout: timeout}, nil
}

// Build creates the GET request for s.
func (s RequestSpec) Build(ctx context.Context) (*http.Request, error) {
	if s.URL == nil {
		return nil, newError(KindValidation, "request has no url", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL.String(), http.NoBody)
	if err != nil {
		return nil, newError(KindValidation, "create request", err)
	}
	for name, values := range s.Header {
		req.Header[name] = append([]string(nil), values...)
	}
	return req, nil
}
