package source

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

// Option customises the HTTP source.
type Option func(*HTTP)

// WithTimeout overrides the whole-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(h *HTTP) {
		if timeout > 0 {
			h.timeout = timeout
		}
	}
}

// WithMaxBytes caps the response body size.
func WithMaxBytes(n int64) Option {
	return func(h *HTTP) {
		if n > 0 {
			h.maxBytes = n
		}
	}
}

// WithHTTP2 toggles HTTP/2 negotiation on the transport.
func WithHTTP2(enable bool) Option {
	return func(h *HTTP) {
		h.enableHTTP2 = enable
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(h *HTTP) {
		h.userAgent = ua
	}
}

// WithClient replaces the HTTP client. The timeout option still applies via
// the request context.
func WithClient(c *http.Client) Option {
	return func(h *HTTP) {
		h.client = c
	}
}

// HTTP downloads a URL with a single GET. Failed requests are not retried.
type HTTP struct {
	url         string
	timeout     time.Duration
	maxBytes    int64
	enableHTTP2 bool
	userAgent   string
	client      *http.Client
}

// NewHTTP builds an HTTP source for url.
func NewHTTP(url string, opts ...Option) (*HTTP, error) {
	h := &HTTP{
		url:         url,
		timeout:     DefaultTimeout,
		maxBytes:    DefaultMaxBytes,
		enableHTTP2: true,
		userAgent:   "glyphpack",
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		transport, err := h.buildTransport()
		if err != nil {
			return nil, fmt.Errorf("build transport: %w", err)
		}
		h.client = &http.Client{Transport: transport}
	}
	return h, nil
}

func (h *HTTP) buildTransport() (http.RoundTripper, error) {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		transport = &http.Transport{}
	} else {
		transport = transport.Clone()
	}
	transport.Proxy = http.ProxyFromEnvironment
	if h.enableHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			return nil, err
		}
	} else {
		transport.ForceAttemptHTTP2 = false
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}
	return transport, nil
}

func (h *HTTP) Ref() string { return safeRef(h.url) }

// Fetch performs the GET. Non-2xx responses and bodies larger than the
// configured limit are errors.
func (h *HTTP) Fetch(ctx context.Context) ([]byte, error) {
	ref := h.Ref()
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, &FetchError{Ref: ref, Err: err}
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &FetchError{Ref: ref, Err: scrub(err, h.url, ref)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{Ref: ref, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	if resp.ContentLength > h.maxBytes {
		return nil, &FetchError{Ref: ref, Err: fmt.Errorf("response of %d bytes exceeds limit of %d", resp.ContentLength, h.maxBytes)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, &FetchError{Ref: ref, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > h.maxBytes {
		return nil, &FetchError{Ref: ref, Err: fmt.Errorf("response exceeds limit of %d bytes", h.maxBytes)}
	}
	return data, nil
}

// scrub replaces the raw URL inside transport errors with its redacted form.
func scrub(err error, raw, safe string) error {
	if raw == safe {
		return err
	}
	return &scrubbedError{msg: strings.ReplaceAll(err.Error(), raw, safe), err: err}
}

type scrubbedError struct {
	msg string
	err error
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }
