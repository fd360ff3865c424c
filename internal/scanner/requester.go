package scanner

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/maxvaer/rschunter/internal/config"
)

// maxBodySize bounds how much of a response body is kept for detection.
const maxBodySize = 4 << 20

// Response holds the parts of an HTTP response the detectors and traces
// need. The body has already been read and the connection released.
type Response struct {
	Proto      string
	Status     string // e.g. "500 Internal Server Error"
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// Requester sends probes. Redirects are never followed by the client;
// ResolveRedirects walks them explicitly.
type Requester struct {
	client       *http.Client
	throttler    *Throttler
	userAgent    string
	maxRedirects int
	logger       *slog.Logger
}

// NewRequester builds the shared HTTP client for a run.
func NewRequester(opts *config.Options, throttler *Throttler, logger *slog.Logger) (*Requester, error) {
	dialer := &net.Dialer{
		Timeout:   opts.Timeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: opts.Insecure},
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: opts.Timeout,
		MaxIdleConns:        opts.Threads * 2,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}

	if opts.Proxy != "" {
		if err := configureProxy(transport, dialer, opts.Proxy); err != nil {
			return nil, err
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	ua := DefaultUserAgent
	for _, h := range opts.Headers {
		if strings.EqualFold(h.Key, "User-Agent") {
			ua = h.Value
		}
	}

	return &Requester{
		client:       client,
		throttler:    throttler,
		userAgent:    ua,
		maxRedirects: opts.MaxRedirects,
		logger:       orDefault(logger),
	}, nil
}

// configureProxy routes the transport through an HTTP(S) or SOCKS proxy.
func configureProxy(transport *http.Transport, dialer *net.Dialer, raw string) error {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: invalid proxy URL %q: %v", config.ErrInvalidConfig, raw, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		d, err := proxy.FromURL(u, dialer)
		if err != nil {
			return fmt.Errorf("%w: proxy %q: %v", config.ErrInvalidConfig, raw, err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return fmt.Errorf("%w: proxy %q does not support dial contexts", config.ErrInvalidConfig, raw)
		}
		transport.DialContext = cd.DialContext
	default:
		return fmt.Errorf("%w: unsupported proxy scheme %q, supported: http, https, socks5, socks5h", config.ErrInvalidConfig, u.Scheme)
	}
	return nil
}

// Send POSTs body to targetURL with the probe headers. Failures are
// returned as *ProbeError.
func (r *Requester) Send(ctx context.Context, targetURL string, headers ProbeHeaders, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return nil, &ProbeError{Kind: KindRequest, Err: err}
	}
	headers.apply(req)

	resp, err := r.do(ctx, req)
	if err != nil {
		return nil, classify(err)
	}
	r.logger.Debug("probe sent",
		slog.String("url", targetURL),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", resp.Duration))
	return resp, nil
}

// head issues a HEAD request used during redirect resolution.
func (r *Requester) head(ctx context.Context, targetURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, targetURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)
	return r.do(ctx, req)
}

func (r *Requester) do(ctx context.Context, req *http.Request) (*Response, error) {
	if err := r.throttler.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body from %s: %w", req.URL, err)
	}
	r.throttler.RecordStatus(resp.StatusCode)

	return &Response{
		Proto:      resp.Proto,
		Status:     resp.Status,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}
