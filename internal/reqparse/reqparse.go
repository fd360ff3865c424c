package reqparse

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/maxvaer/rschunter/internal/config"
)

// ErrMissingHost is returned when a request has no Host header and no
// absolute URL in its request line.
var ErrMissingHost = errors.New("request file missing Host header")

// skipped headers are either rebuilt for every probe or would corrupt the
// multipart payload.
var skipped = map[string]bool{
	"host":              true,
	"content-length":    true,
	"content-type":      true,
	"accept-encoding":   true,
	"connection":        true,
	"transfer-encoding": true,
}

// ParsedRequest holds the data extracted from a raw HTTP request file.
type ParsedRequest struct {
	Method  string
	URL     string          // scheme://host of the target
	Headers []config.Header // in file order, minus skipped headers
}

// ParseFile reads a raw HTTP request (e.g. a Burp Suite export) and
// extracts the target and the headers worth replaying, cookies included.
func ParseFile(path string) (*ParsedRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening request file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB lines for large cookies

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading request file: %w", err)
		}
		return nil, fmt.Errorf("request file is empty")
	}
	requestLine := strings.TrimSpace(sc.Text())
	parts := strings.Fields(requestLine)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid request line: %q", requestLine)
	}
	req := &ParsedRequest{Method: parts[0]}
	target := parts[1]

	var host string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if strings.EqualFold(key, "Host") {
			host = value
		}
		if key == "" || skipped[strings.ToLower(key)] {
			continue
		}
		req.Headers = append(req.Headers, config.Header{Key: key, Value: value})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading request file: %w", err)
	}

	// Some proxies log the absolute URL in the request line.
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("invalid URL in request line: %w", err)
		}
		req.URL = u.Scheme + "://" + u.Host
		return req, nil
	}

	if host == "" {
		return nil, ErrMissingHost
	}
	// Exports rarely say whether TLS was used; only an explicit :80 means
	// plain http.
	scheme := "https"
	if strings.HasSuffix(host, ":80") {
		scheme = "http"
	}
	req.URL = scheme + "://" + host
	return req, nil
}
