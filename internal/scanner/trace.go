package scanner

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"
)

// traceBodyLimit is the number of characters of a response body kept in
// ScanResult.Response.
const traceBodyLimit = 2000

// requestTrace reconstructs the probe as it goes on the wire.
func requestTrace(targetURL string, headers ProbeHeaders, body []byte) string {
	path, host := "/", ""
	if u, err := url.Parse(targetURL); err == nil {
		path = u.RequestURI()
		host = u.Host
	}
	if h := headers.Get("Host"); h != "" {
		host = h
	}

	var b strings.Builder
	fmt.Fprintf(&b, "POST %s HTTP/1.1\r\n", path)
	fmt.Fprintf(&b, "Host: %s\r\n", host)
	for _, h := range headers {
		if strings.EqualFold(h.Key, "Host") || strings.EqualFold(h.Key, "Content-Length") {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\r\n", h.Key, h.Value)
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(body))
	b.Write(body)
	return b.String()
}

// responseTrace renders the status line, headers sorted by name and the
// body truncated to traceBodyLimit characters.
func responseTrace(resp *Response) string {
	var b strings.Builder
	proto := resp.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	fmt.Fprintf(&b, "%s %s\r\n", proto, resp.Status)
	for _, k := range slices.Sorted(maps.Keys(resp.Header)) {
		for _, v := range resp.Header[k] {
			fmt.Fprintf(&b, "%s: %s\r\n", k, v)
		}
	}
	b.WriteString("\r\n")
	b.WriteString(truncate(resp.Body, traceBodyLimit))
	return b.String()
}

func truncate(body []byte, limit int) string {
	if utf8.RuneCount(body) <= limit {
		return string(body)
	}
	n := 0
	for i := range string(body) {
		if n == limit {
			return string(body[:i])
		}
		n++
	}
	return string(body)
}
