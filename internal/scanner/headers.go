package scanner

import (
	"net/http"
	"strings"

	"github.com/maxvaer/rschunter/internal/config"
)

// DefaultUserAgent is sent with every probe unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/60.0.3112.113 Safari/537.36 Assetnote/1.0.0"

// ProbeHeaders is an ordered header list. Lookups ignore key case.
type ProbeHeaders []config.Header

// DefaultProbeHeaders returns the headers that route a POST to the server
// action handler.
func DefaultProbeHeaders(contentType string) ProbeHeaders {
	return ProbeHeaders{
		{Key: "User-Agent", Value: DefaultUserAgent},
		{Key: "Next-Action", Value: "x"},
		{Key: "X-Nextjs-Request-Id", Value: "b5dce965"},
		{Key: "Content-Type", Value: contentType},
		{Key: "X-Nextjs-Html-Request-Id", Value: "SSTMXm7OJ_g0Ncx6jpQt9"},
	}
}

// Set replaces the value of a header already present, keeping its
// position, or appends a new one.
func (h *ProbeHeaders) Set(key, value string) {
	for i := range *h {
		if strings.EqualFold((*h)[i].Key, key) {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, config.Header{Key: key, Value: value})
}

// Overlay applies custom headers on top of h in order.
func (h *ProbeHeaders) Overlay(custom []config.Header) {
	for _, c := range custom {
		h.Set(c.Key, c.Value)
	}
}

// Get returns the value for key, or "" when absent.
func (h ProbeHeaders) Get(key string) string {
	for _, e := range h {
		if strings.EqualFold(e.Key, key) {
			return e.Value
		}
	}
	return ""
}

// apply copies the headers onto req. A custom Host header becomes req.Host.
func (h ProbeHeaders) apply(req *http.Request) {
	for _, e := range h {
		if strings.EqualFold(e.Key, "Host") {
			req.Host = e.Value
			continue
		}
		if strings.EqualFold(e.Key, "Content-Length") {
			continue
		}
		req.Header.Set(e.Key, e.Value)
	}
}
