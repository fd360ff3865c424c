package scanner

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maxvaer/rschunter/internal/config"
)

func TestProbeHeadersOverlay(t *testing.T) {
	h := DefaultProbeHeaders("multipart/form-data; boundary=x")
	h.Overlay([]config.Header{
		{Key: "next-action", Value: "abc123"},
		{Key: "Authorization", Value: "Bearer t"},
		{Key: "Cookie", Value: "a=b"},
	})

	keys := make([]string, len(h))
	for i, e := range h {
		keys[i] = e.Key
	}
	assert.Equal(t, []string{
		"User-Agent", "Next-Action", "X-Nextjs-Request-Id", "Content-Type",
		"X-Nextjs-Html-Request-Id", "Authorization", "Cookie",
	}, keys)
	assert.Equal(t, "abc123", h.Get("Next-Action"))
	assert.Equal(t, "multipart/form-data; boundary=x", h.Get("content-type"))
	assert.Equal(t, "", h.Get("X-Missing"))
}

func TestProbeHeadersApply(t *testing.T) {
	h := DefaultProbeHeaders("text/plain")
	h.Set("Host", "internal.test")
	h.Set("Content-Length", "1")

	req, _ := http.NewRequest(http.MethodPost, "http://example.com/", nil)
	h.apply(req)

	assert.Equal(t, "internal.test", req.Host)
	assert.Equal(t, "x", req.Header.Get("Next-Action"))
	assert.Empty(t, req.Header.Get("Host"))
	assert.Empty(t, req.Header.Get("Content-Length"))
}
