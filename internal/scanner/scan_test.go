package scanner

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxvaer/rschunter/internal/config"
)

const vulnerableRedirect = "/login?a=11111;push"

// testTarget is a configurable Next.js stand-in. Paths listed in vulnerable
// answer POSTs with the PoC redirect; redirects maps a path to the Location
// returned for HEAD requests.
type testTarget struct {
	vulnerable map[string]bool
	redirects  map[string]string
	abortPost  map[string]bool
	heads      atomic.Int32
	posts      atomic.Int32
	lastHeader http.Header
}

func (tt *testTarget) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodHead:
		tt.heads.Add(1)
		if loc, ok := tt.redirects[r.URL.Path]; ok {
			w.Header().Set("Location", loc)
			w.WriteHeader(http.StatusTemporaryRedirect)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodPost:
		tt.posts.Add(1)
		tt.lastHeader = r.Header.Clone()
		if tt.abortPost[r.URL.Path] {
			panic(http.ErrAbortHandler)
		}
		if tt.vulnerable[r.URL.Path] {
			w.Header().Set("X-Action-Redirect", vulnerableRedirect)
			w.WriteHeader(http.StatusSeeOther)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>ok</html>"))
	}
}

func newTestScanner(t *testing.T, opts *config.Options) *Scanner {
	t.Helper()
	s, err := New(opts, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2025, 12, 5, 10, 0, 0, 0, time.FixedZone("CET", 3600)) }
	return s
}

func TestScanRootVulnerable(t *testing.T) {
	target := &testTarget{vulnerable: map[string]bool{"/": true}}
	srv := httptest.NewServer(target)
	defer srv.Close()

	res := newTestScanner(t, testOptions()).Scan(context.Background(), srv.URL)

	assert.True(t, res.IsVulnerable())
	assert.Empty(t, res.Error)
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, srv.URL+"/", res.FinalURL)
	assert.False(t, res.Redirected())
	assert.Equal(t, int32(0), target.heads.Load(), "a root finding must not trigger redirect resolution")
	assert.True(t, strings.HasPrefix(res.Request, "POST / HTTP/1.1\r\n"))
	assert.Contains(t, res.Response, "X-Action-Redirect: "+vulnerableRedirect)
	assert.Equal(t, time.UTC, res.Timestamp.Location())
}

func TestScanRootTransportFailure(t *testing.T) {
	target := &testTarget{abortPost: map[string]bool{"/": true}}
	srv := httptest.NewServer(target)
	defer srv.Close()

	res := newTestScanner(t, testOptions()).Scan(context.Background(), srv.URL)

	assert.True(t, res.Failed())
	assert.Contains(t, res.Error, "Connection Error: ")
	assert.Equal(t, 0, res.StatusCode)
	assert.Empty(t, res.FinalURL)
	assert.Empty(t, res.Response)
	assert.NotEmpty(t, res.Request)
	assert.Equal(t, int32(0), target.heads.Load(), "no redirect resolution after a failed root probe")
}

func TestScanUnreachableHost(t *testing.T) {
	res := newTestScanner(t, testOptions()).Scan(context.Background(), closedURL(t))
	assert.Equal(t, Unknown, res.Vulnerable)
	assert.Contains(t, res.Error, "Connection Error: ")
}

func TestScanVulnerableViaRedirect(t *testing.T) {
	target := &testTarget{
		vulnerable: map[string]bool{"/en": true},
		redirects:  map[string]string{"/": "/en"},
	}
	srv := httptest.NewServer(target)
	defer srv.Close()

	res := newTestScanner(t, testOptions()).Scan(context.Background(), srv.URL)

	assert.True(t, res.IsVulnerable())
	assert.Equal(t, srv.URL+"/en", res.FinalURL)
	assert.True(t, res.Redirected())
	assert.True(t, strings.HasPrefix(res.Request, "POST /en HTTP/1.1\r\n"))
	assert.Equal(t, int32(2), target.posts.Load())
}

func TestScanRedirectProbeFailureKeepsRoot(t *testing.T) {
	target := &testTarget{
		redirects: map[string]string{"/": "/en"},
		abortPost: map[string]bool{"/en": true},
	}
	srv := httptest.NewServer(target)
	defer srv.Close()

	res := newTestScanner(t, testOptions()).Scan(context.Background(), srv.URL)

	assert.Equal(t, NotVulnerable, res.Vulnerable)
	assert.Empty(t, res.Error)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, srv.URL+"/", res.FinalURL)
	assert.Contains(t, res.Response, "<html>ok</html>")
}

func TestScanCleanRedirectTarget(t *testing.T) {
	target := &testTarget{redirects: map[string]string{"/": "/en"}}
	srv := httptest.NewServer(target)
	defer srv.Close()

	res := newTestScanner(t, testOptions()).Scan(context.Background(), srv.URL)

	assert.Equal(t, NotVulnerable, res.Vulnerable)
	assert.Equal(t, srv.URL+"/en", res.FinalURL)
	assert.Equal(t, int32(2), target.posts.Load())
}

func TestScanNoRedirectProbesOnce(t *testing.T) {
	target := &testTarget{}
	srv := httptest.NewServer(target)
	defer srv.Close()

	res := newTestScanner(t, testOptions()).Scan(context.Background(), srv.URL)

	assert.Equal(t, NotVulnerable, res.Vulnerable)
	assert.Equal(t, int32(1), target.posts.Load(), "redirect target equal to root is not probed twice")
	assert.Equal(t, int32(1), target.heads.Load())
}

func TestScanFollowRedirectsDisabled(t *testing.T) {
	target := &testTarget{
		vulnerable: map[string]bool{"/en": true},
		redirects:  map[string]string{"/": "/en"},
	}
	srv := httptest.NewServer(target)
	defer srv.Close()

	opts := testOptions()
	opts.FollowRedirects = false
	res := newTestScanner(t, opts).Scan(context.Background(), srv.URL)

	assert.Equal(t, NotVulnerable, res.Vulnerable)
	assert.Equal(t, int32(0), target.heads.Load())
}

func TestScanInvalidHost(t *testing.T) {
	for _, host := range []string{"", "   ", "\t\n"} {
		res := newTestScanner(t, testOptions()).Scan(context.Background(), host)
		assert.True(t, res.Failed(), "host %q", host)
		assert.Equal(t, ErrInvalidHost.Error(), res.Error)
		assert.Empty(t, res.Request)
		assert.False(t, res.Timestamp.IsZero())
	}
}

func TestScanCustomHeadersSent(t *testing.T) {
	target := &testTarget{}
	srv := httptest.NewServer(target)
	defer srv.Close()

	opts := testOptions()
	opts.Headers = []config.Header{{Key: "X-Bug-Bounty", Value: "me"}, {Key: "next-action", Value: "y"}}
	res := newTestScanner(t, opts).Scan(context.Background(), srv.URL)

	require.NotNil(t, target.lastHeader)
	assert.Equal(t, "me", target.lastHeader.Get("X-Bug-Bounty"))
	assert.Equal(t, "y", target.lastHeader.Get("Next-Action"))
	assert.Contains(t, res.Request, "X-Bug-Bounty: me\r\n")
}

func TestScanSafeCheckMode(t *testing.T) {
	tests := []struct {
		name   string
		server string
		want   Verdict
	}{
		{"unprotected", "", Vulnerable},
		{"vercel", "Vercel", NotVulnerable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					return
				}
				b, _ := io.ReadAll(r.Body)
				body = string(b)
				if tt.server != "" {
					w.Header().Set("Server", tt.server)
				}
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("0:{\"a\":\"$@1\"}\n1:E{\"digest\":\"2971658870\"}"))
			}))
			defer srv.Close()

			opts := testOptions()
			opts.SafeCheck = true
			res := newTestScanner(t, opts).Scan(context.Background(), srv.URL)

			assert.Equal(t, tt.want, res.Vulnerable)
			assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
			assert.Contains(t, body, `["$1:aa:aa"]`)
		})
	}
}
