//go:build !windows

package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxvaer/rschunter/internal/config"
	"github.com/maxvaer/rschunter/internal/scanner"
)

func vulnerableResult() *scanner.ScanResult {
	return &scanner.ScanResult{
		Host:       "a.test",
		Vulnerable: scanner.Vulnerable,
		StatusCode: 303,
		FinalURL:   "https://a.test/en",
		Timestamp:  time.Date(2025, 12, 5, 9, 0, 0, 0, time.UTC),
	}
}

func TestRunExpandsPlaceholders(t *testing.T) {
	var out bytes.Buffer
	NewRunner("echo {host} {url} {status}", &out, nil).Run(context.Background(), vulnerableResult())
	assert.Equal(t, "a.test https://a.test/en 303\n", out.String())
}

func TestRunSendsJSONOnStdin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hook.json")
	NewRunner("cat > "+path, nil, nil).Run(context.Background(), vulnerableResult())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "a.test", got["host"])
	assert.Equal(t, "https://a.test/en", got["url"])
	assert.Equal(t, float64(303), got["status_code"])
	assert.Equal(t, true, got["vulnerable"])
}

func TestRunFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	NewRunner("echo oops >&2; exit 3", nil, logger).Run(context.Background(), vulnerableResult())

	assert.Contains(t, logs.String(), "hook failed")
	assert.Contains(t, logs.String(), "host=a.test")
	assert.Contains(t, logs.String(), "stderr=oops")
}

func TestRunTimeout(t *testing.T) {
	var logs bytes.Buffer
	r := NewRunner("sleep 5", nil, slog.New(slog.NewTextHandler(&logs, nil)))
	r.timeout = 50 * time.Millisecond

	start := time.Now()
	r.Run(context.Background(), vulnerableResult())
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.Contains(t, logs.String(), "hook failed")
}

func TestURLFallsBackToHost(t *testing.T) {
	var out bytes.Buffer
	res := &scanner.ScanResult{Host: "b.test"}
	NewRunner("echo notify {url}", &out, nil).Run(context.Background(), res)
	assert.Equal(t, "notify b.test\n", out.String())
}

func TestExpandUsesQuotedVariables(t *testing.T) {
	r := NewRunner("notify {host} {url} {status}", nil, nil)
	assert.Equal(t, `notify "$RSC_HOST" "$RSC_URL" "$RSC_STATUS"`, r.expand())
}

func TestRunExportsEnvironment(t *testing.T) {
	var out bytes.Buffer
	NewRunner(`echo "$RSC_HOST|$RSC_URL|$RSC_STATUS"`, &out, nil).Run(context.Background(), vulnerableResult())
	assert.Equal(t, "a.test|https://a.test/en|303\n", out.String())
}

func TestRedirectURLIsNotExecuted(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "pwned")
	res := vulnerableResult()
	res.FinalURL = "https://a.test/x;touch${IFS}" + marker + ";$(touch " + marker + ")`touch " + marker + "`"

	var out bytes.Buffer
	NewRunner("echo found {url}", &out, nil).Run(context.Background(), res)

	assert.NoFileExists(t, marker)
	assert.Equal(t, "found "+res.FinalURL+"\n", out.String())
}

func TestHostileRedirectTargetIsNotExecuted(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "pwned")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/":
			w.Header().Set("Location", "/x;touch${IFS}"+marker+";")
			w.WriteHeader(http.StatusFound)
		case r.Method == http.MethodPost && r.URL.Path != "/":
			w.Header().Set("X-Action-Redirect", "/login?a=11111")
			w.WriteHeader(http.StatusSeeOther)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	opts := config.Default()
	opts.Timeout = 2 * time.Second
	s, err := scanner.New(&opts, nil)
	require.NoError(t, err)
	res := s.Scan(context.Background(), srv.URL)
	require.True(t, res.IsVulnerable())
	require.Contains(t, res.FinalURL, ";touch")

	var out bytes.Buffer
	NewRunner("echo found {url}", &out, nil).Run(context.Background(), &res)

	assert.NoFileExists(t, marker)
	assert.Equal(t, "found "+res.FinalURL+"\n", out.String())
}
