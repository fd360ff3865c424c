package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxvaer/rschunter/internal/config"
	"github.com/maxvaer/rschunter/internal/output"
)

// stubRun replaces the runner for one test and captures the options it
// was called with.
func stubRun(t *testing.T, stats output.Stats, err error) *config.Options {
	t.Helper()
	var got config.Options
	orig := run
	run = func(ctx context.Context, opts *config.Options) (output.Stats, error) {
		got = *opts
		return stats, err
	}
	t.Cleanup(func() { run = orig })
	return &got
}

func execute(t *testing.T, args ...string) (int, string) {
	t.Helper()
	c := newRootCmd()
	var stderr bytes.Buffer
	c.cobra.SetErr(&stderr)
	c.cobra.SetOut(&stderr)
	return c.execute(context.Background(), args), stderr.String()
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name  string
		stats output.Stats
		err   error
		want  int
	}{
		{"clean", output.Stats{Total: 2, NotVulnerable: 2}, nil, ExitClean},
		{"errors only", output.Stats{Total: 1, Errors: 1}, nil, ExitClean},
		{"vulnerable", output.Stats{Total: 2, Vulnerable: 1, NotVulnerable: 1}, nil, ExitVulnerable},
		{"no targets", output.Stats{}, config.ErrNoTargets, ExitUserError},
		{"runner failure", output.Stats{}, errors.New("opening hosts file: boom"), ExitUserError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubRun(t, tt.stats, tt.err)
			code, _ := execute(t, "-u", "example.com")
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestMissingTargetIsUserError(t *testing.T) {
	stubRun(t, output.Stats{}, nil)
	code, stderr := execute(t)
	assert.Equal(t, ExitUserError, code)
	assert.Contains(t, stderr, "no hosts to scan")
}

func TestDefaults(t *testing.T) {
	got := stubRun(t, output.Stats{}, nil)
	code, _ := execute(t, "-u", "example.com")
	require.Equal(t, ExitClean, code)

	assert.Equal(t, "example.com", got.URL)
	assert.Equal(t, config.DefaultThreads, got.Threads)
	assert.Equal(t, config.DefaultTimeout, got.Timeout)
	assert.True(t, got.Insecure)
	assert.True(t, got.FollowRedirects)
	assert.Equal(t, config.DefaultMaxRedirects, got.MaxRedirects)
	assert.Equal(t, config.DefaultWAFBypassSizeKB, got.WAFBypassSizeKB)
	assert.Equal(t, "json", got.OutputFormat)
	assert.Equal(t, config.ModeRCE, got.Mode())
}

func TestWAFBypassTimeout(t *testing.T) {
	got := stubRun(t, output.Stats{}, nil)
	_, _ = execute(t, "-u", "example.com", "--waf-bypass")
	assert.Equal(t, config.DefaultWAFBypassTimeout, got.Timeout)

	got = stubRun(t, output.Stats{}, nil)
	_, _ = execute(t, "-u", "example.com", "--waf-bypass", "--timeout", "10s")
	assert.Equal(t, config.DefaultWAFBypassTimeout, got.Timeout, "the default value is doubled even when typed")

	got = stubRun(t, output.Stats{}, nil)
	_, _ = execute(t, "-u", "example.com", "--waf-bypass", "--timeout", "15s")
	assert.Equal(t, 15*time.Second, got.Timeout, "any other timeout is kept")

	got = stubRun(t, output.Stats{}, nil)
	_, _ = execute(t, "-u", "example.com", "--timeout", "5s")
	assert.Equal(t, 5*time.Second, got.Timeout)
}

func TestHeaders(t *testing.T) {
	got := stubRun(t, output.Stats{}, nil)
	code, _ := execute(t, "-u", "example.com",
		"-H", "Accept: text/html, application/json",
		"-H", "X-Test:1",
		"-H", "x-test: 2")
	require.Equal(t, ExitClean, code)
	assert.Equal(t, []config.Header{
		{Key: "Accept", Value: "text/html, application/json"},
		{Key: "X-Test", Value: "2"},
	}, got.Headers)

	stubRun(t, output.Stats{}, nil)
	code, stderr := execute(t, "-u", "example.com", "-H", "broken")
	assert.Equal(t, ExitUserError, code)
	assert.Contains(t, stderr, "invalid header format")
}

func TestMutuallyExclusiveFlags(t *testing.T) {
	for _, args := range [][]string{
		{"--safe-check", "--vercel-waf-bypass"},
		{"--safe-check", "--waf-bypass"},
		{"-q", "-v"},
		{"--format", "xml"},
		{"-t", "0"},
	} {
		stubRun(t, output.Stats{}, nil)
		code, _ := execute(t, append([]string{"-u", "example.com"}, args...)...)
		assert.Equal(t, ExitUserError, code, "%v", args)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rschunter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threads: 40\ntimeout: 30s\nwaf_bypass: true\nheaders:\n  Cookie: a=b\n"), 0o644))

	got := stubRun(t, output.Stats{}, nil)
	code, _ := execute(t, "-u", "example.com", "--config", path, "-t", "5")
	require.Equal(t, ExitClean, code)

	assert.Equal(t, 5, got.Threads, "flag wins over file")
	assert.Equal(t, 30*time.Second, got.Timeout, "file timeout is not replaced by the bypass default")
	assert.True(t, got.WAFBypass)
	assert.Equal(t, []config.Header{{Key: "Cookie", Value: "a=b"}}, got.Headers)
}

func TestHelpListsGroups(t *testing.T) {
	stubRun(t, output.Stats{}, nil)
	code, out := execute(t, "--help")
	assert.Equal(t, ExitClean, code)
	for _, g := range helpGroups {
		assert.Contains(t, out, g.title+":")
	}
	assert.Contains(t, out, "--waf-bypass-size int")
	assert.Contains(t, out, "(default 128)")
}
