package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/maxvaer/rschunter/internal/scanner"
)

// DefaultTimeout bounds a single hook invocation.
const DefaultTimeout = 30 * time.Second

// payload is the JSON document sent to the hook command via stdin.
type payload struct {
	Host       string          `json:"host"`
	URL        string          `json:"url"`
	StatusCode int             `json:"status_code"`
	Vulnerable scanner.Verdict `json:"vulnerable"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Runner executes a shell command for each vulnerable host.
type Runner struct {
	cmd     string
	timeout time.Duration
	out     io.Writer
	logger  *slog.Logger
}

// NewRunner creates a hook runner. cmd is the shell command to execute;
// its stdout is copied to out.
func NewRunner(cmd string, out io.Writer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cmd: cmd, timeout: DefaultTimeout, out: out, logger: logger}
}

// Run executes the hook command with the result as JSON on stdin. The
// values are exported as RSC_HOST, RSC_URL and RSC_STATUS; the
// placeholders {host}, {url} and {status} expand to references to those
// variables, so target-controlled text never becomes shell syntax.
// Failures are logged and never halt the scan.
func (r *Runner) Run(ctx context.Context, result *scanner.ScanResult) {
	data, err := json.Marshal(payload{
		Host:       result.Host,
		URL:        targetURL(result),
		StatusCode: result.StatusCode,
		Vulnerable: result.Vulnerable,
		Timestamp:  result.Timestamp,
	})
	if err != nil {
		r.logger.Error("hook payload", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	shell, args := shellCommand()
	cmd := exec.CommandContext(ctx, shell, append(args, r.expand())...)
	cmd.Env = append(os.Environ(),
		"RSC_HOST="+result.Host,
		"RSC_URL="+targetURL(result),
		"RSC_STATUS="+strconv.Itoa(result.StatusCode),
	)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	output, err := cmd.Output()
	if err != nil {
		r.logger.Warn("hook failed",
			slog.String("host", result.Host),
			slog.String("error", err.Error()),
			slog.String("stderr", strings.TrimSpace(stderr.String())))
		return
	}
	if len(output) > 0 && r.out != nil {
		r.out.Write(output)
	}
}

// expand rewrites the placeholders into quoted variable references.
// cmd.exe runs with delayed expansion so !VAR! is substituted after the
// line is parsed.
func (r *Runner) expand() string {
	ref := func(name string) string { return `"$` + name + `"` }
	if runtime.GOOS == "windows" {
		ref = func(name string) string { return `"!` + name + `!"` }
	}
	return strings.NewReplacer(
		"{host}", ref("RSC_HOST"),
		"{url}", ref("RSC_URL"),
		"{status}", ref("RSC_STATUS"),
	).Replace(r.cmd)
}

func targetURL(result *scanner.ScanResult) string {
	if result.FinalURL != "" {
		return result.FinalURL
	}
	return result.Host
}

func shellCommand() (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/V:ON", "/C"}
	}
	return "sh", []string{"-c"}
}
