package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/maxvaer/rschunter/internal/config"
	"github.com/maxvaer/rschunter/internal/hook"
	"github.com/maxvaer/rschunter/internal/netutil"
	"github.com/maxvaer/rschunter/internal/output"
	"github.com/maxvaer/rschunter/internal/reqparse"
	"github.com/maxvaer/rschunter/internal/scanner"
	"github.com/maxvaer/rschunter/pkg/version"
)

// Run executes the full scan pipeline and returns the folded statistics.
// Only target resolution and setup errors are returned; per-host failures
// are part of the results.
func Run(ctx context.Context, opts *config.Options) (output.Stats, error) {
	r := &runner{
		opts:   opts,
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: slog.Default(),
		stdin:  startStdinToggle,
	}
	return r.run(ctx)
}

type runner struct {
	opts   *config.Options
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
	stdin  func(quiet bool) (*scanner.Pauser, func())
}

func (r *runner) run(ctx context.Context) (output.Stats, error) {
	opts := r.opts
	hosts, err := resolveTargets(opts)
	if err != nil {
		return output.Stats{}, err
	}

	s, err := scanner.New(opts, r.logger)
	if err != nil {
		return output.Stats{}, fmt.Errorf("creating scanner: %w", err)
	}

	console := output.NewConsole(r.stdout, opts.NoColor, opts.Verbose)
	status := output.NewConsole(r.stderr, opts.NoColor, opts.Verbose)
	if !opts.Quiet {
		status.Banner(version.Version)
		status.Info("Loaded %d host(s) to scan", len(hosts))
		status.Info("Using %d thread(s)", opts.Threads)
		status.Info("Timeout: %s", opts.Timeout)
		status.Info("Mode: %s", s.Detector().Name())
	}

	var hookRunner *hook.Runner
	if opts.OnVulnerableCmd != "" {
		hookRunner = hook.NewRunner(opts.OnVulnerableCmd, r.stderr, r.logger)
	}

	start := time.Now()
	var results []scanner.ScanResult
	if len(hosts) == 1 {
		res := s.Scan(context.WithoutCancel(ctx), hosts[0])
		results = append(results, res)
		if !opts.Quiet || res.IsVulnerable() {
			r.print(console, &res)
		}
		if res.IsVulnerable() && hookRunner != nil {
			hookRunner.Run(ctx, &res)
		}
	} else {
		results = r.runBatch(ctx, s, hosts, console, hookRunner)
	}
	stats := output.Summarize(results, time.Since(start))

	if ctx.Err() != nil && !opts.Quiet {
		status.Warn("Scan interrupted: %d of %d host(s) scanned", len(results), len(hosts))
	}
	if !opts.Quiet {
		if err := console.Summary(stats); err != nil {
			r.logger.Warn("writing summary", slog.String("error", err.Error()))
		}
	}

	if opts.OutputFile != "" {
		if err := writeReport(opts, results, stats); err != nil {
			r.logger.Error("failed to save results", slog.String("file", opts.OutputFile), slog.String("error", err.Error()))
			status.Warn("Failed to save results: %v", err)
		} else if !opts.Quiet {
			status.Success("Results saved to: %s", opts.OutputFile)
		}
	}
	return stats, nil
}

func (r *runner) runBatch(ctx context.Context, s *scanner.Scanner, hosts []string, console *output.Console, hookRunner *hook.Runner) []scanner.ScanResult {
	opts := r.opts
	pauser, cleanup := r.stdin(opts.Quiet)
	defer cleanup()
	if pauser != nil && !opts.Quiet {
		fmt.Fprintf(r.stderr, "[*] Press Enter or Space to pause/resume\n")
	}

	progress := output.NewProgress(len(hosts), opts.Quiet, pauser.PausedDuration)
	progress.Start()
	defer progress.Stop()

	results := make([]scanner.ScanResult, 0, len(hosts))
	for res := range scanner.RunPool(ctx, s, hosts, scanner.PoolConfig{Threads: opts.Threads, Pauser: pauser}) {
		results = append(results, res)
		progress.Record(res.IsVulnerable(), res.Failed())

		if res.IsVulnerable() || (opts.Verbose && !opts.Quiet) {
			progress.ClearLine()
			r.print(console, &res)
			progress.Redraw()
		}
		if res.IsVulnerable() && hookRunner != nil {
			hookRunner.Run(ctx, &res)
		}
	}
	return results
}

func (r *runner) print(console *output.Console, res *scanner.ScanResult) {
	if err := console.Result(res); err != nil {
		r.logger.Warn("writing result", slog.String("host", res.Host), slog.String("error", err.Error()))
	}
}

func writeReport(opts *config.Options, results []scanner.ScanResult, stats output.Stats) error {
	w, err := output.NewWriter(opts.OutputFormat, opts.OutputFile, opts.AllResults)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.WriteHeader(); err != nil {
		return err
	}
	for i := range results {
		if err := w.WriteResult(&results[i]); err != nil {
			return err
		}
	}
	if err := w.WriteFooter(stats); err != nil {
		return err
	}
	return w.Close()
}

// resolveTargets builds the host list from -u, -l, --cidr and -r. Headers
// from a request file are merged into opts unless already set with -H.
func resolveTargets(opts *config.Options) ([]string, error) {
	var targets []string

	if opts.URL != "" {
		targets = append(targets, opts.URL)
	}

	if opts.URLsFile != "" {
		hosts, err := loadHosts(opts.URLsFile)
		if err != nil {
			return nil, err
		}
		targets = append(targets, hosts...)
	}

	if opts.CIDRTargets != "" {
		urls, err := netutil.ExpandTargets(opts.CIDRTargets, opts.Ports, "https")
		if err != nil {
			return nil, fmt.Errorf("%w: expanding CIDR: %v", config.ErrInvalidConfig, err)
		}
		targets = append(targets, urls...)
	}

	if opts.RequestFile != "" {
		req, err := reqparse.ParseFile(opts.RequestFile)
		if err != nil {
			return nil, err
		}
		targets = append(targets, req.URL)
		for _, h := range req.Headers {
			if !opts.HasHeader(h.Key) {
				opts.Headers = append(opts.Headers, h)
			}
		}
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("%w (use -u, -l, --cidr or -r)", config.ErrNoTargets)
	}
	return targets, nil
}

// loadHosts reads one host per line, skipping blanks and # comments.
func loadHosts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening hosts file: %w", err)
	}
	defer f.Close()

	var hosts []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			hosts = append(hosts, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading hosts file: %w", err)
	}
	return hosts, nil
}
