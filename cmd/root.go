package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/maxvaer/rschunter/internal/config"
	"github.com/maxvaer/rschunter/internal/output"
	"github.com/maxvaer/rschunter/internal/runner"
	"github.com/maxvaer/rschunter/pkg/version"
)

// run is replaced in tests.
var run = runner.Run

type flagGroup struct {
	title string
	flags []string
}

var helpGroups = []flagGroup{
	{"TARGET", []string{"url", "list", "cidr", "ports", "request-file"}},
	{"DETECTION", []string{"safe-check", "windows", "waf-bypass", "waf-bypass-size", "vercel-waf-bypass"}},
	{"RATE-LIMIT", []string{"threads", "timeout", "rate-limit"}},
	{"HTTP", []string{"header", "insecure", "proxy", "follow-redirects", "max-redirects"}},
	{"OUTPUT", []string{"output", "format", "all-results", "verbose", "quiet", "no-color", "on-vulnerable"}},
	{"CONFIGURATION", []string{"config", "debug"}},
}

// command bundles the root command with the state its flags fill in.
type command struct {
	cobra      *cobra.Command
	opts       config.Options
	rawHeaders []string
	configFile string
	stats      output.Stats
}

func newRootCmd() *command {
	c := &command{opts: config.Default()}
	c.cobra = &cobra.Command{
		Use:     "rschunter -u <host> [flags]",
		Short:   "Scanner for the Next.js React Server Components RCE",
		Version: version.Version,
		Long: `rschunter checks Next.js applications for the React Server Components
remote code execution flaw. The default probe makes a vulnerable server
evaluate 41*271 and reflect the result in a redirect; --safe-check uses a
side-channel payload that executes nothing.`,
		Example: `  rschunter -u https://example.com
  rschunter -l hosts.txt -t 50 -o results.json
  rschunter -u example.com --safe-check
  rschunter -u example.com --waf-bypass --waf-bypass-size 256
  rschunter -u example.com --vercel-waf-bypass -H "Cookie: session=abc"
  rschunter -r burp.req --proxy socks5://127.0.0.1:9050
  rschunter --cidr 10.0.0.0/24 --ports 80,443,3000 --format csv -o out.csv
  rschunter -l hosts.txt --on-vulnerable "notify-send {host}"`,
		PreRunE:       func(cmd *cobra.Command, args []string) error { return c.prepare(cmd.Flags()) },
		RunE:          c.runE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := c.cobra.Flags()
	o := &c.opts

	// Target
	f.StringVarP(&o.URL, "url", "u", "", "Target host or URL")
	f.StringVarP(&o.URLsFile, "list", "l", "", "File with one host per line")
	f.StringVar(&o.CIDRTargets, "cidr", "", "CIDR ranges or IPs to scan (comma-separated)")
	f.StringVar(&o.Ports, "ports", "", "Ports for CIDR targets (comma-separated, e.g. 80,443,3000)")
	f.StringVarP(&o.RequestFile, "request-file", "r", "", "Raw HTTP request file (e.g. Burp Suite export)")

	// Detection
	f.BoolVar(&o.SafeCheck, "safe-check", false, "Use the side-channel check instead of the RCE PoC")
	f.BoolVar(&o.Windows, "windows", false, "Use a PowerShell payload for Windows targets")
	f.BoolVar(&o.WAFBypass, "waf-bypass", false, "Prepend junk data to push the payload past WAF inspection")
	f.IntVar(&o.WAFBypassSizeKB, "waf-bypass-size", config.DefaultWAFBypassSizeKB, "Junk data size in KB for --waf-bypass")
	f.BoolVar(&o.VercelWAFBypass, "vercel-waf-bypass", false, "Use the Vercel WAF bypass payload variant")

	// Performance
	f.IntVarP(&o.Threads, "threads", "t", config.DefaultThreads, "Number of concurrent threads")
	f.DurationVar(&o.Timeout, "timeout", config.DefaultTimeout, "HTTP request timeout (20s with --waf-bypass when left at 10s)")
	f.Float64Var(&o.RateLimit, "rate-limit", 0, "Maximum requests per second across all threads")

	// HTTP
	f.StringArrayVarP(&c.rawHeaders, "header", "H", nil, "Custom header 'Key: Value' (repeatable)")
	f.BoolVarP(&o.Insecure, "insecure", "k", true, "Skip TLS certificate verification")
	f.StringVar(&o.Proxy, "proxy", "", "HTTP(S) or SOCKS5 proxy URL")
	f.BoolVar(&o.FollowRedirects, "follow-redirects", true, "Probe the same-origin redirect target when the root is clean")
	f.IntVar(&o.MaxRedirects, "max-redirects", config.DefaultMaxRedirects, "Maximum redirect hops to follow")

	// Output
	f.StringVarP(&o.OutputFile, "output", "o", "", "Save results to this file")
	f.StringVar(&o.OutputFormat, "format", "json", "Report format: json, csv")
	f.BoolVar(&o.AllResults, "all-results", false, "Save all results, not only vulnerable hosts")
	f.BoolVarP(&o.Verbose, "verbose", "v", false, "Show clean and failed hosts and response snippets")
	f.BoolVarP(&o.Quiet, "quiet", "q", false, "Only print vulnerable hosts")
	f.BoolVar(&o.NoColor, "no-color", false, "Disable colored output")
	f.StringVar(&o.OnVulnerableCmd, "on-vulnerable", "", "Shell command run per vulnerable host ({host}, {url}, {status} or $RSC_HOST, $RSC_URL, $RSC_STATUS; JSON on stdin)")

	// Configuration
	f.StringVar(&c.configFile, "config", "", "YAML config file (flags take precedence)")
	f.BoolVar(&o.Debug, "debug", false, "Log probe and redirect details to stderr")

	c.cobra.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		printHelp(cmd.ErrOrStderr(), cmd)
	})
	return c
}

// prepare turns raw flag values into validated options: headers are
// parsed, the config file is merged and the WAF bypass timeout applied.
func (c *command) prepare(flags *pflag.FlagSet) error {
	o := &c.opts
	for _, raw := range c.rawHeaders {
		h, err := config.ParseHeader(raw)
		if err != nil {
			return err
		}
		o.SetHeader(h)
	}

	if c.configFile != "" {
		file, err := config.LoadFile(c.configFile)
		if err != nil {
			return err
		}
		if err := file.Apply(o, flags.Changed); err != nil {
			return err
		}
	}

	// Junk-padded bodies take longer to upload and parse. A timeout left
	// at the default, typed or not, is doubled.
	if o.WAFBypass && o.Timeout == config.DefaultTimeout {
		o.Timeout = config.DefaultWAFBypassTimeout
	}

	if o.URL == "" && o.URLsFile == "" && o.CIDRTargets == "" && o.RequestFile == "" {
		return fmt.Errorf("%w: use -u, -l, --cidr or -r", config.ErrNoTargets)
	}
	return o.Validate()
}

func (c *command) runE(cmd *cobra.Command, args []string) error {
	setupLogging(cmd.ErrOrStderr(), c.opts.Debug)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stats, err := run(ctx, &c.opts)
	c.stats = stats
	return err
}

func setupLogging(w io.Writer, debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// execute runs the command with args and returns the process exit code.
func (c *command) execute(ctx context.Context, args []string) int {
	c.cobra.SetArgs(args)
	if err := c.cobra.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(c.cobra.ErrOrStderr(), "[ERROR] %v\n", err)
		if errors.Is(err, config.ErrNoTargets) {
			fmt.Fprintf(c.cobra.ErrOrStderr(), "Run '%s --help' for usage.\n", c.cobra.Name())
		}
		return ExitUserError
	}
	if c.stats.Vulnerable > 0 {
		return ExitVulnerable
	}
	return ExitClean
}

// Execute runs the root command and exits with 1 when a vulnerable host
// was found, or 2 on invalid input.
func Execute() {
	os.Exit(newRootCmd().execute(context.Background(), os.Args[1:]))
}

func printHelp(w io.Writer, cmd *cobra.Command) {
	fmt.Fprint(w, helpBanner(cmd.Version))
	fmt.Fprintf(w, "%s\n\nUsage:\n  %s\n", cmd.Long, cmd.UseLine())
	fmt.Fprintf(w, "\nExamples:\n%s\n", cmd.Example)
	fmt.Fprintf(w, "\nFlags:\n")
	for _, g := range helpGroups {
		fmt.Fprintf(w, "\n%s:\n", g.title)
		for _, name := range g.flags {
			if f := cmd.Flags().Lookup(name); f != nil {
				fmt.Fprintln(w, formatFlag(f))
			}
		}
	}
	fmt.Fprintln(w)
}

func formatFlag(f *pflag.Flag) string {
	var left string
	if f.Shorthand != "" {
		left = fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	} else {
		left = fmt.Sprintf("    --%s", f.Name)
	}

	typ := f.Value.Type()
	if typ != "bool" {
		left += " " + typ
	}

	const col = 32
	if len(left) < col {
		left += strings.Repeat(" ", col-len(left))
	}

	right := f.Usage
	def := f.DefValue
	if def != "" && def != "false" && def != "0" && def != "0s" && def != "[]" {
		right += fmt.Sprintf(" (default %s)", def)
	}
	return "   " + left + right
}

func helpBanner(ver string) string {
	if ver != "dev" && ver != "" && !strings.HasPrefix(ver, "v") {
		ver = "v" + ver
	}
	return fmt.Sprintf("\n  rschunter %s\n  Next.js RSC RCE scanner, based on research from Assetnote\n\n", ver)
}
