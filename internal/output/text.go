package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/maxvaer/rschunter/internal/scanner"
)

// snippetLines is how many response trace lines verbose output shows.
const snippetLines = 10

var (
	colorVulnerable = lipgloss.Color("#FF3838")
	colorClean      = lipgloss.Color("#00D26A")
	colorErrored    = lipgloss.Color("#FFB800")
	colorInfo       = lipgloss.Color("#00D4AA")
	colorMuted      = lipgloss.Color("#6B7280")
)

type styles struct {
	vulnerable lipgloss.Style
	clean      lipgloss.Style
	errored    lipgloss.Style
	info       lipgloss.Style
	muted      lipgloss.Style
	bold       lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		vulnerable: r.NewStyle().Foreground(colorVulnerable).Bold(true),
		clean:      r.NewStyle().Foreground(colorClean),
		errored:    r.NewStyle().Foreground(colorErrored),
		info:       r.NewStyle().Foreground(colorInfo),
		muted:      r.NewStyle().Foreground(colorMuted),
		bold:       r.NewStyle().Bold(true),
	}
}

// Console renders per-host results and the final summary for humans.
type Console struct {
	w       io.Writer
	verbose bool
	st      styles
}

// NewConsole creates a console renderer writing to w. noColor forces plain
// text even on a color terminal.
func NewConsole(w io.Writer, noColor, verbose bool) *Console {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Console{w: w, verbose: verbose, st: newStyles(r)}
}

// Banner prints the tool name and version.
func (c *Console) Banner(version string) {
	fmt.Fprintf(c.w, "\n%s %s - Next.js RSC RCE Scanner\n%s\n\n",
		c.st.info.Bold(true).Render("rschunter"),
		c.st.muted.Render("v"+version),
		c.st.info.Render("based on research from Assetnote"))
}

// Info prints a "[*]" status line.
func (c *Console) Info(format string, args ...any) {
	fmt.Fprintln(c.w, c.st.info.Render("[*] "+fmt.Sprintf(format, args...)))
}

// Success prints a "[+]" status line.
func (c *Console) Success(format string, args ...any) {
	fmt.Fprintln(c.w, c.st.clean.Render("[+] "+fmt.Sprintf(format, args...)))
}

// Warn prints a "[!]" status line.
func (c *Console) Warn(format string, args ...any) {
	fmt.Fprintln(c.w, c.st.errored.Render("[!] "+fmt.Sprintf(format, args...)))
}

// Result prints one host outcome. The redirect line is shown for findings,
// and for clean hosts in verbose mode. Verbose findings also get the first
// lines of the response trace.
func (c *Console) Result(r *scanner.ScanResult) error {
	var b strings.Builder
	switch r.Vulnerable {
	case scanner.Vulnerable:
		fmt.Fprintf(&b, "%s %s - Status: %d\n", c.st.vulnerable.Render("[VULNERABLE]"), c.st.bold.Render(r.Host), r.StatusCode)
		if r.Redirected() {
			fmt.Fprintf(&b, "  -> Redirected to: %s\n", r.FinalURL)
		}
	case scanner.NotVulnerable:
		fmt.Fprintf(&b, "%s %s - Status: %d\n", c.st.clean.Render("[NOT VULNERABLE]"), r.Host, r.StatusCode)
		if c.verbose && r.Redirected() {
			fmt.Fprintf(&b, "  -> Redirected to: %s\n", r.FinalURL)
		}
	default:
		msg := r.Error
		if msg == "" {
			msg = "Unknown error"
		}
		fmt.Fprintf(&b, "%s %s - %s\n", c.st.errored.Render("[ERROR]"), r.Host, msg)
	}

	if c.verbose && r.IsVulnerable() && r.Response != "" {
		b.WriteString(c.st.info.Render("  Response snippet:") + "\n")
		lines := strings.Split(r.Response, "\r\n")
		if len(lines) > snippetLines {
			lines = lines[:snippetLines]
		}
		for _, line := range lines {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}

	_, err := io.WriteString(c.w, b.String())
	return err
}

// Summary prints the closing statistics block.
func (c *Console) Summary(s Stats) error {
	rule := c.st.info.Render(strings.Repeat("=", 60))
	vulnerable := fmt.Sprintf("Vulnerable: %d", s.Vulnerable)
	if s.Vulnerable > 0 {
		vulnerable = c.st.vulnerable.Render(vulnerable)
	}
	_, err := fmt.Fprintf(c.w, "\n%s\n%s\n%s\n  Total hosts scanned: %d\n  %s\n  Not vulnerable: %d\n  Errors: %d\n  Duration: %s\n%s\n",
		rule,
		c.st.bold.Render("SCAN SUMMARY"),
		rule,
		s.Total,
		vulnerable,
		s.NotVulnerable,
		s.Errors,
		s.Duration.Round(time.Millisecond),
		rule,
	)
	return err
}
