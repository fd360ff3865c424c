package config

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects the payload builder and detector pair used for a whole run.
type Mode string

const (
	ModeSafeCheck       Mode = "safe-check"
	ModeRCE             Mode = "rce-poc"
	ModeVercelWAFBypass Mode = "vercel-waf-bypass"
)

// Defaults used by the CLI and by Default().
const (
	DefaultThreads          = 10
	DefaultTimeout          = 10 * time.Second
	DefaultWAFBypassTimeout = 20 * time.Second
	DefaultWAFBypassSizeKB  = 128
	DefaultMaxRedirects     = 10
)

// Header is a single custom request header. Order is preserved.
type Header struct {
	Key   string
	Value string
}

// Options holds all configuration for a scan run.
type Options struct {
	// Target
	URL         string
	URLsFile    string
	CIDRTargets string
	Ports       string
	RequestFile string // raw HTTP request (e.g. Burp export)

	// Detection
	SafeCheck       bool
	Windows         bool
	WAFBypass       bool
	WAFBypassSizeKB int
	VercelWAFBypass bool

	// Performance
	Threads   int
	Timeout   time.Duration
	RateLimit float64 // requests per second across all workers, 0 = unlimited

	// HTTP
	Headers         []Header
	Insecure        bool
	FollowRedirects bool
	MaxRedirects    int
	Proxy           string

	// Output
	OutputFile   string
	OutputFormat string // "json", "csv"
	AllResults   bool
	Quiet        bool
	Verbose      bool
	NoColor      bool
	Debug        bool

	// Hooks
	OnVulnerableCmd string
}

// Default returns the options the CLI starts from.
func Default() Options {
	return Options{
		WAFBypassSizeKB: DefaultWAFBypassSizeKB,
		Threads:         DefaultThreads,
		Timeout:         DefaultTimeout,
		Insecure:        true,
		FollowRedirects: true,
		MaxRedirects:    DefaultMaxRedirects,
		OutputFormat:    "json",
	}
}

// Mode resolves the detection mode. Safe check takes precedence over the
// Vercel variant, which takes precedence over the plain RCE PoC.
func (o *Options) Mode() Mode {
	switch {
	case o.SafeCheck:
		return ModeSafeCheck
	case o.VercelWAFBypass:
		return ModeVercelWAFBypass
	default:
		return ModeRCE
	}
}

// Validate checks option ranges and mutually exclusive switches.
func (o *Options) Validate() error {
	if o.Threads < 1 {
		return fmt.Errorf("%w: --threads must be at least 1", ErrInvalidConfig)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("%w: --timeout must be positive", ErrInvalidConfig)
	}
	if o.MaxRedirects < 0 {
		return fmt.Errorf("%w: --max-redirects must not be negative", ErrInvalidConfig)
	}
	if o.WAFBypass && o.WAFBypassSizeKB < 1 {
		return fmt.Errorf("%w: --waf-bypass-size must be at least 1 KB", ErrInvalidConfig)
	}
	if o.RateLimit < 0 {
		return fmt.Errorf("%w: --rate-limit must not be negative", ErrInvalidConfig)
	}
	if o.SafeCheck && o.VercelWAFBypass {
		return fmt.Errorf("%w: --safe-check and --vercel-waf-bypass are mutually exclusive", ErrInvalidConfig)
	}
	if o.SafeCheck && o.WAFBypass {
		return fmt.Errorf("%w: --waf-bypass only applies to the RCE PoC payload", ErrInvalidConfig)
	}
	if o.Quiet && o.Verbose {
		return fmt.Errorf("%w: --quiet and --verbose are mutually exclusive", ErrInvalidConfig)
	}
	switch o.OutputFormat {
	case "json", "csv":
	default:
		return fmt.Errorf("%w: --format must be one of: json, csv", ErrInvalidConfig)
	}
	return nil
}

// ParseHeader splits a "Key: Value" string. A missing space after the colon
// is tolerated.
func ParseHeader(s string) (Header, error) {
	key, value, ok := strings.Cut(s, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return Header{}, fmt.Errorf("%w: invalid header format %q, expected 'Key: Value'", ErrInvalidConfig, s)
	}
	return Header{Key: key, Value: strings.TrimLeft(value, " \t")}, nil
}

// SetHeader replaces the value of an existing header (case-insensitive key)
// in place, or appends it.
func (o *Options) SetHeader(h Header) {
	for i := range o.Headers {
		if strings.EqualFold(o.Headers[i].Key, h.Key) {
			o.Headers[i].Value = h.Value
			return
		}
	}
	o.Headers = append(o.Headers, h)
}

// HasHeader reports whether a header with the given key is configured.
func (o *Options) HasHeader(key string) bool {
	for _, h := range o.Headers {
		if strings.EqualFold(h.Key, key) {
			return true
		}
	}
	return false
}
