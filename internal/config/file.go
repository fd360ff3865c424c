package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// File mirrors the subset of Options that can be set from a YAML config
// file. Nil fields were not present in the file.
type File struct {
	Threads         *int              `yaml:"threads"`
	Timeout         *string           `yaml:"timeout"`
	RateLimit       *float64          `yaml:"rate_limit"`
	Insecure        *bool             `yaml:"insecure"`
	FollowRedirects *bool             `yaml:"follow_redirects"`
	MaxRedirects    *int              `yaml:"max_redirects"`
	Proxy           *string           `yaml:"proxy"`
	SafeCheck       *bool             `yaml:"safe_check"`
	Windows         *bool             `yaml:"windows"`
	WAFBypass       *bool             `yaml:"waf_bypass"`
	WAFBypassSizeKB *int              `yaml:"waf_bypass_size"`
	VercelWAFBypass *bool             `yaml:"vercel_waf_bypass"`
	Output          *string           `yaml:"output"`
	Format          *string           `yaml:"format"`
	AllResults      *bool             `yaml:"all_results"`
	NoColor         *bool             `yaml:"no_color"`
	OnVulnerable    *string           `yaml:"on_vulnerable"`
	Headers         map[string]string `yaml:"headers"`
}

// LoadFile reads a YAML config file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	return &f, nil
}

// Apply copies file values into opts. changed reports whether a flag was
// set explicitly on the command line; explicit flags win over the file.
// Headers from the file never override a header given with -H.
func (f *File) Apply(opts *Options, changed func(flag string) bool) error {
	setInt(&opts.Threads, f.Threads, "threads", changed)
	setFloat(&opts.RateLimit, f.RateLimit, "rate-limit", changed)
	setBool(&opts.Insecure, f.Insecure, "insecure", changed)
	setBool(&opts.FollowRedirects, f.FollowRedirects, "follow-redirects", changed)
	setInt(&opts.MaxRedirects, f.MaxRedirects, "max-redirects", changed)
	setString(&opts.Proxy, f.Proxy, "proxy", changed)
	setBool(&opts.SafeCheck, f.SafeCheck, "safe-check", changed)
	setBool(&opts.Windows, f.Windows, "windows", changed)
	setBool(&opts.WAFBypass, f.WAFBypass, "waf-bypass", changed)
	setInt(&opts.WAFBypassSizeKB, f.WAFBypassSizeKB, "waf-bypass-size", changed)
	setBool(&opts.VercelWAFBypass, f.VercelWAFBypass, "vercel-waf-bypass", changed)
	setString(&opts.OutputFile, f.Output, "output", changed)
	setString(&opts.OutputFormat, f.Format, "format", changed)
	setBool(&opts.AllResults, f.AllResults, "all-results", changed)
	setBool(&opts.NoColor, f.NoColor, "no-color", changed)
	setString(&opts.OnVulnerableCmd, f.OnVulnerable, "on-vulnerable", changed)

	if f.Timeout != nil && !changed("timeout") {
		d, err := time.ParseDuration(*f.Timeout)
		if err != nil {
			return fmt.Errorf("%w: timeout %q: %v", ErrInvalidConfig, *f.Timeout, err)
		}
		opts.Timeout = d
	}

	for _, k := range slices.Sorted(maps.Keys(f.Headers)) {
		if !opts.HasHeader(k) {
			opts.Headers = append(opts.Headers, Header{Key: k, Value: f.Headers[k]})
		}
	}
	return nil
}

func setInt(dst *int, v *int, flag string, changed func(string) bool) {
	if v != nil && !changed(flag) {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64, flag string, changed func(string) bool) {
	if v != nil && !changed(flag) {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool, flag string, changed func(string) bool) {
	if v != nil && !changed(flag) {
		*dst = *v
	}
}

func setString(dst *string, v *string, flag string, changed func(string) bool) {
	if v != nil && !changed(flag) {
		*dst = *v
	}
}
