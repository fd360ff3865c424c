package scanner

import (
	"strings"
	"time"
)

// Verdict is the tri-state outcome of a host scan.
type Verdict int

const (
	// Unknown means no verdict was reached; Error is set.
	Unknown Verdict = iota
	NotVulnerable
	Vulnerable
)

func (v Verdict) String() string {
	switch v {
	case Vulnerable:
		return "vulnerable"
	case NotVulnerable:
		return "not vulnerable"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the verdict as true, false or null.
func (v Verdict) MarshalJSON() ([]byte, error) {
	switch v {
	case Vulnerable:
		return []byte("true"), nil
	case NotVulnerable:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// ScanResult is the record produced for one host. Only the orchestrator
// writes to it; once sent to the batch executor it is not modified.
type ScanResult struct {
	Host       string    `json:"host"`
	Vulnerable Verdict   `json:"vulnerable"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	Request    string    `json:"request,omitempty"`
	Response   string    `json:"response,omitempty"`
	FinalURL   string    `json:"final_url,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// IsVulnerable reports whether a detector matched.
func (r *ScanResult) IsVulnerable() bool { return r.Vulnerable == Vulnerable }

// Failed reports whether the scan ended without a verdict.
func (r *ScanResult) Failed() bool { return r.Vulnerable == Unknown }

// Redirected reports whether the verdict came from a redirect target rather
// than the host root.
func (r *ScanResult) Redirected() bool {
	if r.FinalURL == "" {
		return false
	}
	base, err := NormalizeHost(r.Host)
	if err != nil {
		return false
	}
	return strings.TrimRight(r.FinalURL, "/") != base
}

func (r *ScanResult) fail(err error) {
	r.Vulnerable = Unknown
	r.Error = err.Error()
}

func (r *ScanResult) conclude(v Verdict) {
	r.Vulnerable = v
	r.Error = ""
}
