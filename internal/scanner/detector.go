package scanner

import (
	"bytes"
	"net/http"
	"regexp"
	"strings"

	"github.com/maxvaer/rschunter/internal/config"
)

// Detector decides from a single response whether the target is vulnerable.
type Detector interface {
	Name() string
	Detect(resp *Response) bool
}

// DetectorFor returns the detector bound to a detection mode. The Vercel
// WAF-bypass payload proves execution the same way the RCE PoC does.
func DetectorFor(mode config.Mode) Detector {
	if mode == config.ModeSafeCheck {
		return SafeCheckDetector{}
	}
	return RCEDetector{}
}

var digestMarker = []byte(`E{"digest"`)

// SafeCheckDetector matches the digest error a vulnerable server returns for
// the side-channel payload. Netlify and Vercel answer with the same error
// body while blocking the exploit path, so their responses never match.
type SafeCheckDetector struct{}

func (SafeCheckDetector) Name() string { return string(config.ModeSafeCheck) }

func (SafeCheckDetector) Detect(resp *Response) bool {
	if resp.StatusCode != http.StatusInternalServerError || !bytes.Contains(resp.Body, digestMarker) {
		return false
	}
	return !mitigated(resp.Header)
}

func mitigated(h http.Header) bool {
	if _, ok := h[http.CanonicalHeaderKey("Netlify-Vary")]; ok {
		return true
	}
	server := strings.ToLower(h.Get("Server"))
	return server == "netlify" || server == "vercel"
}

var actionRedirectRe = regexp.MustCompile(`.*/login\?a=11111.*`)

// RCEDetector matches the redirect the PoC forces: 41*271 evaluated on the
// server ends up in X-Action-Redirect as /login?a=11111.
type RCEDetector struct{}

func (RCEDetector) Name() string { return string(config.ModeRCE) }

func (RCEDetector) Detect(resp *Response) bool {
	return actionRedirectRe.MatchString(resp.Header.Get("X-Action-Redirect"))
}
